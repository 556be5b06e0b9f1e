package record

import "github.com/ekg/gbwt/core"

// DecompressedRecord is a record expanded into an edge array: body[i]
// is the full LF image of offset i. Extraction walks become array
// lookups; rank-based queries (LFNode, LFRange, BdLF) are not
// supported in this form.
type DecompressedRecord struct {
	Outgoing []core.Edge
	After    []core.Edge // outgoing offsets advanced past this record
	Body     []core.Edge
}

// DecompressDynamic expands a recoded dynamic record.
func DecompressDynamic(src *DynamicRecord) *DecompressedRecord {
	r := newDecompressed(src.Outgoing)
	for _, run := range src.Body {
		r.appendRun(run)
	}
	return r
}

// DecompressCompressed expands a compressed record. A decode error in
// the body is surfaced as is.
func DecompressCompressed(src *CompressedRecord) (*DecompressedRecord, error) {
	r := newDecompressed(src.Outgoing)
	err := src.Body(func(run core.Run) bool {
		r.appendRun(run)
		return true
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func newDecompressed(outgoing []core.Edge) *DecompressedRecord {
	r := &DecompressedRecord{
		Outgoing: make([]core.Edge, len(outgoing)),
		After:    make([]core.Edge, len(outgoing)),
	}
	copy(r.Outgoing, outgoing)
	copy(r.After, outgoing)
	return r
}

func (r *DecompressedRecord) appendRun(run core.Run) {
	for n := uint64(0); n < run.Length; n++ {
		r.Body = append(r.Body, r.After[run.Outrank])
		r.After[run.Outrank].Offset++
	}
}

// Size returns the number of BWT positions.
func (r *DecompressedRecord) Size() uint64 { return uint64(len(r.Body)) }

// Empty reports whether the record has no BWT positions.
func (r *DecompressedRecord) Empty() bool { return len(r.Body) == 0 }

// Outdegree returns the number of outgoing edges.
func (r *DecompressedRecord) Outdegree() uint64 { return uint64(len(r.Outgoing)) }

// Runs counts the maximal runs in the body.
func (r *DecompressedRecord) Runs() uint64 {
	if len(r.Body) == 0 {
		return 0
	}
	runs := uint64(1)
	for i := 1; i < len(r.Body); i++ {
		if r.Body[i].Node != r.Body[i-1].Node {
			runs++
		}
	}
	return runs
}

// LF returns the position following offset i, or the invalid edge when
// i is out of range.
func (r *DecompressedRecord) LF(i uint64) core.Edge {
	if i >= r.Size() {
		return core.InvalidEdge()
	}
	return r.Body[i]
}

// RunLF is LF with the last offset of the run covering i.
func (r *DecompressedRecord) RunLF(i uint64) (core.Edge, uint64) {
	if i >= r.Size() {
		return core.InvalidEdge(), 0
	}
	end := i
	for end+1 < r.Size() && r.Body[end+1].Node == r.Body[i].Node {
		end++
	}
	return r.Body[i], end
}

// At returns the successor node at offset i.
func (r *DecompressedRecord) At(i uint64) (uint64, bool) {
	if i >= r.Size() {
		return 0, false
	}
	return r.Body[i].Node, true
}

// HasEdge reports whether there is an outgoing edge towards 'to'.
func (r *DecompressedRecord) HasEdge(to uint64) bool { return r.EdgeTo(to) < r.Outdegree() }

// EdgeTo maps a successor node to its outrank, returning the outdegree
// when there is no such edge.
func (r *DecompressedRecord) EdgeTo(to uint64) uint64 { return edgeTo(to, r.Outgoing) }

// Successor returns the destination of a valid outrank.
func (r *DecompressedRecord) Successor(outrank uint64) uint64 { return r.Outgoing[outrank].Node }

// Offset returns the cumulative offset of a valid outrank.
func (r *DecompressedRecord) Offset(outrank uint64) uint64 { return r.Outgoing[outrank].Offset }

// OffsetAfter returns the cumulative offset of a valid outrank after
// the whole record.
func (r *DecompressedRecord) OffsetAfter(outrank uint64) uint64 { return r.After[outrank].Offset }
