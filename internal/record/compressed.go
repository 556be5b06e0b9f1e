package record

import (
	"fmt"

	"github.com/ekg/gbwt/core"
)

// CompressedRecord reads a record directly from its packed byte
// encoding. The header is decoded eagerly; body runs are iterated on
// each query. Records are immutable.
type CompressedRecord struct {
	Outgoing []core.Edge
	body     []byte
}

// DecodeCompressed parses the record occupying data[start:limit].
func DecodeCompressed(data []byte, start, limit uint64) (*CompressedRecord, error) {
	if start > limit || limit > uint64(len(data)) {
		return nil, fmt.Errorf("%w: record bounds [%d, %d) outside data of %d bytes", ErrCorrupt, start, limit, len(data))
	}
	c := cursor{data: data[start:limit]}
	outgoing, err := decodeHeader(&c)
	if err != nil {
		return nil, err
	}
	return &CompressedRecord{Outgoing: outgoing, body: c.data[c.pos:]}, nil
}

// EmptyRecord peeks at the header of the record starting at the given
// position and reports whether its outdegree is zero.
func EmptyRecord(data []byte, start uint64) bool {
	if start >= uint64(len(data)) {
		return true
	}
	c := cursor{data: data[start:]}
	outdegree, err := c.uvarint()
	return err != nil || outdegree == 0
}

// Outdegree returns the number of outgoing edges.
func (r *CompressedRecord) Outdegree() uint64 { return uint64(len(r.Outgoing)) }

// Size returns the number of BWT positions. This iterates the whole
// body; callers on a hot path should cache it.
func (r *CompressedRecord) Size() uint64 {
	var size uint64
	it := newRunIter(r.body, r.Outdegree())
	for {
		run, ok, err := it.next()
		if !ok || err != nil {
			return size
		}
		size += run.Length
	}
}

// Empty reports whether the record has no BWT positions.
func (r *CompressedRecord) Empty() bool { return r.Outdegree() == 0 || len(r.body) == 0 }

// Runs returns the number of runs in the body. Like Size, this decodes
// the whole body.
func (r *CompressedRecord) Runs() uint64 {
	var runs uint64
	it := newRunIter(r.body, r.Outdegree())
	for {
		_, ok, err := it.next()
		if !ok || err != nil {
			return runs
		}
		runs++
	}
}

// LF returns the position following offset i, or the invalid edge when
// i is out of range.
func (r *CompressedRecord) LF(i uint64) core.Edge {
	edge, _ := r.RunLF(i)
	return edge
}

// RunLF is LF with the last offset of the run covering i.
func (r *CompressedRecord) RunLF(i uint64) (core.Edge, uint64) {
	counts := make([]uint64, len(r.Outgoing))
	var pos uint64
	it := newRunIter(r.body, r.Outdegree())
	for {
		run, ok, err := it.next()
		if !ok || err != nil {
			return core.InvalidEdge(), 0
		}
		if i < pos+run.Length {
			rank := counts[run.Outrank] + (i - pos)
			return core.Edge{
				Node:   r.Outgoing[run.Outrank].Node,
				Offset: r.Outgoing[run.Outrank].Offset + rank,
			}, pos + run.Length - 1
		}
		counts[run.Outrank] += run.Length
		pos += run.Length
	}
}

// rankAt returns the number of occurrences of outrank before offset i.
func (r *CompressedRecord) rankAt(outrank, i uint64) uint64 {
	var rank, pos uint64
	it := newRunIter(r.body, r.Outdegree())
	for pos < i {
		run, ok, err := it.next()
		if !ok || err != nil {
			break
		}
		if run.Outrank == outrank {
			n := run.Length
			if pos+n > i {
				n = i - pos
			}
			rank += n
		}
		pos += run.Length
	}
	return rank
}

// countsAt returns per-outrank occurrence counts before offset i.
func (r *CompressedRecord) countsAt(i uint64) []uint64 {
	counts := make([]uint64, len(r.Outgoing))
	var pos uint64
	it := newRunIter(r.body, r.Outdegree())
	for pos < i {
		run, ok, err := it.next()
		if !ok || err != nil {
			break
		}
		n := run.Length
		if pos+n > i {
			n = i - pos
		}
		counts[run.Outrank] += n
		pos += run.Length
	}
	return counts
}

// LFNode returns LF(i) restricted to the edge towards 'to', or
// InvalidOffset when there is no such edge.
func (r *CompressedRecord) LFNode(i uint64, to uint64) uint64 {
	outrank := r.EdgeTo(to)
	if outrank >= r.Outdegree() {
		return core.InvalidOffset
	}
	return r.Outgoing[outrank].Offset + r.rankAt(outrank, i)
}

// LFRange maps a range of offsets through the edge towards 'to'.
func (r *CompressedRecord) LFRange(rng core.Range, to uint64) core.Range {
	if rng.Empty() {
		return core.EmptyRange()
	}
	outrank := r.EdgeTo(to)
	if outrank >= r.Outdegree() {
		return core.EmptyRange()
	}
	base := r.Outgoing[outrank].Offset
	start := base + r.rankAt(outrank, rng.Start)
	end := base + r.rankAt(outrank, rng.End+1)
	if start >= end {
		return core.EmptyRange()
	}
	return core.Range{Start: start, End: end - 1}
}

// BdLF is LFRange extended for bidirectional search: it also returns
// the number of offsets in the range whose successor x satisfies
// reverse(x) < reverse(to).
func (r *CompressedRecord) BdLF(rng core.Range, to uint64) (core.Range, uint64) {
	if rng.Empty() {
		return core.EmptyRange(), 0
	}
	outrank := r.EdgeTo(to)
	if outrank >= r.Outdegree() {
		return core.EmptyRange(), 0
	}
	before := r.countsAt(rng.Start)
	until := r.countsAt(rng.End + 1)
	start := r.Outgoing[outrank].Offset + before[outrank]
	end := r.Outgoing[outrank].Offset + until[outrank]
	if start >= end {
		return core.EmptyRange(), 0
	}
	var reverseOffset uint64
	target := core.NodeReverse(to)
	for k := range r.Outgoing {
		if core.NodeReverse(r.Outgoing[k].Node) < target {
			reverseOffset += until[k] - before[k]
		}
	}
	return core.Range{Start: start, End: end - 1}, reverseOffset
}

// At returns the successor node at offset i.
func (r *CompressedRecord) At(i uint64) (uint64, bool) {
	var pos uint64
	it := newRunIter(r.body, r.Outdegree())
	for {
		run, ok, err := it.next()
		if !ok || err != nil {
			return 0, false
		}
		if i < pos+run.Length {
			return r.Outgoing[run.Outrank].Node, true
		}
		pos += run.Length
	}
}

// HasEdge reports whether there is an outgoing edge towards 'to'.
func (r *CompressedRecord) HasEdge(to uint64) bool { return r.EdgeTo(to) < r.Outdegree() }

// EdgeTo maps a successor node to its outrank, returning the outdegree
// when there is no such edge.
func (r *CompressedRecord) EdgeTo(to uint64) uint64 { return edgeTo(to, r.Outgoing) }

// Successor returns the destination of a valid outrank.
func (r *CompressedRecord) Successor(outrank uint64) uint64 { return r.Outgoing[outrank].Node }

// Offset returns the cumulative offset of a valid outrank.
func (r *CompressedRecord) Offset(outrank uint64) uint64 { return r.Outgoing[outrank].Offset }

// Body iterates the decoded runs, calling fn for each. Iteration stops
// early when fn returns false. A decode error is returned as is.
func (r *CompressedRecord) Body(fn func(run core.Run) bool) error {
	it := newRunIter(r.body, r.Outdegree())
	for {
		run, ok, err := it.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if !fn(run) {
			return nil
		}
	}
}

// Verify decodes the whole body, returning any decode error. It is
// used once at load time so queries can assume well-formed records.
func (r *CompressedRecord) Verify() error {
	return r.Body(func(core.Run) bool { return true })
}
