package record

import (
	"slices"

	"github.com/ekg/gbwt/core"
)

// DynamicRecord is the growable form of a record. Incoming edges are
// sorted by the source node and their counts sum to the body size.
// Outgoing edges are kept in insertion order until Recode sorts them by
// the destination node.
type DynamicRecord struct {
	BodySize uint64
	Incoming []core.Edge // (predecessor, count)
	Outgoing []core.Edge // (successor, cumulative offset)
	Body     []core.Run
	IDs      []core.Sample
}

// Size returns the number of BWT positions in the record.
func (r *DynamicRecord) Size() uint64 { return r.BodySize }

// Empty reports whether the record has no BWT positions.
func (r *DynamicRecord) Empty() bool { return r.BodySize == 0 }

// Indegree returns the number of incoming edges.
func (r *DynamicRecord) Indegree() uint64 { return uint64(len(r.Incoming)) }

// Outdegree returns the number of outgoing edges.
func (r *DynamicRecord) Outdegree() uint64 { return uint64(len(r.Outgoing)) }

// Runs returns the number of runs in the body.
func (r *DynamicRecord) Runs() uint64 { return uint64(len(r.Body)) }

// Samples returns the number of stored samples.
func (r *DynamicRecord) Samples() uint64 { return uint64(len(r.IDs)) }

// Clear resets the record to the empty state.
func (r *DynamicRecord) Clear() {
	*r = DynamicRecord{}
}

// outgoingSorted reports whether the outgoing edges are sorted by node.
func (r *DynamicRecord) outgoingSorted() bool {
	for i := 1; i < len(r.Outgoing); i++ {
		if r.Outgoing[i-1].Node >= r.Outgoing[i].Node {
			return false
		}
	}
	return true
}

// Recode sorts the outgoing edges and translates the body from
// insertion-order outranks to sorted-order outranks.
func (r *DynamicRecord) Recode() {
	if r.outgoingSorted() {
		return
	}
	type rankedEdge struct {
		edge    core.Edge
		oldRank uint64
	}
	ranked := make([]rankedEdge, len(r.Outgoing))
	for i, e := range r.Outgoing {
		ranked[i] = rankedEdge{edge: e, oldRank: uint64(i)}
	}
	slices.SortFunc(ranked, func(a, b rankedEdge) int {
		switch {
		case a.edge.Node < b.edge.Node:
			return -1
		case a.edge.Node > b.edge.Node:
			return 1
		default:
			return 0
		}
	})
	remap := make([]uint64, len(r.Outgoing))
	for newRank, re := range ranked {
		r.Outgoing[newRank] = re.edge
		remap[re.oldRank] = uint64(newRank)
	}
	body := r.Body
	r.Body = r.Body[:0]
	for _, run := range body {
		r.appendRun(remap[run.Outrank], run.Length)
	}
}

// RemoveUnusedEdges drops outgoing edges with no occurrences in the
// body and recodes the remaining outranks.
func (r *DynamicRecord) RemoveUnusedEdges() {
	used := make([]uint64, len(r.Outgoing))
	for _, run := range r.Body {
		used[run.Outrank] += run.Length
	}
	remap := make([]uint64, len(r.Outgoing))
	kept := r.Outgoing[:0]
	for i, e := range r.Outgoing {
		if used[i] == 0 {
			continue
		}
		remap[i] = uint64(len(kept))
		kept = append(kept, e)
	}
	if len(kept) == len(r.Outgoing) {
		return
	}
	r.Outgoing = kept
	body := r.Body
	r.Body = r.Body[:0]
	for _, run := range body {
		r.appendRun(remap[run.Outrank], run.Length)
	}
}

// AppendRun appends a run at the end of the body, merging with the
// previous run when the outrank matches. The body size grows by the
// run length.
func (r *DynamicRecord) AppendRun(outrank, length uint64) {
	r.appendRun(outrank, length)
	r.BodySize += length
}

// appendRun appends a run, merging with the previous run when the
// outrank matches.
func (r *DynamicRecord) appendRun(outrank, length uint64) {
	if n := len(r.Body); n > 0 && r.Body[n-1].Outrank == outrank {
		r.Body[n-1].Length += length
		return
	}
	r.Body = append(r.Body, core.Run{Outrank: outrank, Length: length})
}

// WriteBWT appends the compressed representation of the record and
// returns the extended buffer. The record must be recoded first.
func (r *DynamicRecord) WriteBWT(buf []byte) []byte {
	buf = appendHeader(buf, r.Outgoing)
	return appendBody(buf, r.Body, r.Outdegree())
}

// LF returns the position following offset i, or the invalid edge when
// i is out of range.
func (r *DynamicRecord) LF(i uint64) core.Edge {
	edge, _ := r.RunLF(i)
	return edge
}

// RunLF is LF with the last offset of the run covering i.
func (r *DynamicRecord) RunLF(i uint64) (core.Edge, uint64) {
	if i >= r.BodySize {
		return core.InvalidEdge(), 0
	}
	counts := make([]uint64, len(r.Outgoing))
	var pos uint64
	for _, run := range r.Body {
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
	return core.InvalidEdge(), 0
}

// Rank returns the number of occurrences of outrank before offset i.
func (r *DynamicRecord) Rank(outrank, i uint64) uint64 {
	return r.rankAt(outrank, i)
}

// rankAt returns the number of occurrences of outrank before offset i.
func (r *DynamicRecord) rankAt(outrank, i uint64) uint64 {
	var rank, pos uint64
	for _, run := range r.Body {
		if pos >= i {
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

// LFNode returns LF(i) restricted to the edge towards 'to', or
// InvalidOffset when there is no such edge.
func (r *DynamicRecord) LFNode(i uint64, to uint64) uint64 {
	outrank := r.EdgeTo(to)
	if outrank >= r.Outdegree() {
		return core.InvalidOffset
	}
	return r.Outgoing[outrank].Offset + r.rankAt(outrank, i)
}

// LFRange maps a range of offsets through the edge towards 'to'.
func (r *DynamicRecord) LFRange(rng core.Range, to uint64) core.Range {
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
func (r *DynamicRecord) BdLF(rng core.Range, to uint64) (core.Range, uint64) {
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

// countsAt returns per-outrank occurrence counts before offset i.
func (r *DynamicRecord) countsAt(i uint64) []uint64 {
	counts := make([]uint64, len(r.Outgoing))
	var pos uint64
	for _, run := range r.Body {
		if pos >= i {
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

// At returns the successor node at offset i.
func (r *DynamicRecord) At(i uint64) (uint64, bool) {
	if i >= r.BodySize {
		return 0, false
	}
	var pos uint64
	for _, run := range r.Body {
		if i < pos+run.Length {
			return r.Outgoing[run.Outrank].Node, true
		}
		pos += run.Length
	}
	return 0, false
}

// HasEdge reports whether there is an outgoing edge towards 'to'.
func (r *DynamicRecord) HasEdge(to uint64) bool { return r.EdgeTo(to) < r.Outdegree() }

// EdgeTo maps a successor node to its outrank by binary search. It
// returns the outdegree when there is no such edge. The outgoing edges
// must be sorted.
func (r *DynamicRecord) EdgeTo(to uint64) uint64 {
	return edgeTo(to, r.Outgoing)
}

// EdgeToLinear is EdgeTo for records whose outgoing edges have not
// been sorted yet.
func (r *DynamicRecord) EdgeToLinear(to uint64) uint64 {
	for i, e := range r.Outgoing {
		if e.Node == to {
			return uint64(i)
		}
	}
	return r.Outdegree()
}

// Successor returns the destination of a valid outrank.
func (r *DynamicRecord) Successor(outrank uint64) uint64 { return r.Outgoing[outrank].Node }

// Offset returns the cumulative offset of a valid outrank.
func (r *DynamicRecord) Offset(outrank uint64) uint64 { return r.Outgoing[outrank].Offset }

// SetOffset updates the cumulative offset of a valid outrank.
func (r *DynamicRecord) SetOffset(outrank, offset uint64) { r.Outgoing[outrank].Offset = offset }

// Predecessor returns the source of a valid inrank.
func (r *DynamicRecord) Predecessor(inrank uint64) uint64 { return r.Incoming[inrank].Node }

// Count returns the number of positions contributed by a valid inrank.
func (r *DynamicRecord) Count(inrank uint64) uint64 { return r.Incoming[inrank].Offset }

// CountBefore sums the counts of incoming edges from nodes < from.
func (r *DynamicRecord) CountBefore(from uint64) uint64 {
	var total uint64
	for _, e := range r.Incoming {
		if e.Node >= from {
			break
		}
		total += e.Offset
	}
	return total
}

// CountUntil sums the counts of incoming edges from nodes <= from.
func (r *DynamicRecord) CountUntil(from uint64) uint64 {
	var total uint64
	for _, e := range r.Incoming {
		if e.Node > from {
			break
		}
		total += e.Offset
	}
	return total
}

// Increment adds one to the count of the incoming edge from 'from',
// inserting the edge when it does not exist yet.
func (r *DynamicRecord) Increment(from uint64) {
	for i := range r.Incoming {
		if r.Incoming[i].Node == from {
			r.Incoming[i].Offset++
			return
		}
	}
	r.AddIncoming(core.Edge{Node: from, Offset: 1})
}

// AddIncoming inserts a new incoming edge, keeping the list sorted by
// the source node.
func (r *DynamicRecord) AddIncoming(inedge core.Edge) {
	at := len(r.Incoming)
	for i, e := range r.Incoming {
		if e.Node > inedge.Node {
			at = i
			break
		}
	}
	r.Incoming = slices.Insert(r.Incoming, at, inedge)
}

// NextSample returns the first sample at offset >= i.
func (r *DynamicRecord) NextSample(i uint64) (core.Sample, bool) {
	for _, s := range r.IDs {
		if s.Offset >= i {
			return s, true
		}
	}
	return core.Sample{}, false
}

// FindOrAddOutgoing returns the outrank of the edge towards 'to',
// appending a new edge in insertion order when absent. Used during
// construction; Recode restores the sorted order.
func (r *DynamicRecord) FindOrAddOutgoing(to uint64) uint64 {
	if outrank := r.EdgeToLinear(to); outrank < r.Outdegree() {
		return outrank
	}
	r.Outgoing = append(r.Outgoing, core.Edge{Node: to})
	return r.Outdegree() - 1
}

// InsertSymbol splices an occurrence of the outrank into the body at
// the given offset and grows the body size.
func (r *DynamicRecord) InsertSymbol(pos, outrank uint64) {
	if pos > r.BodySize {
		pos = r.BodySize
	}
	r.BodySize++
	var at uint64
	for i := range r.Body {
		run := r.Body[i]
		if pos < at+run.Length || (pos == at+run.Length && run.Outrank == outrank) {
			if run.Outrank == outrank {
				r.Body[i].Length++
				return
			}
			// Split the covering run around the new symbol.
			head := pos - at
			tail := run.Length - head
			r.Body[i].Length = head
			inserted := []core.Run{{Outrank: outrank, Length: 1}, {Outrank: run.Outrank, Length: tail}}
			if head == 0 {
				r.Body[i] = inserted[0]
				inserted = inserted[1:]
			}
			r.Body = slices.Insert(r.Body, i+1, inserted...)
			return
		}
		at += run.Length
	}
	r.appendRun(outrank, 1)
}

// ShiftSamples moves samples at offsets >= pos forward by one, making
// room for an inserted position.
func (r *DynamicRecord) ShiftSamples(pos uint64) {
	for i := range r.IDs {
		if r.IDs[i].Offset >= pos {
			r.IDs[i].Offset++
		}
	}
}

// AddSample stores a sample, keeping the list sorted by offset.
func (r *DynamicRecord) AddSample(pos, sequence uint64) {
	at := len(r.IDs)
	for i, s := range r.IDs {
		if s.Offset >= pos {
			at = i
			break
		}
	}
	r.IDs = slices.Insert(r.IDs, at, core.Sample{Offset: pos, Sequence: sequence})
}

// edgeTo is the shared binary search mapping successor nodes to
// outranks over a sorted edge list.
func edgeTo(to uint64, outgoing []core.Edge) uint64 {
	lo, hi := 0, len(outgoing)
	for lo < hi {
		mid := (lo + hi) / 2
		if outgoing[mid].Node < to {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(outgoing) && outgoing[lo].Node == to {
		return uint64(lo)
	}
	return uint64(len(outgoing))
}
