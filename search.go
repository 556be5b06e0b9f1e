package gbwt

import "slices"

// SearchState is a node and a range of offsets within its record. The
// search algorithms thread it through LF steps; an empty range means
// no match.
type SearchState struct {
	Node  uint64
	Range Range
}

// EmptySearchState returns the canonical no-match state.
func EmptySearchState() SearchState {
	return SearchState{Node: Endmarker, Range: EmptyRange()}
}

// Size returns the number of matching positions.
func (s SearchState) Size() uint64 { return s.Range.Length() }

// Empty reports whether the state matches nothing.
func (s SearchState) Empty() bool { return s.Range.Empty() }

// BidirectionalState is a pair of search states over the forward and
// reverse sequences, kept in sync by bidirectional extension.
type BidirectionalState struct {
	Forward  SearchState
	Backward SearchState
}

// Size returns the number of matching positions.
func (s BidirectionalState) Size() uint64 { return s.Forward.Size() }

// Empty reports whether the state matches nothing.
func (s BidirectionalState) Empty() bool { return s.Forward.Empty() }

// EmptyBidirectionalState returns the canonical no-match state.
func EmptyBidirectionalState() BidirectionalState {
	return BidirectionalState{Forward: EmptySearchState(), Backward: EmptySearchState()}
}

// Queryable is the capability set the search algorithms are written
// over. GBWT, DynamicGBWT and CachedGBWT satisfy it with equivalent
// semantics.
type Queryable interface {
	// Contains reports whether the node occurs in the index.
	Contains(node uint64) bool

	// NodeSize returns the number of BWT positions in the node's record.
	NodeSize(node uint64) uint64

	// Sequences returns the number of stored sequences.
	Sequences() uint64

	// LF advances a position one step along its sequence. It returns
	// the invalid edge for invalid positions.
	LF(pos Edge) Edge

	// LFRange maps a state's range through the edge towards 'to',
	// returning an empty range when there is no such edge.
	LFRange(state SearchState, to uint64) Range

	// TryLocate returns the sequence id sampled at the position, or
	// InvalidSequence when the position carries no sample.
	TryLocate(pos Edge) uint64

	// Start returns the first position of the sequence, or the invalid
	// edge for invalid ids.
	Start(sequence uint64) Edge
}

// Extend continues a search with more pattern symbols. It returns an
// empty state on the first symbol with no matches.
func Extend(index Queryable, state SearchState, pattern []uint64) SearchState {
	for _, node := range pattern {
		if state.Empty() {
			return state
		}
		if !index.Contains(node) {
			return EmptySearchState()
		}
		state.Range = index.LFRange(state, node)
		state.Node = node
	}
	return state
}

// Find searches for the pattern as a contiguous subsequence of
// oriented nodes. An empty pattern yields an empty state.
func Find(index Queryable, pattern []uint64) SearchState {
	if len(pattern) == 0 {
		return EmptySearchState()
	}
	first := pattern[0]
	if !index.Contains(first) {
		return EmptySearchState()
	}
	count := index.NodeSize(first)
	if count == 0 {
		return EmptySearchState()
	}
	state := SearchState{Node: first, Range: Range{Start: 0, End: count - 1}}
	return Extend(index, state, pattern[1:])
}

// Prefix searches for sequences starting with the pattern.
func Prefix(index Queryable, pattern []uint64) SearchState {
	if index.Sequences() == 0 {
		return EmptySearchState()
	}
	state := SearchState{Node: Endmarker, Range: Range{Start: 0, End: index.Sequences() - 1}}
	return Extend(index, state, pattern)
}

// Locate returns the sequence id occupying a BWT position. It walks LF
// until it hits a sample, which the sampling policy guarantees within
// the sample interval.
func Locate(index Queryable, pos Edge) uint64 {
	if !index.Contains(pos.Node) {
		return InvalidSequence
	}
	if pos.Offset >= index.NodeSize(pos.Node) {
		return InvalidSequence
	}
	for {
		if result := index.TryLocate(pos); result != InvalidSequence {
			return result
		}
		pos = index.LF(pos)
	}
}

// LocateAll returns the sequence ids matched by a state, sorted and
// without duplicates.
func LocateAll(index Queryable, state SearchState) []uint64 {
	if state.Empty() {
		return nil
	}
	result := make([]uint64, 0, state.Size())
	for offset := state.Range.Start; offset <= state.Range.End; offset++ {
		seq := Locate(index, Edge{Node: state.Node, Offset: offset})
		if seq != InvalidSequence {
			result = append(result, seq)
		}
	}
	slices.Sort(result)
	return slices.Compact(result)
}

// BidirectionalQueryable extends the query contract with the rank
// bookkeeping bidirectional search needs.
type BidirectionalQueryable interface {
	Queryable

	// BdLF is LFRange extended with the number of offsets in the range
	// whose successor x satisfies NodeReverse(x) < NodeReverse(to).
	BdLF(state SearchState, to uint64) (Range, uint64)
}

// BdFind starts a bidirectional search from a single node. The index
// must be bidirectional: every path is stored in both orientations, so
// the forward and reverse ranges have equal sizes.
func BdFind(index BidirectionalQueryable, node uint64) BidirectionalState {
	forward := Find(index, []uint64{node})
	backward := Find(index, []uint64{NodeReverse(node)})
	if forward.Empty() || backward.Empty() {
		return EmptyBidirectionalState()
	}
	return BidirectionalState{Forward: forward, Backward: backward}
}

// BdExtendForward appends a node at the end of the matched pattern.
func BdExtendForward(index BidirectionalQueryable, state BidirectionalState, node uint64) BidirectionalState {
	if state.Empty() {
		return EmptyBidirectionalState()
	}
	if !index.Contains(node) {
		return EmptyBidirectionalState()
	}
	forward, reverseOffset := index.BdLF(state.Forward, node)
	if forward.Empty() {
		return EmptyBidirectionalState()
	}
	start := state.Backward.Range.Start + reverseOffset
	return BidirectionalState{
		Forward:  SearchState{Node: node, Range: forward},
		Backward: SearchState{Node: state.Backward.Node, Range: Range{Start: start, End: start + forward.Length() - 1}},
	}
}

// BdExtendBackward prepends a node at the start of the matched pattern.
func BdExtendBackward(index BidirectionalQueryable, state BidirectionalState, node uint64) BidirectionalState {
	if state.Empty() {
		return EmptyBidirectionalState()
	}
	reverse := NodeReverse(node)
	if !index.Contains(reverse) {
		return EmptyBidirectionalState()
	}
	backward, reverseOffset := index.BdLF(state.Backward, reverse)
	if backward.Empty() {
		return EmptyBidirectionalState()
	}
	start := state.Forward.Range.Start + reverseOffset
	return BidirectionalState{
		Forward:  SearchState{Node: state.Forward.Node, Range: Range{Start: start, End: start + backward.Length() - 1}},
		Backward: SearchState{Node: reverse, Range: backward},
	}
}

// Extract returns the node sequence of the stored path, or nil for an
// invalid id.
func Extract(index Queryable, sequence uint64) []uint64 {
	if sequence >= index.Sequences() {
		return nil
	}
	pos := index.Start(sequence)
	if pos.IsInvalid() {
		return nil
	}
	var result []uint64
	for pos.Node != Endmarker {
		result = append(result, pos.Node)
		pos = index.LF(pos)
	}
	return result
}
