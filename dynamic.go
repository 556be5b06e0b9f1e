package gbwt

import (
	"fmt"

	"github.com/ekg/gbwt/core"
	"github.com/ekg/gbwt/internal/recarray"
	"github.com/ekg/gbwt/internal/record"
	"github.com/ekg/gbwt/metadata"
)

// DynamicGBWT is the mutable form of the index: one growable record
// per node, supporting path insertion and export to the static form.
// It answers the same queries as GBWT. Concurrent use is not
// supported; a single goroutine owns the index.
type DynamicGBWT struct {
	opts      options
	sequences uint64
	records   []*record.DynamicRecord // indexed by node value
	meta      *metadata.Metadata
	dirty     bool
}

// NewDynamicGBWT creates an empty dynamic index.
func NewDynamicGBWT(optFns ...Option) *DynamicGBWT {
	return &DynamicGBWT{opts: applyOptions(optFns)}
}

// Sequences returns the number of stored sequences.
func (d *DynamicGBWT) Sequences() uint64 { return d.sequences }

// Empty reports whether the index stores no sequences.
func (d *DynamicGBWT) Empty() bool { return d.sequences == 0 }

// Bidirectional reports whether insertions also store reverse paths.
func (d *DynamicGBWT) Bidirectional() bool { return d.opts.bidirectional }

// Metadata returns the optional metadata, or nil.
func (d *DynamicGBWT) Metadata() *metadata.Metadata { return d.meta }

// SetMetadata attaches metadata to the index.
func (d *DynamicGBWT) SetMetadata(meta *metadata.Metadata) { d.meta = meta }

// ensureRecord grows the record table to cover the node value.
func (d *DynamicGBWT) ensureRecord(node uint64) *record.DynamicRecord {
	for uint64(len(d.records)) <= node {
		d.records = append(d.records, &record.DynamicRecord{})
	}
	return d.records[node]
}

// Insert adds a path to the index. The path is a slice of oriented
// node values; the endmarker is implicit. With WithBidirectional, the
// reverse path is inserted as well, so each call adds two sequences.
// An empty path is ignored.
func (d *DynamicGBWT) Insert(path []uint64) error {
	if len(path) == 0 {
		return nil
	}
	for _, node := range path {
		if node < 2 {
			return &ErrInvalidNode{Node: node}
		}
	}
	d.insertSequence(path)
	if d.opts.bidirectional {
		d.insertSequence(ReversePath(path))
	}
	return nil
}

// InsertBatch adds the paths one by one, reporting progress through
// the configured logger.
func (d *DynamicGBWT) InsertBatch(paths [][]uint64) error {
	for i, path := range paths {
		if err := d.Insert(path); err != nil {
			return fmt.Errorf("path %d: %w", i, err)
		}
	}
	d.opts.logger.Info("inserted paths", "paths", len(paths), "sequences", d.sequences)
	return nil
}

// insertSequence threads one sequence through the records, extending
// the BWT in insertion order. The position of each new symbol in the
// destination record is the count of positions from smaller
// predecessors plus the rank of the source position among the source
// node's occurrences.
func (d *DynamicGBWT) insertSequence(path []uint64) {
	seq := d.sequences
	d.ensureRecord(core.Endmarker)
	for _, node := range path {
		d.ensureRecord(node)
	}

	cur := core.Endmarker
	pos := seq // appends at the end of the endmarker record
	for t := 0; t <= len(path); t++ {
		next := core.Endmarker
		if t < len(path) {
			next = path[t]
		}
		r := d.records[cur]
		outrank := r.FindOrAddOutgoing(next)
		rank := r.Rank(outrank, pos)
		r.ShiftSamples(pos)
		r.InsertSymbol(pos, outrank)
		// Sample the endmarker position, every sampleInterval steps
		// along the path, and the last step. The last step keeps the
		// locate walk from entering the endmarker record, whose LF
		// offsets do not identify sequences.
		if t == 0 || (t-1)%int(d.opts.sampleInterval) == 0 || t == len(path) {
			r.AddSample(pos, seq)
		}
		nr := d.records[next]
		nextPos := nr.CountBefore(cur) + rank
		nr.Increment(cur)
		cur = next
		pos = nextPos
	}
	d.sequences++
	d.dirty = true
}

// ensureRecoded sorts outgoing edges and rebuilds the cumulative
// offsets after insertions. Queries call it lazily.
func (d *DynamicGBWT) ensureRecoded() {
	if !d.dirty {
		return
	}
	for _, r := range d.records {
		r.Recode()
	}
	for v, r := range d.records {
		for k := range r.Outgoing {
			succ := r.Outgoing[k].Node
			r.Outgoing[k].Offset = d.records[succ].CountBefore(uint64(v))
		}
	}
	d.dirty = false
}

// Contains reports whether the node occurs in the index.
func (d *DynamicGBWT) Contains(node uint64) bool {
	if node == Endmarker {
		return d.sequences > 0
	}
	return node < uint64(len(d.records)) && !d.records[node].Empty()
}

// NodeSize returns the number of BWT positions in the node's record.
func (d *DynamicGBWT) NodeSize(node uint64) uint64 {
	if node >= uint64(len(d.records)) {
		return 0
	}
	return d.records[node].Size()
}

// NodeCount returns the number of oriented node values with
// occurrences, excluding the endmarker.
func (d *DynamicGBWT) NodeCount() uint64 {
	var count uint64
	for v := 2; v < len(d.records); v++ {
		if !d.records[v].Empty() {
			count++
		}
	}
	return count
}

// LF advances a position one step along its sequence.
func (d *DynamicGBWT) LF(pos Edge) Edge {
	if !d.Contains(pos.Node) {
		return InvalidEdge()
	}
	d.ensureRecoded()
	return d.records[pos.Node].LF(pos.Offset)
}

// LFNode restricts LF to the edge towards 'to'.
func (d *DynamicGBWT) LFNode(pos Edge, to uint64) uint64 {
	if !d.Contains(pos.Node) {
		return InvalidOffset
	}
	d.ensureRecoded()
	return d.records[pos.Node].LFNode(pos.Offset, to)
}

// LFRange maps a state's range through the edge towards 'to'.
func (d *DynamicGBWT) LFRange(state SearchState, to uint64) Range {
	if state.Empty() || !d.Contains(state.Node) {
		return EmptyRange()
	}
	d.ensureRecoded()
	return d.records[state.Node].LFRange(state.Range, to)
}

// BdLF is LFRange extended for bidirectional search.
func (d *DynamicGBWT) BdLF(state SearchState, to uint64) (Range, uint64) {
	if state.Empty() || !d.Contains(state.Node) {
		return EmptyRange(), 0
	}
	d.ensureRecoded()
	return d.records[state.Node].BdLF(state.Range, to)
}

// TryLocate returns the sequence id sampled at the position, or
// InvalidSequence.
func (d *DynamicGBWT) TryLocate(pos Edge) uint64 {
	if pos.Node >= uint64(len(d.records)) {
		return InvalidSequence
	}
	if s, ok := d.records[pos.Node].NextSample(pos.Offset); ok && s.Offset == pos.Offset {
		return s.Sequence
	}
	return InvalidSequence
}

// Start returns the first position of the sequence.
func (d *DynamicGBWT) Start(sequence uint64) Edge {
	if sequence >= d.sequences {
		return InvalidEdge()
	}
	return d.LF(Edge{Node: Endmarker, Offset: sequence})
}

// Find searches for the pattern in this index.
func (d *DynamicGBWT) Find(pattern []uint64) SearchState { return Find(d, pattern) }

// Extract returns the node sequence of the stored path.
func (d *DynamicGBWT) Extract(sequence uint64) []uint64 { return Extract(d, sequence) }

// Locate returns the sequence id occupying a BWT position.
func (d *DynamicGBWT) Locate(pos Edge) uint64 { return Locate(d, pos) }

// LocateAll returns the sequence ids matched by a state.
func (d *DynamicGBWT) LocateAll(state SearchState) []uint64 { return LocateAll(d, state) }

// ToGBWT finalises the dynamic index into its static form: records are
// recoded, encoded into a RecordArray, and the samples frozen into
// DASamples.
func (d *DynamicGBWT) ToGBWT() (*GBWT, error) {
	d.ensureRecoded()
	for _, r := range d.records {
		r.RemoveUnusedEdges()
	}

	// Pad the table so both orientations of the last id have records.
	alphabetSize := uint64(1)
	if len(d.records) > 1 {
		alphabetSize = core.NodeID(uint64(len(d.records)-1)) + 1
	}
	for uint64(len(d.records)) < 2*alphabetSize {
		d.records = append(d.records, &record.DynamicRecord{})
	}

	g := &GBWT{
		sequences:      d.sequences,
		alphabetSize:   alphabetSize,
		sampleInterval: d.opts.sampleInterval,
		bidirectional:  d.opts.bidirectional,
		bwt:            recarray.FromDynamic(d.records),
		da:             recarray.BuildDASamples(d.records),
		meta:           d.meta,
	}
	if err := g.bwt.Verify(); err != nil {
		return nil, fmt.Errorf("finalising index: %w", err)
	}
	d.opts.logger.Info("finalised index",
		"sequences", g.sequences, "nodes", g.NodeCount(), "samples", g.Samples())
	return g, nil
}

var _ Queryable = (*DynamicGBWT)(nil)
