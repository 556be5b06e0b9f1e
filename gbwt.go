// Package gbwt implements a compressed, self-indexed collection of
// paths over a bidirected sequence graph. Paths are ordered lists of
// oriented nodes; the collection is indexed with a per-node
// Burrows-Wheeler transform supporting substring search (Find),
// membership queries (Locate) and path extraction (Extract).
//
// The package provides a static read-only index (GBWT), a dynamic
// index used during construction (DynamicGBWT), a read-through cache
// for sequential query workloads (CachedGBWT), and an external-memory
// merge combining two static indexes (Merge).
//
// # Quick start
//
//	paths := [][]uint64{{2, 4, 6}, {2, 4, 8}}
//	index, _ := gbwt.BuildGBWT(paths)
//	state := gbwt.Find(index, []uint64{2, 4})
//	ids := gbwt.LocateAll(index, state)
//	path := gbwt.Extract(index, ids[0])
//
// Queries on a static index are read-only and safe for unlimited
// concurrent readers. DynamicGBWT is single-writer; CachedGBWT is
// single-threaded (use one wrapper per goroutine).
package gbwt

import (
	"fmt"

	"github.com/ekg/gbwt/core"
	"github.com/ekg/gbwt/internal/recarray"
	"github.com/ekg/gbwt/internal/record"
	"github.com/ekg/gbwt/internal/sdvec"
	"github.com/ekg/gbwt/metadata"
)

// GBWT is the static, read-only index. It is immutable after
// construction; all query methods are safe for concurrent use.
type GBWT struct {
	sequences      uint64
	alphabetSize   uint64 // node ids in use + 1
	sampleInterval uint64
	bidirectional  bool

	bwt   *recarray.RecordArray
	da    *recarray.DASamples
	remap *sdvec.IntVector
	meta  *metadata.Metadata
}

// BuildGBWT constructs a static index from the given paths. Paths are
// slices of oriented node values (see NodeEncode); the endmarker is
// implicit. With WithBidirectional, each path also contributes its
// reverse.
func BuildGBWT(paths [][]uint64, optFns ...Option) (*GBWT, error) {
	dynamic := NewDynamicGBWT(optFns...)
	for _, path := range paths {
		if err := dynamic.Insert(path); err != nil {
			return nil, err
		}
	}
	return dynamic.ToGBWT()
}

// Sequences returns the number of stored sequences.
func (g *GBWT) Sequences() uint64 { return g.sequences }

// AlphabetSize returns the number of node ids in use plus one for the
// endmarker.
func (g *GBWT) AlphabetSize() uint64 { return g.alphabetSize }

// SampleInterval returns the document-array sampling interval the
// index was built with.
func (g *GBWT) SampleInterval() uint64 { return g.sampleInterval }

// Bidirectional reports whether the index stores the reverse of every
// path.
func (g *GBWT) Bidirectional() bool { return g.bidirectional }

// FirstNode returns the smallest real node value.
func (g *GBWT) FirstNode() uint64 { return 2 }

// records returns the number of records, one per node value.
func (g *GBWT) records() uint64 {
	if g.bwt == nil {
		return 0
	}
	return g.bwt.Size()
}

// NodeCount returns the number of oriented node values with
// occurrences, excluding the endmarker.
func (g *GBWT) NodeCount() uint64 {
	var count uint64
	for v := g.FirstNode(); v < g.records(); v++ {
		if !g.bwt.Empty(v) {
			count++
		}
	}
	return count
}

// Empty reports whether the index stores no sequences.
func (g *GBWT) Empty() bool { return g.sequences == 0 }

// Contains reports whether the node occurs in the index.
func (g *GBWT) Contains(node uint64) bool {
	if node == Endmarker {
		return g.sequences > 0
	}
	return node < g.records() && !g.bwt.Empty(node)
}

// Metadata returns the optional metadata, or nil.
func (g *GBWT) Metadata() *metadata.Metadata { return g.meta }

// SetMetadata attaches metadata to the index.
func (g *GBWT) SetMetadata(meta *metadata.Metadata) { g.meta = meta }

// ExternalNode translates a stored node id through the optional
// alphabet remap. Without a remap, ids translate to themselves.
func (g *GBWT) ExternalNode(storedID uint64) uint64 {
	if g.remap == nil || storedID >= g.remap.Len() {
		return storedID
	}
	return g.remap.Get(storedID)
}

// node returns the decoded record of a contained node. Records are
// verified at build and load time, so decode errors cannot occur on
// the query path.
func (g *GBWT) node(v uint64) *record.CompressedRecord {
	rec, err := g.bwt.Record(v)
	if err != nil {
		panic(fmt.Sprintf("gbwt: verified record failed to decode: %v", err))
	}
	return rec
}

// NodeSize returns the number of BWT positions in the node's record.
func (g *GBWT) NodeSize(node uint64) uint64 {
	if !g.Contains(node) {
		return 0
	}
	if node == Endmarker {
		return g.sequences
	}
	return g.node(node).Size()
}

// LF advances a position one step along its sequence.
func (g *GBWT) LF(pos Edge) Edge {
	if !g.Contains(pos.Node) {
		return InvalidEdge()
	}
	return g.node(pos.Node).LF(pos.Offset)
}

// LFNode restricts LF to the edge towards 'to', returning the offset
// in the destination record or InvalidOffset.
func (g *GBWT) LFNode(pos Edge, to uint64) uint64 {
	if !g.Contains(pos.Node) {
		return InvalidOffset
	}
	return g.node(pos.Node).LFNode(pos.Offset, to)
}

// LFRange maps a state's range through the edge towards 'to'.
func (g *GBWT) LFRange(state SearchState, to uint64) Range {
	if state.Empty() || !g.Contains(state.Node) {
		return EmptyRange()
	}
	return g.node(state.Node).LFRange(state.Range, to)
}

// BdLF is LFRange extended for bidirectional search: it also returns
// the number of offsets in the range whose successor x satisfies
// NodeReverse(x) < NodeReverse(to).
func (g *GBWT) BdLF(state SearchState, to uint64) (Range, uint64) {
	if state.Empty() || !g.Contains(state.Node) {
		return EmptyRange(), 0
	}
	return g.node(state.Node).BdLF(state.Range, to)
}

// TryLocate returns the sequence id sampled at the position, or
// InvalidSequence when the position carries no sample.
func (g *GBWT) TryLocate(pos Edge) uint64 {
	if g.da == nil || pos.Node >= g.records() {
		return InvalidSequence
	}
	return g.da.TryLocate(pos.Node, pos.Offset)
}

// Start returns the first position of the sequence.
func (g *GBWT) Start(sequence uint64) Edge {
	if sequence >= g.sequences {
		return InvalidEdge()
	}
	return g.LF(Edge{Node: Endmarker, Offset: sequence})
}

// Samples returns the number of stored document-array samples.
func (g *GBWT) Samples() uint64 {
	if g.da == nil {
		return 0
	}
	return g.da.Size()
}

// Runs returns the total number of BWT runs across all records.
func (g *GBWT) Runs() uint64 {
	var runs uint64
	for v := uint64(0); v < g.records(); v++ {
		if !g.bwt.Empty(v) {
			runs += g.node(v).Runs()
		}
	}
	return runs
}

// Size returns the total number of BWT positions across all records.
func (g *GBWT) Size() uint64 {
	var size uint64
	for v := uint64(0); v < g.records(); v++ {
		if !g.bwt.Empty(v) {
			size += g.node(v).Size()
		}
	}
	return size
}

// ExtractAll returns every stored path. Each record is decompressed
// into an edge array once and shared by all walks, which is much
// faster than calling Extract per sequence when the paths overlap.
func (g *GBWT) ExtractAll() ([][]uint64, error) {
	if g.sequences == 0 {
		return nil, nil
	}
	decompressed := make([]*record.DecompressedRecord, g.records())
	expand := func(v uint64) (*record.DecompressedRecord, error) {
		if decompressed[v] == nil {
			dec, err := record.DecompressCompressed(g.node(v))
			if err != nil {
				return nil, err
			}
			decompressed[v] = dec
		}
		return decompressed[v], nil
	}

	out := make([][]uint64, g.sequences)
	for seq := uint64(0); seq < g.sequences; seq++ {
		rec, err := expand(core.Endmarker)
		if err != nil {
			return nil, err
		}
		pos := rec.LF(seq)
		for pos.Node != Endmarker {
			out[seq] = append(out[seq], pos.Node)
			rec, err = expand(pos.Node)
			if err != nil {
				return nil, err
			}
			pos = rec.LF(pos.Offset)
		}
	}
	return out, nil
}

// Find searches for the pattern in this index.
func (g *GBWT) Find(pattern []uint64) SearchState { return Find(g, pattern) }

// Extract returns the node sequence of the stored path.
func (g *GBWT) Extract(sequence uint64) []uint64 { return Extract(g, sequence) }

// Locate returns the sequence id occupying a BWT position.
func (g *GBWT) Locate(pos Edge) uint64 { return Locate(g, pos) }

// LocateAll returns the sequence ids matched by a state.
func (g *GBWT) LocateAll(state SearchState) []uint64 { return LocateAll(g, state) }

var _ Queryable = (*GBWT)(nil)
