package gbwt

import "github.com/ekg/gbwt/core"

// The public surface re-exports the shared value types so callers only
// import this package.

// Edge is a BWT position: a node value and an offset within that
// node's record.
type Edge = core.Edge

// Range is an inclusive interval of BWT offsets.
type Range = core.Range

// Endmarker is the sentinel node bracketing every path.
const Endmarker = core.Endmarker

// InvalidSequence marks a nonexistent sequence id.
const InvalidSequence = core.InvalidSequence

// InvalidOffset marks a nonexistent BWT offset.
const InvalidOffset = core.InvalidOffset

// InvalidEdge returns the sentinel for a nonexistent position.
func InvalidEdge() Edge { return core.InvalidEdge() }

// EmptyRange returns a canonical empty range.
func EmptyRange() Range { return core.EmptyRange() }

// NodeEncode packs a node id and an orientation into a node value.
func NodeEncode(id uint64, reversed bool) uint64 { return core.NodeEncode(id, reversed) }

// NodeID returns the node id of a node value.
func NodeID(node uint64) uint64 { return core.NodeID(node) }

// NodeIsReverse reports whether the node value is in reverse orientation.
func NodeIsReverse(node uint64) bool { return core.NodeIsReverse(node) }

// NodeReverse flips the orientation of a node value.
func NodeReverse(node uint64) uint64 { return core.NodeReverse(node) }

// PathEncode packs a path id and an orientation into a sequence id.
func PathEncode(id uint64, reversed bool) uint64 { return core.PathEncode(id, reversed) }

// PathID returns the path id of a sequence id.
func PathID(seq uint64) uint64 { return core.PathID(seq) }

// PathIsReverse reports whether the sequence id refers to the reverse path.
func PathIsReverse(seq uint64) bool { return core.PathIsReverse(seq) }

// ReversePath returns the reverse of a path: the reverse nodes in
// reverse order.
func ReversePath(path []uint64) []uint64 { return core.ReversePath(path) }
