package core

// Oriented nodes and paths share the same encoding: the identifier is
// shifted left by one and the low bit carries the orientation. Value 0
// is the endmarker that brackets every stored path.

// Endmarker is the sentinel node preceding and following every path.
const Endmarker uint64 = 0

// NodeEncode packs a node id and an orientation into a node value.
func NodeEncode(id uint64, reversed bool) uint64 {
	v := id << 1
	if reversed {
		v |= 1
	}
	return v
}

// NodeID returns the node id of a node value.
func NodeID(node uint64) uint64 { return node >> 1 }

// NodeIsReverse reports whether the node value is in reverse orientation.
func NodeIsReverse(node uint64) bool { return node&1 != 0 }

// NodeReverse flips the orientation of a node value.
func NodeReverse(node uint64) uint64 { return node ^ 1 }

// PathEncode packs a path id and an orientation into a sequence id.
func PathEncode(id uint64, reversed bool) uint64 { return NodeEncode(id, reversed) }

// PathID returns the path id of a sequence id.
func PathID(seq uint64) uint64 { return seq >> 1 }

// PathIsReverse reports whether the sequence id refers to the reverse path.
func PathIsReverse(seq uint64) bool { return seq&1 != 0 }

// PathReverse flips the orientation of a sequence id.
func PathReverse(seq uint64) uint64 { return seq ^ 1 }

// ReversePathInPlace turns a path into its reverse: the reverse nodes in
// reverse order.
func ReversePathInPlace(path []uint64) {
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = NodeReverse(path[j]), NodeReverse(path[i])
	}
	if len(path)%2 != 0 {
		mid := len(path) / 2
		path[mid] = NodeReverse(path[mid])
	}
}

// ReversePath returns the reverse of a path as a new slice.
func ReversePath(path []uint64) []uint64 {
	out := make([]uint64, len(path))
	for i, node := range path {
		out[len(path)-1-i] = NodeReverse(node)
	}
	return out
}
