package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeEncoding(t *testing.T) {
	assert.Equal(t, uint64(2), NodeEncode(1, false))
	assert.Equal(t, uint64(3), NodeEncode(1, true))
	assert.Equal(t, uint64(1), NodeID(NodeEncode(1, true)))
	assert.True(t, NodeIsReverse(NodeEncode(7, true)))
	assert.False(t, NodeIsReverse(NodeEncode(7, false)))
	assert.Equal(t, NodeEncode(7, true), NodeReverse(NodeEncode(7, false)))
	assert.Equal(t, NodeEncode(7, false), NodeReverse(NodeReverse(NodeEncode(7, false))))
}

func TestPathEncoding(t *testing.T) {
	seq := PathEncode(3, true)
	assert.Equal(t, uint64(3), PathID(seq))
	assert.True(t, PathIsReverse(seq))
	assert.Equal(t, PathEncode(3, false), PathReverse(seq))
}

func TestReversePath(t *testing.T) {
	path := []uint64{2, 4, 7}
	reversed := ReversePath(path)
	assert.Equal(t, []uint64{6, 5, 3}, reversed)
	assert.Equal(t, []uint64{2, 4, 7}, path, "input must not change")
	assert.Equal(t, path, ReversePath(reversed))
}

func TestReversePathInPlace(t *testing.T) {
	path := []uint64{2, 4, 7}
	ReversePathInPlace(path)
	assert.Equal(t, []uint64{6, 5, 3}, path)

	even := []uint64{2, 4, 6, 8}
	ReversePathInPlace(even)
	assert.Equal(t, []uint64{9, 7, 5, 3}, even)

	var empty []uint64
	ReversePathInPlace(empty)
	assert.Empty(t, empty)
}

func TestRange(t *testing.T) {
	assert.True(t, EmptyRange().Empty())
	assert.Equal(t, uint64(0), EmptyRange().Length())
	r := Range{Start: 3, End: 7}
	assert.False(t, r.Empty())
	assert.Equal(t, uint64(5), r.Length())
	assert.True(t, Range{Start: 5, End: 4}.Empty())
}

func TestInvalidEdge(t *testing.T) {
	assert.True(t, InvalidEdge().IsInvalid())
	assert.False(t, Edge{Node: 2, Offset: 0}.IsInvalid())
}
