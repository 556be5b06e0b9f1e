package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekg/gbwt/core"
)

// testRecord builds a record with successors inserted as 6 then 4 and
// the body [6, 6, 4, 6], then recodes it with known offsets.
func testRecord(t *testing.T) *DynamicRecord {
	t.Helper()
	r := &DynamicRecord{}
	six := r.FindOrAddOutgoing(6)
	require.Equal(t, uint64(0), six)
	r.InsertSymbol(0, six)
	r.InsertSymbol(1, six)
	four := r.FindOrAddOutgoing(4)
	require.Equal(t, uint64(1), four)
	r.InsertSymbol(2, four)
	r.InsertSymbol(3, six)

	r.Recode()
	require.Equal(t, []core.Edge{{Node: 4}, {Node: 6}}, r.Outgoing)
	r.SetOffset(0, 5)  // towards 4
	r.SetOffset(1, 10) // towards 6
	return r
}

func TestDynamicRecordBasics(t *testing.T) {
	r := testRecord(t)

	assert.Equal(t, uint64(4), r.Size())
	assert.False(t, r.Empty())
	assert.Equal(t, uint64(2), r.Outdegree())
	assert.Equal(t, uint64(3), r.Runs()) // 6,6 | 4 | 6

	for i, want := range []uint64{6, 6, 4, 6} {
		got, ok := r.At(uint64(i))
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := r.At(4)
	assert.False(t, ok)
}

func TestDynamicRecordLF(t *testing.T) {
	r := testRecord(t)

	assert.Equal(t, core.Edge{Node: 6, Offset: 10}, r.LF(0))
	assert.Equal(t, core.Edge{Node: 6, Offset: 11}, r.LF(1))
	assert.Equal(t, core.Edge{Node: 4, Offset: 5}, r.LF(2))
	assert.Equal(t, core.Edge{Node: 6, Offset: 12}, r.LF(3))
	assert.True(t, r.LF(4).IsInvalid())

	edge, runEnd := r.RunLF(0)
	assert.Equal(t, core.Edge{Node: 6, Offset: 10}, edge)
	assert.Equal(t, uint64(1), runEnd)
}

func TestDynamicRecordLFNode(t *testing.T) {
	r := testRecord(t)

	assert.Equal(t, uint64(10), r.LFNode(0, 6))
	assert.Equal(t, uint64(12), r.LFNode(3, 6))
	assert.Equal(t, uint64(13), r.LFNode(4, 6))
	assert.Equal(t, uint64(5), r.LFNode(2, 4))
	assert.Equal(t, uint64(6), r.LFNode(3, 4))
	assert.Equal(t, core.InvalidOffset, r.LFNode(0, 8))
}

func TestDynamicRecordLFRange(t *testing.T) {
	r := testRecord(t)

	assert.Equal(t, core.Range{Start: 10, End: 12}, r.LFRange(core.Range{Start: 0, End: 3}, 6))
	assert.Equal(t, core.Range{Start: 5, End: 5}, r.LFRange(core.Range{Start: 0, End: 3}, 4))
	assert.True(t, r.LFRange(core.Range{Start: 0, End: 1}, 4).Empty())
	assert.True(t, r.LFRange(core.EmptyRange(), 6).Empty())
	assert.True(t, r.LFRange(core.Range{Start: 0, End: 3}, 8).Empty())
}

func TestDynamicRecordBdLF(t *testing.T) {
	r := testRecord(t)

	// reverse(4) = 5 < reverse(6) = 7: the one 4 in the range counts.
	rng, reverseOffset := r.BdLF(core.Range{Start: 0, End: 3}, 6)
	assert.Equal(t, core.Range{Start: 10, End: 12}, rng)
	assert.Equal(t, uint64(1), reverseOffset)

	rng, reverseOffset = r.BdLF(core.Range{Start: 0, End: 3}, 4)
	assert.Equal(t, core.Range{Start: 5, End: 5}, rng)
	assert.Equal(t, uint64(0), reverseOffset)
}

func TestDynamicRecordEdges(t *testing.T) {
	r := testRecord(t)

	assert.True(t, r.HasEdge(4))
	assert.True(t, r.HasEdge(6))
	assert.False(t, r.HasEdge(8))
	assert.Equal(t, uint64(0), r.EdgeTo(4))
	assert.Equal(t, uint64(1), r.EdgeTo(6))
	assert.Equal(t, r.Outdegree(), r.EdgeTo(8))
	assert.Equal(t, uint64(4), r.Successor(0))
	assert.Equal(t, uint64(5), r.Offset(0))
}

func TestDynamicRecordIncoming(t *testing.T) {
	r := &DynamicRecord{}
	r.AddIncoming(core.Edge{Node: 6, Offset: 2})
	r.AddIncoming(core.Edge{Node: 2, Offset: 1})
	r.Increment(6)
	r.Increment(4)

	require.Equal(t, uint64(3), r.Indegree())
	assert.Equal(t, uint64(2), r.Predecessor(0))
	assert.Equal(t, uint64(4), r.Predecessor(1))
	assert.Equal(t, uint64(6), r.Predecessor(2))
	assert.Equal(t, uint64(1), r.Count(1))
	assert.Equal(t, uint64(3), r.Count(2))

	assert.Equal(t, uint64(0), r.CountBefore(2))
	assert.Equal(t, uint64(1), r.CountBefore(4))
	assert.Equal(t, uint64(2), r.CountBefore(6))
	assert.Equal(t, uint64(5), r.CountBefore(100))
	assert.Equal(t, uint64(2), r.CountUntil(4))
	assert.Equal(t, uint64(5), r.CountUntil(6))
}

func TestDynamicRecordSamples(t *testing.T) {
	r := testRecord(t)
	r.AddSample(1, 7)
	r.AddSample(3, 9)

	s, ok := r.NextSample(0)
	require.True(t, ok)
	assert.Equal(t, core.Sample{Offset: 1, Sequence: 7}, s)
	s, ok = r.NextSample(2)
	require.True(t, ok)
	assert.Equal(t, core.Sample{Offset: 3, Sequence: 9}, s)
	_, ok = r.NextSample(4)
	assert.False(t, ok)

	// An insertion at offset 2 shifts the second sample.
	r.ShiftSamples(2)
	s, ok = r.NextSample(2)
	require.True(t, ok)
	assert.Equal(t, core.Sample{Offset: 4, Sequence: 9}, s)
}

func TestInsertSymbolSplitsRuns(t *testing.T) {
	r := &DynamicRecord{}
	a := r.FindOrAddOutgoing(2)
	b := r.FindOrAddOutgoing(4)
	r.InsertSymbol(0, a)
	r.InsertSymbol(1, a)
	r.InsertSymbol(2, a)
	// Split [2,2,2] in the middle.
	r.InsertSymbol(1, b)
	require.Equal(t, uint64(4), r.Size())

	want := []uint64{2, 4, 2, 2}
	for i, node := range want {
		got, ok := r.At(uint64(i))
		require.True(t, ok)
		assert.Equal(t, node, got, "offset %d", i)
	}
	assert.Equal(t, uint64(3), r.Runs())
}

func TestRemoveUnusedEdges(t *testing.T) {
	r := &DynamicRecord{}
	r.FindOrAddOutgoing(2)
	used := r.FindOrAddOutgoing(4)
	r.InsertSymbol(0, used)

	r.RemoveUnusedEdges()
	require.Equal(t, uint64(1), r.Outdegree())
	assert.Equal(t, uint64(4), r.Successor(0))
	got, ok := r.At(0)
	require.True(t, ok)
	assert.Equal(t, uint64(4), got)
}

func TestCompressedRoundTrip(t *testing.T) {
	r := testRecord(t)
	r.AddSample(0, 3)

	data := r.WriteBWT(nil)
	rec, err := DecodeCompressed(data, 0, uint64(len(data)))
	require.NoError(t, err)
	require.NoError(t, rec.Verify())

	assert.Equal(t, r.Outgoing, rec.Outgoing)
	assert.Equal(t, r.Size(), rec.Size())
	assert.Equal(t, r.Runs(), rec.Runs())
	for i := uint64(0); i < r.Size(); i++ {
		assert.Equal(t, r.LF(i), rec.LF(i), "LF(%d)", i)
		wantNode, _ := r.At(i)
		gotNode, ok := rec.At(i)
		require.True(t, ok)
		assert.Equal(t, wantNode, gotNode)
	}
	assert.True(t, rec.LF(r.Size()).IsInvalid())
	assert.Equal(t, r.LFRange(core.Range{Start: 0, End: 3}, 6), rec.LFRange(core.Range{Start: 0, End: 3}, 6))

	wantRange, wantRev := r.BdLF(core.Range{Start: 0, End: 3}, 6)
	gotRange, gotRev := rec.BdLF(core.Range{Start: 0, End: 3}, 6)
	assert.Equal(t, wantRange, gotRange)
	assert.Equal(t, wantRev, gotRev)
}

func TestCompressedSingleEdgeOmitsOutrank(t *testing.T) {
	r := &DynamicRecord{}
	outrank := r.FindOrAddOutgoing(4)
	for i := uint64(0); i < 5; i++ {
		r.InsertSymbol(i, outrank)
	}
	r.SetOffset(0, 2)

	data := r.WriteBWT(nil)
	rec, err := DecodeCompressed(data, 0, uint64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), rec.Size())
	assert.Equal(t, core.Edge{Node: 4, Offset: 4}, rec.LF(2))
}

func TestEmptyRecord(t *testing.T) {
	r := &DynamicRecord{}
	data := r.WriteBWT(nil)
	assert.Equal(t, []byte{0}, data)
	assert.True(t, EmptyRecord(data, 0))

	rec, err := DecodeCompressed(data, 0, uint64(len(data)))
	require.NoError(t, err)
	assert.True(t, rec.Empty())
	assert.Equal(t, uint64(0), rec.Size())
	assert.True(t, rec.LF(0).IsInvalid())
}

func TestCorruptRecords(t *testing.T) {
	// Truncated header: outdegree 2 but only one edge follows.
	_, err := DecodeCompressed([]byte{2, 4}, 0, 2)
	assert.ErrorIs(t, err, ErrCorrupt)

	// Outrank 5 with outdegree 2.
	data := []byte{2, 4, 0, 2, 0, 5, 0}
	rec, err := DecodeCompressed(data, 0, uint64(len(data)))
	require.NoError(t, err)
	assert.ErrorIs(t, rec.Verify(), ErrCorrupt)

	// Record bounds outside the buffer.
	_, err = DecodeCompressed([]byte{0}, 0, 2)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDecompressedRecord(t *testing.T) {
	r := testRecord(t)
	dec := DecompressDynamic(r)

	assert.Equal(t, r.Size(), dec.Size())
	assert.Equal(t, r.Runs(), dec.Runs())
	for i := uint64(0); i < r.Size(); i++ {
		assert.Equal(t, r.LF(i), dec.LF(i), "LF(%d)", i)
	}
	assert.True(t, dec.LF(r.Size()).IsInvalid())
	// After the record, the offset towards 6 advanced by three.
	assert.Equal(t, uint64(13), dec.OffsetAfter(dec.EdgeTo(6)))
	assert.Equal(t, uint64(6), dec.OffsetAfter(dec.EdgeTo(4)))

	data := r.WriteBWT(nil)
	rec, err := DecodeCompressed(data, 0, uint64(len(data)))
	require.NoError(t, err)
	fromCompressed, err := DecompressCompressed(rec)
	require.NoError(t, err)
	assert.Equal(t, dec.Body, fromCompressed.Body)
	assert.Equal(t, dec.Outgoing, fromCompressed.Outgoing)
}

func TestRecodeTranslatesBody(t *testing.T) {
	r := &DynamicRecord{}
	// Insertion order: 8 before 2; the body refers to insertion ranks.
	eight := r.FindOrAddOutgoing(8)
	r.InsertSymbol(0, eight)
	two := r.FindOrAddOutgoing(2)
	r.InsertSymbol(1, two)

	r.Recode()
	require.Equal(t, []core.Edge{{Node: 2}, {Node: 8}}, r.Outgoing)
	got, _ := r.At(0)
	assert.Equal(t, uint64(8), got)
	got, _ = r.At(1)
	assert.Equal(t, uint64(2), got)
}
