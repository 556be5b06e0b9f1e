package recarray

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekg/gbwt/core"
	"github.com/ekg/gbwt/internal/record"
)

// testRecords builds four records: empty, single-edge, two-edge, empty.
func testRecords(t *testing.T) []*record.DynamicRecord {
	t.Helper()
	empty := &record.DynamicRecord{}

	single := &record.DynamicRecord{}
	outrank := single.FindOrAddOutgoing(4)
	single.InsertSymbol(0, outrank)
	single.InsertSymbol(1, outrank)

	double := &record.DynamicRecord{}
	a := double.FindOrAddOutgoing(2)
	b := double.FindOrAddOutgoing(6)
	double.InsertSymbol(0, a)
	double.InsertSymbol(1, b)
	double.InsertSymbol(2, a)
	double.Recode()

	return []*record.DynamicRecord{empty, single, double, &record.DynamicRecord{}}
}

func TestRecordArray(t *testing.T) {
	ra := FromDynamic(testRecords(t))

	require.Equal(t, uint64(4), ra.Size())
	assert.True(t, ra.Empty(0))
	assert.False(t, ra.Empty(1))
	assert.False(t, ra.Empty(2))
	assert.True(t, ra.Empty(3))
	assert.True(t, ra.Empty(4), "out of range records read as empty")

	for r := uint64(0); r < ra.Size(); r++ {
		assert.Less(t, ra.Start(r), ra.Limit(r), "every record takes at least one byte")
	}
	assert.Equal(t, ra.DataLen(), ra.Limit(3))

	rec, err := ra.Record(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rec.Size())
	assert.Equal(t, uint64(4), rec.Successor(0))

	rec, err = ra.Record(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rec.Size())
	assert.Equal(t, []core.Edge{{Node: 2}, {Node: 6}}, rec.Outgoing)

	_, err = ra.Record(4)
	assert.Error(t, err)

	require.NoError(t, ra.Verify())
}

func TestRecordArrayRoundTrip(t *testing.T) {
	ra := FromDynamic(testRecords(t))

	var buf bytes.Buffer
	_, err := ra.WriteTo(&buf)
	require.NoError(t, err)

	var loaded RecordArray
	_, err = loaded.ReadFrom(&buf)
	require.NoError(t, err)

	require.Equal(t, ra.Size(), loaded.Size())
	require.NoError(t, loaded.Verify())
	for r := uint64(0); r < ra.Size(); r++ {
		assert.Equal(t, ra.RawRecord(r), loaded.RawRecord(r), "record %d", r)
	}
}

// testSampledRecords builds records where records 1 and 3 carry
// samples.
func testSampledRecords(t *testing.T) []*record.DynamicRecord {
	t.Helper()
	records := make([]*record.DynamicRecord, 4)
	for i := range records {
		records[i] = &record.DynamicRecord{}
	}
	for i := uint64(0); i < 4; i++ {
		outrank := records[1].FindOrAddOutgoing(2)
		records[1].InsertSymbol(i, outrank)
	}
	records[1].AddSample(1, 10)
	records[1].AddSample(3, 11)

	outrank := records[3].FindOrAddOutgoing(2)
	records[3].InsertSymbol(0, outrank)
	records[3].AddSample(0, 12)
	return records
}

func TestDASamples(t *testing.T) {
	da := BuildDASamples(testSampledRecords(t))
	require.NotNil(t, da)

	assert.Equal(t, uint64(4), da.Records())
	assert.Equal(t, uint64(3), da.Size())
	assert.False(t, da.IsSampled(0))
	assert.True(t, da.IsSampled(1))
	assert.False(t, da.IsSampled(2))
	assert.True(t, da.IsSampled(3))

	assert.Equal(t, uint64(10), da.TryLocate(1, 1))
	assert.Equal(t, uint64(11), da.TryLocate(1, 3))
	assert.Equal(t, uint64(12), da.TryLocate(3, 0))
	assert.Equal(t, core.InvalidSequence, da.TryLocate(1, 0))
	assert.Equal(t, core.InvalidSequence, da.TryLocate(1, 2))
	assert.Equal(t, core.InvalidSequence, da.TryLocate(0, 0))
	assert.Equal(t, core.InvalidSequence, da.TryLocate(2, 0))
}

func TestDASamplesNextSample(t *testing.T) {
	da := BuildDASamples(testSampledRecords(t))
	require.NotNil(t, da)

	s, ok := da.NextSample(1, 0)
	require.True(t, ok)
	assert.Equal(t, core.Sample{Offset: 1, Sequence: 10}, s)
	s, ok = da.NextSample(1, 2)
	require.True(t, ok)
	assert.Equal(t, core.Sample{Offset: 3, Sequence: 11}, s)
	_, ok = da.NextSample(1, 4)
	assert.False(t, ok, "must not leak into the next record's range")
	_, ok = da.NextSample(0, 0)
	assert.False(t, ok)

	assert.Equal(t, []core.Sample{{Offset: 1, Sequence: 10}, {Offset: 3, Sequence: 11}}, da.RecordSamples(1))
	assert.Equal(t, []core.Sample{{Offset: 0, Sequence: 12}}, da.RecordSamples(3))
	assert.Nil(t, da.RecordSamples(0))
}

func TestDASamplesNoSamples(t *testing.T) {
	records := []*record.DynamicRecord{{}, {}}
	assert.Nil(t, BuildDASamples(records))
}

func TestDASamplesRoundTrip(t *testing.T) {
	da := BuildDASamples(testSampledRecords(t))
	require.NotNil(t, da)

	var buf bytes.Buffer
	_, err := da.WriteTo(&buf)
	require.NoError(t, err)

	var loaded DASamples
	_, err = loaded.ReadFrom(&buf)
	require.NoError(t, err)

	assert.Equal(t, da.Size(), loaded.Size())
	assert.Equal(t, uint64(10), loaded.TryLocate(1, 1))
	assert.Equal(t, uint64(12), loaded.TryLocate(3, 0))
	assert.Equal(t, core.InvalidSequence, loaded.TryLocate(1, 0))
}
