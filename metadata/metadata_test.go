package metadata

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictionaryEmpty(t *testing.T) {
	d := NewDictionary(nil)

	assert.Equal(t, uint64(0), d.Size())
	assert.True(t, d.Empty())
	assert.Equal(t, d.Size(), d.Find("key"), "missing keys report as missing")
	assert.Equal(t, "", d.Key(0))
}

func TestDictionaryKeys(t *testing.T) {
	keys := []string{"first", "second", "third", "fourth", "fifth"}
	d := NewDictionary(keys)

	require.Equal(t, uint64(len(keys)), d.Size())
	assert.False(t, d.HasDuplicates())
	for i, key := range keys {
		assert.Equal(t, key, d.Key(uint64(i)))
		assert.Equal(t, uint64(i), d.Find(key))
	}
	assert.Equal(t, d.Size(), d.Find("missing"))
}

func TestDictionaryMerge(t *testing.T) {
	d1 := NewDictionary([]string{"first", "second", "third"})
	d2 := NewDictionary([]string{"fifth", "first", "fourth"})
	merged := MergeDictionaries(d1, d2)

	assert.Equal(t, uint64(5), merged.Size())
	for _, key := range []string{"first", "second", "third", "fourth", "fifth"} {
		assert.Less(t, merged.Find(key), merged.Size(), "key %q", key)
	}
	// The first dictionary keeps its ids.
	assert.Equal(t, uint64(0), merged.Find("first"))
	assert.Equal(t, uint64(1), merged.Find("second"))
	assert.Equal(t, uint64(2), merged.Find("third"))
}

func TestDictionaryRemove(t *testing.T) {
	d := NewDictionary([]string{"a", "b", "c"})
	d.Remove(1)

	require.Equal(t, uint64(2), d.Size())
	assert.Equal(t, "a", d.Key(0))
	assert.Equal(t, "c", d.Key(1))
	assert.Equal(t, d.Size(), d.Find("b"))
}

func TestDictionaryAppendKeepsDuplicates(t *testing.T) {
	d := NewDictionary([]string{"a", "b"})
	d.Append(NewDictionary([]string{"b", "c"}))

	assert.Equal(t, uint64(4), d.Size())
	assert.True(t, d.HasDuplicates())
}

func TestDictionaryRoundTrip(t *testing.T) {
	d := NewDictionary([]string{"first", "second", "third"})

	var buf bytes.Buffer
	_, err := d.WriteTo(&buf)
	require.NoError(t, err)

	var loaded Dictionary
	_, err = loaded.ReadFrom(&buf)
	require.NoError(t, err)
	assert.True(t, d.Equal(&loaded))
	assert.Equal(t, uint64(1), loaded.Find("second"))
}

func TestMetadataCounts(t *testing.T) {
	m := New()
	m.SetSamples(2)
	m.SetHaplotypes(4)
	m.SetContigs(1)

	assert.Equal(t, uint64(2), m.SampleCount)
	assert.Equal(t, uint64(4), m.HaplotypeCount)
	assert.Equal(t, uint64(1), m.ContigCount)
	assert.False(t, m.HasPathNames())
	assert.NoError(t, m.Check())
}

func TestMetadataPathNames(t *testing.T) {
	m := New()
	m.SetSampleNames([]string{"s1", "s2"})
	m.SetContigNames([]string{"c1", "c2"})
	m.AddPath(PathName{Sample: 0, Contig: 0, Phase: 0})
	m.AddPath(PathName{Sample: 0, Contig: 1, Phase: 0})
	m.AddPath(PathName{Sample: 1, Contig: 0, Phase: 1})

	require.NoError(t, m.Check())
	assert.Equal(t, uint64(3), m.Paths())
	assert.Equal(t, []uint64{0, 1}, m.PathsForSample(0))
	assert.Equal(t, []uint64{2}, m.PathsForSample(1))
	assert.Equal(t, []uint64{0, 2}, m.PathsForContig(0))
	assert.Equal(t, []uint64{0}, m.FindPaths(0, 0))
	assert.Equal(t, uint64(1), m.Sample("s2"))
	assert.Equal(t, uint64(2), m.Sample("missing"))
	assert.Equal(t, uint64(0), m.Contig("c1"))
}

func TestMetadataRemoveSample(t *testing.T) {
	m := New()
	m.SetSampleNames([]string{"s1", "s2"})
	m.SetContigNames([]string{"c1"})
	m.SetHaplotypes(3)
	m.AddPath(PathName{Sample: 0, Contig: 0, Phase: 0})
	m.AddPath(PathName{Sample: 1, Contig: 0, Phase: 0})
	m.AddPath(PathName{Sample: 1, Contig: 0, Phase: 1})

	removed := m.RemoveSample(1)
	assert.Equal(t, []uint64{1, 2}, removed)
	assert.Equal(t, uint64(1), m.SampleCount)
	assert.Equal(t, uint64(1), m.HaplotypeCount)
	assert.Equal(t, uint64(1), m.Paths())
	assert.Equal(t, m.SampleNames.Size(), m.SampleNames.Find("s2"))
	require.NoError(t, m.Check())
}

func TestMetadataRemoveContig(t *testing.T) {
	m := New()
	m.SetSampleNames([]string{"s1"})
	m.SetContigNames([]string{"c1", "c2"})
	m.AddPath(PathName{Sample: 0, Contig: 0})
	m.AddPath(PathName{Sample: 0, Contig: 1})

	removed := m.RemoveContig(0)
	assert.Equal(t, []uint64{0}, removed)
	assert.Equal(t, uint64(1), m.ContigCount)
	require.Equal(t, uint64(1), m.Paths())
	assert.Equal(t, uint64(0), m.PathNames[0].Contig, "remaining contigs renumbered")
	require.NoError(t, m.Check())
}

func TestMetadataMergeByName(t *testing.T) {
	m1 := New()
	m1.SetSampleNames([]string{"s1", "s2"})
	m1.SetContigNames([]string{"c1"})
	m1.SetHaplotypes(2)
	m1.AddPath(PathName{Sample: 1, Contig: 0})

	m2 := New()
	m2.SetSampleNames([]string{"s2", "s3"})
	m2.SetContigNames([]string{"c1"})
	m2.SetHaplotypes(2)
	m2.AddPath(PathName{Sample: 0, Contig: 0})

	m1.Merge(m2, false, false)
	assert.Equal(t, uint64(3), m1.SampleCount)
	assert.Equal(t, uint64(1), m1.ContigCount)
	assert.Equal(t, uint64(4), m1.HaplotypeCount)
	require.Equal(t, uint64(2), m1.Paths())
	// m2's path over "s2" maps to m1's existing id for "s2".
	assert.Equal(t, uint64(1), m1.PathNames[1].Sample)
	require.NoError(t, m1.Check())
}

func TestMetadataMergeWithoutNames(t *testing.T) {
	m1 := New()
	m1.SetSamples(2)
	m1.SetHaplotypes(2)
	m1.SetContigs(1)

	m2 := New()
	m2.SetSamples(3)
	m2.SetHaplotypes(3)
	m2.SetContigs(2)

	m1.Merge(m2, false, false)
	assert.Equal(t, uint64(5), m1.SampleCount)
	assert.Equal(t, uint64(5), m1.HaplotypeCount)
	assert.Equal(t, uint64(3), m1.ContigCount)
}

func TestMetadataCopy(t *testing.T) {
	m := New()
	m.SetSampleNames([]string{"s1"})
	m.AddPath(PathName{Sample: 0, Contig: 0})
	m.SetContigs(1)

	c := m.Copy()
	c.AddPath(PathName{Sample: 0, Contig: 0, Count: 1})
	c.SetSampleNames([]string{"s1", "s2"})

	assert.Equal(t, uint64(1), m.Paths())
	assert.Equal(t, uint64(1), m.SampleNames.Size())
	assert.Equal(t, uint64(2), c.Paths())
}

func TestMetadataRoundTrip(t *testing.T) {
	m := New()
	m.SetSampleNames([]string{"s1", "s2"})
	m.SetContigNames([]string{"c1"})
	m.SetHaplotypes(2)
	m.AddPath(PathName{Sample: 0, Contig: 0, Phase: 0, Count: 0})
	m.AddPath(PathName{Sample: 1, Contig: 0, Phase: 1, Count: 2})

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)

	var loaded Metadata
	_, err = loaded.ReadFrom(&buf)
	require.NoError(t, err)

	assert.Equal(t, m.SampleCount, loaded.SampleCount)
	assert.Equal(t, m.HaplotypeCount, loaded.HaplotypeCount)
	assert.Equal(t, m.ContigCount, loaded.ContigCount)
	assert.Equal(t, m.PathNames, loaded.PathNames)
	assert.True(t, m.SampleNames.Equal(loaded.SampleNames))
	assert.True(t, m.ContigNames.Equal(loaded.ContigNames))
}

func TestMetadataRejectsBadTag(t *testing.T) {
	var loaded Metadata
	_, err := loaded.ReadFrom(bytes.NewReader(make([]byte, 40)))
	assert.ErrorIs(t, err, ErrInvalid)
}
