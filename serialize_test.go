package gbwt

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekg/gbwt/metadata"
	"github.com/ekg/gbwt/persistence"
)

func TestSaveOpenRoundTrip(t *testing.T) {
	paths := [][]uint64{{2, 4, 6, 8}, {2, 4, 8}, {8, 6, 4, 2}}
	index := buildIndex(t, paths, WithSampleInterval(2))

	path := filepath.Join(t.TempDir(), "index.gbwt")
	require.NoError(t, index.Save(path))

	loaded, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, index.Sequences(), loaded.Sequences())
	assert.Equal(t, index.AlphabetSize(), loaded.AlphabetSize())
	assert.Equal(t, index.SampleInterval(), loaded.SampleInterval())
	assert.Equal(t, index.Samples(), loaded.Samples())
	for seq := uint64(0); seq < index.Sequences(); seq++ {
		assert.Equal(t, index.Extract(seq), loaded.Extract(seq))
	}
	for _, pattern := range [][]uint64{{2, 4}, {8}, {6, 4, 2}, {3}} {
		assert.Equal(t, index.Find(pattern), loaded.Find(pattern))
	}
	state := loaded.Find([]uint64{2, 4})
	assert.Equal(t, index.LocateAll(index.Find([]uint64{2, 4})), loaded.LocateAll(state))
}

func TestSaveOpenWithMetadata(t *testing.T) {
	index := buildIndex(t, [][]uint64{{2, 4}})
	meta := metadata.New()
	meta.SetSampleNames([]string{"sample1"})
	meta.SetContigNames([]string{"chr1"})
	meta.SetHaplotypes(1)
	meta.AddPath(metadata.PathName{Sample: 0, Contig: 0, Phase: 0, Count: 0})
	index.SetMetadata(meta)

	path := filepath.Join(t.TempDir(), "index.gbwt")
	require.NoError(t, index.Save(path))

	loaded, err := Open(path)
	require.NoError(t, err)
	require.NotNil(t, loaded.Metadata())
	assert.Equal(t, uint64(1), loaded.Metadata().SampleCount)
	assert.Equal(t, "sample1", loaded.Metadata().SampleNames.Key(0))
	assert.Equal(t, "chr1", loaded.Metadata().ContigNames.Key(0))
	assert.Equal(t, meta.PathNames, loaded.Metadata().PathNames)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.gbwt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.gbwt")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xFF}, 48), 0o644))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestOpenTruncated(t *testing.T) {
	index := buildIndex(t, [][]uint64{{2, 4, 6}})
	var buf bytes.Buffer
	require.NoError(t, index.WriteTo(&buf))
	full := buf.Bytes()

	for _, cut := range []int{4, 20, len(full) / 2, len(full) - 1} {
		path := filepath.Join(t.TempDir(), "trunc.gbwt")
		require.NoError(t, os.WriteFile(path, full[:cut], 0o644))
		_, err := Open(path)
		assert.ErrorIs(t, err, ErrTruncated, "cut at %d", cut)
	}
}

func TestOpenUnknownFlags(t *testing.T) {
	index := buildIndex(t, [][]uint64{{2, 4, 6}})
	var buf bytes.Buffer
	require.NoError(t, index.WriteTo(&buf))
	raw := buf.Bytes()
	raw[8] |= 0x80 // set an undefined flag bit

	path := filepath.Join(t.TempDir(), "flags.gbwt")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	_, err := Open(path)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestOpenWrongVersion(t *testing.T) {
	index := buildIndex(t, [][]uint64{{2, 4, 6}})
	var buf bytes.Buffer
	require.NoError(t, index.WriteTo(&buf))
	raw := buf.Bytes()
	raw[4] = 99 // version field

	path := filepath.Join(t.TempDir(), "version.gbwt")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	_, err := Open(path)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.gbwt")
	index := buildIndex(t, [][]uint64{{2, 4, 6}})
	require.NoError(t, index.Save(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files left behind")
	assert.Equal(t, "index.gbwt", entries[0].Name())
}

func TestHeaderValidate(t *testing.T) {
	h := persistence.Header{Magic: persistence.Magic, Version: persistence.Version}
	assert.NoError(t, h.Validate())

	h.Flags = persistence.FlagBidirectional | persistence.FlagDASamples
	assert.NoError(t, h.Validate())

	h.Flags = 1 << 10
	assert.ErrorIs(t, h.Validate(), persistence.ErrUnsupportedVersion)
}
