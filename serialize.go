package gbwt

import (
	"fmt"
	"io"

	"github.com/ekg/gbwt/internal/recarray"
	"github.com/ekg/gbwt/internal/sdvec"
	"github.com/ekg/gbwt/metadata"
	"github.com/ekg/gbwt/persistence"
)

// WriteTo serializes the index in the section order of the file
// format: header, optional alphabet remap, record array, optional
// document-array samples, optional metadata.
func (g *GBWT) WriteTo(w io.Writer) error {
	header := persistence.Header{
		Sequences:      g.sequences,
		Nodes:          g.alphabetSize,
		SampleInterval: g.sampleInterval,
	}
	if g.bidirectional {
		header.Flags |= persistence.FlagBidirectional
	}
	if g.remap != nil {
		header.Flags |= persistence.FlagRemap
	}
	if g.da != nil {
		header.Flags |= persistence.FlagDASamples
	}
	if g.meta != nil {
		header.Flags |= persistence.FlagMetadata
	}
	if err := persistence.WriteHeader(w, &header); err != nil {
		return err
	}
	if g.remap != nil {
		if _, err := g.remap.WriteTo(w); err != nil {
			return err
		}
	}
	if _, err := g.bwt.WriteTo(w); err != nil {
		return err
	}
	if g.da != nil {
		if _, err := g.da.WriteTo(w); err != nil {
			return err
		}
	}
	if g.meta != nil {
		if _, err := g.meta.WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrom deserializes an index written by WriteTo. On error the
// receiver is unusable; no partially loaded index is returned to
// callers of Open.
func (g *GBWT) ReadFrom(r io.Reader) error {
	header, err := persistence.ReadHeader(r)
	if err != nil {
		return err
	}
	g.sequences = header.Sequences
	g.alphabetSize = header.Nodes
	g.sampleInterval = header.SampleInterval
	g.bidirectional = header.Flags&persistence.FlagBidirectional != 0

	if header.Flags&persistence.FlagRemap != 0 {
		g.remap = &sdvec.IntVector{}
		if _, err := g.remap.ReadFrom(r); err != nil {
			return persistence.Truncate(err)
		}
	}
	g.bwt = &recarray.RecordArray{}
	if _, err := g.bwt.ReadFrom(r); err != nil {
		return persistence.Truncate(err)
	}
	if header.Flags&persistence.FlagDASamples != 0 {
		g.da = &recarray.DASamples{}
		if _, err := g.da.ReadFrom(r); err != nil {
			return persistence.Truncate(err)
		}
	}
	if header.Flags&persistence.FlagMetadata != 0 {
		g.meta = metadata.New()
		if _, err := g.meta.ReadFrom(r); err != nil {
			return persistence.Truncate(err)
		}
	}
	return g.bwt.Verify()
}

// Save writes the index to a file atomically.
func (g *GBWT) Save(path string) error {
	return persistence.SaveToFile(path, g.WriteTo)
}

// Open loads a static index from a file. Errors: fs errors for a
// missing file, ErrBadMagic, ErrUnsupportedVersion, ErrTruncated and
// ErrCorruptRecord for malformed content.
func Open(path string) (*GBWT, error) {
	g := &GBWT{}
	if err := persistence.LoadFromFile(path, g.ReadFrom); err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return g, nil
}
