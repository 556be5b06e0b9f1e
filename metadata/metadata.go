package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
)

const (
	// Tag identifies a metadata section.
	Tag uint32 = 0x444D4247 // "GBMD"

	// Version is the current metadata format version.
	Version uint32 = 2
)

// Flag bits of the metadata header.
const (
	FlagPathNames   uint64 = 1 << 0
	FlagSampleNames uint64 = 1 << 1
	FlagContigNames uint64 = 1 << 2

	flagMask = FlagPathNames | FlagSampleNames | FlagContigNames
)

// ErrInvalid reports a malformed metadata section.
var ErrInvalid = errors.New("invalid metadata")

// PathName names one path: the sample and contig it belongs to, its
// phase (haplotype number within the sample), and a running count
// distinguishing fragments of the same phase.
type PathName struct {
	Sample uint64
	Contig uint64
	Phase  uint64
	Count  uint64
}

// Metadata is the bookkeeping attached to an index: how many samples,
// haplotypes and contigs the paths came from, and optionally the path
// name table and the name dictionaries.
type Metadata struct {
	SampleCount    uint64
	HaplotypeCount uint64
	ContigCount    uint64

	flags       uint64
	PathNames   []PathName
	SampleNames *Dictionary
	ContigNames *Dictionary
}

// New creates empty metadata.
func New() *Metadata {
	return &Metadata{SampleNames: NewDictionary(nil), ContigNames: NewDictionary(nil)}
}

// Copy returns a deep copy of the metadata.
func (m *Metadata) Copy() *Metadata {
	out := *m
	out.PathNames = slices.Clone(m.PathNames)
	out.SampleNames = NewDictionary(nil)
	out.ContigNames = NewDictionary(nil)
	if m.SampleNames != nil {
		out.SampleNames.Append(m.SampleNames)
	}
	if m.ContigNames != nil {
		out.ContigNames.Append(m.ContigNames)
	}
	return &out
}

// HasPathNames reports whether the path name table is present.
func (m *Metadata) HasPathNames() bool { return m.flags&FlagPathNames != 0 }

// HasSampleNames reports whether the sample name dictionary is present.
func (m *Metadata) HasSampleNames() bool { return m.flags&FlagSampleNames != 0 }

// HasContigNames reports whether the contig name dictionary is present.
func (m *Metadata) HasContigNames() bool { return m.flags&FlagContigNames != 0 }

// Paths returns the number of named paths.
func (m *Metadata) Paths() uint64 { return uint64(len(m.PathNames)) }

// SetSamples sets the sample count without touching names.
func (m *Metadata) SetSamples(n uint64) { m.SampleCount = n }

// SetHaplotypes sets the haplotype count.
func (m *Metadata) SetHaplotypes(n uint64) { m.HaplotypeCount = n }

// SetContigs sets the contig count without touching names.
func (m *Metadata) SetContigs(n uint64) { m.ContigCount = n }

// SetSampleNames replaces the sample name dictionary and count.
func (m *Metadata) SetSampleNames(names []string) {
	m.SampleNames = NewDictionary(names)
	m.SampleCount = uint64(len(names))
	m.flags |= FlagSampleNames
}

// SetContigNames replaces the contig name dictionary and count.
func (m *Metadata) SetContigNames(names []string) {
	m.ContigNames = NewDictionary(names)
	m.ContigCount = uint64(len(names))
	m.flags |= FlagContigNames
}

// ClearSampleNames drops the sample name dictionary.
func (m *Metadata) ClearSampleNames() {
	m.SampleNames = NewDictionary(nil)
	m.flags &^= FlagSampleNames
}

// ClearContigNames drops the contig name dictionary.
func (m *Metadata) ClearContigNames() {
	m.ContigNames = NewDictionary(nil)
	m.flags &^= FlagContigNames
}

// ClearPathNames drops the path name table.
func (m *Metadata) ClearPathNames() {
	m.PathNames = nil
	m.flags &^= FlagPathNames
}

// AddPath appends a path name.
func (m *Metadata) AddPath(path PathName) {
	m.PathNames = append(m.PathNames, path)
	m.flags |= FlagPathNames
}

// Sample returns the id of the named sample, or SampleCount when
// absent.
func (m *Metadata) Sample(name string) uint64 {
	if !m.HasSampleNames() {
		return m.SampleCount
	}
	return m.SampleNames.Find(name)
}

// Contig returns the id of the named contig, or ContigCount when
// absent.
func (m *Metadata) Contig(name string) uint64 {
	if !m.HasContigNames() {
		return m.ContigCount
	}
	return m.ContigNames.Find(name)
}

// FindPaths returns the ids of paths over the given sample and contig.
func (m *Metadata) FindPaths(sampleID, contigID uint64) []uint64 {
	var result []uint64
	for i, p := range m.PathNames {
		if p.Sample == sampleID && p.Contig == contigID {
			result = append(result, uint64(i))
		}
	}
	return result
}

// PathsForSample returns the ids of the sample's paths.
func (m *Metadata) PathsForSample(sampleID uint64) []uint64 {
	var result []uint64
	for i, p := range m.PathNames {
		if p.Sample == sampleID {
			result = append(result, uint64(i))
		}
	}
	return result
}

// PathsForContig returns the ids of the contig's paths.
func (m *Metadata) PathsForContig(contigID uint64) []uint64 {
	var result []uint64
	for i, p := range m.PathNames {
		if p.Contig == contigID {
			result = append(result, uint64(i))
		}
	}
	return result
}

// RemoveSample removes a sample and its paths, renumbering the
// remaining samples. It returns the removed path ids in increasing
// order; the caller removes the corresponding sequences from the
// index.
func (m *Metadata) RemoveSample(sampleID uint64) []uint64 {
	if sampleID >= m.SampleCount {
		return nil
	}
	removed := m.PathsForSample(sampleID)
	if m.HasPathNames() {
		var phases uint64
		seen := map[uint64]bool{}
		kept := m.PathNames[:0]
		for _, p := range m.PathNames {
			if p.Sample == sampleID {
				if !seen[p.Phase] {
					seen[p.Phase] = true
					phases++
				}
				continue
			}
			if p.Sample > sampleID {
				p.Sample--
			}
			kept = append(kept, p)
		}
		m.PathNames = kept
		if phases < m.HaplotypeCount {
			m.HaplotypeCount -= phases
		} else {
			m.HaplotypeCount = 0
		}
	}
	if m.HasSampleNames() {
		m.SampleNames.Remove(sampleID)
	}
	m.SampleCount--
	return removed
}

// RemoveContig removes a contig and its paths, renumbering the
// remaining contigs. It returns the removed path ids in increasing
// order.
func (m *Metadata) RemoveContig(contigID uint64) []uint64 {
	if contigID >= m.ContigCount {
		return nil
	}
	removed := m.PathsForContig(contigID)
	if m.HasPathNames() {
		kept := m.PathNames[:0]
		for _, p := range m.PathNames {
			if p.Contig == contigID {
				continue
			}
			if p.Contig > contigID {
				p.Contig--
			}
			kept = append(kept, p)
		}
		m.PathNames = kept
	}
	if m.HasContigNames() {
		m.ContigNames.Remove(contigID)
	}
	m.ContigCount--
	return removed
}

// Merge combines the source's metadata into this one, as when merging
// the corresponding indexes. With sameSamples/sameContigs, the two
// inputs are assumed to describe the same sample or contig space;
// otherwise ids from the source are shifted or matched by name.
func (m *Metadata) Merge(source *Metadata, sameSamples, sameContigs bool) {
	sampleOffset, contigOffset := uint64(0), uint64(0)

	switch {
	case m.HasSampleNames() && source.HasSampleNames():
		merged := MergeDictionaries(m.SampleNames, source.SampleNames)
		if !sameSamples {
			m.HaplotypeCount += source.HaplotypeCount
		}
		m.SampleNames = merged
		m.SampleCount = merged.Size()
	case sameSamples:
		if m.SampleCount < source.SampleCount {
			m.SampleCount = source.SampleCount
		}
		if m.HaplotypeCount < source.HaplotypeCount {
			m.HaplotypeCount = source.HaplotypeCount
		}
	default:
		sampleOffset = m.SampleCount
		m.SampleCount += source.SampleCount
		m.HaplotypeCount += source.HaplotypeCount
		m.ClearSampleNames()
	}

	switch {
	case m.HasContigNames() && source.HasContigNames():
		merged := MergeDictionaries(m.ContigNames, source.ContigNames)
		m.ContigNames = merged
		m.ContigCount = merged.Size()
	case sameContigs:
		if m.ContigCount < source.ContigCount {
			m.ContigCount = source.ContigCount
		}
	default:
		contigOffset = m.ContigCount
		m.ContigCount += source.ContigCount
		m.ClearContigNames()
	}

	if source.HasPathNames() {
		for _, p := range source.PathNames {
			mapped := p
			if m.HasSampleNames() && source.HasSampleNames() {
				mapped.Sample = m.SampleNames.Find(source.SampleNames.Key(p.Sample))
			} else {
				mapped.Sample += sampleOffset
			}
			if m.HasContigNames() && source.HasContigNames() {
				mapped.Contig = m.ContigNames.Find(source.ContigNames.Key(p.Contig))
			} else {
				mapped.Contig += contigOffset
			}
			m.AddPath(mapped)
		}
	} else if m.HasPathNames() {
		m.ClearPathNames()
	}
}

// Check validates the internal consistency of the metadata.
func (m *Metadata) Check() error {
	if m.HasSampleNames() && m.SampleNames.Size() != m.SampleCount {
		return fmt.Errorf("%w: %d sample names for %d samples", ErrInvalid, m.SampleNames.Size(), m.SampleCount)
	}
	if m.HasContigNames() && m.ContigNames.Size() != m.ContigCount {
		return fmt.Errorf("%w: %d contig names for %d contigs", ErrInvalid, m.ContigNames.Size(), m.ContigCount)
	}
	for i, p := range m.PathNames {
		if p.Sample >= m.SampleCount || p.Contig >= m.ContigCount {
			return fmt.Errorf("%w: path %d references sample %d contig %d", ErrInvalid, i, p.Sample, p.Contig)
		}
	}
	return nil
}

// WriteTo serializes the metadata with its own tag and version header.
func (m *Metadata) WriteTo(w io.Writer) (int64, error) {
	hdr := make([]byte, 40)
	binary.LittleEndian.PutUint32(hdr[0:], Tag)
	binary.LittleEndian.PutUint32(hdr[4:], Version)
	binary.LittleEndian.PutUint64(hdr[8:], m.SampleCount)
	binary.LittleEndian.PutUint64(hdr[16:], m.HaplotypeCount)
	binary.LittleEndian.PutUint64(hdr[24:], m.ContigCount)
	binary.LittleEndian.PutUint64(hdr[32:], m.flags)
	written := int64(0)
	n, err := w.Write(hdr)
	written += int64(n)
	if err != nil {
		return written, err
	}
	if m.HasPathNames() {
		var count [8]byte
		binary.LittleEndian.PutUint64(count[:], m.Paths())
		n, err := w.Write(count[:])
		written += int64(n)
		if err != nil {
			return written, err
		}
		buf := make([]byte, 32)
		for _, p := range m.PathNames {
			binary.LittleEndian.PutUint64(buf[0:], p.Sample)
			binary.LittleEndian.PutUint64(buf[8:], p.Contig)
			binary.LittleEndian.PutUint64(buf[16:], p.Phase)
			binary.LittleEndian.PutUint64(buf[24:], p.Count)
			n, err := w.Write(buf)
			written += int64(n)
			if err != nil {
				return written, err
			}
		}
	}
	if m.HasSampleNames() {
		n, err := m.SampleNames.WriteTo(w)
		written += n
		if err != nil {
			return written, err
		}
	}
	if m.HasContigNames() {
		n, err := m.ContigNames.WriteTo(w)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// ReadFrom deserializes metadata written by WriteTo.
func (m *Metadata) ReadFrom(r io.Reader) (int64, error) {
	hdr := make([]byte, 40)
	var read int64
	n, err := io.ReadFull(r, hdr)
	read += int64(n)
	if err != nil {
		return read, err
	}
	if binary.LittleEndian.Uint32(hdr[0:]) != Tag {
		return read, fmt.Errorf("%w: bad tag", ErrInvalid)
	}
	if binary.LittleEndian.Uint32(hdr[4:]) != Version {
		return read, fmt.Errorf("%w: bad version", ErrInvalid)
	}
	m.SampleCount = binary.LittleEndian.Uint64(hdr[8:])
	m.HaplotypeCount = binary.LittleEndian.Uint64(hdr[16:])
	m.ContigCount = binary.LittleEndian.Uint64(hdr[24:])
	m.flags = binary.LittleEndian.Uint64(hdr[32:])
	if m.flags&^flagMask != 0 {
		return read, fmt.Errorf("%w: unknown flags %#x", ErrInvalid, m.flags)
	}
	m.SampleNames = NewDictionary(nil)
	m.ContigNames = NewDictionary(nil)
	m.PathNames = nil
	if m.HasPathNames() {
		var count [8]byte
		n, err := io.ReadFull(r, count[:])
		read += int64(n)
		if err != nil {
			return read, err
		}
		paths := binary.LittleEndian.Uint64(count[:])
		buf := make([]byte, 32)
		for i := uint64(0); i < paths; i++ {
			n, err := io.ReadFull(r, buf)
			read += int64(n)
			if err != nil {
				return read, err
			}
			m.PathNames = append(m.PathNames, PathName{
				Sample: binary.LittleEndian.Uint64(buf[0:]),
				Contig: binary.LittleEndian.Uint64(buf[8:]),
				Phase:  binary.LittleEndian.Uint64(buf[16:]),
				Count:  binary.LittleEndian.Uint64(buf[24:]),
			})
		}
	}
	if m.HasSampleNames() {
		n, err := m.SampleNames.ReadFrom(r)
		read += n
		if err != nil {
			return read, err
		}
	}
	if m.HasContigNames() {
		n, err := m.ContigNames.ReadFrom(r)
		read += n
		if err != nil {
			return read, err
		}
	}
	return read, m.Check()
}
