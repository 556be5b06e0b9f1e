package recarray

import (
	"fmt"
	"io"

	"github.com/ekg/gbwt/core"
	"github.com/ekg/gbwt/internal/record"
	"github.com/ekg/gbwt/internal/sdvec"
)

// DASamples stores the document-array samples of all records. Sampled
// records are marked in a bitvector; their bodies are laid out back to
// back in a global offset space where individual sampled offsets are
// marked and the sequence ids stored in a packed array.
type DASamples struct {
	sampledRecords *sdvec.Sparse
	bwtRanges      *sdvec.Sparse
	sampledOffsets *sdvec.Sparse
	array          *sdvec.IntVector
}

// BuildDASamples collects the samples of the given records. Record ids
// index the slice; sizes are the record body sizes. Returns nil when no
// record carries a sample.
func BuildDASamples(records []*record.DynamicRecord) *DASamples {
	var total, count uint64
	for _, r := range records {
		if r.Samples() > 0 {
			total += r.Size()
			count += r.Samples()
		}
	}
	if count == 0 {
		return nil
	}
	universe := total
	if universe == 0 {
		universe = 1
	}
	da := &DASamples{
		sampledRecords: sdvec.NewSparse(uint64(len(records))),
		bwtRanges:      sdvec.NewSparse(universe),
		sampledOffsets: sdvec.NewSparse(universe),
	}
	values := make([]uint64, 0, count)
	var base uint64
	for id, r := range records {
		if r.Samples() == 0 {
			continue
		}
		da.sampledRecords.Append(uint64(id))
		da.bwtRanges.Append(base)
		for _, s := range r.IDs {
			da.sampledOffsets.Append(base + s.Offset)
			values = append(values, s.Sequence)
		}
		base += r.Size()
	}
	da.array = sdvec.IntVectorFromValues(values)
	return da
}

// Records returns the number of records covered by the structure.
func (da *DASamples) Records() uint64 { return da.sampledRecords.Size() }

// Size returns the number of stored samples.
func (da *DASamples) Size() uint64 { return da.array.Len() }

// IsSampled reports whether the record carries any samples.
func (da *DASamples) IsSampled(r uint64) bool { return da.sampledRecords.Contains(r) }

// Start returns the global offset where a sampled record's range
// begins.
func (da *DASamples) Start(r uint64) uint64 {
	base, _ := da.bwtRanges.Select(da.sampledRecords.Rank(r))
	return base
}

// limit returns the upper bound of the range of the sampled record
// with the given rank.
func (da *DASamples) limit(rank uint64) uint64 {
	if base, ok := da.bwtRanges.Select(rank + 1); ok {
		return base
	}
	return da.bwtRanges.Size()
}

// TryLocate returns the sequence id sampled at (record, offset), or
// InvalidSequence when that position carries no sample.
func (da *DASamples) TryLocate(r, offset uint64) uint64 {
	if !da.IsSampled(r) {
		return core.InvalidSequence
	}
	pos := da.Start(r) + offset
	if !da.sampledOffsets.Contains(pos) {
		return core.InvalidSequence
	}
	return da.array.Get(da.sampledOffsets.Rank(pos))
}

// NextSample returns the first sample of the record at >= offset.
func (da *DASamples) NextSample(r, offset uint64) (core.Sample, bool) {
	if !da.IsSampled(r) {
		return core.Sample{}, false
	}
	rank := da.sampledRecords.Rank(r)
	base, _ := da.bwtRanges.Select(rank)
	limit := da.limit(rank)
	pos, ok := da.sampledOffsets.Successor(base + offset)
	if !ok || pos >= limit {
		return core.Sample{}, false
	}
	return core.Sample{
		Offset:   pos - base,
		Sequence: da.array.Get(da.sampledOffsets.Rank(pos)),
	}, true
}

// RecordSamples collects the samples of one record in offset order.
func (da *DASamples) RecordSamples(r uint64) []core.Sample {
	var out []core.Sample
	s, ok := da.NextSample(r, 0)
	for ok {
		out = append(out, s)
		s, ok = da.NextSample(r, s.Offset+1)
	}
	return out
}

// WriteTo serializes the four substructures in order.
func (da *DASamples) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for _, s := range []*sdvec.Sparse{da.sampledRecords, da.bwtRanges, da.sampledOffsets} {
		n, err := s.WriteTo(w)
		written += n
		if err != nil {
			return written, err
		}
	}
	n, err := da.array.WriteTo(w)
	return written + n, err
}

// ReadFrom deserializes a structure written by WriteTo.
func (da *DASamples) ReadFrom(r io.Reader) (int64, error) {
	da.sampledRecords = &sdvec.Sparse{}
	da.bwtRanges = &sdvec.Sparse{}
	da.sampledOffsets = &sdvec.Sparse{}
	da.array = &sdvec.IntVector{}
	var read int64
	for _, s := range []*sdvec.Sparse{da.sampledRecords, da.bwtRanges, da.sampledOffsets} {
		n, err := s.ReadFrom(r)
		read += n
		if err != nil {
			return read, err
		}
	}
	n, err := da.array.ReadFrom(r)
	read += n
	if err != nil {
		return read, err
	}
	if da.sampledOffsets.Count() != da.array.Len() {
		return read, fmt.Errorf("%w: %d sampled offsets for %d ids",
			record.ErrCorrupt, da.sampledOffsets.Count(), da.array.Len())
	}
	if da.sampledRecords.Count() != da.bwtRanges.Count() {
		return read, fmt.Errorf("%w: %d sampled records with %d ranges",
			record.ErrCorrupt, da.sampledRecords.Count(), da.bwtRanges.Count())
	}
	return read, nil
}
