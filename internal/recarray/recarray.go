// Package recarray provides the container layer of the index: the
// concatenation of compressed records addressed through a sparse
// bitvector, and the document-array samples stored next to it.
package recarray

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ekg/gbwt/internal/record"
	"github.com/ekg/gbwt/internal/sdvec"
)

// RecordArray is a flat byte buffer holding all records back to back.
// A sparse bitvector marks the start offset of each record; the limit
// of the last record is the buffer length.
type RecordArray struct {
	records uint64
	index   *sdvec.Sparse
	data    []byte
}

// Builder accumulates encoded records in id order.
type Builder struct {
	data    []byte
	offsets []uint64
}

// Append adds the next record's encoding.
func (b *Builder) Append(encoded []byte) {
	b.offsets = append(b.offsets, uint64(len(b.data)))
	b.data = append(b.data, encoded...)
}

// Finish freezes the accumulated records into a RecordArray.
func (b *Builder) Finish() *RecordArray {
	universe := uint64(len(b.data))
	if universe == 0 {
		universe = 1
	}
	index := sdvec.NewSparse(universe)
	for _, off := range b.offsets {
		index.Append(off)
	}
	return &RecordArray{
		records: uint64(len(b.offsets)),
		index:   index,
		data:    b.data,
	}
}

// FromDynamic encodes recoded dynamic records into a RecordArray.
func FromDynamic(records []*record.DynamicRecord) *RecordArray {
	var b Builder
	var buf []byte
	for _, r := range records {
		buf = r.WriteBWT(buf[:0])
		b.Append(buf)
	}
	return b.Finish()
}

// Size returns the number of records.
func (ra *RecordArray) Size() uint64 { return ra.records }

// DataLen returns the length of the concatenated encoding.
func (ra *RecordArray) DataLen() uint64 { return uint64(len(ra.data)) }

// Start returns the byte offset where the record begins.
func (ra *RecordArray) Start(r uint64) uint64 {
	off, ok := ra.index.Select(r)
	if !ok {
		return uint64(len(ra.data))
	}
	return off
}

// Limit returns the byte offset just past the record.
func (ra *RecordArray) Limit(r uint64) uint64 {
	if r+1 < ra.records {
		return ra.Start(r + 1)
	}
	return uint64(len(ra.data))
}

// Empty reports whether the record has outdegree zero. Only the header
// byte is peeked.
func (ra *RecordArray) Empty(r uint64) bool {
	if r >= ra.records {
		return true
	}
	return record.EmptyRecord(ra.data, ra.Start(r))
}

// Record decodes the record with the given id.
func (ra *RecordArray) Record(r uint64) (*record.CompressedRecord, error) {
	if r >= ra.records {
		return nil, fmt.Errorf("%w: record %d of %d", record.ErrCorrupt, r, ra.records)
	}
	rec, err := record.DecodeCompressed(ra.data, ra.Start(r), ra.Limit(r))
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", r, err)
	}
	return rec, nil
}

// RawRecord returns the encoded bytes of the record.
func (ra *RecordArray) RawRecord(r uint64) []byte {
	return ra.data[ra.Start(r):ra.Limit(r)]
}

// WriteTo serializes the data blob followed by the start index.
func (ra *RecordArray) WriteTo(w io.Writer) (int64, error) {
	var hdr [16]byte
	binary.LittleEndian.PutUint64(hdr[0:], ra.records)
	binary.LittleEndian.PutUint64(hdr[8:], uint64(len(ra.data)))
	if _, err := w.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := w.Write(ra.data); err != nil {
		return 0, err
	}
	n, err := ra.index.WriteTo(w)
	return int64(16+len(ra.data)) + n, err
}

// ReadFrom deserializes a RecordArray written by WriteTo.
func (ra *RecordArray) ReadFrom(r io.Reader) (int64, error) {
	var hdr [16]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	ra.records = binary.LittleEndian.Uint64(hdr[0:])
	dataLen := binary.LittleEndian.Uint64(hdr[8:])
	ra.data = make([]byte, dataLen)
	if _, err := io.ReadFull(r, ra.data); err != nil {
		return 0, err
	}
	ra.index = &sdvec.Sparse{}
	n, err := ra.index.ReadFrom(r)
	if err != nil {
		return 0, err
	}
	if ra.index.Count() != ra.records {
		return 0, fmt.Errorf("%w: index has %d starts for %d records", record.ErrCorrupt, ra.index.Count(), ra.records)
	}
	return int64(16+len(ra.data)) + n, nil
}

// Verify decodes every record once, surfacing the first decode error.
func (ra *RecordArray) Verify() error {
	for r := uint64(0); r < ra.records; r++ {
		rec, err := ra.Record(r)
		if err != nil {
			return err
		}
		if err := rec.Verify(); err != nil {
			return fmt.Errorf("record %d: %w", r, err)
		}
	}
	return nil
}

// ForEach decodes records in id order, calling fn for each.
func (ra *RecordArray) ForEach(fn func(r uint64, rec *record.CompressedRecord) error) error {
	for r := uint64(0); r < ra.records; r++ {
		rec, err := ra.Record(r)
		if err != nil {
			return err
		}
		if err := fn(r, rec); err != nil {
			return err
		}
	}
	return nil
}
