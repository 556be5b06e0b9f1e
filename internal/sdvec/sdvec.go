// Package sdvec provides the succinct vector shapes the index is built
// on: a sparse bitvector with rank/select and a fixed-width packed
// integer vector. Rank and select are delegated to roaring bitmaps;
// this package only fixes the conventions the rest of the module
// relies on (0-based select, rank counting strictly below a position)
// and the on-disk framing.
package sdvec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Sparse is an append-only bitvector over a bounded universe.
// Positions are added in strictly increasing order during construction
// and the vector is immutable afterwards.
type Sparse struct {
	rb   *roaring64.Bitmap
	size uint64 // universe length
	last uint64
	any  bool
}

// NewSparse creates an empty sparse vector over a universe of the given length.
func NewSparse(size uint64) *Sparse {
	return &Sparse{rb: roaring64.New(), size: size}
}

// SparseFromPositions builds a sparse vector from sorted positions.
func SparseFromPositions(size uint64, positions []uint64) *Sparse {
	s := NewSparse(size)
	for _, p := range positions {
		s.Append(p)
	}
	return s
}

// Append marks a position. Positions must be strictly increasing and
// within the universe.
func (s *Sparse) Append(pos uint64) {
	if pos >= s.size {
		panic(fmt.Sprintf("sdvec: position %d outside universe %d", pos, s.size))
	}
	if s.any && pos <= s.last {
		panic(fmt.Sprintf("sdvec: position %d not increasing (last %d)", pos, s.last))
	}
	s.rb.Add(pos)
	s.last = pos
	s.any = true
}

// Size returns the universe length.
func (s *Sparse) Size() uint64 { return s.size }

// Count returns the number of marked positions.
func (s *Sparse) Count() uint64 { return s.rb.GetCardinality() }

// Contains reports whether the position is marked.
func (s *Sparse) Contains(pos uint64) bool { return s.rb.Contains(pos) }

// Rank returns the number of marked positions strictly below pos.
func (s *Sparse) Rank(pos uint64) uint64 {
	if pos == 0 {
		return 0
	}
	if pos > s.size {
		pos = s.size
	}
	return s.rb.Rank(pos - 1)
}

// Select returns the k-th marked position (0-based). The second return
// value is false when k is out of range.
func (s *Sparse) Select(k uint64) (uint64, bool) {
	if k >= s.Count() {
		return 0, false
	}
	v, err := s.rb.Select(k)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Successor returns the smallest marked position >= pos, or false when
// there is none.
func (s *Sparse) Successor(pos uint64) (uint64, bool) {
	return s.Select(s.Rank(pos))
}

// WriteTo serializes the vector: universe length, payload length, then
// the roaring payload.
func (s *Sparse) WriteTo(w io.Writer) (int64, error) {
	s.rb.RunOptimize()
	var payload bytes.Buffer
	if _, err := s.rb.WriteTo(&payload); err != nil {
		return 0, err
	}
	var hdr [16]byte
	binary.LittleEndian.PutUint64(hdr[0:], s.size)
	binary.LittleEndian.PutUint64(hdr[8:], uint64(payload.Len()))
	if _, err := w.Write(hdr[:]); err != nil {
		return 0, err
	}
	n, err := w.Write(payload.Bytes())
	return int64(16 + n), err
}

// ReadFrom deserializes a vector written by WriteTo.
func (s *Sparse) ReadFrom(r io.Reader) (int64, error) {
	var hdr [16]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	size := binary.LittleEndian.Uint64(hdr[0:])
	payloadLen := binary.LittleEndian.Uint64(hdr[8:])
	buf := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	rb := roaring64.New()
	if _, err := rb.ReadFrom(bytes.NewReader(buf)); err != nil {
		return 0, err
	}
	s.rb = rb
	s.size = size
	if !rb.IsEmpty() {
		s.last = rb.Maximum()
		s.any = true
	} else {
		s.last = 0
		s.any = false
	}
	return int64(16 + payloadLen), nil
}

// BitWidth returns the number of bits needed to represent v (at least 1).
func BitWidth(v uint64) uint8 {
	if v == 0 {
		return 1
	}
	return uint8(bits.Len64(v))
}

// IntVector is a fixed-width packed vector of unsigned integers.
type IntVector struct {
	words  []uint64
	length uint64
	width  uint8
}

// NewIntVector creates a zero-filled vector of n values of the given width.
func NewIntVector(n uint64, width uint8) *IntVector {
	if width == 0 || width > 64 {
		panic(fmt.Sprintf("sdvec: invalid width %d", width))
	}
	words := (n*uint64(width) + 63) / 64
	return &IntVector{words: make([]uint64, words), length: n, width: width}
}

// IntVectorFromValues packs the values at the smallest sufficient width.
func IntVectorFromValues(values []uint64) *IntVector {
	var max uint64
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	iv := NewIntVector(uint64(len(values)), BitWidth(max))
	for i, v := range values {
		iv.Set(uint64(i), v)
	}
	return iv
}

// Len returns the number of values.
func (iv *IntVector) Len() uint64 { return iv.length }

// Width returns the width in bits of each value.
func (iv *IntVector) Width() uint8 { return iv.width }

// Get returns the value at index i.
func (iv *IntVector) Get(i uint64) uint64 {
	bitPos := i * uint64(iv.width)
	word, shift := bitPos/64, bitPos%64
	v := iv.words[word] >> shift
	if shift+uint64(iv.width) > 64 {
		v |= iv.words[word+1] << (64 - shift)
	}
	if iv.width == 64 {
		return v
	}
	return v & ((1 << iv.width) - 1)
}

// Set stores a value at index i. The value must fit in the width.
func (iv *IntVector) Set(i, v uint64) {
	if iv.width < 64 && v >= (1<<iv.width) {
		panic(fmt.Sprintf("sdvec: value %d does not fit in %d bits", v, iv.width))
	}
	bitPos := i * uint64(iv.width)
	word, shift := bitPos/64, bitPos%64
	var mask uint64 = ^uint64(0)
	if iv.width < 64 {
		mask = (1 << iv.width) - 1
	}
	iv.words[word] = (iv.words[word] &^ (mask << shift)) | (v << shift)
	if shift+uint64(iv.width) > 64 {
		high := uint64(iv.width) - (64 - shift)
		highMask := (uint64(1) << high) - 1
		iv.words[word+1] = (iv.words[word+1] &^ highMask) | (v >> (64 - shift))
	}
}

// Values unpacks the vector into a slice.
func (iv *IntVector) Values() []uint64 {
	out := make([]uint64, iv.length)
	for i := range out {
		out[i] = iv.Get(uint64(i))
	}
	return out
}

// WriteTo serializes the vector: length, width, then the packed words.
func (iv *IntVector) WriteTo(w io.Writer) (int64, error) {
	var hdr [9]byte
	binary.LittleEndian.PutUint64(hdr[0:], iv.length)
	hdr[8] = iv.width
	if _, err := w.Write(hdr[:]); err != nil {
		return 0, err
	}
	buf := make([]byte, 8*len(iv.words))
	for i, word := range iv.words {
		binary.LittleEndian.PutUint64(buf[8*i:], word)
	}
	n, err := w.Write(buf)
	return int64(9 + n), err
}

// ReadFrom deserializes a vector written by WriteTo.
func (iv *IntVector) ReadFrom(r io.Reader) (int64, error) {
	var hdr [9]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	length := binary.LittleEndian.Uint64(hdr[0:])
	width := hdr[8]
	if width == 0 || width > 64 {
		return 0, fmt.Errorf("sdvec: invalid width %d", width)
	}
	words := (length*uint64(width) + 63) / 64
	buf := make([]byte, 8*words)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	iv.words = make([]uint64, words)
	for i := range iv.words {
		iv.words[i] = binary.LittleEndian.Uint64(buf[8*i:])
	}
	iv.length = length
	iv.width = width
	return int64(9 + len(buf)), nil
}
