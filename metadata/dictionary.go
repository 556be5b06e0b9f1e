// Package metadata implements the bookkeeping attached to an index:
// string dictionaries for sample and contig names and the table of
// structured path names.
package metadata

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/ekg/gbwt/internal/sdvec"
)

// Dictionary is an immutable-by-convention mapping between string keys
// and dense ids. Keys keep their insertion ids; a sorted permutation
// supports lookup by key.
type Dictionary struct {
	data      []byte   // concatenated keys
	offsets   []uint64 // starting offset per key, plus a sentinel
	sortedIDs []uint64 // key ids in key order
}

// NewDictionary builds a dictionary from keys in id order.
func NewDictionary(keys []string) *Dictionary {
	d := &Dictionary{offsets: []uint64{0}}
	for _, key := range keys {
		d.data = append(d.data, key...)
		d.offsets = append(d.offsets, uint64(len(d.data)))
	}
	d.sortKeys()
	return d
}

// MergeDictionaries unions two dictionaries: the first keeps its ids,
// and keys only present in the second are appended in their original
// order.
func MergeDictionaries(first, second *Dictionary) *Dictionary {
	keys := make([]string, 0, first.Size()+second.Size())
	for i := uint64(0); i < first.Size(); i++ {
		keys = append(keys, first.Key(i))
	}
	for i := uint64(0); i < second.Size(); i++ {
		key := second.Key(i)
		if first.Find(key) >= first.Size() {
			keys = append(keys, key)
		}
	}
	return NewDictionary(keys)
}

// Size returns the number of keys.
func (d *Dictionary) Size() uint64 {
	if d == nil || len(d.offsets) == 0 {
		return 0
	}
	return uint64(len(d.offsets) - 1)
}

// Empty reports whether the dictionary has no keys.
func (d *Dictionary) Empty() bool { return d.Size() == 0 }

// Length returns the total length of the stored keys.
func (d *Dictionary) Length() uint64 { return uint64(len(d.data)) }

// Key returns key i, or an empty string when there is no such key.
func (d *Dictionary) Key(i uint64) string {
	if i >= d.Size() {
		return ""
	}
	return string(d.data[d.offsets[i]:d.offsets[i+1]])
}

// Find returns the id of the key, or Size() when it is absent.
func (d *Dictionary) Find(key string) uint64 {
	lo, hi := 0, len(d.sortedIDs)
	for lo < hi {
		mid := (lo + hi) / 2
		if d.Key(d.sortedIDs[mid]) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(d.sortedIDs) && d.Key(d.sortedIDs[lo]) == key {
		return d.sortedIDs[lo]
	}
	return d.Size()
}

// Remove deletes key i, shifting the ids of later keys down by one.
func (d *Dictionary) Remove(i uint64) {
	if i >= d.Size() {
		return
	}
	keys := make([]string, 0, d.Size()-1)
	for k := uint64(0); k < d.Size(); k++ {
		if k != i {
			keys = append(keys, d.Key(k))
		}
	}
	*d = *NewDictionary(keys)
}

// Append adds the other dictionary's keys after this one's, keeping
// duplicates.
func (d *Dictionary) Append(other *Dictionary) {
	keys := make([]string, 0, d.Size()+other.Size())
	for i := uint64(0); i < d.Size(); i++ {
		keys = append(keys, d.Key(i))
	}
	for i := uint64(0); i < other.Size(); i++ {
		keys = append(keys, other.Key(i))
	}
	*d = *NewDictionary(keys)
}

// HasDuplicates reports whether two keys compare equal.
func (d *Dictionary) HasDuplicates() bool {
	for i := 1; i < len(d.sortedIDs); i++ {
		if d.Key(d.sortedIDs[i-1]) == d.Key(d.sortedIDs[i]) {
			return true
		}
	}
	return false
}

// Equal reports whether both dictionaries hold the same keys in the
// same order.
func (d *Dictionary) Equal(other *Dictionary) bool {
	if d.Size() != other.Size() {
		return false
	}
	for i := uint64(0); i < d.Size(); i++ {
		if d.Key(i) != other.Key(i) {
			return false
		}
	}
	return true
}

func (d *Dictionary) sortKeys() {
	d.sortedIDs = make([]uint64, d.Size())
	for i := range d.sortedIDs {
		d.sortedIDs[i] = uint64(i)
	}
	slices.SortStableFunc(d.sortedIDs, func(a, b uint64) int {
		return strings.Compare(d.Key(a), d.Key(b))
	})
}

// WriteTo serializes the dictionary: key count, total bytes, the
// concatenated keys, the offset vector and the sorted permutation.
func (d *Dictionary) WriteTo(w io.Writer) (int64, error) {
	var written int64
	counts := sdvec.IntVectorFromValues([]uint64{d.Size(), d.Length()})
	n, err := counts.WriteTo(w)
	written += n
	if err != nil {
		return written, err
	}
	m, err := w.Write(d.data)
	written += int64(m)
	if err != nil {
		return written, err
	}
	for _, vals := range [][]uint64{d.offsets, d.sortedIDs} {
		iv := sdvec.IntVectorFromValues(vals)
		n, err = iv.WriteTo(w)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// ReadFrom deserializes a dictionary written by WriteTo.
func (d *Dictionary) ReadFrom(r io.Reader) (int64, error) {
	var read int64
	var counts sdvec.IntVector
	n, err := counts.ReadFrom(r)
	read += n
	if err != nil {
		return read, err
	}
	size, length := counts.Get(0), counts.Get(1)
	d.data = make([]byte, length)
	if _, err := io.ReadFull(r, d.data); err != nil {
		return read, err
	}
	read += int64(length)
	var offsets, sorted sdvec.IntVector
	n, err = offsets.ReadFrom(r)
	read += n
	if err != nil {
		return read, err
	}
	n, err = sorted.ReadFrom(r)
	read += n
	if err != nil {
		return read, err
	}
	d.offsets = offsets.Values()
	d.sortedIDs = sorted.Values()
	if uint64(len(d.offsets)) != size+1 || uint64(len(d.sortedIDs)) != size {
		return read, fmt.Errorf("dictionary of %d keys with %d offsets and %d sorted ids",
			size, len(d.offsets), len(d.sortedIDs))
	}
	return read, nil
}
