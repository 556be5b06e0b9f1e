// Package persistence defines the on-disk framing of the index: the
// fixed header, its flag bits, and atomic file writes. The order of the
// sections after the header is set by the index's WriteTo and ReadFrom.
// All values are little-endian and 64-bit word oriented.
package persistence

import "errors"

const (
	// Magic identifies index files (ASCII "GBWT", little-endian).
	Magic uint32 = 0x54574247

	// Version is the current file format version.
	Version uint32 = 5
)

// Header flag bits. Any other set bit makes the file unreadable by
// this version.
const (
	FlagBidirectional uint64 = 1 << 0
	FlagMetadata      uint64 = 1 << 1
	FlagDASamples     uint64 = 1 << 2
	FlagRemap         uint64 = 1 << 3

	FlagMask uint64 = FlagBidirectional | FlagMetadata | FlagDASamples | FlagRemap
)

var (
	// ErrBadMagic is returned when a file does not start with Magic.
	ErrBadMagic = errors.New("not a gbwt index")

	// ErrUnsupportedVersion is returned for unknown versions or
	// unknown flag bits.
	ErrUnsupportedVersion = errors.New("unsupported index version")

	// ErrTruncated is returned when a file ends inside a section.
	ErrTruncated = errors.New("truncated index")
)

// Header is the fixed-width section at the start of every index file.
type Header struct {
	Magic          uint32
	Version        uint32
	Flags          uint64
	Sequences      uint64
	Nodes          uint64 // alphabet size: node ids in use + 1
	SampleInterval uint64
}

// Validate checks the magic tag, the version, and the flag bits.
func (h *Header) Validate() error {
	if h.Magic != Magic {
		return ErrBadMagic
	}
	if h.Version != Version {
		return ErrUnsupportedVersion
	}
	if h.Flags&^FlagMask != 0 {
		return ErrUnsupportedVersion
	}
	return nil
}
