package gbwt

import (
	"errors"
	"fmt"

	"github.com/ekg/gbwt/internal/record"
	"github.com/ekg/gbwt/persistence"
)

var (
	// ErrBadMagic is returned when a file does not start with the
	// index magic tag.
	ErrBadMagic = persistence.ErrBadMagic

	// ErrUnsupportedVersion is returned for unknown format versions or
	// unknown flag bits.
	ErrUnsupportedVersion = persistence.ErrUnsupportedVersion

	// ErrTruncated is returned when a file ends inside a section.
	ErrTruncated = persistence.ErrTruncated

	// ErrCorruptRecord is returned when a record encoding is
	// malformed. The index object is unusable afterwards; no partial
	// result is produced.
	ErrCorruptRecord = record.ErrCorrupt

	// ErrBadInput reports invalid caller input, such as a node outside
	// the alphabet. The operation produces no mutation.
	ErrBadInput = errors.New("bad input")

	// ErrCancelled reports cooperative cancellation, observed at chunk
	// and spill boundaries.
	ErrCancelled = errors.New("operation cancelled")

	// ErrOutOfSpace reports a failed merge spill. Temporary files are
	// removed and no output is produced.
	ErrOutOfSpace = errors.New("out of space")
)

// ErrInvalidNode indicates a node value outside the index alphabet.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidNode struct {
	Node  uint64
	cause error
}

func (e *ErrInvalidNode) Error() string {
	return fmt.Sprintf("node %d outside the alphabet", e.Node)
}

func (e *ErrInvalidNode) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return ErrBadInput
}
