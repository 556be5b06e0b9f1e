// Package record implements the per-node unit of the index: a local
// run-length BWT fused with adjacency and optional locate samples. A
// record exists in three forms. DynamicRecord is the growable form used
// during construction, CompressedRecord decodes lazily from the packed
// byte encoding, and DecompressedRecord trades memory for constant-time
// LF during path extraction.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ekg/gbwt/core"
)

// ErrCorrupt reports a malformed record encoding. Decoding surfaces it
// to the caller with positional context; no partial record is returned.
var ErrCorrupt = errors.New("corrupt record")

// cursor is a bounded reader over a record's byte encoding. Every read
// fails on buffer exhaustion instead of running past the end.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) uvarint() (uint64, error) {
	v, n := binary.Uvarint(c.data[c.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: truncated varint at byte %d", ErrCorrupt, c.pos)
	}
	c.pos += n
	return v, nil
}

func (c *cursor) done() bool { return c.pos >= len(c.data) }

// appendUvarint appends the 7-bit group encoding of v.
func appendUvarint(buf []byte, v uint64) []byte {
	return binary.AppendUvarint(buf, v)
}

// decodeHeader reads the outdegree and the outgoing edges (delta-coded
// successors, absolute cumulative offsets) and leaves the cursor at the
// start of the body.
func decodeHeader(c *cursor) ([]core.Edge, error) {
	outdegree, err := c.uvarint()
	if err != nil {
		return nil, err
	}
	if outdegree > uint64(len(c.data)-c.pos)+1 {
		return nil, fmt.Errorf("%w: outdegree %d exceeds record size", ErrCorrupt, outdegree)
	}
	outgoing := make([]core.Edge, 0, outdegree)
	prev := uint64(0)
	for i := uint64(0); i < outdegree; i++ {
		delta, err := c.uvarint()
		if err != nil {
			return nil, err
		}
		offset, err := c.uvarint()
		if err != nil {
			return nil, err
		}
		prev += delta
		outgoing = append(outgoing, core.Edge{Node: prev, Offset: offset})
	}
	return outgoing, nil
}

// appendHeader appends the outdegree and edge list encoding.
func appendHeader(buf []byte, outgoing []core.Edge) []byte {
	buf = appendUvarint(buf, uint64(len(outgoing)))
	prev := uint64(0)
	for _, e := range outgoing {
		buf = appendUvarint(buf, e.Node-prev)
		buf = appendUvarint(buf, e.Offset)
		prev = e.Node
	}
	return buf
}

// runIter iterates the runs of an encoded body. When the record has a
// single outgoing edge, no outrank is stored and every run implicitly
// has outrank 0.
type runIter struct {
	c         cursor
	outdegree uint64
}

func newRunIter(body []byte, outdegree uint64) runIter {
	return runIter{c: cursor{data: body}, outdegree: outdegree}
}

func (it *runIter) next() (core.Run, bool, error) {
	if it.c.done() {
		return core.Run{}, false, nil
	}
	var run core.Run
	if it.outdegree >= 2 {
		outrank, err := it.c.uvarint()
		if err != nil {
			return core.Run{}, false, err
		}
		if outrank >= it.outdegree {
			return core.Run{}, false, fmt.Errorf("%w: outrank %d >= outdegree %d", ErrCorrupt, outrank, it.outdegree)
		}
		run.Outrank = outrank
	}
	length, err := it.c.uvarint()
	if err != nil {
		return core.Run{}, false, err
	}
	run.Length = length + 1
	return run, true, nil
}

// appendBody appends the run-length body encoding.
func appendBody(buf []byte, body []core.Run, outdegree uint64) []byte {
	if outdegree == 0 {
		return buf
	}
	for _, run := range body {
		if outdegree >= 2 {
			buf = appendUvarint(buf, run.Outrank)
		}
		buf = appendUvarint(buf, run.Length-1)
	}
	return buf
}
