// Package mergebuf implements the external-memory side of the merge
// engine: fixed-size insertion triples, sorted spill runs compressed
// with zstd, and a k-way merge streaming the triples back in
// destination order.
package mergebuf

import (
	"bufio"
	"container/heap"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Position is one insertion triple: the value to insert into the
// destination record, its position among the destination's existing
// entries (APos), and the tie-breaking position within the source
// index's record (BPos). Pred, Seq and Sampled carry what the consumer
// needs to rebuild adjacency and samples.
type Position struct {
	Dest    uint64
	APos    uint64
	BPos    uint64
	Value   uint64
	Pred    uint64
	Seq     uint64
	Sampled bool
}

// PositionBytes is the fixed encoding size of one Position.
const PositionBytes = 49

// Compare orders positions by (Dest, APos, BPos). APos orders an
// insertion against the destination's existing entries; BPos recovers
// the source index's own ordering for insertions at the same APos.
func Compare(a, b Position) int {
	switch {
	case a.Dest != b.Dest:
		if a.Dest < b.Dest {
			return -1
		}
		return 1
	case a.APos != b.APos:
		if a.APos < b.APos {
			return -1
		}
		return 1
	case a.BPos != b.BPos:
		if a.BPos < b.BPos {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func encode(buf []byte, p Position) {
	binary.LittleEndian.PutUint64(buf[0:], p.Dest)
	binary.LittleEndian.PutUint64(buf[8:], p.APos)
	binary.LittleEndian.PutUint64(buf[16:], p.BPos)
	binary.LittleEndian.PutUint64(buf[24:], p.Value)
	binary.LittleEndian.PutUint64(buf[32:], p.Pred)
	binary.LittleEndian.PutUint64(buf[40:], p.Seq)
	buf[48] = 0
	if p.Sampled {
		buf[48] = 1
	}
}

func decode(buf []byte) Position {
	return Position{
		Dest:    binary.LittleEndian.Uint64(buf[0:]),
		APos:    binary.LittleEndian.Uint64(buf[8:]),
		BPos:    binary.LittleEndian.Uint64(buf[16:]),
		Value:   binary.LittleEndian.Uint64(buf[24:]),
		Pred:    binary.LittleEndian.Uint64(buf[32:]),
		Seq:     binary.LittleEndian.Uint64(buf[40:]),
		Sampled: buf[48] != 0,
	}
}

// Buffers collects sorted runs of positions, spilling each run to a
// zstd-compressed temporary file. The merge engine bounds the number
// of concurrent spill writers; Buffers itself is safe for concurrent
// AddRun calls only through that bound plus its own file naming.
type Buffers struct {
	dir  string
	mu   sync.Mutex
	runs []string
	next int
}

// NewBuffers creates a spill directory under parent.
func NewBuffers(parent string) (*Buffers, error) {
	dir, err := os.MkdirTemp(parent, "gbwt-merge-*")
	if err != nil {
		return nil, err
	}
	return &Buffers{dir: dir}, nil
}

// AddRun sorts the positions and spills them as one run. The slice is
// sorted in place.
func (b *Buffers) AddRun(positions []Position) error {
	if len(positions) == 0 {
		return nil
	}
	slices.SortFunc(positions, Compare)

	b.mu.Lock()
	name := filepath.Join(b.dir, fmt.Sprintf("run-%06d", b.next))
	b.next++
	b.runs = append(b.runs, name)
	b.mu.Unlock()

	f, err := os.Create(name)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return err
	}
	bw := bufio.NewWriter(zw)
	var buf [PositionBytes]byte
	for _, p := range positions {
		encode(buf[:], p)
		if _, err := bw.Write(buf[:]); err != nil {
			zw.Close()
			f.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		zw.Close()
		f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Close removes the spill directory and every run in it.
func (b *Buffers) Close() error {
	return os.RemoveAll(b.dir)
}

// runReader streams one spilled run.
type runReader struct {
	f    *os.File
	zr   *zstd.Decoder
	br   *bufio.Reader
	head Position
	done bool
}

func openRun(name string) (*runReader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	zr, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r := &runReader{f: f, zr: zr, br: bufio.NewReader(zr)}
	if err := r.advance(); err != nil {
		r.close()
		return nil, err
	}
	return r, nil
}

func (r *runReader) advance() error {
	var buf [PositionBytes]byte
	_, err := io.ReadFull(r.br, buf[:])
	if err == io.EOF {
		r.done = true
		return nil
	}
	if err != nil {
		return err
	}
	r.head = decode(buf[:])
	return nil
}

func (r *runReader) close() {
	r.zr.Close()
	r.f.Close()
}

// runHeap is a min-heap over run heads.
type runHeap []*runReader

func (h runHeap) Len() int           { return len(h) }
func (h runHeap) Less(i, j int) bool { return Compare(h[i].head, h[j].head) < 0 }
func (h runHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *runHeap) Push(x any)        { *h = append(*h, x.(*runReader)) }

func (h *runHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Merged streams all spilled positions in (Dest, APos, BPos) order.
type Merged struct {
	h runHeap
}

// Merge opens every run and returns the k-way merged stream.
func (b *Buffers) Merge() (*Merged, error) {
	m := &Merged{}
	for _, name := range b.runs {
		r, err := openRun(name)
		if err != nil {
			m.Close()
			return nil, err
		}
		if r.done {
			r.close()
			continue
		}
		m.h = append(m.h, r)
	}
	heap.Init(&m.h)
	return m, nil
}

// Next returns the next position in order. The second return value is
// false when the stream is exhausted.
func (m *Merged) Next() (Position, bool, error) {
	if len(m.h) == 0 {
		return Position{}, false, nil
	}
	r := m.h[0]
	p := r.head
	if err := r.advance(); err != nil {
		return Position{}, false, err
	}
	if r.done {
		heap.Pop(&m.h).(*runReader).close()
	} else {
		heap.Fix(&m.h, 0)
	}
	return p, true, nil
}

// NextGroup collects the positions of the next destination record.
func (m *Merged) NextGroup() (uint64, []Position, error) {
	p, ok, err := m.Next()
	if err != nil || !ok {
		return 0, nil, err
	}
	dest := p.Dest
	group := []Position{p}
	for len(m.h) > 0 && m.h[0].head.Dest == dest {
		p, _, err := m.Next()
		if err != nil {
			return dest, group, err
		}
		group = append(group, p)
	}
	return dest, group, nil
}

// Close releases every remaining run.
func (m *Merged) Close() {
	for _, r := range m.h {
		r.close()
	}
	m.h = nil
}
