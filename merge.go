package gbwt

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ekg/gbwt/core"
	"github.com/ekg/gbwt/internal/mergebuf"
	"github.com/ekg/gbwt/internal/record"
)

// Merge parameter defaults and maxima. Buffer sizes are in megabytes.
const (
	DefaultPosBufferSize    = 64
	DefaultThreadBufferSize = 256
	DefaultMergeBuffers     = 6
	DefaultChunkSize        = 1
	DefaultMergeJobs        = 4

	MaxBufferSize   = 16384
	MaxMergeBuffers = 16
	MaxMergeJobs    = 16
)

const megabyte = 1 << 20

// MergeParameters configures the merge engine.
type MergeParameters struct {
	posBufferSize    uint64 // megabytes per producer buffer
	threadBufferSize uint64 // megabytes per sorted spill run
	mergeBuffers     uint64 // concurrent spill writers
	chunkSize        uint64 // sequences per producer chunk
	mergeJobs        uint64 // producer and consumer workers

	// TempDir holds the spill files. Empty selects the system
	// temporary directory.
	TempDir string
}

// DefaultMergeParameters returns the documented defaults.
func DefaultMergeParameters() MergeParameters {
	return MergeParameters{
		posBufferSize:    DefaultPosBufferSize,
		threadBufferSize: DefaultThreadBufferSize,
		mergeBuffers:     DefaultMergeBuffers,
		chunkSize:        DefaultChunkSize,
		mergeJobs:        DefaultMergeJobs,
	}
}

// SetPosBufferSize sets the per-producer position buffer size in
// megabytes, clamped to [1, MaxBufferSize].
func (p *MergeParameters) SetPosBufferSize(megabytes uint64) {
	p.posBufferSize = min(max(megabytes, 1), MaxBufferSize)
}

// SetThreadBufferSize sets the spill run size in megabytes, clamped to
// [1, MaxBufferSize].
func (p *MergeParameters) SetThreadBufferSize(megabytes uint64) {
	p.threadBufferSize = min(max(megabytes, 1), MaxBufferSize)
}

// SetMergeBuffers sets the number of concurrent spill buffers, clamped
// to [1, MaxMergeBuffers].
func (p *MergeParameters) SetMergeBuffers(n uint64) {
	p.mergeBuffers = min(max(n, 1), MaxMergeBuffers)
}

// SetChunkSize sets the number of sequences per producer chunk; at
// least 1.
func (p *MergeParameters) SetChunkSize(n uint64) {
	p.chunkSize = max(n, 1)
}

// SetMergeJobs sets the number of producer and consumer workers,
// clamped to [1, MaxMergeJobs].
func (p *MergeParameters) SetMergeJobs(n uint64) {
	p.mergeJobs = min(max(n, 1), MaxMergeJobs)
}

// PosBufferPositions returns the producer buffer capacity in
// positions.
func (p *MergeParameters) PosBufferPositions() uint64 {
	return p.posBufferSize * megabyte / mergebuf.PositionBytes
}

// ThreadBufferPositions returns the spill run capacity in positions.
func (p *MergeParameters) ThreadBufferPositions() uint64 {
	return p.threadBufferSize * megabyte / mergebuf.PositionBytes
}

// aView is the decoded view of the first input the producers walk
// against: every record decoded once, sizes cached, and the inverse
// adjacency with cumulative offsets for steps through edges the first
// input does not have.
type aView struct {
	recs     []*record.CompressedRecord
	sizes    []uint64
	incoming [][]core.Edge // per node: (predecessor, cumulative offset)
}

func newAView(a *GBWT) (*aView, error) {
	n := a.records()
	view := &aView{
		recs:     make([]*record.CompressedRecord, n),
		sizes:    make([]uint64, n),
		incoming: make([][]core.Edge, n),
	}
	for v := uint64(0); v < n; v++ {
		rec, err := a.bwt.Record(v)
		if err != nil {
			return nil, err
		}
		view.recs[v] = rec
		view.sizes[v] = rec.Size()
	}
	if n > 0 {
		view.sizes[core.Endmarker] = a.sequences
	}
	for v := uint64(0); v < n; v++ {
		for _, e := range view.recs[v].Outgoing {
			view.incoming[e.Node] = append(view.incoming[e.Node], core.Edge{Node: v, Offset: e.Offset})
		}
	}
	return view, nil
}

// size returns the body size of a record, zero for records outside the
// first input.
func (view *aView) size(v uint64) uint64 {
	if v >= uint64(len(view.sizes)) {
		return 0
	}
	return view.sizes[v]
}

// countBefore returns the number of entries in record w whose
// predecessor is < v.
func (view *aView) countBefore(w, v uint64) uint64 {
	if w >= uint64(len(view.incoming)) {
		return 0
	}
	in := view.incoming[w]
	i := sort.Search(len(in), func(i int) bool { return in[i].Node >= v })
	if i < len(in) {
		return in[i].Offset
	}
	return view.size(w)
}

// step advances the insertion pointer: the number of entries of record
// w sorting before a new entry whose predecessor is v at position apos.
func (view *aView) step(v, apos, w uint64) uint64 {
	if v < uint64(len(view.recs)) {
		if rec := view.recs[v]; rec.HasEdge(w) {
			return rec.LFNode(apos, w)
		}
	}
	return view.countBefore(w, v)
}

// incomingCounts converts the inverse adjacency of record w into
// (predecessor, count) pairs.
func (view *aView) incomingCounts(w uint64) []core.Edge {
	if w >= uint64(len(view.incoming)) {
		return nil
	}
	in := view.incoming[w]
	out := make([]core.Edge, len(in))
	for i, e := range in {
		limit := view.size(w)
		if i+1 < len(in) {
			limit = in[i+1].Offset
		}
		out[i] = core.Edge{Node: e.Node, Offset: limit - e.Offset}
	}
	return out
}

// Merge combines two static indexes into a new one, equivalent to
// inserting the second input's paths on top of the first. The second
// input's sequence ids are shifted by the first's sequence count.
// Neither input is mutated.
//
// Producers walk the second input's sequences in chunks, emitting
// insertion positions against the first input; positions spill to
// sorted, compressed runs in MergeParameters.TempDir; consumers
// rebuild each destination record from the merged stream. The
// operation is atomic: on error or cancellation all temporary state is
// discarded and no index is returned.
func Merge(ctx context.Context, a, b *GBWT, params MergeParameters, optFns ...Option) (*GBWT, error) {
	opts := applyOptions(optFns)
	if params.mergeJobs == 0 {
		tempDir := params.TempDir
		params = DefaultMergeParameters()
		params.TempDir = tempDir
	}
	if b.Empty() {
		out := *a
		return &out, nil
	}
	if a.Empty() {
		out := *b
		return &out, nil
	}

	view, err := newAView(a)
	if err != nil {
		return nil, err
	}

	buffers, err := mergebuf.NewBuffers(params.TempDir)
	if err != nil {
		return nil, err
	}
	defer buffers.Close()

	if err := produce(ctx, b, view, buffers, params, opts.logger); err != nil {
		return nil, err
	}

	records, err := consume(ctx, a, b, view, buffers, params)
	if err != nil {
		return nil, err
	}

	interval := max(a.sampleInterval, b.sampleInterval)
	dyn := &DynamicGBWT{
		opts: options{
			logger:         opts.logger,
			sampleInterval: interval,
			bidirectional:  a.bidirectional && b.bidirectional,
		},
		sequences: a.sequences + b.sequences,
		records:   records,
		dirty:     true,
	}
	merged, err := dyn.ToGBWT()
	if err != nil {
		return nil, err
	}
	if a.meta != nil && b.meta != nil {
		meta := a.meta.Copy()
		meta.Merge(b.meta, false, false)
		merged.SetMetadata(meta)
	}
	opts.logger.Info("merged indexes",
		"sequences", merged.Sequences(), "nodes", merged.NodeCount())
	return merged, nil
}

// produce walks the second input's sequences and spills insertion
// positions. Workers own disjoint chunks and private buffers; spill
// writers are bounded by the merge buffer count.
func produce(ctx context.Context, b *GBWT, view *aView, buffers *mergebuf.Buffers,
	params MergeParameters, logger *Logger) error {
	group, ctx := errgroup.WithContext(ctx)
	spillers := semaphore.NewWeighted(int64(params.mergeBuffers))

	chunks := make(chan uint64)
	group.Go(func() error {
		defer close(chunks)
		for seq := uint64(0); seq < b.Sequences(); seq += params.chunkSize {
			select {
			case chunks <- seq:
			case <-ctx.Done():
				return spillError(context.Cause(ctx))
			}
		}
		return nil
	})

	limit := int(min(params.PosBufferPositions(), params.ThreadBufferPositions()))
	for job := uint64(0); job < params.mergeJobs; job++ {
		group.Go(func() error {
			var buffer []mergebuf.Position
			flush := func() error {
				if len(buffer) == 0 {
					return nil
				}
				if err := spillers.Acquire(ctx, 1); err != nil {
					return spillError(context.Cause(ctx))
				}
				err := buffers.AddRun(buffer)
				spillers.Release(1)
				if err != nil {
					return spillError(err)
				}
				buffer = buffer[:0]
				return nil
			}
			for first := range chunks {
				if err := ctx.Err(); err != nil {
					return spillError(context.Cause(ctx))
				}
				last := min(first+params.chunkSize, b.Sequences())
				for seq := first; seq < last; seq++ {
					positions := walkSequence(b, view, seq)
					for len(positions) > 0 {
						take := min(limit-len(buffer), len(positions))
						buffer = append(buffer, positions[:take]...)
						positions = positions[take:]
						if len(buffer) >= limit {
							if err := flush(); err != nil {
								return err
							}
						}
					}
				}
				logger.Debug("produced chunk", "first", first, "last", last-1)
			}
			return flush()
		})
	}
	return group.Wait()
}

// walkSequence emits the insertion positions of one sequence of the
// second input: an LF walk through the second input paired with an
// insertion pointer into the first.
func walkSequence(b *GBWT, view *aView, seq uint64) []mergebuf.Position {
	var positions []mergebuf.Position
	cur := Edge{Node: Endmarker, Offset: seq}
	apos := view.size(core.Endmarker)
	pred := uint64(core.Endmarker)
	for {
		next := b.LF(cur)
		positions = append(positions, mergebuf.Position{
			Dest:    cur.Node,
			APos:    apos,
			BPos:    cur.Offset,
			Value:   next.Node,
			Pred:    pred,
			Seq:     seq,
			Sampled: b.TryLocate(cur) != InvalidSequence,
		})
		if next.Node == Endmarker {
			break
		}
		apos = view.step(cur.Node, apos, next.Node)
		pred = cur.Node
		cur = next
	}
	// The endmarker entry's predecessor is the last node of the path.
	positions[0].Pred = cur.Node
	return positions
}

// consume streams the merged positions and rebuilds every destination
// record. Each record is owned by exactly one worker.
func consume(ctx context.Context, a, b *GBWT, view *aView, buffers *mergebuf.Buffers,
	params MergeParameters) ([]*record.DynamicRecord, error) {
	merged, err := buffers.Merge()
	if err != nil {
		return nil, spillError(err)
	}
	defer merged.Close()

	numRecords := max(a.records(), b.records())
	records := make([]*record.DynamicRecord, numRecords)

	type work struct {
		dest      uint64
		positions []mergebuf.Position
	}
	group, ctx := errgroup.WithContext(ctx)
	workCh := make(chan work)

	group.Go(func() error {
		defer close(workCh)
		nextDest := uint64(0)
		for {
			dest, positions, err := merged.NextGroup()
			if err != nil {
				return spillError(err)
			}
			if positions == nil {
				break
			}
			for v := nextDest; v <= dest; v++ {
				item := work{dest: v}
				if v == dest {
					item.positions = positions
				}
				select {
				case workCh <- item:
				case <-ctx.Done():
					return spillError(context.Cause(ctx))
				}
			}
			nextDest = dest + 1
		}
		for v := nextDest; v < numRecords; v++ {
			select {
			case workCh <- work{dest: v}:
			case <-ctx.Done():
				return spillError(context.Cause(ctx))
			}
		}
		return nil
	})

	for job := uint64(0); job < params.mergeJobs; job++ {
		group.Go(func() error {
			for item := range workCh {
				rec, err := rebuildRecord(a, view, item.dest, item.positions)
				if err != nil {
					return err
				}
				records[item.dest] = rec
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// rebuildRecord interleaves a destination record's insertion list into
// its body, merging adjacency, and projecting samples to their shifted
// offsets.
func rebuildRecord(a *GBWT, view *aView, dest uint64, positions []mergebuf.Position) (*record.DynamicRecord, error) {
	out := &record.DynamicRecord{}

	// Outgoing alphabet: the first input's successors plus new ones.
	var aRec *record.CompressedRecord
	if dest < uint64(len(view.recs)) {
		aRec = view.recs[dest]
	}
	successors := make(map[uint64]struct{})
	if aRec != nil {
		for _, e := range aRec.Outgoing {
			successors[e.Node] = struct{}{}
		}
	}
	for _, p := range positions {
		successors[p.Value] = struct{}{}
	}
	nodes := make([]uint64, 0, len(successors))
	for node := range successors {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	outrank := make(map[uint64]uint64, len(nodes))
	for i, node := range nodes {
		out.Outgoing = append(out.Outgoing, core.Edge{Node: node})
		outrank[node] = uint64(i)
	}

	// Body: walk the first input's entries, splicing insertions at
	// their positions; trailing insertions append at the end.
	var samples []core.Sample
	next := 0
	var aPos uint64
	splice := func(limit uint64) {
		for next < len(positions) && positions[next].APos == limit {
			p := positions[next]
			if p.Sampled {
				samples = append(samples, core.Sample{
					Offset:   out.BodySize,
					Sequence: a.sequences + p.Seq,
				})
			}
			out.AppendRun(outrank[p.Value], 1)
			next++
		}
	}
	if aRec != nil {
		aSamples := a.daRecordSamples(dest)
		si := 0
		err := aRec.Body(func(run core.Run) bool {
			node := aRec.Outgoing[run.Outrank].Node
			for n := uint64(0); n < run.Length; n++ {
				splice(aPos)
				for si < len(aSamples) && aSamples[si].Offset == aPos {
					samples = append(samples, core.Sample{
						Offset:   out.BodySize,
						Sequence: aSamples[si].Sequence,
					})
					si++
				}
				out.AppendRun(outrank[node], 1)
				aPos++
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	splice(aPos)
	// Any position beyond the record size appends at the end as well.
	for next < len(positions) {
		p := positions[next]
		if p.Sampled {
			samples = append(samples, core.Sample{
				Offset:   out.BodySize,
				Sequence: a.sequences + p.Seq,
			})
		}
		out.AppendRun(outrank[p.Value], 1)
		next++
	}
	out.IDs = samples

	// Incoming: the first input's counts plus the insertions'.
	counts := make(map[uint64]uint64)
	for _, e := range view.incomingCounts(dest) {
		counts[e.Node] = e.Offset
	}
	for _, p := range positions {
		counts[p.Pred]++
	}
	preds := make([]uint64, 0, len(counts))
	for pred := range counts {
		preds = append(preds, pred)
	}
	slices.Sort(preds)
	for _, pred := range preds {
		out.Incoming = append(out.Incoming, core.Edge{Node: pred, Offset: counts[pred]})
	}
	return out, nil
}

// daRecordSamples returns the record's samples, or nil without a
// document array.
func (g *GBWT) daRecordSamples(r uint64) []core.Sample {
	if g.da == nil {
		return nil
	}
	return g.da.RecordSamples(r)
}

// spillError classifies errors from the spill path: exhausted disk
// space and cancellation get their taxonomy sentinels.
func spillError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%w: %w", ErrOutOfSpace, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return err
}
