package gbwt

import (
	"container/list"

	"github.com/ekg/gbwt/internal/record"
)

// DefaultCacheSize is the default number of decoded records held by a
// CachedGBWT.
const DefaultCacheSize = 256

// CachedGBWT is a read-through cache over a static index. It keeps the
// most recently queried records decoded, which speeds up workloads
// that touch the same nodes repeatedly, such as extracting many
// sequences through a dense region.
//
// The cache mutates on reads and is therefore single-threaded: create
// one wrapper per goroutine over the shared underlying GBWT.
type CachedGBWT struct {
	index     *GBWT
	capacity  int
	items     map[uint64]*list.Element
	evictList *list.List

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	node uint64
	rec  *record.CompressedRecord
}

// NewCachedGBWT wraps a static index with a record cache of the given
// capacity. A capacity <= 0 selects DefaultCacheSize.
func NewCachedGBWT(index *GBWT, capacity int) *CachedGBWT {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &CachedGBWT{
		index:     index,
		capacity:  capacity,
		items:     make(map[uint64]*list.Element),
		evictList: list.New(),
	}
}

// Index returns the wrapped static index.
func (c *CachedGBWT) Index() *GBWT { return c.index }

// CacheHits returns the number of record lookups served from the cache.
func (c *CachedGBWT) CacheHits() uint64 { return c.hits }

// CacheMisses returns the number of record lookups that decoded anew.
func (c *CachedGBWT) CacheMisses() uint64 { return c.misses }

func (c *CachedGBWT) node(v uint64) *record.CompressedRecord {
	if ent, ok := c.items[v]; ok {
		c.hits++
		c.evictList.MoveToFront(ent)
		return ent.Value.(*cacheEntry).rec
	}
	c.misses++
	rec := c.index.node(v)
	ent := c.evictList.PushFront(&cacheEntry{node: v, rec: rec})
	c.items[v] = ent
	if c.evictList.Len() > c.capacity {
		oldest := c.evictList.Back()
		c.evictList.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).node)
	}
	return rec
}

// Contains reports whether the node occurs in the index.
func (c *CachedGBWT) Contains(node uint64) bool { return c.index.Contains(node) }

// Sequences returns the number of stored sequences.
func (c *CachedGBWT) Sequences() uint64 { return c.index.Sequences() }

// NodeSize returns the number of BWT positions in the node's record.
func (c *CachedGBWT) NodeSize(node uint64) uint64 {
	if !c.index.Contains(node) {
		return 0
	}
	if node == Endmarker {
		return c.index.Sequences()
	}
	return c.node(node).Size()
}

// LF advances a position one step along its sequence.
func (c *CachedGBWT) LF(pos Edge) Edge {
	if !c.index.Contains(pos.Node) {
		return InvalidEdge()
	}
	return c.node(pos.Node).LF(pos.Offset)
}

// LFRange maps a state's range through the edge towards 'to'.
func (c *CachedGBWT) LFRange(state SearchState, to uint64) Range {
	if state.Empty() || !c.index.Contains(state.Node) {
		return EmptyRange()
	}
	return c.node(state.Node).LFRange(state.Range, to)
}

// BdLF is LFRange extended for bidirectional search.
func (c *CachedGBWT) BdLF(state SearchState, to uint64) (Range, uint64) {
	if state.Empty() || !c.index.Contains(state.Node) {
		return EmptyRange(), 0
	}
	return c.node(state.Node).BdLF(state.Range, to)
}

// TryLocate returns the sequence id sampled at the position, or
// InvalidSequence.
func (c *CachedGBWT) TryLocate(pos Edge) uint64 { return c.index.TryLocate(pos) }

// Start returns the first position of the sequence.
func (c *CachedGBWT) Start(sequence uint64) Edge {
	if sequence >= c.index.Sequences() {
		return InvalidEdge()
	}
	return c.LF(Edge{Node: Endmarker, Offset: sequence})
}

// Find searches for the pattern in this index.
func (c *CachedGBWT) Find(pattern []uint64) SearchState { return Find(c, pattern) }

// Extract returns the node sequence of the stored path.
func (c *CachedGBWT) Extract(sequence uint64) []uint64 { return Extract(c, sequence) }

var _ Queryable = (*CachedGBWT)(nil)
