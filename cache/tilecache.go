// Package cache implements the pipeline's byte-bounded LRU tile cache:
// fingerprint -> rendered tile RGB buffer, evicted from the LRU end once
// the total byte count exceeds capacity.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/rawtiler/rawimage"
)

// DefaultCapacityBytes is the default cache capacity, 128 MiB.
const DefaultCapacityBytes = 128 << 20

// entry is one cached tile.
type entry struct {
	w, h  int
	buf   *rawimage.RGB
	bytes int
	n     *node
}

// TileCache is a thread-safe, byte-bounded LRU cache mapping a 64-bit
// fingerprint to a rendered tile's RGB buffer. All mutating operations
// (Lookup's promotion, Insert, Clear) run under a single mutex covering
// the map, the LRU list, and the byte accumulator together, so the
// invariant sum(entry.bytes) == totalBytes always holds between calls.
//
// Deliberately not sharded: eviction must follow one deterministic,
// globally-ordered LRU list rather than per-shard approximations.
type TileCache struct {
	mu       sync.Mutex
	entries  map[uint64]*entry
	lru      lruList
	capacity int
	total    int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a tile cache with the given byte capacity. A non-positive
// capacity substitutes DefaultCapacityBytes.
func New(capacityBytes int) *TileCache {
	if capacityBytes <= 0 {
		capacityBytes = DefaultCapacityBytes
	}
	return &TileCache{
		entries:  make(map[uint64]*entry),
		capacity: capacityBytes,
	}
}

// Lookup returns the cached buffer for key if present and its stored
// dimensions match (w, h). A dimension mismatch is treated as a miss but
// the stale entry is not evicted (it may still be valid for its own
// original dimensions if looked up correctly elsewhere — in practice keys
// are geometry-specific so this should not occur, but the contract is
// explicit about it). A hit promotes the entry to the MRU end.
func (c *TileCache) Lookup(key uint64, w, h int) (*rawimage.RGB, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if e.w != w || e.h != h {
		c.misses.Add(1)
		return nil, false
	}
	c.lru.moveToFront(e.n)
	c.hits.Add(1)
	return e.buf, true
}

// Insert stores buf under key with dimensions (w, h), replacing any
// existing entry at the same key (its bytes are deducted first). The new
// entry is pushed to the MRU end, then entries are evicted from the LRU
// end until total bytes fit within capacity.
func (c *TileCache) Insert(key uint64, w, h int, buf *rawimage.RGB) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bytes := buf.ByteSize()

	if existing, ok := c.entries[key]; ok {
		c.total -= existing.bytes
		c.lru.remove(existing.n)
		delete(c.entries, key)
	}

	n := c.lru.pushFront(key)
	c.entries[key] = &entry{w: w, h: h, buf: buf, bytes: bytes, n: n}
	c.total += bytes

	for c.total > c.capacity {
		oldestKey, ok := c.lru.removeOldest()
		if !ok {
			break
		}
		if oldest, ok := c.entries[oldestKey]; ok {
			c.total -= oldest.bytes
			delete(c.entries, oldestKey)
			c.evictions.Add(1)
		}
	}
}

// Clear empties the cache, its LRU list, and its byte accumulator.
// Statistics counters are unaffected (Stats still reports historical
// hits/misses/evictions).
func (c *TileCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*entry)
	c.lru = lruList{}
	c.total = 0
}

// SetCapacity changes the byte capacity, evicting from the LRU end
// immediately if the new capacity is smaller than the current total.
func (c *TileCache) SetCapacity(capacityBytes int) {
	if capacityBytes <= 0 {
		capacityBytes = DefaultCapacityBytes
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capacity = capacityBytes
	for c.total > c.capacity {
		oldestKey, ok := c.lru.removeOldest()
		if !ok {
			break
		}
		if oldest, ok := c.entries[oldestKey]; ok {
			c.total -= oldest.bytes
			delete(c.entries, oldestKey)
			c.evictions.Add(1)
		}
	}
}

// Stats reports current occupancy and cumulative hit/miss/eviction counts.
type Stats struct {
	Entries     int
	TotalBytes  int
	Capacity    int
	Hits        uint64
	Misses      uint64
	Evictions   uint64
}

// Stats returns a snapshot of the cache's current state.
func (c *TileCache) Stats() Stats {
	c.mu.Lock()
	entries := len(c.entries)
	total := c.total
	capacity := c.capacity
	c.mu.Unlock()

	return Stats{
		Entries:    entries,
		TotalBytes: total,
		Capacity:   capacity,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
	}
}
