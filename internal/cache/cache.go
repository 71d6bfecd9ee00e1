// Package cache implements the refcounted LRU parameter caches the
// render and detect pipelines use to share expensive-to-build derived
// data (scan<->screen maps, meshes, MTF models, lens tables) across
// tiles and invocations (C11), plus a plain hashable-key cache with
// singleflight-deduped misses for simpler lookups.
package cache

import (
	"sync"
	"sync/atomic"
)

// clock is the single monotonic counter shared by every cache instance,
// matching lru_caches::get()'s static atomic counter — last-used
// timestamps from different caches are comparable against each other,
// which matters only for increase_capacity heuristics elsewhere, not for
// correctness here.
var clock atomic.Uint64

func tick() uint64 { return clock.Add(1) }

// Keyed is implemented by every cacheable parameter type; CacheKey
// returns the monotone id assigned at construction (see param.NextID),
// letting the cache short-circuit equality with a uint64 compare instead
// of a deep comparison of a struct that may hold slices (and so isn't
// itself comparable with ==).
type Keyed interface {
	CacheKey() uint64
}

// Canceller is the minimal progress surface a constructor may want while
// building an expensive value; internal/progress.Info satisfies it.
type Canceller interface {
	CancelRequested() bool
}

// NewFunc builds the cached value T from parameters P.
type NewFunc[P Keyed, T any] func(p P, progress Canceller) (T, error)

type entry[P Keyed, T any] struct {
	key      uint64
	params   P
	val      T
	lastUsed uint64
	nUses    int
}

// RefCache is a generic refcounted LRU cache: concurrent callers share a
// cached value while any of them holds it (Get/Release are a borrow
// pair), and it evicts the oldest unreferenced entry once at capacity,
// matching lru-cache.h's lru_cache template.
type RefCache[P Keyed, T any] struct {
	mu       sync.Mutex
	name     string
	base     int
	capacity int
	newValue NewFunc[P, T]
	entries  []*entry[P, T]
}

// NewRefCache builds a named cache of the given base capacity. name is
// used only for diagnostics.
func NewRefCache[P Keyed, T any](name string, capacity int, newValue NewFunc[P, T]) *RefCache[P, T] {
	return &RefCache[P, T]{name: name, base: capacity, capacity: capacity, newValue: newValue}
}

// Handle is a borrowed reference to a cached value; callers must call
// Release exactly once when done with it.
type Handle[P Keyed, T any] struct {
	cache *RefCache[P, T]
	e     *entry[P, T]
}

// Value returns the cached value.
func (h *Handle[P, T]) Value() T { return h.e.val }

// Release returns the borrow; the entry stays in the cache for reuse
// until evicted.
func (h *Handle[P, T]) Release() { h.cache.Release(h) }

// Get returns a handle to the value for p, building it via the cache's
// NewFunc on a miss. On a hit it bumps the entry's use count and
// last-used time; on a miss at capacity it evicts the oldest
// zero-refcount entry, or grows past capacity (matching the original's
// log-only over-capacity allowance) if none is evictable.
func (c *RefCache[P, T]) Get(p P, progress Canceller) (*Handle[P, T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := p.CacheKey()
	var longestUnused *entry[P, T]
	for _, e := range c.entries {
		if e.key == key {
			e.lastUsed = tick()
			e.nUses++
			return &Handle[P, T]{cache: c, e: e}, nil
		}
		if e.nUses == 0 && (longestUnused == nil || e.lastUsed < longestUnused.lastUsed) {
			longestUnused = e
		}
	}

	var e *entry[P, T]
	if len(c.entries) >= c.capacity && longestUnused != nil {
		e = longestUnused
	} else {
		e = &entry[P, T]{}
		c.entries = append(c.entries, e)
	}
	e.key = key
	e.params = p

	val, err := c.newValue(p, progress)
	if err != nil {
		c.removeLocked(e)
		return nil, err
	}
	e.val = val
	e.nUses = 1
	e.lastUsed = tick()
	return &Handle[P, T]{cache: c, e: e}, nil
}

// Release decrements h's entry's use count, making it eligible for
// eviction once it reaches zero.
func (c *RefCache[P, T]) Release(h *Handle[P, T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h.e.nUses > 0 {
		h.e.nUses--
	}
}

// Prune deletes every currently-unreferenced entry.
func (c *RefCache[P, T]) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.entries[:0]
	for _, e := range c.entries {
		if e.nUses > 0 {
			kept = append(kept, e)
		}
	}
	c.entries = kept
}

// IncreaseCapacity multiplies the cache's base capacity by factor;
// used when a stitch project needs many tiles resident concurrently.
func (c *RefCache[P, T]) IncreaseCapacity(factor int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capacity = factor * c.base
}

// Len reports the current number of resident entries (used and unused).
func (c *RefCache[P, T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *RefCache[P, T]) removeLocked(target *entry[P, T]) {
	for i, e := range c.entries {
		if e == target {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}
