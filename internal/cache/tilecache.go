package cache

import "sync"

// Rect is an axis-aligned region of the final rendered image, using
// half-open end coordinates (X1/Y1 are one past the last included
// pixel), so Contains is a plain four-way comparison.
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Contains reports whether r fully covers other — the tile cache's hit
// condition (spec §4.11: "a cache hit requires the stored rectangle to
// fully contain the requested rectangle").
func (r Rect) Contains(other Rect) bool {
	return r.X0 <= other.X0 && r.Y0 <= other.Y0 && r.X1 >= other.X1 && r.Y1 >= other.Y1
}

// TileNewFunc builds the cached value T for parameters P over region.
type TileNewFunc[P Keyed, T any] func(p P, region Rect, progress Canceller) (T, error)

type tileEntry[P Keyed, T any] struct {
	key      uint64
	params   P
	region   Rect
	val      T
	lastUsed uint64
	nUses    int
}

// TileCache is RefCache's tile-keyed sibling: the key is (parameter id,
// region) and a cached tile satisfies any request whose region it fully
// contains, not only an exact region match, matching lru_tile_cache.
type TileCache[P Keyed, T any] struct {
	mu       sync.Mutex
	name     string
	base     int
	capacity int
	newValue TileNewFunc[P, T]
	entries  []*tileEntry[P, T]
}

// NewTileCache builds a named tile cache of the given base capacity.
func NewTileCache[P Keyed, T any](name string, capacity int, newValue TileNewFunc[P, T]) *TileCache[P, T] {
	return &TileCache[P, T]{name: name, base: capacity, capacity: capacity, newValue: newValue}
}

// TileHandle is a borrowed reference into a TileCache.
type TileHandle[P Keyed, T any] struct {
	cache *TileCache[P, T]
	e     *tileEntry[P, T]
}

// Value returns the cached value.
func (h *TileHandle[P, T]) Value() T { return h.e.val }

// Release returns the borrow.
func (h *TileHandle[P, T]) Release() { h.cache.Release(h) }

// Get returns a handle to a tile covering region for parameters p,
// reusing any resident tile (same parameter id) whose region already
// contains the request, or building a fresh tile sized exactly to
// region otherwise.
func (c *TileCache[P, T]) Get(p P, region Rect, progress Canceller) (*TileHandle[P, T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := p.CacheKey()
	var longestUnused *tileEntry[P, T]
	for _, e := range c.entries {
		if e.key == key && e.region.Contains(region) {
			e.lastUsed = tick()
			e.nUses++
			return &TileHandle[P, T]{cache: c, e: e}, nil
		}
		if e.nUses == 0 && (longestUnused == nil || e.lastUsed < longestUnused.lastUsed) {
			longestUnused = e
		}
	}

	var e *tileEntry[P, T]
	if len(c.entries) >= c.capacity && longestUnused != nil {
		e = longestUnused
	} else {
		e = &tileEntry[P, T]{}
		c.entries = append(c.entries, e)
	}
	e.key = key
	e.params = p
	e.region = region

	val, err := c.newValue(p, region, progress)
	if err != nil {
		c.removeLocked(e)
		return nil, err
	}
	e.val = val
	e.nUses = 1
	e.lastUsed = tick()
	return &TileHandle[P, T]{cache: c, e: e}, nil
}

// Release decrements h's entry's use count.
func (c *TileCache[P, T]) Release(h *TileHandle[P, T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h.e.nUses > 0 {
		h.e.nUses--
	}
}

// Prune deletes every currently-unreferenced tile.
func (c *TileCache[P, T]) Prune() {
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

// IncreaseCapacity multiplies the cache's base capacity by factor.
func (c *TileCache[P, T]) IncreaseCapacity(factor int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capacity = factor * c.base
}

func (c *TileCache[P, T]) removeLocked(target *tileEntry[P, T]) {
	for i, e := range c.entries {
		if e == target {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}
