package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// SimpleCache is a plain hashable-key cache for values with no refcount
// semantics — MTF objects and synthesized screen tiles, which are immutable
// once built and cheap to keep around, unlike the render-tile data
// RefCache/TileCache manage. Concurrent misses for the same key collapse
// into a single computation via singleflight, so two goroutines racing
// to build the same MTF model don't duplicate the FFT work.
type SimpleCache[K comparable, T any] struct {
	lru *lru.Cache[K, T]
	sf  singleflight.Group
}

// NewSimpleCache builds a SimpleCache of the given capacity.
func NewSimpleCache[K comparable, T any](capacity int) (*SimpleCache[K, T], error) {
	l, err := lru.New[K, T](capacity)
	if err != nil {
		return nil, fmt.Errorf("cache: new simple cache: %w", err)
	}
	return &SimpleCache[K, T]{lru: l}, nil
}

// GetOrCompute returns the cached value for key, computing and storing
// it via compute on a miss. Concurrent callers requesting the same key
// share one compute call.
func (c *SimpleCache[K, T]) GetOrCompute(key K, compute func() (T, error)) (T, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}

	sfKey := fmt.Sprintf("%v", key)
	v, err, _ := c.sf.Do(sfKey, func() (interface{}, error) {
		if v, ok := c.lru.Get(key); ok {
			return v, nil
		}
		val, err := compute()
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, val)
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Len reports the number of resident entries.
func (c *SimpleCache[K, T]) Len() int { return c.lru.Len() }

// Purge empties the cache.
func (c *SimpleCache[K, T]) Purge() { c.lru.Purge() }
