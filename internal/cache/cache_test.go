package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type testParams struct {
	id uint64
}

func (p testParams) CacheKey() uint64 { return p.id }

type alwaysRun struct{}

func (alwaysRun) CancelRequested() bool { return false }

func TestRefCacheHitAvoidsRebuild(t *testing.T) {
	var builds int32
	c := NewRefCache[testParams, int]("test", 4, func(p testParams, _ Canceller) (int, error) {
		atomic.AddInt32(&builds, 1)
		return int(p.id) * 10, nil
	})

	p := testParams{id: 1}
	h1, err := c.Get(p, alwaysRun{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if h1.Value() != 10 {
		t.Fatalf("Value() = %d, want 10", h1.Value())
	}
	h1.Release()

	h2, err := c.Get(p, alwaysRun{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer h2.Release()
	if h2.Value() != 10 {
		t.Fatalf("Value() = %d, want 10", h2.Value())
	}
	if got := atomic.LoadInt32(&builds); got != 1 {
		t.Fatalf("builds = %d, want 1 (cache hit should not rebuild)", got)
	}
}

func TestRefCacheEvictsOldestUnreferenced(t *testing.T) {
	c := NewRefCache[testParams, int]("test", 2, func(p testParams, _ Canceller) (int, error) {
		return int(p.id), nil
	})

	h1, _ := c.Get(testParams{id: 1}, alwaysRun{})
	h1.Release()
	h2, _ := c.Get(testParams{id: 2}, alwaysRun{})
	h2.Release()
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	// Both entries are unreferenced; id 1 was touched first so it should
	// be the one evicted when a third distinct key arrives at capacity.
	h3, err := c.Get(testParams{id: 3}, alwaysRun{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	h3.Release()
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 after eviction", c.Len())
	}

	for _, e := range c.entries {
		if e.key == 1 {
			t.Fatalf("expected key 1 to have been evicted, still present")
		}
	}
}

func TestRefCacheGrowsPastCapacityWhenNothingEvictable(t *testing.T) {
	c := NewRefCache[testParams, int]("test", 1, func(p testParams, _ Canceller) (int, error) {
		return int(p.id), nil
	})

	h1, _ := c.Get(testParams{id: 1}, alwaysRun{})
	h2, err := c.Get(testParams{id: 2}, alwaysRun{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer h1.Release()
	defer h2.Release()

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (both entries held, nothing evictable)", c.Len())
	}
}

func TestRefCachePrune(t *testing.T) {
	c := NewRefCache[testParams, int]("test", 4, func(p testParams, _ Canceller) (int, error) {
		return int(p.id), nil
	})
	h1, _ := c.Get(testParams{id: 1}, alwaysRun{})
	h2, _ := c.Get(testParams{id: 2}, alwaysRun{})
	h1.Release()
	// h2 stays referenced.

	c.Prune()
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after pruning unreferenced entries", c.Len())
	}
	h2.Release()
}

func TestRefCacheIncreaseCapacity(t *testing.T) {
	c := NewRefCache[testParams, int]("test", 2, func(p testParams, _ Canceller) (int, error) {
		return int(p.id), nil
	})
	c.IncreaseCapacity(3)
	if c.capacity != 6 {
		t.Fatalf("capacity = %d, want 6", c.capacity)
	}
}

func TestRefCacheBuildErrorRemovesEntry(t *testing.T) {
	c := NewRefCache[testParams, int]("test", 4, func(p testParams, _ Canceller) (int, error) {
		return 0, errors.New("boom")
	})
	_, err := c.Get(testParams{id: 1}, alwaysRun{})
	if err == nil {
		t.Fatal("expected error")
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after failed build", c.Len())
	}
}

func TestTileCacheHitRequiresContainment(t *testing.T) {
	var builds int32
	c := NewTileCache[testParams, int]("test", 4, func(p testParams, r Rect, _ Canceller) (int, error) {
		atomic.AddInt32(&builds, 1)
		return 1, nil
	})

	p := testParams{id: 1}
	big := Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}
	h1, err := c.Get(p, big, alwaysRun{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	h1.Release()

	// A sub-region of an already-cached tile should hit without rebuilding.
	small := Rect{X0: 10, Y0: 10, X1: 20, Y1: 20}
	h2, err := c.Get(p, small, alwaysRun{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	h2.Release()
	if got := atomic.LoadInt32(&builds); got != 1 {
		t.Fatalf("builds = %d, want 1 (contained region should hit)", got)
	}

	// A region outside the cached tile must rebuild.
	outside := Rect{X0: 200, Y0: 200, X1: 210, Y1: 210}
	h3, err := c.Get(p, outside, alwaysRun{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	h3.Release()
	if got := atomic.LoadInt32(&builds); got != 2 {
		t.Fatalf("builds = %d, want 2 (non-contained region should miss)", got)
	}
}

func TestRectContains(t *testing.T) {
	outer := Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}
	inner := Rect{X0: 2, Y0: 2, X1: 8, Y1: 8}
	if !outer.Contains(inner) {
		t.Fatal("expected outer to contain inner")
	}
	if outer.Contains(Rect{X0: -1, Y0: 0, X1: 10, Y1: 10}) {
		t.Fatal("expected outer not to contain a rect extending past its left edge")
	}
}

func TestSimpleCacheDedupsConcurrentMisses(t *testing.T) {
	c, err := NewSimpleCache[string, int](4)
	if err != nil {
		t.Fatalf("NewSimpleCache: %v", err)
	}

	var calls int32
	var wg sync.WaitGroup
	results := make([]int, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute("k", func() (int, error) {
				atomic.AddInt32(&calls, 1)
				return 42, nil
			})
			if err != nil {
				t.Errorf("GetOrCompute: %v", err)
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	for i, v := range results {
		if v != 42 {
			t.Fatalf("results[%d] = %d, want 42", i, v)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("compute called %d times, want 1 (singleflight should dedup)", got)
	}
}

func TestSimpleCacheCachesAcrossCalls(t *testing.T) {
	c, err := NewSimpleCache[string, int](4)
	if err != nil {
		t.Fatalf("NewSimpleCache: %v", err)
	}
	var calls int32
	compute := func() (int, error) {
		atomic.AddInt32(&calls, 1)
		return 7, nil
	}
	if _, err := c.GetOrCompute("a", compute); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if _, err := c.GetOrCompute("a", compute); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("compute called %d times, want 1", got)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after Purge", c.Len())
	}
}
