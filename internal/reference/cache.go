package reference

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultEvictInterval is how often Run wipes the cache.
const DefaultEvictInterval = 5 * time.Minute

type cacheEntry struct {
	version int64
	gen     uint64
	matches []Match
}

// Cache memoises scan results per document key and version. An entry is
// only served while its version equals the requested one; a new version
// replaces it. Concurrent requests for the same key and version share one
// computation. Returned slices are shared and must not be modified.
//
// Clear starts a new generation: entries and computations from an older
// generation are never served or stored afterwards.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	gen      uint64
	group    singleflight.Group
	interval time.Duration
}

// NewCache returns an empty cache evicted every interval by Run. A
// non-positive interval means DefaultEvictInterval.
func NewCache(interval time.Duration) *Cache {
	if interval <= 0 {
		interval = DefaultEvictInterval
	}
	return &Cache{entries: make(map[string]cacheEntry), interval: interval}
}

// Generation returns the current generation.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// GetOrCompute returns the stored matches for key at version, calling
// compute and storing its result on a miss.
func (c *Cache) GetOrCompute(key string, version int64, compute func() []Match) []Match {
	return c.GetOrComputeAt(key, version, c.Generation(), compute)
}

// GetOrComputeAt is GetOrCompute for a caller whose compute function was
// built during generation gen. A result computed for a generation that
// has since been cleared is returned but not stored.
func (c *Cache) GetOrComputeAt(key string, version int64, gen uint64, compute func() []Match) []Match {
	if m, ok := c.lookup(key, version, gen); ok {
		return m
	}
	flight := strconv.FormatUint(gen, 10) + "\x00" + strconv.FormatInt(version, 10) + "\x00" + key
	v, _, _ := c.group.Do(flight, func() (any, error) {
		if m, ok := c.lookup(key, version, gen); ok {
			return m, nil
		}
		m := compute()
		c.mu.Lock()
		if c.gen == gen {
			c.entries[key] = cacheEntry{version: version, gen: gen, matches: m}
		}
		c.mu.Unlock()
		return m, nil
	})
	m, _ := v.([]Match)
	return m
}

func (c *Cache) lookup(key string, version int64, gen uint64) ([]Match, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.version != version || e.gen != gen {
		return nil, false
	}
	return e.matches, true
}

// Invalidate drops the entry for key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every entry and starts a new generation.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.gen++
	c.mu.Unlock()
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Run clears the whole cache every interval until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Clear()
		}
	}
}
