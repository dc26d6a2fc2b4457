package stock

import (
	"context"
	"sync"
	"time"
)

// Cache stores per-SKU availability for a bounded window. Implementations
// are best effort: a failed backend read counts as a miss, never an error.
type Cache interface {
	Get(ctx context.Context, skuID int64) (int, bool)
	Set(ctx context.Context, skuID int64, available int)
	Clear(ctx context.Context)
}

type memoryEntry struct {
	available int
	fetchedAt time.Time
}

// MemoryCache is the default single-process cache backend.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int64]memoryEntry
}

type MemoryCacheOption func(*MemoryCache)

// WithClock overrides the cache clock.
func WithClock(now func() time.Time) MemoryCacheOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

func NewMemoryCache(ttl time.Duration, opts ...MemoryCacheOption) *MemoryCache {
	cache := &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]memoryEntry),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

func (c *MemoryCache) Get(_ context.Context, skuID int64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[skuID]
	if !ok {
		return 0, false
	}
	if c.now().Sub(entry.fetchedAt) >= c.ttl {
		delete(c.entries, skuID)
		return 0, false
	}
	return entry.available, true
}

func (c *MemoryCache) Set(_ context.Context, skuID int64, available int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[skuID] = memoryEntry{available: available, fetchedAt: c.now()}
}

func (c *MemoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int64]memoryEntry)
}
