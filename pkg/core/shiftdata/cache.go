package shiftdata

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Category groups cache entries that share a staleness policy
type Category string

const (
	CategoryStatic    Category = "static"
	CategoryBookings  Category = "bookings"
	CategoryShift     Category = "shift"
	CategoryAggregate Category = "aggregate"
)

// DefaultTTLs are the per-category expiries used when none are configured
var DefaultTTLs = map[Category]time.Duration{
	CategoryStatic:    10 * time.Minute,
	CategoryBookings:  time.Minute,
	CategoryShift:     30 * time.Second,
	CategoryAggregate: 5 * time.Minute,
}

// Cache stores encoded values with per-category expiry. Writes are last-write-wins per key.
type Cache interface {
	Get(ctx context.Context, key string, category Category) ([]byte, bool)
	Put(ctx context.Context, key string, category Category, value []byte)
	Delete(ctx context.Context, keys ...string)
}

// TTLs resolves the expiry for each category, falling back to DefaultTTLs
type TTLs map[Category]time.Duration

func (t TTLs) For(category Category) time.Duration {
	if ttl, ok := t[category]; ok && ttl > 0 {
		return ttl
	}
	return DefaultTTLs[category]
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is an in-process Cache. Entries are evicted lazily on read.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttls    TTLs
	now     func() time.Time
}

func NewMemoryCache(ttls TTLs) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttls:    ttls,
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string, category Category) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[entryKey(key, category)]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, entryKey(key, category))
		return nil, false
	}
	return entry.value, true
}

func (c *MemoryCache) Put(ctx context.Context, key string, category Category, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entryKey(key, category)] = memoryEntry{
		value:   value,
		expires: c.now().Add(c.ttls.For(category)),
	}
}

// Delete removes keys across every category
func (c *MemoryCache) Delete(ctx context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		for category := range DefaultTTLs {
			delete(c.entries, entryKey(key, category))
		}
	}
}

func entryKey(key string, category Category) string {
	return fmt.Sprintf("%s:%s", category, key)
}
