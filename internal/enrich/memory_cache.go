package enrich

import (
	"context"
	"sync"
	"time"

	"solana-sniper/internal/domain"
)

// DefaultMemoryCacheSize bounds MemoryCache when no size is given.
const DefaultMemoryCacheSize = 10_000

type memoryEntry struct {
	meta      *domain.EnrichedMetadata
	expiresAt time.Time
}

// MemoryCache is an in-process Cache with per-entry TTL.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	maxSize int
	now     func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = DefaultMemoryCacheSize
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns a copy of the cached metadata.
func (c *MemoryCache) Get(_ context.Context, mint string) (*domain.EnrichedMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[mint]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, mint)
		return nil, ErrCacheMiss
	}
	return cloneMetadata(e.meta), nil
}

// Set stores a copy of meta for ttl.
func (c *MemoryCache) Set(_ context.Context, meta *domain.EnrichedMetadata, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[meta.Mint]; !exists && len(c.entries) >= c.maxSize {
		c.evictLocked(now)
	}
	c.entries[meta.Mint] = memoryEntry{meta: cloneMetadata(meta), expiresAt: now.Add(ttl)}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// evictLocked drops expired entries, or the entry closest to expiry if none are.
func (c *MemoryCache) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			continue
		}
		if oldestKey == "" || e.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.expiresAt
		}
	}
	if len(c.entries) >= c.maxSize && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
