// Package memory provides a process-local AncestorCache with TTL expiry.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/permsync/internal/core/ports/driven"
)

var _ driven.AncestorCache = (*Cache)(nil)

type entry struct {
	chain     []string
	expiresAt time.Time
}

// Cache is a TTL map shared process-wide. Entries are only aged out.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the chain stored under key if it has not expired.
func (c *Cache) Get(_ context.Context, key string) ([]string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return append([]string(nil), e.chain...), true, nil
}

// Set stores chain under key for ttl.
func (c *Cache) Set(_ context.Context, key string, chain []string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		chain:     append([]string(nil), chain...),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (c *Cache) Sweep(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
