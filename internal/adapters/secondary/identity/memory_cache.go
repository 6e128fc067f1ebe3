package identity

import (
	"context"
	"sync"
	"time"

	"github.com/dexhq/support-chat-backend/internal/core/domain"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
)

// MemoryCache is an in-process VerificationCache used when Redis is not
// configured. Entries expire lazily on read plus a periodic sweep.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	principal *domain.Principal
	expiresAt time.Time
}

var _ ports.VerificationCache = (*MemoryCache)(nil)

// NewMemoryCache creates a memory-backed verification cache.
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{entries: make(map[string]memoryEntry)}
	go c.sweep()
	return c
}

// Get returns the cached principal, or nil when absent or expired.
func (c *MemoryCache) Get(_ context.Context, key string) (*domain.Principal, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	return entry.principal, nil
}

// Set stores the principal for ttl.
func (c *MemoryCache) Set(_ context.Context, key string, principal *domain.Principal, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = memoryEntry{principal: principal, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for key, entry := range c.entries {
			if now.After(entry.expiresAt) {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}
