package cache

import (
	"context"
	"sync"
	"time"

	"trivia/internal/models"
)

type memoryEntry struct {
	balance   models.Balance
	expiresAt time.Time
}

// MemoryCache is the in-process fallback used when no Redis address is
// configured, and in tests.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryCache) Get(ctx context.Context, userID string) (models.Balance, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return models.Balance{}, false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, userID)
		c.mu.Unlock()
		return models.Balance{}, false, nil
	}
	return entry.balance, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, userID string, balance models.Balance) error {
	c.mu.Lock()
	c.entries[userID] = memoryEntry{balance: balance, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, userID string) error {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
	return nil
}
