package memory

import (
	"context"
	"sync"
	"time"

	"solana-signal-trader/internal/storage"
)

type cacheEntry struct {
	price     storage.CachedPrice
	expiresAt time.Time
}

// PriceCache is an in-memory implementation of storage.PriceCache.
type PriceCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
	now  func() time.Time
}

// NewPriceCache creates a new in-memory price cache.
func NewPriceCache() *PriceCache {
	return &PriceCache{
		data: make(map[string]cacheEntry),
		now:  time.Now,
	}
}

// Get returns the cached price, or ErrNotFound when missing or expired.
func (c *PriceCache) Get(_ context.Context, address string) (*storage.CachedPrice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.data, address)
		return nil, storage.ErrNotFound
	}
	p := e.price
	return &p, nil
}

// Set stores a price for ttl.
func (c *PriceCache) Set(_ context.Context, address string, price storage.CachedPrice, ttl time.Duration) error {
	if address == "" || ttl <= 0 {
		return storage.ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[address] = cacheEntry{price: price, expiresAt: c.now().Add(ttl)}
	return nil
}

var _ storage.PriceCache = (*PriceCache)(nil)
