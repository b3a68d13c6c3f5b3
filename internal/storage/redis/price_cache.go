package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"solana-signal-trader/internal/storage"
)

// PriceCache implements storage.PriceCache using Redis hashes.
// Each token's price lives at "price:{address}" with fields "price" (decimal
// string) and "ts" (unix milliseconds); the key expires after the TTL.
type PriceCache struct {
	c *Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{c: c}
}

// Set stores the price and expires the key after ttl.
func (pc *PriceCache) Set(ctx context.Context, address string, price storage.CachedPrice, ttl time.Duration) error {
	if address == "" || ttl <= 0 {
		return storage.ErrInvalidInput
	}

	key := pc.c.key("price", address)
	pipe := pc.c.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"price": price.Price.String(),
		"ts":    strconv.FormatInt(price.FetchedAt.UnixMilli(), 10),
	})
	pipe.PExpire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s: %w", address, err)
	}
	return nil
}

// Get returns storage.ErrNotFound when the key is missing or has expired.
func (pc *PriceCache) Get(ctx context.Context, address string) (*storage.CachedPrice, error) {
	vals, err := pc.c.rdb.HGetAll(ctx, pc.c.key("price", address)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis: get price %s: %w", address, err)
	}

	priceStr, ok := vals["price"]
	if !ok {
		return nil, storage.ErrNotFound
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("redis: parse price %s: %w", address, err)
	}

	var fetchedAt time.Time
	if ts, ok := vals["ts"]; ok {
		ms, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("redis: parse ts %s: %w", address, err)
		}
		fetchedAt = time.UnixMilli(ms)
	}

	return &storage.CachedPrice{Price: price, FetchedAt: fetchedAt}, nil
}

// Compile-time interface check.
var _ storage.PriceCache = (*PriceCache)(nil)
