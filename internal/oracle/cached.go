package oracle

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/storage"
)

// DefaultCacheTTL is how long a cached price is served.
const DefaultCacheTTL = 30 * time.Second

// Cached serves prices of selected addresses from a storage.PriceCache.
// Other addresses and all metadata go straight to the wrapped oracle.
type Cached struct {
	inner     Oracle
	cache     storage.PriceCache
	ttl       time.Duration
	addresses map[string]struct{}
	log       logrus.FieldLogger
}

var _ Oracle = (*Cached)(nil)

// NewCached wraps inner. With no addresses only the native mint is cached.
func NewCached(inner Oracle, cache storage.PriceCache, ttl time.Duration, log logrus.FieldLogger, addresses ...string) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if len(addresses) == 0 {
		addresses = []string{domain.NativeMint}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	set := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		set[a] = struct{}{}
	}
	return &Cached{
		inner:     inner,
		cache:     cache,
		ttl:       ttl,
		addresses: set,
		log:       log.WithField("component", "oracle-cache"),
	}
}

// FetchPrice returns a cached price when fresh. Cache failures fall through.
func (c *Cached) FetchPrice(ctx context.Context, address string) (*domain.PriceData, error) {
	if _, ok := c.addresses[address]; !ok {
		return c.inner.FetchPrice(ctx, address)
	}

	hit, err := c.cache.Get(ctx, address)
	switch {
	case err == nil:
		return &domain.PriceData{Address: address, Price: hit.Price, FetchedAt: hit.FetchedAt}, nil
	case !errors.Is(err, storage.ErrNotFound):
		c.log.WithError(err).WithField("address", address).Warn("price cache read failed")
	}

	data, err := c.inner.FetchPrice(ctx, address)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, address, storage.CachedPrice{Price: data.Price, FetchedAt: data.FetchedAt}, c.ttl); err != nil {
		c.log.WithError(err).WithField("address", address).Warn("price cache write failed")
	}
	return data, nil
}

// FetchMetadata delegates to the wrapped oracle.
func (c *Cached) FetchMetadata(ctx context.Context, address string) (*domain.TokenDetails, error) {
	return c.inner.FetchMetadata(ctx, address)
}
