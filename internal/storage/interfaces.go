package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"solana-signal-trader/internal/domain"
)

// TradeJournal persists opened positions keyed by token address.
// Writing an address that already has a record replaces it (last write wins).
type TradeJournal interface {
	// Append stores rec under address. Returns ErrInvalidInput for an empty
	// address or nil record.
	Append(ctx context.Context, address string, rec *domain.TradeRecord) error

	// Get returns the record for address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, address string) (*domain.TradeRecord, error)

	// List returns all records ordered by OpenedAt ASC.
	List(ctx context.Context) ([]*domain.TradeRecord, error)
}

// PriceObservationStore provides access to price_observations storage.
type PriceObservationStore interface {
	// InsertBulk adds observations. Fails entire batch on duplicate (address, observed_at_ms).
	InsertBulk(ctx context.Context, obs []*domain.PriceObservation) error

	// GetByTimeRange retrieves observations for an address within [start, end] (inclusive),
	// ordered by observed_at_ms ASC.
	GetByTimeRange(ctx context.Context, address string, start, end int64) ([]*domain.PriceObservation, error)
}

// CachedPrice is a USD price with the time it was fetched.
type CachedPrice struct {
	Price     decimal.Decimal
	FetchedAt time.Time
}

// PriceCache holds recently fetched prices.
type PriceCache interface {
	// Get returns the cached price. Returns ErrNotFound if missing or expired.
	Get(ctx context.Context, address string) (*CachedPrice, error)

	// Set stores a price that expires after ttl.
	Set(ctx context.Context, address string, price CachedPrice, ttl time.Duration) error
}

// WatchListStore snapshots the watch-list so a restart does not lose candidates.
type WatchListStore interface {
	// Save replaces the stored snapshot.
	Save(ctx context.Context, tokens []domain.WatchedToken) error

	// Load returns the stored snapshot, empty if none was saved.
	Load(ctx context.Context) ([]domain.WatchedToken, error)
}

// Locker provides mutual exclusion across trader instances.
type Locker interface {
	// Acquire obtains the lock for key until unlock is called or ttl passes.
	// Returns ErrLockHeld when another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
