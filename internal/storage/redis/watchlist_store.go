package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/storage"
)

// WatchListStore keeps the watch-list snapshot as one JSON string value.
type WatchListStore struct {
	c *Client
}

// NewWatchListStore creates a WatchListStore backed by the given Client.
func NewWatchListStore(c *Client) *WatchListStore {
	return &WatchListStore{c: c}
}

// Save replaces the snapshot.
func (s *WatchListStore) Save(ctx context.Context, tokens []domain.WatchedToken) error {
	if tokens == nil {
		tokens = []domain.WatchedToken{}
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("redis: encode watchlist: %w", err)
	}
	if err := s.c.rdb.Set(ctx, s.c.key("watchlist"), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: save watchlist: %w", err)
	}
	return nil
}

// Load returns the snapshot, empty when none was saved.
func (s *WatchListStore) Load(ctx context.Context) ([]domain.WatchedToken, error) {
	data, err := s.c.rdb.Get(ctx, s.c.key("watchlist")).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: load watchlist: %w", err)
	}

	var tokens []domain.WatchedToken
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("redis: decode watchlist: %w", err)
	}
	return tokens, nil
}

// Compile-time interface check.
var _ storage.WatchListStore = (*WatchListStore)(nil)
