package memory

import (
	"context"
	"sync"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/storage"
)

// WatchListStore is an in-memory implementation of storage.WatchListStore.
type WatchListStore struct {
	mu     sync.Mutex
	tokens []domain.WatchedToken
}

// NewWatchListStore creates a new in-memory watch-list store.
func NewWatchListStore() *WatchListStore {
	return &WatchListStore{}
}

// Save replaces the snapshot.
func (s *WatchListStore) Save(_ context.Context, tokens []domain.WatchedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append([]domain.WatchedToken(nil), tokens...)
	return nil
}

// Load returns the snapshot.
func (s *WatchListStore) Load(_ context.Context) ([]domain.WatchedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.WatchedToken(nil), s.tokens...), nil
}

var _ storage.WatchListStore = (*WatchListStore)(nil)
