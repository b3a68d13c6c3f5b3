package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/storage"
)

// WatchListStore snapshots the watch-list to a JSON array file.
type WatchListStore struct {
	mu   sync.Mutex
	path string
}

// NewWatchListStore creates a store backed by path.
func NewWatchListStore(path string) *WatchListStore {
	return &WatchListStore{path: path}
}

var _ storage.WatchListStore = (*WatchListStore)(nil)

// Save replaces the snapshot file.
func (s *WatchListStore) Save(_ context.Context, tokens []domain.WatchedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tokens == nil {
		tokens = []domain.WatchedToken{}
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode watch list: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create watch list dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write watch list: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Load reads the snapshot file; a missing file is an empty snapshot.
func (s *WatchListStore) Load(_ context.Context) ([]domain.WatchedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read watch list: %w", err)
	}

	var tokens []domain.WatchedToken
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("decode watch list: %w", err)
	}
	return tokens, nil
}
