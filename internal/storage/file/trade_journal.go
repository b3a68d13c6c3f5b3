// Package file implements storage on local JSON files.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/storage"
)

// TradeJournal keeps trades in one JSON object keyed by token address,
// e.g. data/trades.json. Each Append rewrites the file with the new record
// merged over the existing ones.
type TradeJournal struct {
	mu   sync.Mutex
	path string
}

// NewTradeJournal creates a journal backed by path.
func NewTradeJournal(path string) *TradeJournal {
	return &TradeJournal{path: path}
}

// Compile-time interface check.
var _ storage.TradeJournal = (*TradeJournal)(nil)

// Append merges rec into the register under address.
func (j *TradeJournal) Append(_ context.Context, address string, rec *domain.TradeRecord) error {
	if address == "" || rec == nil {
		return storage.ErrInvalidInput
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	register, err := j.read()
	if err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode trade record: %w", err)
	}
	register[address] = data

	return j.write(register)
}

// Get returns the record for address.
func (j *TradeJournal) Get(_ context.Context, address string) (*domain.TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	register, err := j.read()
	if err != nil {
		return nil, err
	}
	raw, ok := register[address]
	if !ok {
		return nil, storage.ErrNotFound
	}

	var rec domain.TradeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode trade record %s: %w", address, err)
	}
	return &rec, nil
}

// List returns all records ordered by OpenedAt ASC.
func (j *TradeJournal) List(_ context.Context) ([]*domain.TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	register, err := j.read()
	if err != nil {
		return nil, err
	}

	result := make([]*domain.TradeRecord, 0, len(register))
	for address, raw := range register {
		var rec domain.TradeRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode trade record %s: %w", address, err)
		}
		result = append(result, &rec)
	}

	sort.Slice(result, func(a, b int) bool {
		return result[a].OpenedAt.Before(result[b].OpenedAt)
	})
	return result, nil
}

// read loads the register. Entries are kept raw so records written by other
// tools survive a rewrite unchanged.
func (j *TradeJournal) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]json.RawMessage), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read trades register: %w", err)
	}
	if len(data) == 0 {
		return make(map[string]json.RawMessage), nil
	}

	register := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &register); err != nil {
		return nil, fmt.Errorf("decode trades register %s: %w", j.path, err)
	}
	return register, nil
}

func (j *TradeJournal) write(register map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(register, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trades register: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("create register dir: %w", err)
	}

	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write trades register: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("replace trades register: %w", err)
	}
	return nil
}
