package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/storage"
)

// TradeJournal is an in-memory implementation of storage.TradeJournal.
type TradeJournal struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeRecord // keyed by token address
}

// NewTradeJournal creates a new in-memory trade journal.
func NewTradeJournal() *TradeJournal {
	return &TradeJournal{
		data: make(map[string]*domain.TradeRecord),
	}
}

// Append stores rec under address, replacing any earlier record.
func (j *TradeJournal) Append(_ context.Context, address string, rec *domain.TradeRecord) error {
	if address == "" || rec == nil {
		return storage.ErrInvalidInput
	}
	c, err := cloneRecord(rec)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.data[address] = c
	return nil
}

// Get returns the record for address.
func (j *TradeJournal) Get(_ context.Context, address string) (*domain.TradeRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rec, ok := j.data[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneRecord(rec)
}

// List returns all records ordered by OpenedAt ASC.
func (j *TradeJournal) List(_ context.Context) ([]*domain.TradeRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	result := make([]*domain.TradeRecord, 0, len(j.data))
	for _, rec := range j.data {
		c, err := cloneRecord(rec)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].OpenedAt.Before(result[k].OpenedAt)
	})
	return result, nil
}

// cloneRecord deep-copies a record so callers cannot mutate stored state.
func cloneRecord(rec *domain.TradeRecord) (*domain.TradeRecord, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode trade record: %w", err)
	}
	var c domain.TradeRecord
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode trade record: %w", err)
	}
	return &c, nil
}

var _ storage.TradeJournal = (*TradeJournal)(nil)
