package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/storage"
)

// PriceObservationStore is an in-memory implementation of storage.PriceObservationStore.
type PriceObservationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceObservation // keyed by (address, observed_at_ms)
}

// NewPriceObservationStore creates a new in-memory price observation store.
func NewPriceObservationStore() *PriceObservationStore {
	return &PriceObservationStore{
		data: make(map[string]*domain.PriceObservation),
	}
}

func observationKey(address string, observedAtMs int64) string {
	return fmt.Sprintf("%s|%d", address, observedAtMs)
}

// InsertBulk adds multiple observations. Fails entire batch on duplicate.
func (s *PriceObservationStore) InsertBulk(_ context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(obs))
	for _, o := range obs {
		if o == nil || o.Address == "" {
			return storage.ErrInvalidInput
		}
		key := observationKey(o.Address, o.ObservedAtMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateObservation
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateObservation
		}
		batchKeys[key] = struct{}{}
	}

	for _, o := range obs {
		c := *o
		s.data[observationKey(o.Address, o.ObservedAtMs)] = &c
	}
	return nil
}

// GetByTimeRange retrieves observations for an address within [start, end] (inclusive).
func (s *PriceObservationStore) GetByTimeRange(_ context.Context, address string, start, end int64) ([]*domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceObservation
	for _, o := range s.data {
		if o.Address == address && o.ObservedAtMs >= start && o.ObservedAtMs <= end {
			c := *o
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ObservedAtMs < result[j].ObservedAtMs
	})
	return result, nil
}

var _ storage.PriceObservationStore = (*PriceObservationStore)(nil)
