// Package watchlist holds tokens waiting for a buy decision.
package watchlist

import (
	"sync"
	"time"

	"solana-signal-trader/internal/domain"
)

// WatchList is an insertion-ordered set of watched tokens keyed by address.
// All methods are safe for concurrent use.
type WatchList struct {
	mu     sync.Mutex
	tokens []domain.WatchedToken
	index  map[string]struct{}
	now    func() time.Time
}

// Option configures a WatchList.
type Option func(*WatchList)

// WithClock sets the clock used to stamp AddedAt.
func WithClock(now func() time.Time) Option {
	return func(w *WatchList) {
		w.now = now
	}
}

// New creates an empty WatchList.
func New(opts ...Option) *WatchList {
	w := &WatchList{
		index: make(map[string]struct{}),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AddIfAbsent appends address stamped with the current time.
// Returns false if the address is already watched.
func (w *WatchList) AddIfAbsent(address string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.index[address]; ok {
		return false
	}
	w.index[address] = struct{}{}
	w.tokens = append(w.tokens, domain.WatchedToken{Address: address, AddedAt: w.now()})
	return true
}

// Remove deletes address. Returns false if it was not watched.
func (w *WatchList) Remove(address string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.index[address]; !ok {
		return false
	}
	delete(w.index, address)
	for i, t := range w.tokens {
		if t.Address == address {
			w.tokens = append(w.tokens[:i], w.tokens[i+1:]...)
			break
		}
	}
	return true
}

// All returns a snapshot in insertion order.
func (w *WatchList) All() []domain.WatchedToken {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]domain.WatchedToken, len(w.tokens))
	copy(out, w.tokens)
	return out
}

// Get returns the watched entry for address.
func (w *WatchList) Get(address string) (domain.WatchedToken, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, t := range w.tokens {
		if t.Address == address {
			return t, true
		}
	}
	return domain.WatchedToken{}, false
}

// Contains reports whether address is watched.
func (w *WatchList) Contains(address string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.index[address]
	return ok
}

// Len returns the number of watched tokens.
func (w *WatchList) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tokens)
}

// Expire removes tokens older than maxAge at now and returns both partitions.
// A token is kept while now - AddedAt <= maxAge.
func (w *WatchList) Expire(now time.Time, maxAge time.Duration) (kept, expired []domain.WatchedToken) {
	w.mu.Lock()
	defer w.mu.Unlock()

	remaining := w.tokens[:0]
	for _, t := range w.tokens {
		if t.Age(now) <= maxAge {
			kept = append(kept, t)
			remaining = append(remaining, t)
			continue
		}
		expired = append(expired, t)
		delete(w.index, t.Address)
	}
	w.tokens = remaining
	return kept, expired
}

// Restore replaces the contents with tokens, keeping their timestamps.
// Duplicate addresses after the first are ignored.
func (w *WatchList) Restore(tokens []domain.WatchedToken) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tokens = w.tokens[:0]
	w.index = make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := w.index[t.Address]; ok {
			continue
		}
		w.index[t.Address] = struct{}{}
		w.tokens = append(w.tokens, t)
	}
}
