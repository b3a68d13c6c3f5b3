package memory

import (
	"context"
	"sync"
	"time"

	"solana-signal-trader/internal/storage"
)

// Locker is a process-local storage.Locker.
type Locker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	now   func() time.Time
	token uint64
	owner map[string]uint64
}

// NewLocker creates a new in-process locker.
func NewLocker() *Locker {
	return &Locker{
		held:  make(map[string]time.Time),
		owner: make(map[string]uint64),
		now:   time.Now,
	}
}

// Acquire takes the lock for key until unlock or ttl expiry.
func (l *Locker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if exp, ok := l.held[key]; ok && l.now().Before(exp) {
		return nil, storage.ErrLockHeld
	}
	l.token++
	tok := l.token
	l.held[key] = l.now().Add(ttl)
	l.owner[key] = tok

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.owner[key] == tok {
			delete(l.held, key)
			delete(l.owner, key)
		}
	}, nil
}

var _ storage.Locker = (*Locker)(nil)
