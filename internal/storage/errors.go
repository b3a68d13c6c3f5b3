package storage

import "errors"

var (
	// ErrNotFound means the address or key has no stored value.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateObservation rejects a second price observation for the same
	// (address, observed_at_ms). Observations are never rewritten.
	ErrDuplicateObservation = errors.New("duplicate price observation")

	ErrInvalidInput = errors.New("invalid input")

	// ErrLockHeld means another tick, possibly in another process, owns the lock.
	ErrLockHeld = errors.New("lock held")
)
