package domain

import "time"

// WatchedToken is a token waiting for a buy decision.
type WatchedToken struct {
	Address string    `json:"address"`
	AddedAt time.Time `json:"added_at"`
}

// Age returns how long the token has been watched at now.
func (w WatchedToken) Age(now time.Time) time.Duration {
	return now.Sub(w.AddedAt)
}
