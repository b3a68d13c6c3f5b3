// Package idhash derives deterministic identifiers from record contents.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID returns hex(SHA256(address|mode|opened_at_ms)).
// Re-opening the same token later yields a new id; the journal still keeps
// only the latest record per address.
func ComputeTradeID(address, mode string, openedAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", address, mode, openedAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeSignalID returns a short id for one chat event, used to correlate
// the log lines a message produces. Format: first 16 hex chars of
// SHA256(sender|received_at_ms|text).
func ComputeSignalID(senderID string, receivedAtMs int64, text string) string {
	data := fmt.Sprintf("%s|%d|%s", senderID, receivedAtMs, text)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
