package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the size of a decoded account address.
const PublicKeyLength = 32

// ErrInvalidAddress is returned for strings that are not base58 32-byte keys.
var ErrInvalidAddress = errors.New("invalid address")

// DecodeAddress decodes a base58 account address.
func DecodeAddress(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if len(b) != PublicKeyLength {
		return nil, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, s, len(b))
	}
	return b, nil
}

// EncodeAddress encodes a 32-byte public key as base58.
func EncodeAddress(key []byte) string {
	return base58.Encode(key)
}

// IsValidAddress reports whether s is a well-formed account address.
// Both wallet keys and program-derived (off-curve) addresses are accepted.
func IsValidAddress(s string) bool {
	_, err := DecodeAddress(s)
	return err == nil
}

// IsOnCurve reports whether key is a valid compressed ed25519 point.
func IsOnCurve(key []byte) bool {
	if len(key) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(key)
	return err == nil
}
