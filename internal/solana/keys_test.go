package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeed(b byte) []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = b + byte(i)
	}
	return seed
}

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want bool
	}{
		{"native mint", "So11111111111111111111111111111111111111112", true},
		{"token mint", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", true},
		{"too short", "So1111", false},
		{"invalid alphabet", "0OIl1111111111111111111111111111111111111112", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAddress(tt.addr))
		})
	}
}

func TestIsOnCurve(t *testing.T) {
	kp, err := NewKeypairFromSeed(testSeed(1))
	require.NoError(t, err)
	assert.True(t, IsOnCurve(kp.PublicKey()))
	assert.False(t, IsOnCurve([]byte{1, 2, 3}))

	offCurve := false
	for i := 0; i < 256 && !offCurve; i++ {
		b := make([]byte, PublicKeyLength)
		b[0] = byte(i)
		offCurve = !IsOnCurve(b)
	}
	assert.True(t, offCurve, "expected at least one off-curve encoding")
}

func TestParseKeypair(t *testing.T) {
	want, err := NewKeypairFromSeed(testSeed(7))
	require.NoError(t, err)
	secret := []byte(want.private)

	t.Run("base58", func(t *testing.T) {
		kp, err := ParseKeypair(base58.Encode(secret))
		require.NoError(t, err)
		assert.Equal(t, want.Address(), kp.Address())
	})

	t.Run("json array", func(t *testing.T) {
		ints := make([]int, len(secret))
		for i, b := range secret {
			ints[i] = int(b)
		}
		data, err := json.Marshal(ints)
		require.NoError(t, err)

		kp, err := ParseKeypair(string(data) + "\n")
		require.NoError(t, err)
		assert.Equal(t, want.Address(), kp.Address())
	})

	t.Run("mismatched public half", func(t *testing.T) {
		bad := append([]byte(nil), secret...)
		bad[63] ^= 0xff
		_, err := ParseKeypair(base58.Encode(bad))
		assert.True(t, errors.Is(err, ErrInvalidKeypair))
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := ParseKeypair(base58.Encode(secret[:32]))
		assert.True(t, errors.Is(err, ErrInvalidKeypair))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseKeypair("  ")
		assert.True(t, errors.Is(err, ErrInvalidKeypair))
	})
}

// buildTransaction serializes an unsigned transaction with the given signers.
func buildTransaction(versioned bool, signers [][]byte, others int) ([]byte, []byte) {
	var msg []byte
	if versioned {
		msg = append(msg, 0x80)
	}
	msg = append(msg, byte(len(signers)), 0, byte(others))
	msg = appendCompactU16(msg, len(signers)+others)
	for _, s := range signers {
		msg = append(msg, s...)
	}
	for i := 0; i < others; i++ {
		key := make([]byte, PublicKeyLength)
		key[0] = byte(200 + i)
		msg = append(msg, key...)
	}
	msg = append(msg, make([]byte, 32)...) // recent blockhash
	msg = appendCompactU16(msg, 0)         // instructions
	if versioned {
		msg = appendCompactU16(msg, 0) // address table lookups
	}

	tx := appendCompactU16(nil, len(signers))
	tx = append(tx, make([]byte, len(signers)*signatureLength)...)
	tx = append(tx, msg...)
	return tx, msg
}

func appendCompactU16(dst []byte, v int) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

func TestSignTransaction(t *testing.T) {
	payer, err := NewKeypairFromSeed(testSeed(3))
	require.NoError(t, err)
	cosigner, err := NewKeypairFromSeed(testSeed(9))
	require.NoError(t, err)

	for _, versioned := range []bool{false, true} {
		name := "legacy"
		if versioned {
			name = "v0"
		}
		t.Run(name, func(t *testing.T) {
			raw, msg := buildTransaction(versioned, [][]byte{cosigner.PublicKey(), payer.PublicKey()}, 2)

			signed, txID, err := SignTransaction(base64.StdEncoding.EncodeToString(raw), payer)
			require.NoError(t, err)

			out, err := base64.StdEncoding.DecodeString(signed)
			require.NoError(t, err)
			require.Len(t, out, len(raw))

			// Slot 0 belongs to the cosigner and stays empty.
			assert.Equal(t, make([]byte, signatureLength), out[1:1+signatureLength])
			sig := out[1+signatureLength : 1+2*signatureLength]
			assert.True(t, ed25519.Verify(payer.PublicKey(), msg, sig))
			assert.Equal(t, base58.Encode(make([]byte, signatureLength)), txID)
		})
	}
}

func TestSignTransaction_FeePayerID(t *testing.T) {
	payer, err := NewKeypairFromSeed(testSeed(3))
	require.NoError(t, err)

	raw, msg := buildTransaction(true, [][]byte{payer.PublicKey()}, 3)
	_, txID, err := SignTransaction(base64.StdEncoding.EncodeToString(raw), payer)
	require.NoError(t, err)

	assert.Equal(t, base58.Encode(ed25519.Sign(payer.private, msg)), txID)
}

func TestSignTransaction_NotSigner(t *testing.T) {
	payer, err := NewKeypairFromSeed(testSeed(3))
	require.NoError(t, err)
	stranger, err := NewKeypairFromSeed(testSeed(5))
	require.NoError(t, err)

	raw, _ := buildTransaction(false, [][]byte{payer.PublicKey()}, 1)
	_, _, err = SignTransaction(base64.StdEncoding.EncodeToString(raw), stranger)
	assert.True(t, errors.Is(err, ErrNotSigner))
}

func TestSignTransaction_Malformed(t *testing.T) {
	kp, err := NewKeypairFromSeed(testSeed(3))
	require.NoError(t, err)

	tests := []struct {
		name string
		tx   string
	}{
		{"not base64", "%%%"},
		{"empty", ""},
		{"truncated signatures", base64.StdEncoding.EncodeToString([]byte{2, 1, 2, 3})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := SignTransaction(tt.tx, kp)
			assert.Error(t, err)
		})
	}
}
