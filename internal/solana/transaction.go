package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

const signatureLength = ed25519.SignatureSize

// ErrNotSigner is returned when the keypair is not a required signer of the transaction.
var ErrNotSigner = errors.New("keypair is not a required signer")

// SignTransaction signs a serialized (legacy or v0) transaction built by a
// swap service. It returns the re-encoded transaction and its first
// signature, which is the transaction id.
func SignTransaction(txBase64 string, kp *Keypair) (string, string, error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", "", fmt.Errorf("decode transaction: %w", err)
	}

	sigCount, n, err := readCompactU16(raw)
	if err != nil {
		return "", "", fmt.Errorf("read signature count: %w", err)
	}
	sigStart := n
	msgStart := sigStart + sigCount*signatureLength
	if msgStart > len(raw) {
		return "", "", fmt.Errorf("transaction truncated in signatures")
	}
	msg := raw[msgStart:]

	keys, required, err := messageSigners(msg)
	if err != nil {
		return "", "", err
	}
	if required > sigCount {
		return "", "", fmt.Errorf("message requires %d signatures, transaction has %d slots", required, sigCount)
	}

	pub := kp.PublicKey()
	index := -1
	for i := 0; i < required; i++ {
		if bytes.Equal(keys[i], pub) {
			index = i
			break
		}
	}
	if index < 0 {
		return "", "", fmt.Errorf("%w: %s", ErrNotSigner, kp.Address())
	}

	signed := make([]byte, len(raw))
	copy(signed, raw)
	sig := kp.Sign(msg)
	copy(signed[sigStart+index*signatureLength:], sig)

	first := signed[sigStart : sigStart+signatureLength]
	return base64.StdEncoding.EncodeToString(signed), base58.Encode(first), nil
}

// messageSigners returns the static account keys and the number of required signatures.
func messageSigners(msg []byte) ([][]byte, int, error) {
	if len(msg) == 0 {
		return nil, 0, fmt.Errorf("empty message")
	}
	pos := 0
	if msg[0]&0x80 != 0 {
		if version := msg[0] & 0x7f; version != 0 {
			return nil, 0, fmt.Errorf("unsupported message version %d", version)
		}
		pos++
	}
	if len(msg) < pos+3 {
		return nil, 0, fmt.Errorf("message header truncated")
	}
	required := int(msg[pos])
	pos += 3

	count, n, err := readCompactU16(msg[pos:])
	if err != nil {
		return nil, 0, fmt.Errorf("read account count: %w", err)
	}
	pos += n
	if count < required {
		return nil, 0, fmt.Errorf("message has %d keys but %d signers", count, required)
	}
	if len(msg) < pos+count*PublicKeyLength {
		return nil, 0, fmt.Errorf("account keys truncated")
	}

	keys := make([][]byte, count)
	for i := range keys {
		keys[i] = msg[pos : pos+PublicKeyLength]
		pos += PublicKeyLength
	}
	return keys, required, nil
}

// readCompactU16 decodes Solana's shortvec length prefix.
func readCompactU16(b []byte) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("compact-u16 truncated")
		}
		value |= int(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 overflow")
}
