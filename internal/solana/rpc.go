package solana

import "context"

// RPCClient defines the Solana JSON-RPC methods the trader uses.
type RPCClient interface {
	// GetTokenSupply returns the supply and decimals of an SPL mint.
	GetTokenSupply(ctx context.Context, mint string) (*TokenSupply, error)

	// GetBalance returns the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// SendTransaction submits a signed, base64-encoded transaction.
	SendTransaction(ctx context.Context, txBase64 string, opts SendOptions) (string, error)

	// GetSignatureStatuses returns statuses in request order; nil for unknown signatures.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)
}

// TokenSupply from getTokenSupply.
type TokenSupply struct {
	Amount         string // raw supply in base units
	Decimals       int
	UIAmountString string
}

// SendOptions configures sendTransaction.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment string // "processed" | "confirmed" | "finalized"
	MaxRetries          *int
}

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int64
	Err                interface{}
	ConfirmationStatus string // "processed" | "confirmed" | "finalized"
}

// Confirmed reports whether the transaction reached confirmed or finalized commitment.
func (s *SignatureStatus) Confirmed() bool {
	return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
}
