package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"solana-signal-trader/internal/httpclient"
)

// Commitment used for reads.
const defaultCommitment = "confirmed"

// RPCError is an error object returned by the node. It is never retried.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("solana rpc error %d: %s", e.Code, e.Message)
}

// IsRPCError reports whether err carries a node error with the given code.
func IsRPCError(err error, code int) bool {
	var re *RPCError
	return errors.As(err, &re) && re.Code == code
}

// HTTPClient is a JSON-RPC 2.0 client for one Solana node. Transport
// failures, 429 and 5xx responses are retried with backoff by httpclient.
type HTTPClient struct {
	endpoint string
	http     *httpclient.Client
	nextID   atomic.Uint64
}

var _ RPCClient = (*HTTPClient)(nil)

// NewHTTPClient creates a client for endpoint.
func NewHTTPClient(endpoint string, opts ...httpclient.Option) *HTTPClient {
	opts = append([]httpclient.Option{httpclient.WithTimeout(30 * time.Second)}, opts...)
	return &HTTPClient{
		endpoint: endpoint,
		http:     httpclient.New("solana", opts...),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *HTTPClient) call(ctx context.Context, method string, out any, params ...any) error {
	req := rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params}

	var resp rpcResponse
	if err := c.http.PostJSON(ctx, method, c.endpoint, req, &resp); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

// GetTokenSupply retrieves the supply and decimals of an SPL mint.
func (c *HTTPClient) GetTokenSupply(ctx context.Context, mint string) (*TokenSupply, error) {
	var res struct {
		Value struct {
			Amount         string `json:"amount"`
			Decimals       int    `json:"decimals"`
			UIAmountString string `json:"uiAmountString"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getTokenSupply", &res, mint, commitment()); err != nil {
		return nil, err
	}
	return &TokenSupply{
		Amount:         res.Value.Amount,
		Decimals:       res.Value.Decimals,
		UIAmountString: res.Value.UIAmountString,
	}, nil
}

// GetBalance retrieves the lamport balance of an account.
func (c *HTTPClient) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	var res struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", &res, pubkey, commitment()); err != nil {
		return 0, err
	}
	return res.Value, nil
}

// SendTransaction submits a signed base64 transaction and returns its signature.
func (c *HTTPClient) SendTransaction(ctx context.Context, txBase64 string, opts SendOptions) (string, error) {
	cfg := map[string]any{
		"encoding":      "base64",
		"skipPreflight": opts.SkipPreflight,
	}
	if opts.PreflightCommitment != "" {
		cfg["preflightCommitment"] = opts.PreflightCommitment
	}
	if opts.MaxRetries != nil {
		cfg["maxRetries"] = *opts.MaxRetries
	}

	var signature string
	if err := c.call(ctx, "sendTransaction", &signature, txBase64, cfg); err != nil {
		return "", err
	}
	return signature, nil
}

// GetSignatureStatuses looks signatures up, including transaction history.
func (c *HTTPClient) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	var res struct {
		Value []*struct {
			Slot               int64  `json:"slot"`
			Confirmations      *int64 `json:"confirmations"`
			Err                any    `json:"err"`
			ConfirmationStatus string `json:"confirmationStatus"`
		} `json:"value"`
	}
	err := c.call(ctx, "getSignatureStatuses", &res, signatures, map[string]any{"searchTransactionHistory": true})
	if err != nil {
		return nil, err
	}

	out := make([]*SignatureStatus, len(res.Value))
	for i, v := range res.Value {
		if v != nil {
			out[i] = &SignatureStatus{
				Slot:               v.Slot,
				Confirmations:      v.Confirmations,
				Err:                v.Err,
				ConfirmationStatus: v.ConfirmationStatus,
			}
		}
	}
	return out, nil
}

func commitment() map[string]any {
	return map[string]any{"commitment": defaultCommitment}
}

// ConfirmTransaction polls until signature reaches confirmed commitment,
// fails on chain, or ctx ends.
func ConfirmTransaction(ctx context.Context, client RPCClient, signature string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		statuses, err := client.GetSignatureStatuses(ctx, []string{signature})
		if err != nil {
			return fmt.Errorf("get signature status: %w", err)
		}
		if len(statuses) == 1 && statuses[0] != nil {
			if s := statuses[0]; s.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", signature, s.Err)
			} else if s.Confirmed() {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("confirm %s: %w", signature, ctx.Err())
		case <-ticker.C:
		}
	}
}
