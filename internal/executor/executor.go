// Package executor places market buys and exit limit orders, either on paper
// or live through Jupiter.
package executor

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"solana-signal-trader/internal/domain"
)

// Trading modes recorded in the journal.
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

var (
	// ErrInvalidOrder is returned for orders that cannot be submitted.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrInsufficientBalance means the wallet cannot pay for a quoted swap.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
)

// MarketOrder buys Amount base units of Address with SOL.
type MarketOrder struct {
	Address  string
	Amount   uint64
	Decimals int
}

// LimitOrder sells Amount base units of Address for SOL once the token trades
// at TargetPriceUSD. NativeUSDPrice converts the target into lamports.
type LimitOrder struct {
	Kind           domain.ExitKind
	Address        string
	Amount         uint64
	Decimals       int
	TargetPriceUSD decimal.Decimal
	NativeUSDPrice decimal.Decimal
}

// Executor submits orders and returns their ids.
type Executor interface {
	PlaceMarketBuy(ctx context.Context, order MarketOrder) (string, error)
	PlaceLimitOrder(ctx context.Context, order LimitOrder) (string, error)
	Mode() string
}

func (o MarketOrder) validate() error {
	if o.Address == "" || o.Amount == 0 {
		return fmt.Errorf("%w: market buy needs an address and a positive amount", ErrInvalidOrder)
	}
	return nil
}

func (o LimitOrder) validate() error {
	if o.Address == "" || o.Amount == 0 {
		return fmt.Errorf("%w: limit order needs an address and a positive amount", ErrInvalidOrder)
	}
	if !o.TargetPriceUSD.IsPositive() || !o.NativeUSDPrice.IsPositive() || o.Decimals < 0 {
		return fmt.Errorf("%w: limit order %s has a degenerate price", ErrInvalidOrder, o.Kind)
	}
	return nil
}

// OutLamports is the SOL the order receives when filled:
// Amount / 10^Decimals * TargetPriceUSD / NativeUSDPrice * 1e9, floored.
func (o LimitOrder) OutLamports() (uint64, error) {
	if err := o.validate(); err != nil {
		return 0, err
	}
	num := decimal.NewFromBigInt(new(big.Int).SetUint64(o.Amount), 0).
		Mul(o.TargetPriceUSD).
		Shift(domain.NativeDecimals)
	den := o.NativeUSDPrice.Shift(int32(o.Decimals))

	q := num.Div(den).Floor()
	if !q.IsPositive() || !q.BigInt().IsUint64() {
		return 0, fmt.Errorf("%w: %s out amount %s out of range", ErrInvalidOrder, o.Kind, q)
	}
	return q.BigInt().Uint64(), nil
}
