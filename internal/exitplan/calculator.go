// Package exitplan sizes a buy and derives its stop-loss and take-profit orders.
package exitplan

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"solana-signal-trader/internal/domain"
)

// NativeUnitScale converts one SOL to lamports.
const NativeUnitScale = 1_000_000_000

// maxTokenDecimals is the largest precision an SPL mint can declare (u8).
const maxTokenDecimals = 255

// ErrRejected is returned when the inputs cannot produce a safe plan.
// Callers must not place any order after a rejection.
var ErrRejected = errors.New("exit plan rejected")

// Config holds exit multipliers and sizing policy.
type Config struct {
	StopLossMultiplier         decimal.Decimal // 0.85 = accept a 15% loss
	FirstTakeProfitMultiplier  decimal.Decimal
	SecondTakeProfitMultiplier decimal.Decimal
	FirstTakeProfitFraction    decimal.Decimal // share of the buy sold at the first take-profit, rounded up
	MinBuyAmount               uint64          // used when the budget buys at most one base unit
}

// DefaultConfig returns the standard plan: SL x0.85, TP1 x1.5 for 75%, TP2 x2.5 for the rest.
func DefaultConfig() Config {
	return Config{
		StopLossMultiplier:         decimal.RequireFromString("0.85"),
		FirstTakeProfitMultiplier:  decimal.RequireFromString("1.5"),
		SecondTakeProfitMultiplier: decimal.RequireFromString("2.5"),
		FirstTakeProfitFraction:    decimal.RequireFromString("0.75"),
		MinBuyAmount:               10_000,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !c.StopLossMultiplier.IsPositive() {
		return fmt.Errorf("stop-loss multiplier must be positive, got %s", c.StopLossMultiplier)
	}
	if !c.FirstTakeProfitMultiplier.IsPositive() || !c.SecondTakeProfitMultiplier.IsPositive() {
		return fmt.Errorf("take-profit multipliers must be positive, got %s and %s",
			c.FirstTakeProfitMultiplier, c.SecondTakeProfitMultiplier)
	}
	if !c.FirstTakeProfitFraction.IsPositive() || c.FirstTakeProfitFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("first take-profit fraction must be in (0, 1], got %s", c.FirstTakeProfitFraction)
	}
	if c.MinBuyAmount == 0 {
		return fmt.Errorf("min buy amount must be positive")
	}
	return nil
}

// Input describes the token and budget for one plan.
type Input struct {
	PriceUSD       decimal.Decimal // current token price per whole token
	TokenDecimals  int
	BudgetNative   decimal.Decimal // SOL to spend
	NativeUSDPrice decimal.Decimal // SOL price in USD
}

// Calculator computes exit plans. It is stateless and safe for concurrent use.
type Calculator struct {
	cfg Config
}

// New creates a Calculator.
func New(cfg Config) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{cfg: cfg}, nil
}

// Config returns the calculator configuration.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Compute derives the buy amount and the three exit orders.
//
// The buy amount is the budget in lamports divided by the price of one token
// base unit in lamports, floored. When that ratio is at most 1 the configured
// minimum is used instead.
func (c *Calculator) Compute(in Input) (*domain.ExitPlan, error) {
	if !in.PriceUSD.IsPositive() {
		return nil, fmt.Errorf("%w: token price %s", ErrRejected, in.PriceUSD)
	}
	if !in.NativeUSDPrice.IsPositive() {
		return nil, fmt.Errorf("%w: native price %s", ErrRejected, in.NativeUSDPrice)
	}
	if in.TokenDecimals < 0 || in.TokenDecimals > maxTokenDecimals {
		return nil, fmt.Errorf("%w: token decimals %d", ErrRejected, in.TokenDecimals)
	}

	scale := decimal.NewFromInt(NativeUnitScale)
	budgetUnits := in.BudgetNative.Mul(scale).Floor()

	// budgetUnits / (PriceUSD / NativeUSDPrice * scale / 10^decimals), kept as
	// an exact fraction so the floor never sees a rounded quotient.
	num := budgetUnits.Mul(in.NativeUSDPrice).Mul(decimal.New(1, int32(in.TokenDecimals)))
	den := in.PriceUSD.Mul(scale)

	buyAmount := c.cfg.MinBuyAmount
	if num.Cmp(den) > 0 {
		quotient, _ := num.QuoRem(den, 0)
		q := quotient.BigInt()
		if !q.IsUint64() {
			return nil, fmt.Errorf("%w: buy amount %s exceeds token amount range", ErrRejected, q)
		}
		buyAmount = q.Uint64()
	}

	firstAmount := decimalFromUint64(buyAmount).Mul(c.cfg.FirstTakeProfitFraction).Ceil().BigInt().Uint64()
	if firstAmount > buyAmount {
		firstAmount = buyAmount
	}

	return &domain.ExitPlan{
		EntryPrice: in.PriceUSD,
		BuyAmount:  buyAmount,
		StopLoss: domain.ExitOrder{
			Amount:      buyAmount,
			TargetPrice: in.PriceUSD.Mul(c.cfg.StopLossMultiplier),
		},
		FirstTakeProfit: domain.ExitOrder{
			Amount:      firstAmount,
			TargetPrice: in.PriceUSD.Mul(c.cfg.FirstTakeProfitMultiplier),
		},
		SecondTakeProfit: domain.ExitOrder{
			Amount:      buyAmount - firstAmount,
			TargetPrice: in.PriceUSD.Mul(c.cfg.SecondTakeProfitMultiplier),
		},
	}, nil
}

// DecimalFromFloat converts a provider float, rejecting NaN and infinities.
func DecimalFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: non-finite value %v", ErrRejected, f)
	}
	return decimal.NewFromFloat(f), nil
}

func decimalFromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
