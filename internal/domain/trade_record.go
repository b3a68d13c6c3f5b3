package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExitOrderResult is the outcome of submitting one exit order.
// OrderID is nil when submission failed; Error then holds the reason.
type ExitOrderResult struct {
	Kind        ExitKind        `json:"kind"`
	Amount      uint64          `json:"amount"`
	TargetPrice decimal.Decimal `json:"target_price"`
	OrderID     *string         `json:"order_id"`
	Error       string          `json:"error,omitempty"`
}

// TradeRecord is the full computed record of an opened position.
// Stored in the trade journal keyed by token address; a later record for the
// same address replaces the earlier one.
type TradeRecord struct {
	TradeID        string            `json:"trade_id"` // deterministic hash
	Address        string            `json:"address"`  // token mint
	Token          TokenDetails      `json:"token"`
	Mode           string            `json:"mode"` // "paper" | "live"
	WatchedSince   time.Time         `json:"watched_since"`
	OpenedAt       time.Time         `json:"opened_at"`
	NativeUSDPrice decimal.Decimal   `json:"native_usd_price"`
	BudgetNative   decimal.Decimal   `json:"budget_native"`
	Plan           ExitPlan          `json:"plan"`
	MarketOrderID  string            `json:"market_order_id"`
	ExitOrders     []ExitOrderResult `json:"exit_orders"` // TP1, SL, TP2
	Enrichment     *Enrichment       `json:"enrichment,omitempty"`
}

// PlacedExitOrders returns the number of exit orders that were accepted.
func (r *TradeRecord) PlacedExitOrders() int {
	n := 0
	for _, o := range r.ExitOrders {
		if o.OrderID != nil {
			n++
		}
	}
	return n
}
