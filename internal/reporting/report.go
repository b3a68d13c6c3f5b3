package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report summarizes the trade journal.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`

	Summary Summary `json:"summary"`

	// Positions sorted by opened_at, then address.
	Positions []PositionRow `json:"positions"`
}

// Summary holds totals across all positions.
type Summary struct {
	Positions        int             `json:"positions"`
	PaperPositions   int             `json:"paper_positions"`
	LivePositions    int             `json:"live_positions"`
	BudgetNative     decimal.Decimal `json:"budget_native"` // SOL committed to buys
	ExitOrdersPlaced int             `json:"exit_orders_placed"`
	ExitOrdersFailed int             `json:"exit_orders_failed"`
	FirstOpenedAt    time.Time       `json:"first_opened_at,omitempty"`
	LastOpenedAt     time.Time       `json:"last_opened_at,omitempty"`
}

// PositionRow is one opened position.
type PositionRow struct {
	TradeID      string          `json:"trade_id"`
	Address      string          `json:"address"`
	Symbol       string          `json:"symbol"`
	Mode         string          `json:"mode"`
	OpenedAt     time.Time       `json:"opened_at"`
	WatchedFor   time.Duration   `json:"watched_for"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	BuyAmount    uint64          `json:"buy_amount"`
	BudgetNative decimal.Decimal `json:"budget_native"`
	StopLoss     decimal.Decimal `json:"stop_loss"`
	TakeProfit1  decimal.Decimal `json:"take_profit_1"`
	TakeProfit2  decimal.Decimal `json:"take_profit_2"`
	ExitsPlaced  int             `json:"exits_placed"` // of 3
}
