package domain

import "github.com/shopspring/decimal"

// ExitKind identifies one of the three exit orders of a plan.
type ExitKind string

const (
	ExitFirstTakeProfit  ExitKind = "FIRST_TAKE_PROFIT"
	ExitStopLoss         ExitKind = "STOP_LOSS"
	ExitSecondTakeProfit ExitKind = "SECOND_TAKE_PROFIT"
)

// ExitOrder is a limit sell of Amount base units at TargetPrice (USD).
type ExitOrder struct {
	Amount      uint64          `json:"amount"`
	TargetPrice decimal.Decimal `json:"target_price"`
}

// ExitPlan is the buy size and exit orders computed for one opened position.
// FirstTakeProfit.Amount + SecondTakeProfit.Amount == BuyAmount.
// StopLoss.Amount == BuyAmount.
type ExitPlan struct {
	EntryPrice       decimal.Decimal `json:"entry_price"`
	BuyAmount        uint64          `json:"buy_amount"` // token base units
	StopLoss         ExitOrder       `json:"stop_loss"`
	FirstTakeProfit  ExitOrder       `json:"first_take_profit"`
	SecondTakeProfit ExitOrder       `json:"second_take_profit"`
}

// PlannedExit pairs an exit order with its kind.
type PlannedExit struct {
	Kind  ExitKind
	Order ExitOrder
}

// ExitOrders returns the exit orders in submission order:
// first take-profit, stop-loss, second take-profit.
func (p *ExitPlan) ExitOrders() []PlannedExit {
	return []PlannedExit{
		{Kind: ExitFirstTakeProfit, Order: p.FirstTakeProfit},
		{Kind: ExitStopLoss, Order: p.StopLoss},
		{Kind: ExitSecondTakeProfit, Order: p.SecondTakeProfit},
	}
}
