// Package reporting renders the trade journal as a summary report.
package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/storage"
)

// Generator produces reports from the trade journal.
type Generator struct {
	journal storage.TradeJournal
	now     func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(journal storage.TradeJournal) *Generator {
	return &Generator{
		journal: journal,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads every record and builds the report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	records, err := g.journal.List(ctx)
	if err != nil {
		return nil, err
	}
	return Build(records, g.now()), nil
}

// Build creates a report from records.
func Build(records []*domain.TradeRecord, generatedAt time.Time) *Report {
	r := &Report{
		GeneratedAt: generatedAt,
		Positions:   make([]PositionRow, 0, len(records)),
	}
	r.Summary.BudgetNative = decimal.Zero

	for _, rec := range records {
		if rec == nil {
			continue
		}
		placed := rec.PlacedExitOrders()

		r.Summary.Positions++
		switch rec.Mode {
		case "live":
			r.Summary.LivePositions++
		default:
			r.Summary.PaperPositions++
		}
		r.Summary.BudgetNative = r.Summary.BudgetNative.Add(rec.BudgetNative)
		r.Summary.ExitOrdersPlaced += placed
		r.Summary.ExitOrdersFailed += len(rec.ExitOrders) - placed

		if r.Summary.FirstOpenedAt.IsZero() || rec.OpenedAt.Before(r.Summary.FirstOpenedAt) {
			r.Summary.FirstOpenedAt = rec.OpenedAt
		}
		if rec.OpenedAt.After(r.Summary.LastOpenedAt) {
			r.Summary.LastOpenedAt = rec.OpenedAt
		}

		var watchedFor time.Duration
		if !rec.WatchedSince.IsZero() {
			watchedFor = rec.OpenedAt.Sub(rec.WatchedSince)
		}

		r.Positions = append(r.Positions, PositionRow{
			TradeID:      rec.TradeID,
			Address:      rec.Address,
			Symbol:       rec.Token.Symbol,
			Mode:         rec.Mode,
			OpenedAt:     rec.OpenedAt,
			WatchedFor:   watchedFor,
			EntryPrice:   rec.Plan.EntryPrice,
			BuyAmount:    rec.Plan.BuyAmount,
			BudgetNative: rec.BudgetNative,
			StopLoss:     rec.Plan.StopLoss.TargetPrice,
			TakeProfit1:  rec.Plan.FirstTakeProfit.TargetPrice,
			TakeProfit2:  rec.Plan.SecondTakeProfit.TargetPrice,
			ExitsPlaced:  placed,
		})
	}

	sortPositions(r.Positions)
	return r
}

// sortPositions sorts by (opened_at, address).
func sortPositions(rows []PositionRow) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].OpenedAt.Equal(rows[j].OpenedAt) {
			return rows[i].OpenedAt.Before(rows[j].OpenedAt)
		}
		return rows[i].Address < rows[j].Address
	})
}
