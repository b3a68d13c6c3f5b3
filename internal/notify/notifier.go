// Package notify tells the operator about opened positions.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"solana-signal-trader/internal/domain"
)

// Sender delivers one notification.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans position notifications out to every sender. A failing sender
// does not stop delivery to the others.
type Notifier struct {
	senders []Sender
	log     logrus.FieldLogger
}

// NewNotifier creates a Notifier. With no senders it only logs.
func NewNotifier(log logrus.FieldLogger, senders ...Sender) *Notifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Notifier{senders: senders, log: log.WithField("component", "notifier")}
}

// PositionOpened announces a journaled position.
func (n *Notifier) PositionOpened(ctx context.Context, rec *domain.TradeRecord) error {
	title, message := FormatPosition(rec)
	n.log.WithFields(logrus.Fields{
		"address":    rec.Address,
		"symbol":     rec.Token.Symbol,
		"mode":       rec.Mode,
		"buy_amount": rec.Plan.BuyAmount,
	}).Info(title)

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.log.WithError(err).WithField("sender", s.Name()).Error("sender failed")
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// FormatPosition renders the title and body of a position notification.
func FormatPosition(rec *domain.TradeRecord) (string, string) {
	symbol := rec.Token.Symbol
	if symbol == "" {
		symbol = rec.Address
	}
	title := fmt.Sprintf("Opened %s position in %s", rec.Mode, symbol)

	var b strings.Builder
	fmt.Fprintf(&b, "Token: %s\n", rec.Address)
	fmt.Fprintf(&b, "Entry: $%s, bought %d units for %s SOL\n", rec.Plan.EntryPrice, rec.Plan.BuyAmount, rec.BudgetNative)
	for _, o := range rec.ExitOrders {
		status := "placed"
		if o.OrderID == nil {
			status = "failed: " + o.Error
		}
		fmt.Fprintf(&b, "%s: %d @ $%s (%s)\n", o.Kind, o.Amount, o.TargetPrice, status)
	}
	fmt.Fprintf(&b, "Market order: %s", rec.MarketOrderID)
	return title, b.String()
}
