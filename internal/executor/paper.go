package executor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"solana-signal-trader/internal/observability"
)

// PaperOrder is an order accepted by the paper executor.
type PaperOrder struct {
	ID       string
	Kind     string // "market" or an exit kind
	Address  string
	Amount   uint64
	PlacedAt time.Time
}

// Paper accepts every valid order without touching the chain.
type Paper struct {
	log logrus.FieldLogger
	now func() time.Time

	mu     sync.Mutex
	orders []PaperOrder
}

var _ Executor = (*Paper)(nil)

// NewPaper creates a paper executor.
func NewPaper(log logrus.FieldLogger) *Paper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Paper{log: log.WithField("component", "executor-paper"), now: time.Now}
}

// Mode returns ModePaper.
func (p *Paper) Mode() string { return ModePaper }

// PlaceMarketBuy records a simulated buy.
func (p *Paper) PlaceMarketBuy(_ context.Context, order MarketOrder) (string, error) {
	if err := order.validate(); err != nil {
		observability.RecordOrder("market", err)
		return "", err
	}
	id := p.record("market", order.Address, order.Amount)
	observability.RecordOrder("market", nil)
	p.log.WithFields(logrus.Fields{"address": order.Address, "amount": order.Amount, "order_id": id}).Info("paper market buy")
	return id, nil
}

// PlaceLimitOrder records a simulated exit order.
func (p *Paper) PlaceLimitOrder(_ context.Context, order LimitOrder) (string, error) {
	if _, err := order.OutLamports(); err != nil {
		observability.RecordOrder(string(order.Kind), err)
		return "", err
	}
	id := p.record(string(order.Kind), order.Address, order.Amount)
	observability.RecordOrder(string(order.Kind), nil)
	p.log.WithFields(logrus.Fields{
		"address":  order.Address,
		"kind":     order.Kind,
		"amount":   order.Amount,
		"target":   order.TargetPriceUSD.String(),
		"order_id": id,
	}).Info("paper limit order")
	return id, nil
}

// Orders returns the accepted orders in placement order.
func (p *Paper) Orders() []PaperOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PaperOrder(nil), p.orders...)
}

// OrdersFor returns the accepted orders of one token.
func (p *Paper) OrdersFor(address string) []PaperOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []PaperOrder
	for _, o := range p.orders {
		if o.Address == address {
			out = append(out, o)
		}
	}
	return out
}

func (p *Paper) record(kind, address string, amount uint64) string {
	id := "paper-" + uuid.New().String()
	p.mu.Lock()
	p.orders = append(p.orders, PaperOrder{ID: id, Kind: kind, Address: address, Amount: amount, PlacedAt: p.now()})
	p.mu.Unlock()
	return id
}
