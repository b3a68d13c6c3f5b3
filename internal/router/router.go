// Package router turns chat events into watch-list entries.
package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-signal-trader/internal/chat"
	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/idhash"
	"solana-signal-trader/internal/observability"
	"solana-signal-trader/internal/parser"
	"solana-signal-trader/internal/solana"
)

// Outcome is the terminal state of one handled event.
type Outcome string

const (
	OutcomeAdded      Outcome = "added"
	OutcomeDuplicate  Outcome = "duplicate"
	DroppedSender     Outcome = "dropped_sender"
	DroppedUnparsed   Outcome = "dropped_unparsed"
	DroppedNotBuy     Outcome = "dropped_not_buy"
	DroppedUnresolved Outcome = "dropped_unresolved"
)

// Dropped reports whether the event was discarded before reaching the watch-list.
func (o Outcome) Dropped() bool {
	return o != OutcomeAdded && o != OutcomeDuplicate
}

// AddressResolver maps a ticker to its mint.
type AddressResolver interface {
	ResolveBySymbol(ctx context.Context, symbol string) (*domain.TokenInfo, error)
}

// WatchList is the subset of the watch-list the router mutates.
type WatchList interface {
	AddIfAbsent(address string) bool
	Len() int
}

// Result describes how an event was handled.
type Result struct {
	Outcome  Outcome
	SignalID string // correlates the log lines of one event
	Sender   string
	Symbol   string
	Address  string
	Reason   string
}

// Options configures a Router.
type Options struct {
	WatchList WatchList
	Resolver  AddressResolver
	// SignalSenders are chat ids of swap-feed bots.
	SignalSenders []string
	// TrendSenders are chat ids of trending-alert bots.
	TrendSenders []string
	// NativeSymbol is the ticker a buy must be paid with. Defaults to SOL.
	NativeSymbol string
	Logger       logrus.FieldLogger
}

// Router classifies chat events and feeds buy signals into the watch-list.
type Router struct {
	watchList    WatchList
	resolver     AddressResolver
	signals      map[string]struct{}
	trends       map[string]struct{}
	nativeSymbol string
	log          logrus.FieldLogger
}

// New creates a Router.
func New(opts Options) (*Router, error) {
	if opts.WatchList == nil {
		return nil, errors.New("router: watch list is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("router: address resolver is required")
	}
	if opts.NativeSymbol == "" {
		opts.NativeSymbol = domain.NativeSymbol
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &Router{
		watchList:    opts.WatchList,
		resolver:     opts.Resolver,
		signals:      toSet(opts.SignalSenders),
		trends:       toSet(opts.TrendSenders),
		nativeSymbol: opts.NativeSymbol,
		log:          opts.Logger.WithField("component", "router"),
	}, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// Handle runs one event through the routing state machine. It never fails:
// every problem ends in a dropped outcome that is logged and counted.
func (r *Router) Handle(ctx context.Context, event chat.Event) Result {
	observability.RecordChatEvent()

	var res Result
	switch {
	case r.isSignalSender(event.SenderID):
		res = r.handleSignal(ctx, event)
	case r.isTrendSender(event.SenderID):
		res = r.handleTrend(ctx, event)
	default:
		res = Result{Outcome: DroppedSender, Reason: "sender not allow-listed"}
	}
	res.Sender = event.SenderID
	res.SignalID = idhash.ComputeSignalID(event.SenderID, event.ReceivedAt.UnixMilli(), event.Text)

	r.report(res)
	return res
}

func (r *Router) isSignalSender(id string) bool {
	_, ok := r.signals[id]
	return ok
}

func (r *Router) isTrendSender(id string) bool {
	_, ok := r.trends[id]
	return ok
}

func (r *Router) handleSignal(ctx context.Context, event chat.Event) Result {
	intent := parser.Parse(event.Text)
	if intent == nil {
		return Result{Outcome: DroppedUnparsed, Reason: "message is not a trade intent"}
	}

	var swap *domain.Swap
	switch v := intent.(type) {
	case *domain.Swap:
		swap = v
	case *domain.Transfer:
		return Result{Outcome: DroppedNotBuy, Symbol: v.TokenSymbol, Reason: "transfer"}
	case *domain.Receive:
		return Result{Outcome: DroppedNotBuy, Symbol: v.TokenSymbol, Reason: "receive"}
	default:
		return Result{Outcome: DroppedUnparsed, Reason: fmt.Sprintf("unexpected intent %T", intent)}
	}

	if !parser.IsBuySignal(swap, r.nativeSymbol) {
		return Result{
			Outcome: DroppedNotBuy,
			Symbol:  swap.BaseSymbol,
			Reason:  fmt.Sprintf("paid with %q", swap.QuoteSymbol),
		}
	}

	address := swap.Address
	if !solana.IsValidAddress(address) {
		if swap.BaseSymbol == "" {
			return Result{Outcome: DroppedUnresolved, Reason: "swap has no base token"}
		}
		info, err := r.resolver.ResolveBySymbol(ctx, swap.BaseSymbol)
		if err != nil {
			return Result{Outcome: DroppedUnresolved, Symbol: swap.BaseSymbol, Reason: err.Error()}
		}
		address = info.Address
	}

	return r.add(swap.BaseSymbol, address)
}

func (r *Router) handleTrend(ctx context.Context, event chat.Event) Result {
	symbol, ok := parser.ParseTrendingAlert(event.Text)
	if !ok {
		return Result{Outcome: DroppedUnparsed, Reason: "not a trending alert"}
	}

	info, err := r.resolver.ResolveBySymbol(ctx, symbol)
	if err != nil {
		return Result{Outcome: DroppedUnresolved, Symbol: symbol, Reason: err.Error()}
	}
	return r.add(symbol, info.Address)
}

func (r *Router) add(symbol, address string) Result {
	if address == "" {
		return Result{Outcome: DroppedUnresolved, Symbol: symbol, Reason: "empty address"}
	}
	if !r.watchList.AddIfAbsent(address) {
		return Result{Outcome: OutcomeDuplicate, Symbol: symbol, Address: address}
	}
	observability.UpdateWatchListSize(r.watchList.Len())
	return Result{Outcome: OutcomeAdded, Symbol: symbol, Address: address}
}

func (r *Router) report(res Result) {
	observability.RecordSignalOutcome(string(res.Outcome))

	entry := r.log.WithFields(logrus.Fields{
		"signal_id": res.SignalID,
		"sender":    res.Sender,
		"outcome":   res.Outcome,
	})
	if res.Symbol != "" {
		entry = entry.WithField("symbol", res.Symbol)
	}
	if res.Address != "" {
		entry = entry.WithField("address", res.Address)
	}
	if res.Reason != "" {
		entry = entry.WithField("reason", res.Reason)
	}

	switch res.Outcome {
	case OutcomeAdded:
		entry.Info("token added to watch list")
	case OutcomeDuplicate:
		entry.Debug("token already watched")
	case DroppedSender:
		entry.Trace("event dropped")
	default:
		entry.Debug("event dropped")
	}
}

// Run handles events from source one at a time until ctx is done or the
// source closes its channel.
func (r *Router) Run(ctx context.Context, source chat.Source) error {
	events, err := source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to chat: %w", err)
	}

	r.log.Info("listening for chat events")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("chat source closed")
			}
			r.Handle(ctx, event)
		}
	}
}
