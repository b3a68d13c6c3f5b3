package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-signal-trader/internal/chat"
	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/watchlist"
)

const (
	signalBot = "5347402666"
	trendBot  = "240044026"

	bonkMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	wifMint  = "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm"
)

type stubResolver struct {
	mu      sync.Mutex
	tokens  map[string]string
	lookups []string
}

func (s *stubResolver) ResolveBySymbol(_ context.Context, symbol string) (*domain.TokenInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, symbol)
	addr, ok := s.tokens[symbol]
	if !ok {
		return nil, errors.New("symbol not found")
	}
	return &domain.TokenInfo{Address: addr, Symbol: symbol, Decimals: 6}, nil
}

func newRouter(t *testing.T, resolver *stubResolver) (*Router, *watchlist.WatchList) {
	t.Helper()
	wl := watchlist.New()
	logger, _ := test.NewNullLogger()
	r, err := New(Options{
		WatchList:     wl,
		Resolver:      resolver,
		SignalSenders: []string{signalBot},
		TrendSenders:  []string{trendBot},
		Logger:        logger,
	})
	require.NoError(t, err)
	return r, wl
}

func event(sender, text string) chat.Event {
	return chat.Event{SenderID: sender, Text: text, ReceivedAt: time.Now()}
}

func TestHandle_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		event   chat.Event
		outcome Outcome
		address string
	}{
		{
			name:    "unknown sender",
			event:   event("42", "#3xQp...7Lmn\nSwapped 1 #SOL ($150) for 100 #WIF @ $1.5"),
			outcome: DroppedSender,
		},
		{
			name:    "not an intent",
			event:   event(signalBot, "hello there"),
			outcome: DroppedUnparsed,
		},
		{
			name:    "sell side swap",
			event:   event(signalBot, "#13H2...iGJK\nSwapped 545,950.88 #RUFF ($2,172.78) for 13.79 #SOL @ $0.0040"),
			outcome: DroppedNotBuy,
		},
		{
			name:    "transfer",
			event:   event(signalBot, "#Wh4l...e123\nTransferred: 1,250.5 #BONK ($12.34) to 9xQe...Fk2L"),
			outcome: DroppedNotBuy,
		},
		{
			name:    "receive",
			event:   event(signalBot, "#Wh4l...e123\nReceived: 3.2 #SOL ($480.00) from Binance.Hot"),
			outcome: DroppedNotBuy,
		},
		{
			name:    "buy with address line",
			event:   event(signalBot, "#3xQp...7Lmn\n⭐️ Swapped 0.5 #SOL ($75) for 2,889.82 #BONK @ $0.000052\n`"+bonkMint+"`"),
			outcome: OutcomeAdded,
			address: bonkMint,
		},
		{
			name:    "buy resolved by symbol",
			event:   event(signalBot, "#3xQp...7Lmn\nSwapped 1 #SOL ($150) for 100 #WIF @ $1.5"),
			outcome: OutcomeAdded,
			address: wifMint,
		},
		{
			name:    "buy with unknown symbol",
			event:   event(signalBot, "#3xQp...7Lmn\nSwapped 1 #SOL ($150) for 100 #NOPE @ $1.5"),
			outcome: DroppedUnresolved,
		},
		{
			name:    "trending alert",
			event:   event(trendBot, "Trending New TVL - WIF - 1.2M"),
			outcome: OutcomeAdded,
			address: wifMint,
		},
		{
			name:    "trending alert unknown symbol",
			event:   event(trendBot, "Trending New TVL - NOPE - 10K"),
			outcome: DroppedUnresolved,
		},
		{
			name:    "trend bot chatter",
			event:   event(trendBot, "daily digest"),
			outcome: DroppedUnparsed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &stubResolver{tokens: map[string]string{"WIF": wifMint}}
			r, wl := newRouter(t, resolver)

			res := r.Handle(context.Background(), tt.event)

			assert.Equal(t, tt.outcome, res.Outcome, "reason: %s", res.Reason)
			assert.Equal(t, tt.event.SenderID, res.Sender)
			if tt.address != "" {
				assert.Equal(t, tt.address, res.Address)
				assert.True(t, wl.Contains(tt.address))
			} else {
				assert.Equal(t, 0, wl.Len())
			}
		})
	}
}

func TestHandle_AddressLineSkipsResolver(t *testing.T) {
	resolver := &stubResolver{tokens: map[string]string{"BONK": "ShouldNotBeUsed"}}
	r, _ := newRouter(t, resolver)

	res := r.Handle(context.Background(), event(signalBot,
		"#3xQp...7Lmn\nSwapped 0.5 #SOL ($75) for 2,889.82 #BONK @ $0.000052\n"+bonkMint))

	assert.Equal(t, OutcomeAdded, res.Outcome)
	assert.Equal(t, bonkMint, res.Address)
	assert.Empty(t, resolver.lookups)
}

func TestHandle_InvalidAddressLineFallsBackToSymbol(t *testing.T) {
	resolver := &stubResolver{tokens: map[string]string{"WIF": wifMint}}
	r, _ := newRouter(t, resolver)

	// 44 characters but '0' and 'O' are outside the base58 alphabet.
	res := r.Handle(context.Background(), event(signalBot,
		"#3xQp...7Lmn\nSwapped 1 #SOL ($150) for 100 #WIF @ $1.5\n0OxxAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"))

	assert.Equal(t, OutcomeAdded, res.Outcome)
	assert.Equal(t, wifMint, res.Address)
	assert.Equal(t, []string{"WIF"}, resolver.lookups)
}

func TestHandle_Duplicate(t *testing.T) {
	resolver := &stubResolver{tokens: map[string]string{"WIF": wifMint}}
	r, wl := newRouter(t, resolver)

	msg := event(signalBot, "#3xQp...7Lmn\nSwapped 1 #SOL ($150) for 100 #WIF @ $1.5")
	assert.Equal(t, OutcomeAdded, r.Handle(context.Background(), msg).Outcome)
	assert.Equal(t, OutcomeDuplicate, r.Handle(context.Background(), msg).Outcome)
	assert.Equal(t, 1, wl.Len())
}

func TestOutcome_Dropped(t *testing.T) {
	assert.False(t, OutcomeAdded.Dropped())
	assert.False(t, OutcomeDuplicate.Dropped())
	assert.True(t, DroppedSender.Dropped())
	assert.True(t, DroppedUnresolved.Dropped())
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{Resolver: &stubResolver{}})
	assert.Error(t, err)

	_, err = New(Options{WatchList: watchlist.New()})
	assert.Error(t, err)
}

type chanSource struct {
	events chan chat.Event
	err    error
}

func (s *chanSource) Subscribe(context.Context) (<-chan chat.Event, error) {
	return s.events, s.err
}

func TestRun_ProcessesInOrderUntilClosed(t *testing.T) {
	resolver := &stubResolver{tokens: map[string]string{"WIF": wifMint, "BONK": bonkMint}}
	r, wl := newRouter(t, resolver)

	src := &chanSource{events: make(chan chat.Event, 3)}
	src.events <- event(signalBot, "#3xQp...7Lmn\nSwapped 1 #SOL ($150) for 100 #WIF @ $1.5")
	src.events <- event("42", "noise")
	src.events <- event(trendBot, "Trending New TVL - BONK - 900K")
	close(src.events)

	err := r.Run(context.Background(), src)
	assert.Error(t, err)

	all := wl.All()
	require.Len(t, all, 2)
	assert.Equal(t, wifMint, all[0].Address)
	assert.Equal(t, bonkMint, all[1].Address)
}

func TestRun_StopsOnCancel(t *testing.T) {
	resolver := &stubResolver{}
	r, _ := newRouter(t, resolver)
	src := &chanSource{events: make(chan chat.Event)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, src) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_SubscribeError(t *testing.T) {
	r, _ := newRouter(t, &stubResolver{})
	err := r.Run(context.Background(), &chanSource{err: errors.New("dial failed")})
	assert.ErrorContains(t, err, "dial failed")
}
