package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/executor"
	"solana-signal-trader/internal/exitplan"
	"solana-signal-trader/internal/storage"
	"solana-signal-trader/internal/storage/memory"
	"solana-signal-trader/internal/watchlist"
)

var start = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type tokenData struct {
	details  *domain.TokenDetails
	price    string
	metaErr  error
	priceErr error
	delay    time.Duration
}

type fakeOracle struct {
	mu         sync.Mutex
	tokens     map[string]tokenData
	native     string
	nativeErr  error
	priceCalls map[string]int
	metaCalls  map[string]int
}

func newOracle() *fakeOracle {
	return &fakeOracle{
		tokens:     map[string]tokenData{},
		native:     "150",
		priceCalls: map[string]int{},
		metaCalls:  map[string]int{},
	}
}

func (f *fakeOracle) set(address string, td tokenData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[address] = td
}

func (f *fakeOracle) FetchPrice(_ context.Context, address string) (*domain.PriceData, error) {
	f.mu.Lock()
	f.priceCalls[address]++
	td, ok := f.tokens[address]
	f.mu.Unlock()

	if address == domain.NativeMint {
		if f.nativeErr != nil {
			return nil, f.nativeErr
		}
		return &domain.PriceData{Address: address, Price: decimal.RequireFromString(f.native), FetchedAt: start}, nil
	}
	time.Sleep(td.delay)
	if !ok {
		return nil, errors.New("no price")
	}
	if td.priceErr != nil {
		return nil, td.priceErr
	}
	return &domain.PriceData{
		Address:    address,
		Price:      decimal.RequireFromString(td.price),
		FetchedAt:  start,
		Enrichment: &domain.Enrichment{LiquidityUSD: decPtr("120000")},
	}, nil
}

func (f *fakeOracle) FetchMetadata(_ context.Context, address string) (*domain.TokenDetails, error) {
	f.mu.Lock()
	f.metaCalls[address]++
	td, ok := f.tokens[address]
	f.mu.Unlock()

	if !ok {
		return nil, errors.New("no metadata")
	}
	if td.metaErr != nil {
		return nil, td.metaErr
	}
	return td.details, nil
}

type placed struct {
	kind   string
	amount uint64
}

type fakeExecutor struct {
	mu        sync.Mutex
	orders    []placed
	failBuy   bool
	failKinds map[domain.ExitKind]bool
	seq       int
}

func (f *fakeExecutor) PlaceMarketBuy(_ context.Context, o executor.MarketOrder) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBuy {
		return "", errors.New("insufficient funds")
	}
	f.seq++
	f.orders = append(f.orders, placed{kind: "market", amount: o.Amount})
	return fmt.Sprintf("buy-%d", f.seq), nil
}

func (f *fakeExecutor) PlaceLimitOrder(_ context.Context, o executor.LimitOrder) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, placed{kind: string(o.Kind), amount: o.Amount})
	if f.failKinds[o.Kind] {
		return "", errors.New("order rejected")
	}
	f.seq++
	return fmt.Sprintf("exit-%d", f.seq), nil
}

func (f *fakeExecutor) Mode() string { return executor.ModePaper }

type fakeNotifier struct {
	opened []string
}

func (f *fakeNotifier) PositionOpened(_ context.Context, rec *domain.TradeRecord) error {
	f.opened = append(f.opened, rec.Address)
	return nil
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(v int) *int { return &v }

func details(symbol string, decimals int) *domain.TokenDetails {
	return &domain.TokenDetails{Symbol: symbol, Decimals: intPtr(decimals)}
}

type harness struct {
	ev       *Evaluator
	wl       *watchlist.WatchList
	oracle   *fakeOracle
	exec     *fakeExecutor
	journal  *memory.TradeJournal
	obs      *memory.PriceObservationStore
	notifier *fakeNotifier
	clock    *clock
}

func newHarness(t *testing.T, criteria Criteria, mutate ...func(*Options)) *harness {
	t.Helper()
	clk := &clock{t: start}
	h := &harness{
		wl:       watchlist.New(watchlist.WithClock(clk.Now)),
		oracle:   newOracle(),
		exec:     &fakeExecutor{failKinds: map[domain.ExitKind]bool{}},
		journal:  memory.NewTradeJournal(),
		obs:      memory.NewPriceObservationStore(),
		notifier: &fakeNotifier{},
		clock:    clk,
	}
	calc, err := exitplan.New(exitplan.DefaultConfig())
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()

	opts := Options{
		WatchList:    h.wl,
		Oracle:       h.oracle,
		Executor:     h.exec,
		Journal:      h.journal,
		Calculator:   calc,
		Criteria:     criteria,
		BudgetNative: decimal.RequireFromString("0.05"),
		Observations: h.obs,
		Notifier:     h.notifier,
		Logger:       logger,
		Now:          clk.Now,
	}
	for _, m := range mutate {
		m(&opts)
	}
	h.ev, err = New(opts)
	require.NoError(t, err)
	return h
}

func observed(t *testing.T, h *harness, address string) []*domain.PriceObservation {
	t.Helper()
	obs, err := h.obs.GetByTimeRange(context.Background(), address, 0, math.MaxInt64)
	require.NoError(t, err)
	return obs
}

func TestTick_EmptyWatchList(t *testing.T) {
	h := newHarness(t, Always())
	r := h.ev.Tick(context.Background())
	assert.Empty(t, r.Items)
	assert.Same(t, r, h.ev.LastReport())
}

func TestTick_DropsUnusableTokens(t *testing.T) {
	h := newHarness(t, Always())
	h.oracle.set("metaErr", tokenData{metaErr: errors.New("404"), details: details("A", 6), price: "1"})
	h.oracle.set("priceErr", tokenData{details: details("B", 6), priceErr: errors.New("timeout")})
	h.oracle.set("noDecimals", tokenData{details: &domain.TokenDetails{Symbol: "C"}, price: "1"})
	for _, a := range []string{"metaErr", "priceErr", "noDecimals", "unknown"} {
		h.wl.AddIfAbsent(a)
	}

	r := h.ev.Tick(context.Background())

	require.Len(t, r.Items, 4)
	for _, it := range r.Items {
		assert.Equal(t, StatusDropped, it.Status, it.Address)
		assert.NotEmpty(t, it.Reason)
	}
	assert.Equal(t, 0, h.wl.Len())
	assert.Empty(t, h.exec.orders)
}

func TestTick_AllSettledFetch(t *testing.T) {
	h := newHarness(t, Always())
	// Metadata fails immediately while the price is slow; both must complete.
	h.oracle.set("slow", tokenData{metaErr: errors.New("fast failure"), price: "1", delay: 50 * time.Millisecond})
	h.wl.AddIfAbsent("slow")

	r := h.ev.Tick(context.Background())

	assert.Equal(t, StatusDropped, r.Items[0].Status)
	assert.Equal(t, 1, h.oracle.priceCalls["slow"])
	assert.Equal(t, 1, h.oracle.metaCalls["slow"])
	assert.Len(t, observed(t, h, "slow"), 1, "the slow price is still observed")
}

func TestTick_RetainsThenExpires(t *testing.T) {
	never := Func(func(Candidate) (bool, string) { return false, "no momentum" })
	h := newHarness(t, never)
	h.oracle.set("mintA", tokenData{details: details("A", 6), price: "0.0004"})
	h.wl.AddIfAbsent("mintA")

	r := h.ev.Tick(context.Background())
	assert.Equal(t, StatusRetained, r.Items[0].Status)
	assert.Equal(t, "no momentum", r.Items[0].Reason)
	assert.True(t, h.wl.Contains("mintA"))

	// Exactly at the window boundary the token is kept.
	h.clock.Advance(time.Hour)
	r = h.ev.Tick(context.Background())
	assert.Equal(t, StatusRetained, r.Items[0].Status)

	h.clock.Advance(time.Second)
	r = h.ev.Tick(context.Background())
	assert.Equal(t, StatusExpired, r.Items[0].Status)
	assert.False(t, h.wl.Contains("mintA"))
}

func TestTick_OpensPosition(t *testing.T) {
	h := newHarness(t, Always())
	h.oracle.set("mintA", tokenData{details: details("AAA", 6), price: "0.0004"})
	h.wl.AddIfAbsent("mintA")

	r := h.ev.Tick(context.Background())

	require.Len(t, r.Items, 1)
	item := r.Items[0]
	require.Equal(t, StatusOpened, item.Status, item.Reason)
	assert.False(t, h.wl.Contains("mintA"))

	// Market buy first, then exits in the fixed order.
	require.Len(t, h.exec.orders, 4)
	assert.Equal(t, placed{"market", 18_750_000_000}, h.exec.orders[0])
	assert.Equal(t, placed{string(domain.ExitFirstTakeProfit), 14_062_500_000}, h.exec.orders[1])
	assert.Equal(t, placed{string(domain.ExitStopLoss), 18_750_000_000}, h.exec.orders[2])
	assert.Equal(t, placed{string(domain.ExitSecondTakeProfit), 4_687_500_000}, h.exec.orders[3])

	rec, err := h.journal.Get(context.Background(), "mintA")
	require.NoError(t, err)
	assert.Equal(t, item.Record.TradeID, rec.TradeID)
	assert.Len(t, rec.TradeID, 64)
	assert.Equal(t, "buy-1", rec.MarketOrderID)
	assert.Equal(t, executor.ModePaper, rec.Mode)
	assert.Equal(t, "150", rec.NativeUSDPrice.String())
	assert.Equal(t, "AAA", rec.Token.Symbol)
	assert.True(t, start.Equal(rec.WatchedSince))
	assert.Equal(t, 3, rec.PlacedExitOrders())
	require.NotNil(t, rec.Enrichment)

	assert.Equal(t, []string{"mintA"}, h.notifier.opened)

	obs := observed(t, h, "mintA")
	require.Len(t, obs, 1)
	assert.Equal(t, "AAA", obs[0].Symbol)
	assert.Equal(t, 120000.0, obs[0].LiquidityUSD)
}

func TestTick_ExitOrderFailureRecordedAsAbsent(t *testing.T) {
	h := newHarness(t, Always())
	h.exec.failKinds[domain.ExitStopLoss] = true
	h.oracle.set("mintA", tokenData{details: details("AAA", 6), price: "0.0004"})
	h.wl.AddIfAbsent("mintA")

	r := h.ev.Tick(context.Background())

	require.Equal(t, StatusOpened, r.Items[0].Status)
	rec := r.Items[0].Record
	require.Len(t, rec.ExitOrders, 3)
	assert.Equal(t, domain.ExitFirstTakeProfit, rec.ExitOrders[0].Kind)
	assert.NotNil(t, rec.ExitOrders[0].OrderID)
	assert.Equal(t, domain.ExitStopLoss, rec.ExitOrders[1].Kind)
	assert.Nil(t, rec.ExitOrders[1].OrderID)
	assert.Equal(t, "order rejected", rec.ExitOrders[1].Error)
	assert.Equal(t, domain.ExitSecondTakeProfit, rec.ExitOrders[2].Kind)
	assert.NotNil(t, rec.ExitOrders[2].OrderID, "later exits still submitted")
	assert.Equal(t, 2, rec.PlacedExitOrders())
	assert.False(t, h.wl.Contains("mintA"))
}

func TestTick_BuyFailureRemovesToken(t *testing.T) {
	h := newHarness(t, Always())
	h.exec.failBuy = true
	h.oracle.set("mintA", tokenData{details: details("AAA", 6), price: "0.0004"})
	h.wl.AddIfAbsent("mintA")

	r := h.ev.Tick(context.Background())

	assert.Equal(t, StatusBuyFailed, r.Items[0].Status)
	assert.Contains(t, r.Items[0].Reason, "insufficient funds")
	assert.False(t, h.wl.Contains("mintA"))
	_, err := h.journal.Get(context.Background(), "mintA")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, h.notifier.opened)
}

func TestTick_RejectedPlan(t *testing.T) {
	h := newHarness(t, Always())
	// 40 decimals make the buy amount overflow a u64.
	h.oracle.set("mintA", tokenData{details: details("AAA", 40), price: "0.0004"})
	h.wl.AddIfAbsent("mintA")

	r := h.ev.Tick(context.Background())

	assert.Equal(t, StatusRejected, r.Items[0].Status)
	assert.False(t, h.wl.Contains("mintA"))
	assert.Empty(t, h.exec.orders)
}

func TestTick_NativePriceOncePerTick(t *testing.T) {
	h := newHarness(t, Always())
	for _, a := range []string{"mintA", "mintB", "mintC"} {
		h.oracle.set(a, tokenData{details: details(a, 6), price: "0.0004"})
		h.wl.AddIfAbsent(a)
	}

	r := h.ev.Tick(context.Background())

	assert.Equal(t, 3, r.Count(StatusOpened))
	assert.Equal(t, 1, h.oracle.priceCalls[domain.NativeMint])
}

func TestTick_NativePriceFailureDefers(t *testing.T) {
	h := newHarness(t, Always())
	h.oracle.nativeErr = errors.New("price api down")
	h.oracle.set("mintA", tokenData{details: details("AAA", 6), price: "0.0004"})
	h.wl.AddIfAbsent("mintA")

	r := h.ev.Tick(context.Background())

	assert.Equal(t, StatusRetained, r.Items[0].Status)
	assert.True(t, h.wl.Contains("mintA"))
	assert.Empty(t, h.exec.orders)
}

func TestTick_NativePriceFailureStillExpires(t *testing.T) {
	h := newHarness(t, Always())
	h.oracle.nativeErr = errors.New("price api down")
	h.oracle.set("mintA", tokenData{details: details("AAA", 6), price: "0.0004"})
	h.wl.AddIfAbsent("mintA")
	h.clock.Advance(time.Hour + time.Second)

	r := h.ev.Tick(context.Background())

	assert.Equal(t, StatusExpired, r.Items[0].Status)
	assert.False(t, h.wl.Contains("mintA"))
}

func TestTick_SnapshotOrder(t *testing.T) {
	h := newHarness(t, Always())
	addrs := []string{"mint3", "mint1", "mint2"}
	for i, a := range addrs {
		// Later tokens answer faster; decisions still follow the snapshot.
		h.oracle.set(a, tokenData{details: details(a, 6), price: "0.0004", delay: time.Duration(len(addrs)-i) * 5 * time.Millisecond})
		h.wl.AddIfAbsent(a)
	}

	r := h.ev.Tick(context.Background())

	require.Len(t, r.Items, 3)
	for i, a := range addrs {
		assert.Equal(t, a, r.Items[i].Address)
	}
	journaled, err := h.journal.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, journaled, 3)
}

func TestTick_SkipsWhenLockHeld(t *testing.T) {
	locker := memory.NewLocker()
	h := newHarness(t, Always(), func(o *Options) { o.Locker = locker })
	h.oracle.set("mintA", tokenData{details: details("AAA", 6), price: "0.0004"})
	h.wl.AddIfAbsent("mintA")

	unlock, err := locker.Acquire(context.Background(), LockKey, time.Minute)
	require.NoError(t, err)

	r := h.ev.Tick(context.Background())
	assert.True(t, r.Skipped)
	assert.True(t, h.wl.Contains("mintA"))

	unlock()
	r = h.ev.Tick(context.Background())
	assert.False(t, r.Skipped)
	assert.Equal(t, 1, r.Count(StatusOpened))

	// The tick released its own lock.
	again, err := locker.Acquire(context.Background(), LockKey, time.Minute)
	require.NoError(t, err)
	again()
}

func TestTick_ConcurrentEnrichment(t *testing.T) {
	h := newHarness(t, Func(func(Candidate) (bool, string) { return false, "" }), func(o *Options) { o.Concurrency = 4 })

	var inflight, peak atomic.Int32
	for i := 0; i < 8; i++ {
		a := fmt.Sprintf("mint%d", i)
		h.oracle.set(a, tokenData{details: details(a, 6), price: "1", delay: 20 * time.Millisecond})
		h.wl.AddIfAbsent(a)
	}
	h.ev.oracle = &peakOracle{inner: h.oracle, inflight: &inflight, peak: &peak}

	r := h.ev.Tick(context.Background())

	assert.Equal(t, 8, r.Count(StatusRetained))
	assert.Greater(t, peak.Load(), int32(1))
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

// peakOracle tracks how many tokens have a price fetch in flight.
type peakOracle struct {
	inner    *fakeOracle
	inflight *atomic.Int32
	peak     *atomic.Int32
}

func (p *peakOracle) FetchPrice(ctx context.Context, address string) (*domain.PriceData, error) {
	n := p.inflight.Add(1)
	defer p.inflight.Add(-1)
	for {
		cur := p.peak.Load()
		if n <= cur || p.peak.CompareAndSwap(cur, n) {
			break
		}
	}
	return p.inner.FetchPrice(ctx, address)
}

func (p *peakOracle) FetchMetadata(ctx context.Context, address string) (*domain.TokenDetails, error) {
	return p.inner.FetchMetadata(ctx, address)
}

func TestNew_Validation(t *testing.T) {
	calc, err := exitplan.New(exitplan.DefaultConfig())
	require.NoError(t, err)

	_, err = New(Options{})
	assert.Error(t, err)

	_, err = New(Options{
		WatchList:  watchlist.New(),
		Oracle:     newOracle(),
		Executor:   &fakeExecutor{},
		Journal:    memory.NewTradeJournal(),
		Calculator: calc,
		Criteria:   Always(),
	})
	assert.ErrorContains(t, err, "budget")
}
