// Package evaluator decides, on every tick, which watched tokens to buy and
// opens their positions.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/executor"
	"solana-signal-trader/internal/exitplan"
	"solana-signal-trader/internal/idhash"
	"solana-signal-trader/internal/observability"
	"solana-signal-trader/internal/storage"
)

// DefaultWatchExpiry is how long a token may wait for a match.
const DefaultWatchExpiry = time.Hour

// LockKey is the storage.Locker key held for the duration of a tick.
const LockKey = "evaluate"

// PriceOracle supplies token metadata and prices.
type PriceOracle interface {
	FetchPrice(ctx context.Context, address string) (*domain.PriceData, error)
	FetchMetadata(ctx context.Context, address string) (*domain.TokenDetails, error)
}

// OrderExecutor places the buy and the exit orders.
type OrderExecutor interface {
	PlaceMarketBuy(ctx context.Context, order executor.MarketOrder) (string, error)
	PlaceLimitOrder(ctx context.Context, order executor.LimitOrder) (string, error)
	Mode() string
}

// WatchList is the subset of the watch-list the evaluator uses.
type WatchList interface {
	All() []domain.WatchedToken
	Remove(address string) bool
	Len() int
}

// Notifier announces opened positions.
type Notifier interface {
	PositionOpened(ctx context.Context, rec *domain.TradeRecord) error
}

// Status is the outcome of one token in a tick.
type Status string

const (
	StatusOpened    Status = "opened"
	StatusRetained  Status = "retained"
	StatusExpired   Status = "expired"
	StatusDropped   Status = "dropped"
	StatusRejected  Status = "rejected"
	StatusBuyFailed Status = "buy_failed"
)

// ItemResult is the outcome of one watched token.
type ItemResult struct {
	Address string             `json:"address"`
	Status  Status             `json:"status"`
	Reason  string             `json:"reason,omitempty"`
	Record  *domain.TradeRecord `json:"record,omitempty"`
}

// Report summarizes one tick.
type Report struct {
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Skipped    bool         `json:"skipped,omitempty"` // another instance held the lock
	Items      []ItemResult `json:"items"`
}

// Count returns the number of items with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, it := range r.Items {
		if it.Status == s {
			n++
		}
	}
	return n
}

// Options configures an Evaluator.
type Options struct {
	WatchList  WatchList
	Oracle     PriceOracle
	Executor   OrderExecutor
	Journal    storage.TradeJournal
	Calculator *exitplan.Calculator
	Criteria   Criteria

	// BudgetNative is the SOL spent per position.
	BudgetNative decimal.Decimal
	WatchExpiry  time.Duration
	// Concurrency bounds how many tokens are enriched at once.
	Concurrency int

	// Optional collaborators.
	Observations storage.PriceObservationStore
	Notifier     Notifier
	Locker       storage.Locker
	LockTTL      time.Duration

	Logger logrus.FieldLogger
	Now    func() time.Time
}

// Evaluator runs evaluation ticks. Callers must not run Tick concurrently;
// scheduler.Job guarantees that.
type Evaluator struct {
	watchList    WatchList
	oracle       PriceOracle
	executor     OrderExecutor
	journal      storage.TradeJournal
	calc         *exitplan.Calculator
	criteria     Criteria
	budget       decimal.Decimal
	expiry       time.Duration
	concurrency  int
	observations storage.PriceObservationStore
	notifier     Notifier
	locker       storage.Locker
	lockTTL      time.Duration
	log          logrus.FieldLogger
	now          func() time.Time

	mu   sync.Mutex
	last *Report
}

// New creates an Evaluator.
func New(opts Options) (*Evaluator, error) {
	switch {
	case opts.WatchList == nil:
		return nil, errors.New("evaluator: watch list is required")
	case opts.Oracle == nil:
		return nil, errors.New("evaluator: oracle is required")
	case opts.Executor == nil:
		return nil, errors.New("evaluator: executor is required")
	case opts.Journal == nil:
		return nil, errors.New("evaluator: journal is required")
	case opts.Calculator == nil:
		return nil, errors.New("evaluator: exit plan calculator is required")
	case opts.Criteria == nil:
		return nil, errors.New("evaluator: criteria is required")
	}
	if !opts.BudgetNative.IsPositive() {
		return nil, fmt.Errorf("evaluator: budget must be positive, got %s", opts.BudgetNative)
	}
	if opts.WatchExpiry <= 0 {
		opts.WatchExpiry = DefaultWatchExpiry
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Evaluator{
		watchList:    opts.WatchList,
		oracle:       opts.Oracle,
		executor:     opts.Executor,
		journal:      opts.Journal,
		calc:         opts.Calculator,
		criteria:     opts.Criteria,
		budget:       opts.BudgetNative,
		expiry:       opts.WatchExpiry,
		concurrency:  opts.Concurrency,
		observations: opts.Observations,
		notifier:     opts.Notifier,
		locker:       opts.Locker,
		lockTTL:      opts.LockTTL,
		log:          opts.Logger.WithField("component", "evaluator"),
		now:          opts.Now,
	}, nil
}

// Run adapts Tick to scheduler.Func.
func (e *Evaluator) Run(ctx context.Context) error {
	e.Tick(ctx)
	return nil
}

// LastReport returns the report of the most recent tick, nil before the first.
func (e *Evaluator) LastReport() *Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// enriched is the all-settled result of both fetches for one token.
type enriched struct {
	details  *domain.TokenDetails
	price    *domain.PriceData
	metaErr  error
	priceErr error
}

// Tick evaluates a snapshot of the watch-list. Tokens are enriched
// concurrently; decisions and orders are processed one token at a time in
// snapshot order.
func (e *Evaluator) Tick(ctx context.Context) *Report {
	report := &Report{StartedAt: e.now()}
	defer func() {
		report.FinishedAt = e.now()
		observability.RecordTick(report.FinishedAt.Sub(report.StartedAt))
		observability.UpdateWatchListSize(e.watchList.Len())
		e.mu.Lock()
		e.last = report
		e.mu.Unlock()
	}()

	if e.locker != nil {
		unlock, err := e.locker.Acquire(ctx, LockKey, e.lockTTL)
		if err != nil {
			if !errors.Is(err, storage.ErrLockHeld) {
				e.log.WithError(err).Warn("evaluation lock unavailable")
			}
			report.Skipped = true
			return report
		}
		defer unlock()
	}

	snapshot := e.watchList.All()
	if len(snapshot) == 0 {
		return report
	}

	data := e.enrich(ctx, snapshot)
	e.observe(ctx, snapshot, data)

	t := &tick{e: e, now: report.StartedAt}
	for i, token := range snapshot {
		res := t.decide(ctx, token, data[i])
		observability.RecordTokenResult(string(res.Status))
		if res.Status != StatusRetained {
			e.watchList.Remove(token.Address)
		}
		report.Items = append(report.Items, res)
	}

	e.log.WithFields(logrus.Fields{
		"tokens":   len(snapshot),
		"opened":   report.Count(StatusOpened),
		"retained": report.Count(StatusRetained),
	}).Debug("tick finished")
	return report
}

// enrich fetches metadata and price of every token. The two fetches of one
// token are joined all-settled.
func (e *Evaluator) enrich(ctx context.Context, snapshot []domain.WatchedToken) []enriched {
	out := make([]enriched, len(snapshot))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, token := range snapshot {
		i, address := i, token.Address
		g.Go(func() error {
			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				out[i].details, out[i].metaErr = e.oracle.FetchMetadata(ctx, address)
			}()
			go func() {
				defer wg.Done()
				out[i].price, out[i].priceErr = e.oracle.FetchPrice(ctx, address)
			}()
			wg.Wait()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// observe stores a price sample for every token that has a price.
func (e *Evaluator) observe(ctx context.Context, snapshot []domain.WatchedToken, data []enriched) {
	if e.observations == nil {
		return
	}

	var obs []*domain.PriceObservation
	for i, token := range snapshot {
		p := data[i].price
		if data[i].priceErr != nil || p == nil {
			continue
		}
		o := &domain.PriceObservation{
			Address:      token.Address,
			ObservedAtMs: p.FetchedAt.UnixMilli(),
			PriceUSD:     p.Price.InexactFloat64(),
		}
		if d := data[i].details; d != nil {
			o.Symbol = d.Symbol
		}
		if en := p.Enrichment; en != nil {
			if en.Volume24hUSD != nil {
				o.VolumeUSD = en.Volume24hUSD.InexactFloat64()
			}
			if en.LiquidityUSD != nil {
				o.LiquidityUSD = en.LiquidityUSD.InexactFloat64()
			}
		}
		obs = append(obs, o)
	}
	if len(obs) == 0 {
		return
	}
	if err := e.observations.InsertBulk(ctx, obs); err != nil {
		e.log.WithError(err).WithField("count", len(obs)).Warn("failed to record price observations")
	}
}

// tick holds per-tick state shared by the sequential decisions.
type tick struct {
	e   *Evaluator
	now time.Time

	nativeFetched bool
	nativePrice   decimal.Decimal
	nativeErr     error
}

// native fetches the SOL price at most once per tick.
func (t *tick) native(ctx context.Context) (decimal.Decimal, error) {
	if !t.nativeFetched {
		t.nativeFetched = true
		p, err := t.e.oracle.FetchPrice(ctx, domain.NativeMint)
		if err != nil {
			t.nativeErr = err
		} else {
			t.nativePrice = p.Price
		}
	}
	return t.nativePrice, t.nativeErr
}

func (t *tick) decide(ctx context.Context, token domain.WatchedToken, data enriched) ItemResult {
	e := t.e
	log := e.log.WithField("address", token.Address)
	res := ItemResult{Address: token.Address}

	switch {
	case data.metaErr != nil:
		res.Status, res.Reason = StatusDropped, "metadata: "+data.metaErr.Error()
	case data.priceErr != nil:
		res.Status, res.Reason = StatusDropped, "price: "+data.priceErr.Error()
	case data.details == nil || data.details.Decimals == nil:
		res.Status, res.Reason = StatusDropped, "decimals unknown"
	case data.price == nil || !data.price.Price.IsPositive():
		res.Status, res.Reason = StatusDropped, "price unknown"
	}
	if res.Status != "" {
		log.WithField("reason", res.Reason).Info("dropping token")
		return res
	}

	candidate := Candidate{
		Address:      token.Address,
		WatchedSince: token.AddedAt,
		Details:      data.details,
		Price:        data.price,
	}
	if ok, reason := e.criteria.Match(candidate); !ok {
		if token.Age(t.now) <= e.expiry {
			return ItemResult{Address: token.Address, Status: StatusRetained, Reason: reason}
		}
		log.WithField("reason", reason).Info("watch expired without a match")
		return ItemResult{Address: token.Address, Status: StatusExpired, Reason: reason}
	}

	nativeUSD, err := t.native(ctx)
	if err != nil {
		// The token is not at fault; it stays until the next tick or expiry.
		reason := "native price: " + err.Error()
		if token.Age(t.now) > e.expiry {
			log.WithError(err).Info("watch expired while the native price was unavailable")
			return ItemResult{Address: token.Address, Status: StatusExpired, Reason: reason}
		}
		log.WithError(err).Warn("native price unavailable, deferring buy")
		return ItemResult{Address: token.Address, Status: StatusRetained, Reason: reason}
	}

	return e.open(ctx, candidate, nativeUSD, t.now)
}

// open sizes, buys and protects one position, then journals it.
func (e *Evaluator) open(ctx context.Context, c Candidate, nativeUSD decimal.Decimal, now time.Time) ItemResult {
	log := e.log.WithFields(logrus.Fields{"address": c.Address, "symbol": c.Details.Symbol})
	decimals := *c.Details.Decimals

	plan, err := e.calc.Compute(exitplan.Input{
		PriceUSD:       c.Price.Price,
		TokenDecimals:  decimals,
		BudgetNative:   e.budget,
		NativeUSDPrice: nativeUSD,
	})
	if err != nil {
		log.WithError(err).Warn("exit plan rejected")
		return ItemResult{Address: c.Address, Status: StatusRejected, Reason: err.Error()}
	}

	marketID, err := e.executor.PlaceMarketBuy(ctx, executor.MarketOrder{
		Address:  c.Address,
		Amount:   plan.BuyAmount,
		Decimals: decimals,
	})
	if err != nil {
		log.WithError(err).Error("market buy failed")
		return ItemResult{Address: c.Address, Status: StatusBuyFailed, Reason: err.Error()}
	}

	exits := make([]domain.ExitOrderResult, 0, 3)
	for _, planned := range plan.ExitOrders() {
		result := domain.ExitOrderResult{
			Kind:        planned.Kind,
			Amount:      planned.Order.Amount,
			TargetPrice: planned.Order.TargetPrice,
		}
		id, err := e.executor.PlaceLimitOrder(ctx, executor.LimitOrder{
			Kind:           planned.Kind,
			Address:        c.Address,
			Amount:         planned.Order.Amount,
			Decimals:       decimals,
			TargetPriceUSD: planned.Order.TargetPrice,
			NativeUSDPrice: nativeUSD,
		})
		if err != nil {
			log.WithError(err).WithField("kind", planned.Kind).Error("exit order failed")
			result.Error = err.Error()
		} else {
			result.OrderID = &id
		}
		exits = append(exits, result)
	}

	mode := e.executor.Mode()
	rec := &domain.TradeRecord{
		TradeID:        idhash.ComputeTradeID(c.Address, mode, now.UnixMilli()),
		Address:        c.Address,
		Token:          *c.Details,
		Mode:           mode,
		WatchedSince:   c.WatchedSince,
		OpenedAt:       now,
		NativeUSDPrice: nativeUSD,
		BudgetNative:   e.budget,
		Plan:           *plan,
		MarketOrderID:  marketID,
		ExitOrders:     exits,
		Enrichment:     c.Price.Enrichment,
	}

	err = e.journal.Append(ctx, c.Address, rec)
	observability.RecordJournalWrite(err)
	if err != nil {
		log.WithError(err).Error("failed to journal trade")
	}
	observability.RecordPositionOpened()

	if e.notifier != nil {
		if err := e.notifier.PositionOpened(ctx, rec); err != nil {
			log.WithError(err).Warn("notification failed")
		}
	}

	log.WithFields(logrus.Fields{
		"trade_id":     rec.TradeID,
		"buy_amount":   plan.BuyAmount,
		"entry_price":  plan.EntryPrice.String(),
		"exits_placed": rec.PlacedExitOrders(),
	}).Info("position opened")
	return ItemResult{Address: c.Address, Status: StatusOpened, Record: rec}
}
