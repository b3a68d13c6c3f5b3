// Package main runs the signal trader: it listens to the chat feed, keeps the
// watch-list and evaluates it on a schedule, trading on paper or live.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-signal-trader/internal/birdeye"
	"solana-signal-trader/internal/chat"
	"solana-signal-trader/internal/config"
	"solana-signal-trader/internal/evaluator"
	"solana-signal-trader/internal/executor"
	"solana-signal-trader/internal/exitplan"
	"solana-signal-trader/internal/jupiter"
	"solana-signal-trader/internal/notify"
	"solana-signal-trader/internal/observability"
	"solana-signal-trader/internal/oracle"
	"solana-signal-trader/internal/reporting"
	"solana-signal-trader/internal/router"
	"solana-signal-trader/internal/scheduler"
	"solana-signal-trader/internal/solana"
	"solana-signal-trader/internal/tokenlist"
	"solana-signal-trader/internal/watchlist"
)

func main() {
	configPath := flag.String("config", os.Getenv("SIGNAL_CONFIG"), "Path to TOML config file (optional)")
	mode := flag.String("mode", "", "Trading mode: paper or live (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")
	port := flag.Int("port", -1, "HTTP port for health/metrics/status (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage regardless of config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *port >= 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatal(err)
	}

	logger := newLogger(cfg)
	logger.WithField("config", cfg.Redacted()).Debug("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig.String()).Info("shutting down")
		cancel()

		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Warn("second signal, forcing exit")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, cfg, *useMemory, logger)
	close(done)
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("trader stopped")
	}
	logger.Info("shutdown complete")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// run wires every component and blocks until ctx is cancelled or a
// long-running component fails.
func run(ctx context.Context, cfg *config.Config, useMemory bool, logger *logrus.Logger) error {
	started := time.Now()

	st, err := createStores(ctx, cfg, useMemory, logger)
	if err != nil {
		return err
	}
	defer st.close()

	wl := watchlist.New()
	if saved, err := st.watchList.Load(ctx); err != nil {
		logger.WithError(err).Warn("could not restore watch-list")
	} else if len(saved) > 0 {
		wl.Restore(saved)
		logger.WithField("tokens", len(saved)).Info("watch-list restored")
	}
	observability.UpdateWatchListSize(wl.Len())

	jup := jupiter.NewClient(jupiter.Endpoints{
		Tokens:    cfg.Jupiter.TokensURL,
		TokenList: cfg.Jupiter.TokenListURL,
		Price:     cfg.Jupiter.PriceURL,
		Quote:     cfg.Jupiter.QuoteURL,
		Limit:     cfg.Jupiter.LimitURL,
	})
	rpc := solana.NewHTTPClient(cfg.Solana.RPCURL)

	registry, err := tokenlist.New(tokenlist.Options{
		Lister:    jup,
		CachePath: cfg.TokenList.CachePath,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if err := registry.Load(ctx); err != nil {
		// Symbol lookups fail until the refresh job succeeds.
		logger.WithError(err).Warn("token list unavailable")
	}

	inner, err := newOracle(cfg, jup, rpc, logger)
	if err != nil {
		return err
	}
	priceOracle := oracle.NewCached(inner, st.priceCache, cfg.Redis.PriceTTL.Duration, logger)

	exec, err := newExecutor(cfg, jup, rpc, logger)
	if err != nil {
		return err
	}

	eval, err := newEvaluator(cfg, evaluator.Options{
		WatchList:    wl,
		Oracle:       priceOracle,
		Executor:     exec,
		Journal:      st.journal,
		Observations: st.observations,
		Locker:       st.locker,
		Logger:       logger,
	}, logger)
	if err != nil {
		return err
	}

	rt, err := router.New(router.Options{
		WatchList:     wl,
		Resolver:      registry,
		SignalSenders: cfg.Signals.SignalSenders,
		TrendSenders:  cfg.Signals.TrendSenders,
		NativeSymbol:  cfg.Signals.NativeSymbol,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	evaluateJob := scheduler.NewJob("evaluate", eval.Run, logger)
	refreshJob := scheduler.NewJob("tokenlist-refresh", registry.Refresh, logger)
	snapshotJob := scheduler.NewJob("watchlist-snapshot", func(ctx context.Context) error {
		return st.watchList.Save(ctx, wl.All())
	}, logger)

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: (&api{
			mode:      cfg.Mode,
			started:   started,
			watchList: wl,
			reports:   eval,
			trades:    reporting.NewGenerator(st.journal),
			evaluate:  evaluateJob,
			jobs:      []*scheduler.Job{evaluateJob, refreshJob, snapshotJob},
			log:       logger.WithField("component", "http"),
		}).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.WithFields(logrus.Fields{
		"mode":     cfg.Mode,
		"chat":     cfg.Chat.Source,
		"interval": cfg.Evaluator.Interval.Duration,
		"port":     cfg.Server.Port,
	}).Info("starting trader")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.Run(gctx, newChatSource(cfg, logger)) })
	g.Go(func() error { return evaluateJob.Every(gctx, cfg.Evaluator.Interval.Duration, false) })
	g.Go(func() error { return refreshJob.Every(gctx, cfg.TokenList.RefreshInterval.Duration, false) })
	g.Go(func() error { return snapshotJob.Every(gctx, cfg.Storage.SnapshotInterval.Duration, false) })
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// Keep candidates across restarts.
	snapshotJob.TryRun(context.Background())
	return err
}

func newChatSource(cfg *config.Config, logger logrus.FieldLogger) chat.Source {
	if cfg.Chat.Source == "telegram" {
		return chat.NewTelegramSource(chat.TelegramConfig{
			Token:       cfg.Chat.TelegramToken,
			APIURL:      cfg.Chat.TelegramAPIURL,
			PollTimeout: cfg.Chat.PollTimeout.Duration,
		}, logger)
	}
	return chat.NewWebsocketSource(chat.WebsocketConfig{URL: cfg.Chat.RelayURL}, logger)
}

func newOracle(cfg *config.Config, jup *jupiter.Client, rpc solana.RPCClient, logger logrus.FieldLogger) (*oracle.Jupiter, error) {
	opts := oracle.Options{
		Tokens: jup,
		Prices: jup,
		Supply: rpc,
		Logger: logger,
	}
	if cfg.Birdeye.APIKey != "" {
		opts.Overviews = birdeye.NewClient(cfg.Birdeye.BaseURL, cfg.Birdeye.APIKey)
	}
	return oracle.New(opts)
}

func newExecutor(cfg *config.Config, jup *jupiter.Client, rpc solana.RPCClient, logger logrus.FieldLogger) (executor.Executor, error) {
	if cfg.Mode != "live" {
		return executor.NewPaper(logger), nil
	}

	var wallet *solana.Keypair
	var err error
	if cfg.Wallet.PrivateKey != "" {
		wallet, err = solana.ParseKeypair(cfg.Wallet.PrivateKey)
	} else {
		wallet, err = solana.LoadKeypair(cfg.Wallet.KeypairPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	logger.WithField("wallet", wallet.Address()).Warn("live trading enabled")

	return executor.NewJupiter(executor.JupiterOptions{
		API:                 jup,
		RPC:                 rpc,
		Wallet:              wallet,
		SlippageBps:         cfg.Trading.SlippageBps,
		PriorityFeeLamports: cfg.Trading.PriorityFeeLamports,
		ConfirmTimeout:      cfg.Trading.ConfirmTimeout.Duration,
		Logger:              logger,
	})
}

// newEvaluator completes opts with the trading, criteria and notification
// settings from cfg.
func newEvaluator(cfg *config.Config, opts evaluator.Options, logger logrus.FieldLogger) (*evaluator.Evaluator, error) {
	planCfg, err := cfg.Trading.ExitPlan()
	if err != nil {
		return nil, err
	}
	calc, err := exitplan.New(planCfg)
	if err != nil {
		return nil, err
	}
	budget, err := cfg.Trading.Budget()
	if err != nil {
		return nil, err
	}
	criteriaCfg, err := cfg.Evaluator.CriteriaConfig()
	if err != nil {
		return nil, err
	}
	criteria, err := evaluator.BuildCriteria(criteriaCfg)
	if err != nil {
		return nil, err
	}

	opts.Calculator = calc
	opts.Criteria = criteria
	opts.BudgetNative = budget
	opts.WatchExpiry = cfg.Evaluator.WatchExpiry.Duration
	opts.Concurrency = cfg.Evaluator.Concurrency
	if cfg.Notify.TelegramToken != "" {
		opts.Notifier = notify.NewNotifier(logger,
			notify.NewTelegramSender("", cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	return evaluator.New(opts)
}
