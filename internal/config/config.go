// Package config defines the trader configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"solana-signal-trader/internal/evaluator"
	"solana-signal-trader/internal/exitplan"
)

// Config is the root configuration. Fields come from defaults, an optional
// TOML file and SIGNAL_* environment overrides, in that order.
type Config struct {
	Mode      string          `toml:"mode"` // "paper" | "live"
	LogLevel  string          `toml:"log_level"`
	LogFormat string          `toml:"log_format"` // "text" | "json"
	Chat      ChatConfig      `toml:"chat"`
	Signals   SignalsConfig   `toml:"signals"`
	Trading   TradingConfig   `toml:"trading"`
	Evaluator EvaluatorConfig `toml:"evaluator"`
	Wallet    WalletConfig    `toml:"wallet"`
	Solana    SolanaConfig    `toml:"solana"`
	Jupiter   JupiterConfig   `toml:"jupiter"`
	Birdeye   BirdeyeConfig   `toml:"birdeye"`
	TokenList TokenListConfig `toml:"token_list"`
	Storage   StorageConfig   `toml:"storage"`
	Redis     RedisConfig     `toml:"redis"`
	Notify    NotifyConfig    `toml:"notify"`
	Server    ServerConfig    `toml:"server"`
}

// ChatConfig selects and configures the chat event source.
type ChatConfig struct {
	Source         string   `toml:"source"` // "websocket" | "telegram"
	RelayURL       string   `toml:"relay_url"`
	TelegramToken  string   `toml:"telegram_token"`
	TelegramAPIURL string   `toml:"telegram_api_url"`
	PollTimeout    duration `toml:"poll_timeout"`
}

// SignalsConfig lists the chat ids whose messages are trusted.
type SignalsConfig struct {
	SignalSenders []string `toml:"signal_senders"` // swap tracker bots
	TrendSenders  []string `toml:"trend_senders"`  // trending alert bots
	NativeSymbol  string   `toml:"native_symbol"`
}

// TradingConfig sizes positions and places their exits.
type TradingConfig struct {
	BudgetSOL                  string   `toml:"budget_sol"` // decimal string
	SlippageBps                int      `toml:"slippage_bps"`
	PriorityFeeLamports        uint64   `toml:"priority_fee_lamports"`
	MinBuyAmount               uint64   `toml:"min_buy_amount"`
	StopLossMultiplier         string   `toml:"stop_loss_multiplier"`
	FirstTakeProfitMultiplier  string   `toml:"first_take_profit_multiplier"`
	SecondTakeProfitMultiplier string   `toml:"second_take_profit_multiplier"`
	FirstTakeProfitFraction    string   `toml:"first_take_profit_fraction"`
	ConfirmTimeout             duration `toml:"confirm_timeout"`
}

// EvaluatorConfig controls the evaluation loop and buy criteria.
type EvaluatorConfig struct {
	Interval          duration `toml:"interval"`
	WatchExpiry       duration `toml:"watch_expiry"`
	Concurrency       int      `toml:"concurrency"`
	Criteria          []string `toml:"criteria"` // "always", "volume", "liquidity", "momentum"
	MinDailyVolumeUSD string   `toml:"min_daily_volume_usd"`
	MinLiquidityUSD   string   `toml:"min_liquidity_usd"`
}

// WalletConfig locates the signing key for live mode.
type WalletConfig struct {
	PrivateKey  string `toml:"private_key"` // base58 or JSON byte array
	KeypairPath string `toml:"keypair_path"`
}

// SolanaConfig holds the RPC endpoint.
type SolanaConfig struct {
	RPCURL string `toml:"rpc_url"`
}

// JupiterConfig overrides Jupiter API endpoints.
type JupiterConfig struct {
	TokensURL    string `toml:"tokens_url"`
	TokenListURL string `toml:"token_list_url"`
	PriceURL     string `toml:"price_url"`
	QuoteURL     string `toml:"quote_url"`
	LimitURL     string `toml:"limit_url"`
}

// BirdeyeConfig enables enrichment when APIKey is set.
type BirdeyeConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// TokenListConfig controls the symbol registry.
type TokenListConfig struct {
	CachePath       string   `toml:"cache_path"`
	RefreshInterval duration `toml:"refresh_interval"`
}

// StorageConfig selects the persistence backends.
type StorageConfig struct {
	Journal          string   `toml:"journal"` // "memory" | "file" | "postgres"
	JournalPath      string   `toml:"journal_path"`
	PostgresDSN      string   `toml:"postgres_dsn"`
	PostgresMaxConns int      `toml:"postgres_max_conns"`
	ClickhouseDSN    string   `toml:"clickhouse_dsn"` // empty disables observations
	WatchList        string   `toml:"watch_list"`     // "memory" | "file" | "redis"
	WatchListPath    string   `toml:"watch_list_path"`
	SnapshotInterval duration `toml:"snapshot_interval"`
}

// RedisConfig enables the shared price cache and lock when Enabled.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	KeyPrefix  string   `toml:"key_prefix"`
	PriceTTL   duration `toml:"price_ttl"`
}

// NotifyConfig holds the Telegram chat that receives position notifications.
type NotifyConfig struct {
	TelegramToken  string `toml:"telegram_token"`
	TelegramChatID string `toml:"telegram_chat_id"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port int `toml:"port"`
}

// duration wraps time.Duration so TOML can decode strings like "30s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the paper-trading configuration.
func Defaults() Config {
	return Config{
		Mode:      "paper",
		LogLevel:  "info",
		LogFormat: "text",
		Chat: ChatConfig{
			Source:      "websocket",
			RelayURL:    "ws://localhost:8081/events",
			PollTimeout: duration{30 * time.Second},
		},
		Signals: SignalsConfig{
			NativeSymbol: "SOL",
		},
		Trading: TradingConfig{
			BudgetSOL:                  "0.01",
			SlippageBps:                300,
			MinBuyAmount:               10_000,
			StopLossMultiplier:         "0.85",
			FirstTakeProfitMultiplier:  "1.5",
			SecondTakeProfitMultiplier: "2.5",
			FirstTakeProfitFraction:    "0.75",
			ConfirmTimeout:             duration{60 * time.Second},
		},
		Evaluator: EvaluatorConfig{
			Interval:          duration{30 * time.Second},
			WatchExpiry:       duration{time.Hour},
			Concurrency:       8,
			Criteria:          []string{"volume"},
			MinDailyVolumeUSD: "300000",
			MinLiquidityUSD:   "50000",
		},
		Solana: SolanaConfig{
			RPCURL: "https://api.mainnet-beta.solana.com",
		},
		TokenList: TokenListConfig{
			CachePath:       "data/tokens.json",
			RefreshInterval: duration{10 * time.Minute},
		},
		Storage: StorageConfig{
			Journal:          "file",
			JournalPath:      "data/trades.json",
			PostgresMaxConns: 4,
			WatchList:        "file",
			WatchListPath:    "data/watchlist.json",
			SnapshotInterval: duration{time.Minute},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			KeyPrefix:  "signal-trader:",
			PriceTTL:   duration{30 * time.Second},
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks for invalid or missing values and returns every problem found.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	switch c.Mode {
	case "paper":
	case "live":
		if c.Wallet.PrivateKey == "" && c.Wallet.KeypairPath == "" {
			add("wallet: private_key or keypair_path is required in live mode")
		}
		if c.Solana.RPCURL == "" {
			add("solana: rpc_url is required in live mode")
		}
	default:
		add("unknown mode %q (valid: paper, live)", c.Mode)
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		add("unknown log_format %q (valid: text, json)", c.LogFormat)
	}

	switch c.Chat.Source {
	case "websocket":
		if c.Chat.RelayURL == "" {
			add("chat: relay_url is required for the websocket source")
		}
	case "telegram":
		if c.Chat.TelegramToken == "" {
			add("chat: telegram_token is required for the telegram source")
		}
	default:
		add("chat: unknown source %q (valid: websocket, telegram)", c.Chat.Source)
	}

	if len(c.Signals.SignalSenders) == 0 && len(c.Signals.TrendSenders) == 0 {
		add("signals: at least one signal or trend sender is required")
	}
	if c.Signals.NativeSymbol == "" {
		add("signals: native_symbol must not be empty")
	}

	if c.Trading.SlippageBps <= 0 || c.Trading.SlippageBps > 10_000 {
		add("trading: slippage_bps must be in 1..10000, got %d", c.Trading.SlippageBps)
	}
	if _, err := c.Trading.Budget(); err != nil {
		add("%v", err)
	}
	if _, err := c.Trading.ExitPlan(); err != nil {
		add("%v", err)
	}
	if _, err := c.Evaluator.CriteriaConfig(); err != nil {
		add("%v", err)
	}
	if c.Evaluator.Interval.Duration <= 0 {
		add("evaluator: interval must be positive")
	}
	if c.Evaluator.WatchExpiry.Duration <= 0 {
		add("evaluator: watch_expiry must be positive")
	}
	if len(c.Evaluator.Criteria) == 0 {
		add("evaluator: at least one criteria rule is required")
	}

	switch c.Storage.Journal {
	case "memory":
	case "file":
		if c.Storage.JournalPath == "" {
			add("storage: journal_path is required for the file journal")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			add("storage: postgres_dsn is required for the postgres journal")
		}
		if c.Storage.PostgresMaxConns < 1 {
			add("storage: postgres_max_conns must be positive, got %d", c.Storage.PostgresMaxConns)
		}
	default:
		add("storage: unknown journal %q (valid: memory, file, postgres)", c.Storage.Journal)
	}

	switch c.Storage.WatchList {
	case "memory":
	case "file":
		if c.Storage.WatchListPath == "" {
			add("storage: watch_list_path is required for the file watch list")
		}
	case "redis":
		if !c.Redis.Enabled {
			add("storage: the redis watch list requires redis.enabled")
		}
	default:
		add("storage: unknown watch_list %q (valid: memory, file, redis)", c.Storage.WatchList)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		add("redis: addr must not be empty")
	}
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		add("notify: telegram_token and telegram_chat_id must be set together")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		add("server: port must be 0-65535, got %d", c.Server.Port)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Budget returns the SOL spent on each buy.
func (t TradingConfig) Budget() (decimal.Decimal, error) {
	b, err := decimal.NewFromString(t.BudgetSOL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("trading: budget_sol: %w", err)
	}
	if !b.IsPositive() {
		return decimal.Zero, fmt.Errorf("trading: budget_sol must be positive, got %s", b)
	}
	return b, nil
}

// ExitPlan converts the trading section into the calculator configuration.
func (t TradingConfig) ExitPlan() (exitplan.Config, error) {
	cfg := exitplan.Config{MinBuyAmount: t.MinBuyAmount}
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"stop_loss_multiplier", t.StopLossMultiplier, &cfg.StopLossMultiplier},
		{"first_take_profit_multiplier", t.FirstTakeProfitMultiplier, &cfg.FirstTakeProfitMultiplier},
		{"second_take_profit_multiplier", t.SecondTakeProfitMultiplier, &cfg.SecondTakeProfitMultiplier},
		{"first_take_profit_fraction", t.FirstTakeProfitFraction, &cfg.FirstTakeProfitFraction},
	} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return exitplan.Config{}, fmt.Errorf("trading: %s: %w", f.name, err)
		}
		*f.dst = d
	}
	if err := cfg.Validate(); err != nil {
		return exitplan.Config{}, fmt.Errorf("trading: %w", err)
	}
	return cfg, nil
}

// CriteriaConfig converts the evaluator section into criteria rules.
// Momentum thresholds use the built-in defaults.
func (e EvaluatorConfig) CriteriaConfig() (evaluator.CriteriaConfig, error) {
	volume, err := decimal.NewFromString(e.MinDailyVolumeUSD)
	if err != nil {
		return evaluator.CriteriaConfig{}, fmt.Errorf("evaluator: min_daily_volume_usd: %w", err)
	}
	liquidity, err := decimal.NewFromString(e.MinLiquidityUSD)
	if err != nil {
		return evaluator.CriteriaConfig{}, fmt.Errorf("evaluator: min_liquidity_usd: %w", err)
	}
	return evaluator.CriteriaConfig{
		Rules:             e.Criteria,
		MinDailyVolumeUSD: volume,
		MinLiquidityUSD:   liquidity,
		Momentum:          evaluator.DefaultMomentum(),
	}, nil
}
