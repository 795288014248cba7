package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the single root configuration object, loaded by overlaying
// a YAML file onto Default() and then overlaying process environment
// variables onto secrets via ApplyEnv.
type Config struct {
	PrivateKey    string `yaml:"private_key"`
	APIKey        string `yaml:"api_key"`
	APISecret     string `yaml:"api_secret"`
	APIPassphrase string `yaml:"api_passphrase"`

	DryRun   bool   `yaml:"dry_run"`
	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_dir"`

	Bankroll float64 `yaml:"bankroll"`

	Feed      FeedConfig      `yaml:"feed"`
	Exchange  ExchangeConfig  `yaml:"exchange"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	Signal    SignalConfig    `yaml:"signal"`
	Risk      RiskConfig      `yaml:"risk"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	API       APIConfig       `yaml:"api"`
}

// FeedConfig governs the Price-Feed Client (C1).
type FeedConfig struct {
	WSURL              string        `yaml:"ws_url"`
	Symbols            []string      `yaml:"symbols"`
	ReconnectBackoff   time.Duration `yaml:"reconnect_backoff"`
	KeepaliveInterval  time.Duration `yaml:"keepalive_interval"`
	HistoryWindow      int           `yaml:"history_window"`
}

// ExchangeConfig governs the Exchange Client (C2) and the
// Market-Metadata Client (C3), both of which sit on the same
// opaque SDK / Gamma REST surface.
type ExchangeConfig struct {
	ClobBaseURL  string        `yaml:"clob_base_url"`
	GammaBaseURL string        `yaml:"gamma_base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	RetryCount   int           `yaml:"retry_count"`

	OrderRateCapacity  int     `yaml:"order_rate_capacity"`
	OrderRatePerSecond float64 `yaml:"order_rate_per_second"`
	BookRateCapacity   int     `yaml:"book_rate_capacity"`
	BookRatePerSecond  float64 `yaml:"book_rate_per_second"`
}

// ScannerConfig governs the Scanner (C4)'s three cooperating loops.
type ScannerConfig struct {
	ArbScanInterval              time.Duration `yaml:"arb_scan_interval"`
	MinMarketVolume              float64       `yaml:"min_market_volume"`
	MinTimeToCloseMinutes        int           `yaml:"min_time_to_close_minutes"`
	MaxMarketsPerScan            int           `yaml:"max_markets_per_scan"`

	EnableLateMarket             bool          `yaml:"enable_late_market"`
	WatchlistFeederInterval      time.Duration `yaml:"watchlist_feeder_interval"`
	WatchlistHorizon             time.Duration `yaml:"watchlist_horizon"`
	HotLoopInterval              time.Duration `yaml:"hot_loop_interval"`
	LateMarketWindowStart        time.Duration `yaml:"late_market_window_start"`
	LateMarketWindowEnd          time.Duration `yaml:"late_market_window_end"`

	MarketQueueCapacity int `yaml:"market_queue_capacity"`
}

// SignalConfig governs the Signal Engine (C5)'s three detectors.
type SignalConfig struct {
	EnableOneOfMany bool `yaml:"enable_one_of_many"`
	EnableYesNo     bool `yaml:"enable_yes_no"`
	EnableLateMarket bool `yaml:"enable_late_market"`

	MinArbEdgePct        float64 `yaml:"min_arb_edge_pct"`
	MaxSpreadOneOfMany   float64 `yaml:"max_spread_one_of_many"`
	MaxSpreadYesNo       float64 `yaml:"max_spread_yes_no"`
	MaxSpreadLateMarket  float64 `yaml:"max_spread_late_market"`

	MaxArbPositionPct   float64 `yaml:"max_arb_position_pct"`
	MaxLatePositionPct  float64 `yaml:"max_late_position_pct"`

	LateMarketMinDeviationPct  float64       `yaml:"late_market_min_deviation_pct"`
	LateMarketMaxVolatilityPct float64       `yaml:"late_market_max_volatility_pct"`
	LateMarketMaxPrice         float64       `yaml:"late_market_max_price"`
	LateMarketVolWindow        int           `yaml:"late_market_vol_window"`
	LateMarketOnly             bool          `yaml:"late_market_only"`
	LateMarketDedupIdle        time.Duration `yaml:"late_market_dedup_idle"`
	LateMarketDedupEvery       int           `yaml:"late_market_dedup_every"`

	SignalQueueCapacity int `yaml:"signal_queue_capacity"`
}

// RiskConfig governs the Risk Guard (C6).
type RiskConfig struct {
	MaxConcurrentPositions int           `yaml:"max_concurrent_positions"`
	MaxDailyExposurePct    float64       `yaml:"max_daily_exposure_pct"`
	DailyLossHaltPct       float64       `yaml:"daily_loss_halt_pct"`
	MaxConsecutiveFails    int           `yaml:"max_consecutive_fails"`
	OrderTimeout           time.Duration `yaml:"order_timeout"`
	MaxSlippagePct         float64       `yaml:"max_slippage_pct"`
}

// ResolverConfig governs the Position Resolver (C8).
type ResolverConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the baseline configuration, matching the defaults
// recorded in SPEC_FULL.md (carried forward from the original Python
// Settings class where present, and from the §4 component defaults for
// the keys the original never declared).
func Default() Config {
	return Config{
		DryRun:   true,
		LogLevel: "info",
		DataDir:  "./data",
		Bankroll: 5000.0,
		Feed: FeedConfig{
			WSURL:             "wss://stream.binance.com:9443/stream",
			Symbols:           []string{"btcusdt", "ethusdt", "solusdt", "xrpusdt"},
			ReconnectBackoff:  5 * time.Second,
			KeepaliveInterval: 30 * time.Second,
			HistoryWindow:     60,
		},
		Exchange: ExchangeConfig{
			ClobBaseURL:        "https://clob.polymarket.com",
			GammaBaseURL:       "https://gamma-api.polymarket.com",
			Timeout:            10 * time.Second,
			RetryCount:         3,
			OrderRateCapacity:  5,
			OrderRatePerSecond: 0.5,
			BookRateCapacity:   10,
			BookRatePerSecond:  2,
		},
		Scanner: ScannerConfig{
			ArbScanInterval:         5 * time.Second,
			MinMarketVolume:         5000.0,
			MinTimeToCloseMinutes:   30,
			MaxMarketsPerScan:       100,
			EnableLateMarket:        true,
			WatchlistFeederInterval: 10 * time.Second,
			WatchlistHorizon:        300 * time.Second,
			HotLoopInterval:         500 * time.Millisecond,
			LateMarketWindowStart:   180 * time.Second,
			LateMarketWindowEnd:     60 * time.Second,
			MarketQueueCapacity:     1000,
		},
		Signal: SignalConfig{
			EnableOneOfMany:            true,
			EnableYesNo:                true,
			EnableLateMarket:           true,
			MinArbEdgePct:              2.0,
			MaxSpreadOneOfMany:         2.0,
			MaxSpreadYesNo:             1.5,
			MaxSpreadLateMarket:        1.0,
			MaxArbPositionPct:          2.0,
			MaxLatePositionPct:         1.5,
			LateMarketMinDeviationPct:  0.05,
			LateMarketMaxVolatilityPct: 1.5,
			LateMarketMaxPrice:         0.95,
			LateMarketVolWindow:        30,
			LateMarketOnly:             false,
			LateMarketDedupIdle:        30 * time.Second,
			LateMarketDedupEvery:       200,
			SignalQueueCapacity:        100,
		},
		Risk: RiskConfig{
			MaxConcurrentPositions: 10,
			MaxDailyExposurePct:    25.0,
			DailyLossHaltPct:       5.0,
			MaxConsecutiveFails:    3,
			OrderTimeout:           5 * time.Second,
			MaxSlippagePct:         0.3,
		},
		Resolver: ResolverConfig{
			Interval: 60 * time.Second,
			Timeout:  10 * time.Second,
		},
		API: APIConfig{
			Enabled: true,
			Addr:    ":8080",
		},
	}
}

// LoadFile overlays a YAML document at path onto Default().
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays POLY_*/BOT_* environment variables onto secrets and
// a handful of operational toggles, matching the teacher's pattern of
// keeping credentials out of committed YAML.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("POLY_PRIVATE_KEY"); v != "" {
		c.PrivateKey = v
	}
	if v := os.Getenv("POLY_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("POLY_API_SECRET"); v != "" {
		c.APISecret = v
	}
	if v := os.Getenv("POLY_API_PASSPHRASE"); v != "" {
		c.APIPassphrase = v
	}
	if v := os.Getenv("BOT_TELEGRAM_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("BOT_TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("BOT_DRY_RUN"); v != "" {
		c.DryRun = strings.EqualFold(v, "true") || v == "1"
	}
}

// TelegramEnabled reports whether both halves of the Telegram
// credential pair are present.
func (c Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// MaxArbPositionSize derives the per-trade USD cap for one-of-many and
// yes/no signals from the configured bankroll.
func (c Config) MaxArbPositionSize() float64 {
	return c.Bankroll * (c.Signal.MaxArbPositionPct / 100.0)
}

// MaxLatePositionSize derives the per-trade USD cap for late-market
// signals from the configured bankroll.
func (c Config) MaxLatePositionSize() float64 {
	return c.Bankroll * (c.Signal.MaxLatePositionPct / 100.0)
}

// MaxDailyExposure derives the aggregate open-exposure cap from the
// configured bankroll.
func (c Config) MaxDailyExposure() float64 {
	return c.Bankroll * (c.Risk.MaxDailyExposurePct / 100.0)
}

// DailyLossHaltAmount derives the absolute daily-loss halt threshold
// from the configured bankroll.
func (c Config) DailyLossHaltAmount() float64 {
	return c.Bankroll * (c.Risk.DailyLossHaltPct / 100.0)
}
