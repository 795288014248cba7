package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Default()
	if !cfg.DryRun {
		t.Fatal("expected dry run true by default")
	}
	if cfg.Bankroll <= 0 {
		t.Fatal("expected positive bankroll")
	}
	if len(cfg.Feed.Symbols) == 0 {
		t.Fatal("expected non-empty default feed symbols")
	}
	if cfg.Feed.ReconnectBackoff != 5*time.Second {
		t.Fatalf("expected 5s reconnect backoff, got %v", cfg.Feed.ReconnectBackoff)
	}
	if cfg.Scanner.MarketQueueCapacity != 1000 {
		t.Fatalf("expected market queue capacity 1000, got %d", cfg.Scanner.MarketQueueCapacity)
	}
	if cfg.Signal.SignalQueueCapacity != 100 {
		t.Fatalf("expected signal queue capacity 100, got %d", cfg.Signal.SignalQueueCapacity)
	}
	if cfg.Risk.MaxConsecutiveFails <= 0 {
		t.Fatal("expected positive max_consecutive_fails")
	}
	if cfg.Resolver.Interval != 60*time.Second {
		t.Fatalf("expected 60s resolver interval, got %v", cfg.Resolver.Interval)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yaml := `
bankroll: 10000
dry_run: false
feed:
  symbols: ["btcusdt", "ethusdt"]
  reconnect_backoff: 3s
scanner:
  arb_scan_interval: 2s
  min_market_volume: 8000
signal:
  min_arb_edge_pct: 3.5
risk:
  max_concurrent_positions: 20
  daily_loss_halt_pct: 8
`
	f, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write([]byte(yaml)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg, err := LoadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Bankroll != 10000 {
		t.Fatalf("expected bankroll 10000, got %f", cfg.Bankroll)
	}
	if cfg.DryRun {
		t.Fatal("expected dry_run false from yaml")
	}
	if len(cfg.Feed.Symbols) != 2 {
		t.Fatalf("expected 2 feed symbols, got %d", len(cfg.Feed.Symbols))
	}
	if cfg.Feed.ReconnectBackoff != 3*time.Second {
		t.Fatalf("expected 3s reconnect backoff, got %v", cfg.Feed.ReconnectBackoff)
	}
	if cfg.Scanner.ArbScanInterval != 2*time.Second {
		t.Fatalf("expected 2s arb scan interval, got %v", cfg.Scanner.ArbScanInterval)
	}
	if cfg.Scanner.MinMarketVolume != 8000 {
		t.Fatalf("expected min market volume 8000, got %f", cfg.Scanner.MinMarketVolume)
	}
	if cfg.Signal.MinArbEdgePct != 3.5 {
		t.Fatalf("expected min arb edge pct 3.5, got %f", cfg.Signal.MinArbEdgePct)
	}
	if cfg.Risk.MaxConcurrentPositions != 20 {
		t.Fatalf("expected max concurrent positions 20, got %d", cfg.Risk.MaxConcurrentPositions)
	}
	if cfg.Risk.DailyLossHaltPct != 8 {
		t.Fatalf("expected daily loss halt pct 8, got %f", cfg.Risk.DailyLossHaltPct)
	}
}

func TestLoadFileInvalidPath(t *testing.T) {
	_, err := LoadFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestLoadFileInvalidYAML(t *testing.T) {
	f, err := os.CreateTemp("", "bad-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write([]byte("{{invalid yaml")); err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, err = LoadFile(f.Name())
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestApplyEnvAllVars(t *testing.T) {
	t.Setenv("POLY_PRIVATE_KEY", "test-pk")
	t.Setenv("POLY_API_KEY", "test-key")
	t.Setenv("POLY_API_SECRET", "test-secret")
	t.Setenv("POLY_API_PASSPHRASE", "test-pass")
	t.Setenv("BOT_TELEGRAM_TOKEN", "tg-token")
	t.Setenv("BOT_TELEGRAM_CHAT_ID", "tg-chat")
	t.Setenv("BOT_DRY_RUN", "1")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.PrivateKey != "test-pk" {
		t.Fatalf("expected PrivateKey test-pk, got %s", cfg.PrivateKey)
	}
	if cfg.APIKey != "test-key" {
		t.Fatalf("expected APIKey test-key, got %s", cfg.APIKey)
	}
	if cfg.APISecret != "test-secret" {
		t.Fatalf("expected APISecret test-secret, got %s", cfg.APISecret)
	}
	if cfg.APIPassphrase != "test-pass" {
		t.Fatalf("expected APIPassphrase test-pass, got %s", cfg.APIPassphrase)
	}
	if cfg.Telegram.BotToken != "tg-token" {
		t.Fatalf("expected telegram bot token tg-token, got %s", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.ChatID != "tg-chat" {
		t.Fatalf("expected telegram chat id tg-chat, got %s", cfg.Telegram.ChatID)
	}
	if !cfg.DryRun {
		t.Fatal("expected DryRun true from env '1'")
	}
	if !cfg.TelegramEnabled() {
		t.Fatal("expected TelegramEnabled true once both fields set")
	}
}

func TestApplyEnvDryRunTrue(t *testing.T) {
	t.Setenv("BOT_DRY_RUN", "true")
	cfg := Default()
	cfg.DryRun = false
	cfg.ApplyEnv()
	if !cfg.DryRun {
		t.Fatal("expected DryRun true from env 'true'")
	}
}

func TestDerivedSizing(t *testing.T) {
	cfg := Default()
	cfg.Bankroll = 5000
	cfg.Signal.MaxArbPositionPct = 2.0
	cfg.Signal.MaxLatePositionPct = 1.5
	cfg.Risk.MaxDailyExposurePct = 25.0
	cfg.Risk.DailyLossHaltPct = 5.0

	if got, want := cfg.MaxArbPositionSize(), 100.0; got != want {
		t.Fatalf("MaxArbPositionSize: got %f want %f", got, want)
	}
	if got, want := cfg.MaxLatePositionSize(), 75.0; got != want {
		t.Fatalf("MaxLatePositionSize: got %f want %f", got, want)
	}
	if got, want := cfg.MaxDailyExposure(), 1250.0; got != want {
		t.Fatalf("MaxDailyExposure: got %f want %f", got, want)
	}
	if got, want := cfg.DailyLossHaltAmount(), 250.0; got != want {
		t.Fatalf("DailyLossHaltAmount: got %f want %f", got, want)
	}
}
