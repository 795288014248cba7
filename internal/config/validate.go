package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks high-impact runtime configuration constraints.
// Matches the original's model_post_init guard: in live mode, either a
// private key or a full API credential triple must be present.
func (c Config) Validate() error {
	level := strings.ToUpper(strings.TrimSpace(c.LogLevel))
	switch level {
	case "", "DEBUG", "INFO", "WARNING", "WARN", "ERROR", "CRITICAL":
	default:
		return fmt.Errorf("log_level must be one of DEBUG/INFO/WARNING/ERROR/CRITICAL, got %q", c.LogLevel)
	}

	if c.Bankroll <= 0 {
		return fmt.Errorf("bankroll must be > 0, got %f", c.Bankroll)
	}

	if !c.DryRun {
		hasKey := c.PrivateKey != ""
		hasAPITriple := c.APIKey != "" && c.APISecret != "" && c.APIPassphrase != ""
		if !hasKey && !hasAPITriple {
			return fmt.Errorf("live trading requires private_key or api_key+api_secret+api_passphrase")
		}
	}

	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("feed.symbols must not be empty")
	}
	if c.Feed.ReconnectBackoff <= 0 {
		return fmt.Errorf("feed.reconnect_backoff must be > 0, got %s", c.Feed.ReconnectBackoff)
	}
	if c.Feed.KeepaliveInterval <= 0 {
		return fmt.Errorf("feed.keepalive_interval must be > 0, got %s", c.Feed.KeepaliveInterval)
	}
	if c.Feed.HistoryWindow < 2 {
		return fmt.Errorf("feed.history_window must be >= 2, got %d", c.Feed.HistoryWindow)
	}

	if c.Exchange.Timeout <= 0 {
		return fmt.Errorf("exchange.timeout must be > 0, got %s", c.Exchange.Timeout)
	}
	if c.Exchange.RetryCount < 0 {
		return fmt.Errorf("exchange.retry_count must be >= 0, got %d", c.Exchange.RetryCount)
	}

	if c.Scanner.ArbScanInterval <= 0 {
		return fmt.Errorf("scanner.arb_scan_interval must be > 0, got %s", c.Scanner.ArbScanInterval)
	}
	if c.Scanner.MarketQueueCapacity <= 0 {
		return fmt.Errorf("scanner.market_queue_capacity must be > 0, got %d", c.Scanner.MarketQueueCapacity)
	}
	if c.Scanner.LateMarketWindowStart < 10*time.Second || c.Scanner.LateMarketWindowStart > 600*time.Second {
		return fmt.Errorf("scanner.late_market_window_start must be within [10s,600s], got %s", c.Scanner.LateMarketWindowStart)
	}
	if c.Scanner.LateMarketWindowEnd < 10*time.Second || c.Scanner.LateMarketWindowEnd > 600*time.Second {
		return fmt.Errorf("scanner.late_market_window_end must be within [10s,600s], got %s", c.Scanner.LateMarketWindowEnd)
	}
	if c.Scanner.LateMarketWindowEnd >= c.Scanner.LateMarketWindowStart {
		return fmt.Errorf("scanner.late_market_window_end must be less than late_market_window_start")
	}

	if c.Signal.SignalQueueCapacity <= 0 {
		return fmt.Errorf("signal.signal_queue_capacity must be > 0, got %d", c.Signal.SignalQueueCapacity)
	}
	if c.Signal.MinArbEdgePct < 0 {
		return fmt.Errorf("signal.min_arb_edge_pct must be >= 0, got %f", c.Signal.MinArbEdgePct)
	}
	if c.Signal.MaxArbPositionPct <= 0 || c.Signal.MaxLatePositionPct <= 0 {
		return fmt.Errorf("signal.max_arb_position_pct and max_late_position_pct must be > 0")
	}

	if c.Risk.MaxConcurrentPositions <= 0 {
		return fmt.Errorf("risk.max_concurrent_positions must be > 0, got %d", c.Risk.MaxConcurrentPositions)
	}
	if c.Risk.MaxDailyExposurePct <= 0 || c.Risk.MaxDailyExposurePct > 100 {
		return fmt.Errorf("risk.max_daily_exposure_pct must be within (0,100], got %f", c.Risk.MaxDailyExposurePct)
	}
	if c.Risk.DailyLossHaltPct <= 0 || c.Risk.DailyLossHaltPct > 100 {
		return fmt.Errorf("risk.daily_loss_halt_pct must be within (0,100], got %f", c.Risk.DailyLossHaltPct)
	}
	if c.Risk.MaxConsecutiveFails <= 0 {
		return fmt.Errorf("risk.max_consecutive_fails must be > 0, got %d", c.Risk.MaxConsecutiveFails)
	}
	if c.Risk.OrderTimeout <= 0 {
		return fmt.Errorf("risk.order_timeout must be > 0, got %s", c.Risk.OrderTimeout)
	}
	if c.Risk.MaxSlippagePct < 0 {
		return fmt.Errorf("risk.max_slippage_pct must be >= 0, got %f", c.Risk.MaxSlippagePct)
	}

	if c.Resolver.Interval <= 0 {
		return fmt.Errorf("resolver.interval must be > 0, got %s", c.Resolver.Interval)
	}

	return nil
}
