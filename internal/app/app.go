// Package app is the orchestrator: it builds every component
// (store, feed, scanner, signal engine, risk guard, executor,
// resolver, notifier, dashboard) from one config.Config and runs them
// under a single context-cancellation-driven shutdown, the same
// one-goroutine-per-loop-plus-WaitGroup shape the teacher's own
// internal/app.go used for its maker/taker engines.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob"

	"github.com/polybot/arb-trader/internal/api"
	"github.com/polybot/arb-trader/internal/config"
	"github.com/polybot/arb-trader/internal/exchange"
	"github.com/polybot/arb-trader/internal/executor"
	"github.com/polybot/arb-trader/internal/feed"
	"github.com/polybot/arb-trader/internal/metadata"
	"github.com/polybot/arb-trader/internal/notify"
	"github.com/polybot/arb-trader/internal/resolver"
	"github.com/polybot/arb-trader/internal/risk"
	"github.com/polybot/arb-trader/internal/scanner"
	"github.com/polybot/arb-trader/internal/signal"
	"github.com/polybot/arb-trader/internal/store"
)

// haltPollInterval governs how often Run checks the risk guard's
// sticky-halt state to fire a one-time alert on the transition.
const haltPollInterval = 5 * time.Second

// App wires together every component named in the trading pipeline.
type App struct {
	cfg config.Config

	store    *store.Store
	feed     *feed.Feed
	scanner  *scanner.Scanner
	signal   *signal.Engine
	guard    *risk.Guard
	executor *executor.Executor
	resolver *resolver.Resolver
	notifier *notify.Notifier
	api      *api.Server

	logger *slog.Logger
}

// New builds the App. clobClient/signer may be nil when cfg.DryRun is
// true; the exchange client absorbs that split internally.
func New(cfg config.Config, clobClient clob.Client, signer auth.Signer, logger *slog.Logger) (*App, error) {
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}

	exClient := exchange.NewClient(cfg.Exchange, cfg.DryRun, clobClient, signer, logger)
	mdClient := metadata.NewClient(cfg.Exchange.GammaBaseURL, cfg.Exchange.ClobBaseURL, cfg.Exchange.Timeout, cfg.Exchange.RetryCount)
	priceFeed := feed.NewFeed(cfg.Feed, logger)

	sc := scanner.New(mdClient, exClient, st, cfg.Scanner, logger)
	sig := signal.New(cfg, priceFeed, sc.Queue, logger)

	guard := risk.New(risk.Config{
		MaxArbPositionSize:     cfg.MaxArbPositionSize(),
		MaxLatePositionSize:    cfg.MaxLatePositionSize(),
		MaxConcurrentPositions: cfg.Risk.MaxConcurrentPositions,
		MaxDailyExposure:       cfg.MaxDailyExposure(),
		DailyLossHaltAmount:    cfg.DailyLossHaltAmount(),
		MaxConsecutiveFails:    cfg.Risk.MaxConsecutiveFails,
		Bankroll:               cfg.Bankroll,
	}, st)

	exec := executor.New(executor.Config{
		OrderTimeout:   cfg.Risk.OrderTimeout,
		MaxSlippagePct: cfg.Risk.MaxSlippagePct,
		DryRun:         cfg.DryRun,
	}, exClient, st, guard, sig.Out, logger)

	res := resolver.New(resolver.Config{
		Interval: cfg.Resolver.Interval,
		Timeout:  cfg.Resolver.Timeout,
	}, mdClient, st, guard, logger)

	var notifier *notify.Notifier
	if cfg.TelegramEnabled() {
		notifier = notify.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	} else {
		notifier = notify.NewNotifier("", "")
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg.API.Addr, st, guard, logger)
	}

	return &App{
		cfg:      cfg,
		store:    st,
		feed:     priceFeed,
		scanner:  sc,
		signal:   sig,
		guard:    guard,
		executor: exec,
		resolver: res,
		notifier: notifier,
		api:      apiServer,
		logger:   logger,
	}, nil
}

// Run starts every component and blocks until ctx is cancelled,
// draining all goroutines before returning.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting bot",
		"bankroll", a.cfg.Bankroll,
		"max_arb_position", a.cfg.MaxArbPositionSize(),
		"max_late_position", a.cfg.MaxLatePositionSize(),
		"max_daily_exposure", a.cfg.MaxDailyExposure(),
		"dry_run", a.cfg.DryRun,
		"one_of_many", a.cfg.Signal.EnableOneOfMany,
		"yes_no", a.cfg.Signal.EnableYesNo,
		"late_market", a.cfg.Signal.EnableLateMarket,
	)

	if a.api != nil {
		if err := a.api.Start(); err != nil {
			return fmt.Errorf("app: start api server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.api.Shutdown(shutdownCtx)
		}()
	}

	var wg sync.WaitGroup
	wg.Add(5)
	go func() { defer wg.Done(); a.feed.Run(ctx) }()
	go func() { defer wg.Done(); a.scanner.Run(ctx) }()
	go func() { defer wg.Done(); a.signal.Run(ctx) }()
	go func() { defer wg.Done(); a.executor.Run(ctx) }()
	go func() { defer wg.Done(); a.resolver.Run(ctx) }()

	wg.Add(1)
	go func() { defer wg.Done(); a.watchHalt(ctx) }()

	<-ctx.Done()
	a.logger.Info("shutting down")
	wg.Wait()
	return a.store.Close()
}

// watchHalt polls the risk guard and fires NotifyHalt exactly once on
// the false→true transition, since the guard itself has no notifier
// dependency (it only knows about the document store).
func (a *App) watchHalt(ctx context.Context) {
	ticker := time.NewTicker(haltPollInterval)
	defer ticker.Stop()
	wasHalted := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := a.guard.Snapshot()
			if snap.Halted && !wasHalted {
				a.logger.Warn("trading halted", "reason", snap.HaltReason)
				if err := a.notifier.NotifyHalt(ctx, snap.HaltReason); err != nil {
					a.logger.Error("notify halt failed", "err", err)
				}
			}
			wasHalted = snap.Halted
		}
	}
}
