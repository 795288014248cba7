// Package resolver is the Position Resolver (C8): a ticker-driven loop
// that polls every open position against the Market-Metadata Client,
// computes realized P&L once a market resolves, and closes the
// position. Grounded on original_source/position_resolver.py's
// PositionResolver — same poll-all-open-positions-every-interval shape
// and the same per-strategy PnL formulas — adapted from its
// aiohttp-session loop to the same ticker-plus-context-cancellation
// idiom internal/scanner's loops already use.
package resolver

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/polybot/arb-trader/internal/metadata"
	"github.com/polybot/arb-trader/internal/risk"
	"github.com/polybot/arb-trader/internal/store"
	"github.com/polybot/arb-trader/pkg/types"
)

// Config governs the resolver's polling cadence.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
}

// MarketFetcher is the resolution-lookup surface the resolver needs —
// satisfied by *internal/metadata.Client.
type MarketFetcher interface {
	GetMarket(ctx context.Context, conditionID string) (metadata.ResolutionState, error)
}

// Resolver is the Position Resolver (C8).
type Resolver struct {
	cfg      Config
	metadata MarketFetcher
	store    *store.Store
	guard    *risk.Guard
	logger   *slog.Logger
}

// New builds a Position Resolver.
func New(cfg Config, md MarketFetcher, st *store.Store, guard *risk.Guard, logger *slog.Logger) *Resolver {
	return &Resolver{cfg: cfg, metadata: md, store: st, guard: guard, logger: logger}
}

// Run polls every Interval until ctx is cancelled.
func (r *Resolver) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.resolveOpenPositions(ctx)
		}
	}
}

func (r *Resolver) resolveOpenPositions(ctx context.Context) {
	positions, err := r.store.OpenPositions()
	if err != nil {
		r.logger.Error("list open positions failed", "err", err)
		return
	}
	if len(positions) == 0 {
		return
	}
	r.logger.Debug("checking open positions for resolution", "count", len(positions))
	for _, p := range positions {
		if err := r.checkAndResolve(ctx, p); err != nil {
			r.logger.Warn("error resolving position", "position_id", p.PositionID, "err", err)
		}
	}
}

func (r *Resolver) checkAndResolve(ctx context.Context, p types.Position) error {
	if p.MarketID == "" {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	state, err := r.metadata.GetMarket(fetchCtx, p.MarketID)
	if err != nil {
		return err
	}
	if !state.Resolved {
		return nil
	}
	if state.Winner == "" {
		r.logger.Debug("market resolved but no winner field yet", "market_id", p.MarketID)
		return nil
	}

	pnl := calculatePnL(p, state.Winner, r.logger)

	p.Status = types.PositionClosed
	p.ClosedAt = time.Now().UTC()
	p.RealizedPnL = pnl
	p.Winner = state.Winner
	if err := r.store.SavePosition(p); err != nil {
		return err
	}

	level := types.LevelInfo
	if pnl < 0 {
		level = types.LevelWarn
	}
	r.logger.Info("position resolved",
		"position_id", p.PositionID, "strategy", p.Strategy, "winner", state.Winner, "pnl", pnl)
	if err := r.store.AppendEvent(types.Event{
		Timestamp:  time.Now().UTC(),
		Level:      level,
		Type:       "position_resolved",
		Module:     "resolver",
		Message:    "position resolved",
		PositionID: p.PositionID,
		Strategy:   p.Strategy,
	}); err != nil {
		r.logger.Error("append event failed", "err", err)
	}

	return r.guard.RecordResult(p.Strategy, true, &pnl)
}

// calculatePnL implements original_source/position_resolver.py's
// _calculate_pnl: arb strategies bought every outcome so the winning
// leg pays $1/token and the rest expire worthless; late-market bought
// one side and wins or loses outright.
func calculatePnL(p types.Position, winner string, logger *slog.Logger) float64 {
	if len(p.Legs) == 0 {
		return 0
	}
	winnerName := strings.ToLower(strings.TrimSpace(winner))

	switch p.Strategy {
	case types.StrategyOneOfMany, types.StrategyYesNo:
		for _, leg := range p.Legs {
			if strings.ToLower(strings.TrimSpace(leg.Outcome)) == winnerName {
				return leg.SizeTokens*1.0 - p.ActualTotalCost
			}
		}
		logger.Warn("no leg matched winner, treating as total loss", "position_id", p.PositionID, "winner", winner)
		return -p.ActualTotalCost

	case types.StrategyLateMarket:
		leg := p.Legs[0]
		if strings.ToLower(strings.TrimSpace(leg.Outcome)) == winnerName {
			return leg.SizeTokens*1.0 - p.ActualTotalCost
		}
		return -p.ActualTotalCost

	default:
		logger.Warn("unknown strategy in pnl calculation", "strategy", p.Strategy)
		return 0
	}
}
