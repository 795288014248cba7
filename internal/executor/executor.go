// Package executor is the Executor (C7): it drains the signal queue,
// runs every signal past the risk guard, places all legs of an
// accepted signal concurrently under one umbrella timeout, verifies
// fills and slippage, and persists the resulting position. Grounded on
// original_source/executor.py's OrderExecutor — its validate-then-place
// flow, per-leg concurrent placement with a single
// order_timeout_seconds deadline, and cancel-on-any-failure behavior —
// collapsed from that file's separate dry-run/live branches into one
// path, since internal/exchange.Client already absorbs that split at
// the single-order level (dry-run returns a synthetic fill without
// touching the SDK).
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/polybot/arb-trader/internal/risk"
	"github.com/polybot/arb-trader/internal/store"
	"github.com/polybot/arb-trader/pkg/types"
)

// Config is the subset of bot configuration the executor enforces.
type Config struct {
	OrderTimeout   time.Duration
	MaxSlippagePct float64
	DryRun         bool
}

// OrderPlacer is the order-placement surface the executor needs —
// satisfied by *internal/exchange.Client, and narrow enough to fake in
// tests without an opaque SDK client, the same "accept an interface at
// the component boundary" seam internal/api's StateProvider and
// internal/resolver's MarketFetcher use.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, leg types.Leg, side string) (types.OrderFill, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// Executor is the Executor (C7).
type Executor struct {
	cfg      Config
	exchange OrderPlacer
	store    *store.Store
	guard    *risk.Guard

	In <-chan types.TradeSignal

	logger *slog.Logger
}

// New builds an Executor. in is the signal engine's output queue.
func New(cfg Config, ex OrderPlacer, st *store.Store, guard *risk.Guard, in <-chan types.TradeSignal, logger *slog.Logger) *Executor {
	return &Executor{cfg: cfg, exchange: ex, store: st, guard: guard, In: in, logger: logger}
}

// Run consumes In until it is closed or ctx is cancelled, executing
// one signal at a time — spec's multi-leg atomicity is per signal, not
// across signals, so signals are not fanned out concurrently here.
func (e *Executor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-e.In:
			if !ok {
				return
			}
			e.executeSignal(ctx, sig)
		}
	}
}

func (e *Executor) executeSignal(ctx context.Context, sig types.TradeSignal) {
	e.logger.Info("executing signal", "position_id", sig.PositionID, "strategy", sig.Strategy, "dry_run", e.cfg.DryRun)

	if ok, reason := e.guard.Validate(sig); !ok {
		e.logger.Warn("trade rejected by risk guard", "position_id", sig.PositionID, "reason", reason)
		e.recordFailed(sig, "risk check failed: "+reason)
		return
	}

	position := positionFromSignal(sig)
	if err := e.store.CreatePosition(position); err != nil {
		e.logger.Error("create position failed", "position_id", sig.PositionID, "err", err)
		return
	}

	fills, ok := e.placeLegs(ctx, sig.Legs)
	if !ok {
		position.Status = types.PositionFailed
		position.FailureReason = "order placement failed"
		position.Orders = fills
		position.ClosedAt = time.Now().UTC()
		if err := e.store.SavePosition(position); err != nil {
			e.logger.Error("save failed position", "position_id", sig.PositionID, "err", err)
		}
		e.logEvent(types.LevelError, "trade_failed", sig, "order placement failed")
		if err := e.guard.RecordResult(sig.Strategy, false, nil); err != nil {
			e.logger.Error("record result failed", "err", err)
		}
		return
	}

	var actualCost, totalSlippage float64
	for _, f := range fills {
		actualCost += f.FillPrice * f.Filled
		totalSlippage += f.SlippagePct
	}
	avgSlippage := 0.0
	if len(fills) > 0 {
		avgSlippage = totalSlippage / float64(len(fills))
	}

	position.Status = types.PositionOpen
	position.Orders = fills
	position.ActualTotalCost = actualCost
	position.ActualEdge = (sig.ExpectedPayout - actualCost) * 100.0
	position.AvgSlippagePct = avgSlippage

	if err := e.store.SavePosition(position); err != nil {
		e.logger.Error("save opened position", "position_id", sig.PositionID, "err", err)
	}
	e.logger.Info("position opened",
		"position_id", sig.PositionID, "strategy", sig.Strategy,
		"actual_cost", actualCost, "actual_edge", position.ActualEdge, "avg_slippage", avgSlippage)
	e.logEvent(types.LevelInfo, tradeExecutedEventType(e.cfg.DryRun), sig, fmt.Sprintf("opened at cost %.2f", actualCost))

	if err := e.guard.RecordResult(sig.Strategy, true, nil); err != nil {
		e.logger.Error("record result failed", "err", err)
	}
}

func tradeExecutedEventType(dryRun bool) string {
	if dryRun {
		return "dry_run_trade_executed"
	}
	return "trade_executed"
}

// placeLegs places every leg concurrently against one umbrella
// timeout. On timeout, a rejected fill, or excessive slippage on any
// leg it cancels whatever orders it can identify and reports failure.
func (e *Executor) placeLegs(ctx context.Context, legs []types.Leg) ([]types.OrderFill, bool) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.cfg.OrderTimeout)
	defer cancel()

	fills := make([]types.OrderFill, len(legs))
	errs := make([]error, len(legs))

	var wg sync.WaitGroup
	for i, leg := range legs {
		wg.Add(1)
		go func(i int, leg types.Leg) {
			defer wg.Done()
			fill, err := e.exchange.PlaceOrder(timeoutCtx, leg, "BUY")
			fills[i] = fill
			errs[i] = err
		}(i, leg)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-timeoutCtx.Done():
		e.logger.Error("timeout placing orders")
		e.cancelFills(fills)
		return fills, false
	}

	ok := true
	for i, err := range errs {
		if err != nil || fills[i].Status != "filled" {
			ok = false
		}
	}
	if !ok {
		e.logger.Error("one or more legs failed to fill")
		e.cancelFills(fills)
		return fills, false
	}

	for i, leg := range legs {
		slip := slippagePct(leg.Price, fills[i].FillPrice)
		fills[i].SlippagePct = slip
		if math.Abs(slip) > e.cfg.MaxSlippagePct {
			e.logger.Warn("excessive slippage", "outcome", leg.Outcome, "slippage_pct", slip)
			ok = false
		}
	}
	if !ok {
		e.cancelFills(fills)
		return fills, false
	}

	return fills, true
}

// cancelFills best-effort cancels every identified order, using a
// fresh context since the umbrella timeout that triggered the
// cancellation may already be expired.
func (e *Executor) cancelFills(fills []types.OrderFill) {
	cancelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, f := range fills {
		if f.OrderID == "" {
			continue
		}
		if err := e.exchange.CancelOrder(cancelCtx, f.OrderID); err != nil {
			e.logger.Warn("cancel order failed", "order_id", f.OrderID, "err", err)
		}
	}
}

func (e *Executor) recordFailed(sig types.TradeSignal, reason string) {
	position := positionFromSignal(sig)
	position.Status = types.PositionFailed
	position.FailureReason = reason
	position.ClosedAt = time.Now().UTC()
	if err := e.store.SavePosition(position); err != nil {
		e.logger.Error("save failed position", "position_id", sig.PositionID, "err", err)
	}
	e.logEvent(types.LevelWarn, "trade_failed", sig, reason)
	if err := e.guard.RecordResult(sig.Strategy, false, nil); err != nil {
		e.logger.Error("record result failed", "err", err)
	}
}

func (e *Executor) logEvent(level types.EventLevel, eventType string, sig types.TradeSignal, message string) {
	err := e.store.AppendEvent(types.Event{
		Timestamp:  time.Now().UTC(),
		Level:      level,
		Type:       eventType,
		Module:     "executor",
		Message:    message,
		PositionID: sig.PositionID,
		Strategy:   sig.Strategy,
	})
	if err != nil {
		e.logger.Error("append event failed", "err", err)
	}
}

func positionFromSignal(sig types.TradeSignal) types.Position {
	return types.Position{
		PositionID:     sig.PositionID,
		MarketID:       sig.MarketID,
		Question:       sig.Question,
		Strategy:       sig.Strategy,
		Status:         types.PositionPending,
		Legs:           sig.Legs,
		TotalCost:      sig.TotalCost,
		ExpectedPayout: sig.ExpectedPayout,
		ExpectedEdge:   sig.ExpectedEdge,
		OpenedAt:       time.Now().UTC(),
	}
}

func slippagePct(expected, actual float64) float64 {
	if expected == 0 {
		return 0
	}
	return (actual - expected) / expected * 100.0
}
