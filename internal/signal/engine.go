// Package signal is the Signal Engine (C5): it consumes enriched
// market snapshots from the scanner's queue, runs the three detectors
// from spec.md §4.5 in a fixed order (one-of-many, yes/no, late-market)
// and pushes at most one signal per detector per snapshot onto the
// signal queue the executor drains. Grounded on
// original_source/signal_engine.py's SignalEngine.start loop (queue-in,
// queue-out, per-snapshot detector fan-out) generalized from its
// placeholder late-market detector to the full spec §4.5.3 algorithm.
package signal

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/polybot/arb-trader/internal/config"
	"github.com/polybot/arb-trader/internal/feed"
	"github.com/polybot/arb-trader/pkg/types"
)

// Engine runs the three detectors over every snapshot it reads from
// In, writing at most three signals (one per detector) to Out.
type Engine struct {
	cfg  config.Config
	feed *feed.Feed

	In  <-chan types.MarketSnapshot
	Out chan types.TradeSignal

	dedup  *lateMarketDedup
	logger *slog.Logger
}

// New builds a Signal Engine. in is the scanner's market queue; the
// returned engine owns its own output signal queue sized per
// cfg.Signal.SignalQueueCapacity.
func New(cfg config.Config, f *feed.Feed, in <-chan types.MarketSnapshot, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		feed:   f,
		In:     in,
		Out:    make(chan types.TradeSignal, cfg.Signal.SignalQueueCapacity),
		dedup:  newLateMarketDedup(cfg.Signal.LateMarketDedupEvery, cfg.Signal.LateMarketDedupIdle),
		logger: logger,
	}
}

// Run consumes In until it is closed or ctx is cancelled, evaluating
// every snapshot against the enabled detectors in spec order.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.Out)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-e.In:
			if !ok {
				return
			}
			e.evaluate(ctx, snap)
		}
	}
}

func (e *Engine) evaluate(ctx context.Context, snap types.MarketSnapshot) {
	e.dedup.tick()

	if e.cfg.Signal.LateMarketOnly && !snap.IsLateCandidate {
		return
	}

	if e.cfg.Signal.EnableOneOfMany {
		if sig, ok := detectOneOfMany(snap, e.cfg, time.Now()); ok {
			e.emit(ctx, sig)
		}
	}
	if e.cfg.Signal.EnableYesNo {
		if sig, ok := detectYesNo(snap, e.cfg, time.Now()); ok {
			e.emit(ctx, sig)
		}
	}
	if e.cfg.Signal.EnableLateMarket {
		if sig, ok := e.detectLateMarket(snap, time.Now()); ok {
			e.emit(ctx, sig)
		}
	}
}

func (e *Engine) emit(ctx context.Context, sig types.TradeSignal) {
	select {
	case e.Out <- sig:
		e.logger.Info("signal emitted", "strategy", sig.Strategy, "market_id", sig.MarketID, "edge_pct", sig.ExpectedEdge)
	case <-ctx.Done():
	}
}

func newPositionID(marketID string, strategy types.Strategy) string {
	return string(strategy) + "-" + marketID + "-" + uuid.NewString()
}

// requiredDepth reports whether the cumulative size of the top 10 ask
// levels is at least requiredTokens — spec's "depth validation".
func requiredDepth(levels []types.PriceLevel, requiredTokens float64) bool {
	var cumulative float64
	for i := 0; i < len(levels) && i < 10; i++ {
		cumulative += levels[i].Size
		if cumulative >= requiredTokens {
			return true
		}
	}
	return cumulative >= requiredTokens
}
