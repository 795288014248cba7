// Package risk is the Risk Guard (C6): a stateful gate that every
// trade signal must pass before the executor is allowed to place it.
// Halt is sticky — once set, only an explicit Resume call clears it.
// Grounded on original_source/risk_guard.py's RiskGuard (consecutive
// fails counter, sticky halt, five-check validate) and adapted to the
// Go idiom of the rest of the repo (mutex-guarded struct, store-backed
// exposure/position counts instead of awaited DB calls).
package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/polybot/arb-trader/internal/store"
	"github.com/polybot/arb-trader/pkg/types"
)

// Config is the subset of the bot's risk configuration the guard
// enforces, expressed as absolute dollar amounts already derived from
// bankroll (see internal/config's MaxArbPositionSize/MaxLatePositionSize/
// MaxDailyExposure/DailyLossHaltAmount helpers).
type Config struct {
	MaxArbPositionSize  float64
	MaxLatePositionSize float64
	MaxConcurrentPositions int
	MaxDailyExposure    float64
	DailyLossHaltAmount float64
	MaxConsecutiveFails int
	Bankroll            float64
}

// Snapshot is a point-in-time read of the guard's state, exposed to the
// dashboard and to notification call sites.
type Snapshot struct {
	Halted               bool
	HaltReason           string
	ConsecutiveFailures  int
	MaxConsecutiveFails  int
	TodayPnL             float64
	TodayReturnPct       float64
}

// Guard is the Risk Guard (C6). All state is protected by mu; Validate,
// RecordResult, Halt and Resume are its only mutators.
type Guard struct {
	mu sync.Mutex

	cfg   Config
	store *store.Store

	halted              bool
	haltReason          string
	consecutiveFailures int
}

// New builds a Risk Guard around the document store it queries for
// open-position counts and exposure.
func New(cfg Config, st *store.Store) *Guard {
	return &Guard{cfg: cfg, store: st}
}

// Validate checks a trade signal against every risk limit in order,
// returning (true, "") if the signal may proceed, or (false, reason)
// on the first violated check. A daily-loss violation halts trading
// as a side effect, matching spec §4.6 rule 5.
func (g *Guard) Validate(signal types.TradeSignal) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.halted {
		return false, fmt.Sprintf("trading halted: %s", g.haltReason)
	}

	maxSize := g.cfg.MaxArbPositionSize
	if signal.Strategy == types.StrategyLateMarket {
		maxSize = g.cfg.MaxLatePositionSize
	}
	if signal.TotalCost > maxSize {
		return false, fmt.Sprintf("position size %.2f exceeds limit %.2f", signal.TotalCost, maxSize)
	}

	openCount, err := g.store.CountOpenPositions()
	if err != nil {
		return false, fmt.Sprintf("count open positions: %v", err)
	}
	if openCount >= g.cfg.MaxConcurrentPositions {
		return false, fmt.Sprintf("max concurrent positions reached (%d)", g.cfg.MaxConcurrentPositions)
	}

	exposure, err := g.store.TotalExposure()
	if err != nil {
		return false, fmt.Sprintf("total exposure: %v", err)
	}
	if exposure+signal.TotalCost > g.cfg.MaxDailyExposure {
		return false, "daily exposure limit would be exceeded"
	}

	todayPnL, err := g.todayPnLLocked()
	if err != nil {
		return false, fmt.Sprintf("today pnl: %v", err)
	}
	if todayPnL < -g.cfg.DailyLossHaltAmount {
		g.haltLocked(fmt.Sprintf("daily loss exceeded: %.2f", todayPnL))
		return false, g.haltReason
	}

	return true, ""
}

// RecordResult advances the consecutive-failure counter (reset on
// success, incremented on failure, halting once it reaches
// MaxConsecutiveFails) and, if pnl is non-nil, upserts the daily
// rollup. Always called by the executor after every execution attempt
// so the guard's state reflects reality even on rejected signals.
func (g *Guard) RecordResult(strategy types.Strategy, success bool, pnl *float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if success {
		g.consecutiveFailures = 0
	} else {
		g.consecutiveFailures++
		if g.consecutiveFailures >= g.cfg.MaxConsecutiveFails {
			g.haltLocked(fmt.Sprintf("%d consecutive failed trades", g.cfg.MaxConsecutiveFails))
		}
	}

	if pnl == nil {
		return nil
	}
	return g.updateDailyPnLLocked(strategy, *pnl)
}

// Halt sets the sticky halt state with an operator-visible reason.
func (g *Guard) Halt(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.haltLocked(reason)
}

func (g *Guard) haltLocked(reason string) {
	g.halted = true
	g.haltReason = reason
}

// Resume clears the sticky halt. Spec §7: "operator must explicitly
// resume" — nothing inside the bot calls this on its own.
func (g *Guard) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.halted = false
	g.haltReason = ""
	g.consecutiveFailures = 0
}

// Snapshot returns a copy of the guard's current state for the
// dashboard and alert sink.
func (g *Guard) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	pnl, _ := g.todayPnLLocked()
	returnPct := 0.0
	if g.cfg.Bankroll > 0 {
		returnPct = pnl / g.cfg.Bankroll * 100.0
	}
	return Snapshot{
		Halted:              g.halted,
		HaltReason:          g.haltReason,
		ConsecutiveFailures: g.consecutiveFailures,
		MaxConsecutiveFails: g.cfg.MaxConsecutiveFails,
		TodayPnL:            pnl,
		TodayReturnPct:      returnPct,
	}
}

func todayKey() string {
	return time.Now().UTC().Format("2006-01-02")
}

func (g *Guard) todayPnLLocked() (float64, error) {
	d, ok, err := g.store.GetDailyPnL(todayKey())
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return d.TotalPnL, nil
}

// updateDailyPnLLocked upserts today's rollup document, matching
// position_resolver.py's _update_daily_pnl shape (total_pnl,
// total_trades, winning_trades, win_rate, strategy_pnl). Called only
// from RecordResult when a pnl is supplied: the executor passes nil, so
// in practice this runs when the resolver closes a position.
func (g *Guard) updateDailyPnLLocked(strategy types.Strategy, pnl float64) error {
	date := todayKey()
	d, ok, err := g.store.GetDailyPnL(date)
	if err != nil {
		return err
	}
	if !ok {
		d = types.DailyPnL{
			Date:        date,
			StrategyPnL: map[types.Strategy]float64{},
		}
	}
	if d.StrategyPnL == nil {
		d.StrategyPnL = map[types.Strategy]float64{}
	}
	d.TotalPnL += pnl
	d.TotalTrades++
	if pnl > 0 {
		d.WinningTrades++
	}
	d.WinRate = d.WinRatePct()
	d.StrategyPnL[strategy] += pnl
	d.UpdatedAt = time.Now().UTC()
	return g.store.SaveDailyPnL(d)
}
