package signal

import (
	"strings"
	"time"

	"github.com/polybot/arb-trader/internal/config"
	"github.com/polybot/arb-trader/pkg/types"
)

// binaryPairs enumerates the outcome-name pairs spec.md §4.5.2
// recognizes as a binary arbitrage market, matched case-insensitively.
var binaryPairs = [][2]string{
	{"yes", "no"},
	{"up", "down"},
}

// detectYesNo implements spec.md §4.5.2: exactly two outcomes forming
// a recognized binary pair, each priced and sized to half the arb
// position budget.
func detectYesNo(snap types.MarketSnapshot, cfg config.Config, now time.Time) (types.TradeSignal, bool) {
	a, b, ok := matchBinaryPair(snap.Outcomes)
	if !ok {
		return types.TradeSignal{}, false
	}

	minSeconds := time.Duration(cfg.Scanner.MinTimeToCloseMinutes) * time.Minute
	if snap.TimeToClose(now) < minSeconds {
		return types.TradeSignal{}, false
	}

	if !a.OrderBook.HasAsk || !b.OrderBook.HasAsk {
		return types.TradeSignal{}, false
	}
	if a.OrderBook.SpreadPct > cfg.Signal.MaxSpreadYesNo || b.OrderBook.SpreadPct > cfg.Signal.MaxSpreadYesNo {
		return types.TradeSignal{}, false
	}

	totalCost := a.OrderBook.BestAsk + b.OrderBook.BestAsk
	edge := (1.0 - totalCost) * 100.0
	if edge < cfg.Signal.MinArbEdgePct {
		return types.TradeSignal{}, false
	}

	perSide := cfg.MaxArbPositionSize() / 2.0
	aTokens := sizeTokens(perSide, a.OrderBook.BestAsk)
	bTokens := sizeTokens(perSide, b.OrderBook.BestAsk)

	if !requiredDepth(a.OrderBook.Asks, aTokens) || !requiredDepth(b.OrderBook.Asks, bTokens) {
		return types.TradeSignal{}, false
	}

	legs := []types.Leg{
		{Outcome: a.Name, TokenID: a.TokenID, NegRisk: snap.NegRisk, Price: a.OrderBook.BestAsk, SizeUSD: perSide, SizeTokens: aTokens, SpreadPct: a.OrderBook.SpreadPct},
		{Outcome: b.Name, TokenID: b.TokenID, NegRisk: snap.NegRisk, Price: b.OrderBook.BestAsk, SizeUSD: perSide, SizeTokens: bTokens, SpreadPct: b.OrderBook.SpreadPct},
	}

	return types.TradeSignal{
		Strategy:       types.StrategyYesNo,
		PositionID:     newPositionID(snap.MarketID, types.StrategyYesNo),
		MarketID:       snap.MarketID,
		Question:       snap.Question,
		Legs:           legs,
		TotalCost:      totalCost,
		ExpectedPayout: 1.0,
		ExpectedEdge:   edge,
		ExpiresAt:      snap.ExpiresAt,
		DetectedAt:     now.UTC(),
	}, true
}

// matchBinaryPair reports whether outcomes is exactly the two names of
// a recognized binary pair (in either order) and returns them ordered
// to match the pair's canonical (first, second) order.
func matchBinaryPair(outcomes []types.Outcome) (types.Outcome, types.Outcome, bool) {
	if len(outcomes) != 2 {
		return types.Outcome{}, types.Outcome{}, false
	}
	n0 := strings.ToLower(strings.TrimSpace(outcomes[0].Name))
	n1 := strings.ToLower(strings.TrimSpace(outcomes[1].Name))
	for _, pair := range binaryPairs {
		if n0 == pair[0] && n1 == pair[1] {
			return outcomes[0], outcomes[1], true
		}
		if n0 == pair[1] && n1 == pair[0] {
			return outcomes[1], outcomes[0], true
		}
	}
	return types.Outcome{}, types.Outcome{}, false
}

func sizeTokens(usd, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return usd / price
}
