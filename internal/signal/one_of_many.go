package signal

import (
	"time"

	"github.com/polybot/arb-trader/internal/config"
	"github.com/polybot/arb-trader/pkg/types"
)

// detectOneOfMany implements spec.md §4.5.1: buy every outcome of a
// market with 3+ mutually exclusive outcomes when the sum of best asks
// leaves enough edge. Returns (signal, true) iff every outcome clears
// the spread and depth gates and the aggregate edge beats the
// configured minimum.
func detectOneOfMany(snap types.MarketSnapshot, cfg config.Config, now time.Time) (types.TradeSignal, bool) {
	if len(snap.Outcomes) < 3 {
		return types.TradeSignal{}, false
	}
	minSeconds := time.Duration(cfg.Scanner.MinTimeToCloseMinutes) * time.Minute
	if snap.TimeToClose(now) < minSeconds {
		return types.TradeSignal{}, false
	}

	n := float64(len(snap.Outcomes))
	positionSizeUSD := cfg.MaxArbPositionSize() / n

	legs := make([]types.Leg, 0, len(snap.Outcomes))
	var totalCost float64

	for _, o := range snap.Outcomes {
		ob := o.OrderBook
		if !ob.HasAsk {
			return types.TradeSignal{}, false
		}
		if ob.SpreadPct > cfg.Signal.MaxSpreadOneOfMany {
			return types.TradeSignal{}, false
		}
		requiredTokens := 0.0
		if ob.BestAsk > 0 {
			requiredTokens = positionSizeUSD / ob.BestAsk
		}
		if !requiredDepth(ob.Asks, requiredTokens) {
			return types.TradeSignal{}, false
		}

		totalCost += ob.BestAsk
		legs = append(legs, types.Leg{
			Outcome:    o.Name,
			TokenID:    o.TokenID,
			NegRisk:    snap.NegRisk,
			Price:      ob.BestAsk,
			SizeUSD:    positionSizeUSD,
			SizeTokens: requiredTokens,
			SpreadPct:  ob.SpreadPct,
		})
	}

	edge := (1.0 - totalCost) * 100.0
	if edge < cfg.Signal.MinArbEdgePct {
		return types.TradeSignal{}, false
	}

	return types.TradeSignal{
		Strategy:       types.StrategyOneOfMany,
		PositionID:     newPositionID(snap.MarketID, types.StrategyOneOfMany),
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
