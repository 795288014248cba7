package signal

import (
	"math"
	"strings"
	"time"

	"github.com/polybot/arb-trader/pkg/types"
)

// spotSymbols maps a keyword that may appear in a late-market
// question to the price-feed symbol (as tracked by internal/feed) it
// refers to. Checked in order; the first match wins.
var spotSymbols = []struct {
	keyword string
	symbol  string
}{
	{"bitcoin", "btcusdt"},
	{"btc", "btcusdt"},
	{"ethereum", "ethusdt"},
	{"eth", "ethusdt"},
	{"solana", "solusdt"},
	{"sol", "solusdt"},
	{"ripple", "xrpusdt"},
	{"xrp", "xrpusdt"},
}

func symbolForQuestion(question string) (string, bool) {
	q := strings.ToLower(question)
	for _, s := range spotSymbols {
		if strings.Contains(q, s.keyword) {
			return s.symbol, true
		}
	}
	return "", false
}

// detectLateMarket implements spec.md §4.5.3: directional bet on a
// short-horizon crypto market, with the side picked from the spot
// feed's oldest-to-newest price move rather than an orderbook-derived
// edge, and sized from the late-market position budget.
func (e *Engine) detectLateMarket(snap types.MarketSnapshot, now time.Time) (types.TradeSignal, bool) {
	if !snap.IsLateCandidate {
		return types.TradeSignal{}, false
	}
	ttc := snap.TimeToClose(now)
	if ttc < e.cfg.Scanner.LateMarketWindowEnd || ttc > e.cfg.Scanner.LateMarketWindowStart {
		return types.TradeSignal{}, false
	}

	symbol, ok := symbolForQuestion(snap.Question)
	if !ok {
		return types.TradeSignal{}, false
	}

	_, havePrice := e.feed.Latest(symbol)
	if !havePrice {
		return types.TradeSignal{}, false
	}

	vol := e.feed.Volatility(symbol, e.cfg.Signal.LateMarketVolWindow)
	if vol > e.cfg.Signal.LateMarketMaxVolatilityPct {
		return types.TradeSignal{}, false
	}

	hist := e.feed.History(symbol)
	if len(hist) < 2 {
		return types.TradeSignal{}, false
	}
	oldest, newest := hist[0], hist[len(hist)-1]
	if oldest == 0 {
		return types.TradeSignal{}, false
	}
	changePct := (newest - oldest) / oldest * 100.0
	if math.Abs(changePct) < e.cfg.Signal.LateMarketMinDeviationPct {
		return types.TradeSignal{}, false
	}

	side := "down"
	if changePct >= 0 {
		side = "up"
	}

	var outcome *types.Outcome
	for i := range snap.Outcomes {
		if strings.EqualFold(strings.TrimSpace(snap.Outcomes[i].Name), side) {
			outcome = &snap.Outcomes[i]
			break
		}
	}
	if outcome == nil {
		return types.TradeSignal{}, false
	}

	ob := outcome.OrderBook
	if !ob.HasAsk {
		return types.TradeSignal{}, false
	}
	if ob.BestAsk > e.cfg.Signal.LateMarketMaxPrice {
		return types.TradeSignal{}, false
	}
	if ob.SpreadPct > e.cfg.Signal.MaxSpreadLateMarket {
		return types.TradeSignal{}, false
	}

	budget := e.cfg.MaxLatePositionSize()
	tokens := sizeTokens(budget, ob.BestAsk)
	if !requiredDepth(ob.Asks, tokens) {
		return types.TradeSignal{}, false
	}

	leg := types.Leg{
		Outcome:    outcome.Name,
		TokenID:    outcome.TokenID,
		NegRisk:    snap.NegRisk,
		Price:      ob.BestAsk,
		SizeUSD:    budget,
		SizeTokens: tokens,
		SpreadPct:  ob.SpreadPct,
	}

	if !e.dedup.markIfNew(snap.MarketID) {
		return types.TradeSignal{}, false
	}

	return types.TradeSignal{
		Strategy:       types.StrategyLateMarket,
		PositionID:     newPositionID(snap.MarketID, types.StrategyLateMarket),
		MarketID:       snap.MarketID,
		Question:       snap.Question,
		Legs:           []types.Leg{leg},
		TotalCost:      leg.Price * leg.SizeTokens,
		ExpectedPayout: leg.SizeTokens * 1.0,
		ExpectedEdge:   (1.0 - leg.Price) * 100.0,
		ExpiresAt:      snap.ExpiresAt,
		DetectedAt:     now.UTC(),
		FeedSymbol:     symbol,
		FeedChangePct:  changePct,
		FeedVolatility: vol,
	}, true
}
