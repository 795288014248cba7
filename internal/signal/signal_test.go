package signal

import (
	"log/slog"
	"time"

	"github.com/polybot/arb-trader/internal/config"
	"github.com/polybot/arb-trader/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Bankroll = 5000.0
	return cfg
}

func book(bestAsk float64, spreadPct float64, depth float64) types.OrderBook {
	return types.OrderBook{
		Asks:      []types.PriceLevel{{Price: bestAsk, Size: depth}},
		BestAsk:   bestAsk,
		HasAsk:    true,
		SpreadPct: spreadPct,
		AsksDepth: depth,
	}
}

func snapWithOutcomes(question string, closesIn time.Duration, outcomes ...types.Outcome) types.MarketSnapshot {
	return types.MarketSnapshot{
		MarketID:        "mkt-" + question,
		Question:        question,
		ExpiresAt:       time.Now().Add(closesIn),
		Outcomes:        outcomes,
		IsLateCandidate: false,
	}
}
