// Package scanner is the Scanner (C4): three cooperating loops that
// turn Gamma/CLOB market metadata into enriched snapshots on a bounded
// queue the Signal Engine consumes. Lifecycle modeled on
// 0xtitan6-polymarket-mm's Engine.Start/Stop (one goroutine per loop,
// a shared WaitGroup, context cancellation to stop all of them at once).
package scanner

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/polybot/arb-trader/internal/config"
	"github.com/polybot/arb-trader/internal/exchange"
	"github.com/polybot/arb-trader/internal/metadata"
	"github.com/polybot/arb-trader/internal/store"
	"github.com/polybot/arb-trader/pkg/types"
)

// enqueueGrace is how long an enqueue attempt waits on a full queue
// before falling back to drop-oldest. Short enough that the scanner
// never meaningfully stalls a tick.
const enqueueGrace = 200 * time.Millisecond

var spotKeywords = []string{"bitcoin", "btc", "ethereum", "eth", "solana", "sol", "xrp", "ripple"}
var directionPhrases = []string{"up or down", "up/down"}

// Scanner runs the arb-scan loop always, and the watchlist-feeder/
// hot-loop pair when late-market detection is enabled.
type Scanner struct {
	metadata *metadata.Client
	exchange *exchange.Client
	store    *store.Store
	cfg      config.ScannerConfig

	Queue chan types.MarketSnapshot

	watchlistMu sync.Mutex
	watchlist   map[string]types.MarketSnapshot

	logger *slog.Logger
}

// New builds a Scanner. The queue is created here so callers can start
// consuming it before Run is called.
func New(md *metadata.Client, ex *exchange.Client, st *store.Store, cfg config.ScannerConfig, logger *slog.Logger) *Scanner {
	return &Scanner{
		metadata:  md,
		exchange:  ex,
		store:     st,
		cfg:       cfg,
		Queue:     make(chan types.MarketSnapshot, cfg.MarketQueueCapacity),
		watchlist: make(map[string]types.MarketSnapshot),
		logger:    logger,
	}
}

// Run starts all loops and blocks until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.arbScanLoop(ctx)
	}()

	if s.cfg.EnableLateMarket {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.watchlistFeederLoop(ctx)
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.hotLoop(ctx)
		}()
	}

	wg.Wait()
}

func (s *Scanner) arbScanLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ArbScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.arbScanTick(ctx)
		}
	}
}

func (s *Scanner) arbScanTick(ctx context.Context) {
	markets, err := s.metadata.ListMarkets(ctx, s.cfg.MinMarketVolume, s.cfg.MaxMarketsPerScan)
	if err != nil {
		s.logger.Warn("arb scan: list markets failed", "err", err)
		return
	}

	passed := 0
	for _, m := range markets {
		if !s.passesBasicFilters(m) {
			continue
		}
		snap, ok := s.enrich(ctx, m)
		if !ok {
			continue
		}
		if err := s.store.UpsertMarket(snap); err != nil {
			s.logger.Warn("arb scan: upsert market failed", "market_id", snap.MarketID, "err", err)
		}
		s.enqueue(ctx, snap)
		passed++
	}
	s.logger.Debug("arb scan tick complete", "scanned", len(markets), "passed", passed)
}

// passesBasicFilters applies spec.md §4.4(2): active, volume floor,
// parseable end date with enough time to close, at least two outcomes.
func (s *Scanner) passesBasicFilters(m metadata.ParsedMarket) bool {
	if !m.Active {
		return false
	}
	if m.Volume < s.cfg.MinMarketVolume {
		return false
	}
	if m.EndDate.IsZero() {
		return false
	}
	minSeconds := time.Duration(s.cfg.MinTimeToCloseMinutes) * time.Minute
	if time.Until(m.EndDate) < minSeconds {
		return false
	}
	if len(m.Outcomes) < 2 {
		return false
	}
	return true
}

// enrich parses outcomes/token IDs and fetches a per-outcome orderbook.
// A market whose outcome count doesn't match its token-ID count is
// dropped — there is no reliable way to pair outcome names to tokens.
func (s *Scanner) enrich(ctx context.Context, m metadata.ParsedMarket) (types.MarketSnapshot, bool) {
	if len(m.Outcomes) != len(m.TokenIDs) {
		return types.MarketSnapshot{}, false
	}

	outcomes := make([]types.Outcome, 0, len(m.Outcomes))
	for i, name := range m.Outcomes {
		tokenID := m.TokenIDs[i]
		ob := s.exchange.OrderBook(ctx, tokenID)
		outcomes = append(outcomes, types.Outcome{
			Name:      name,
			TokenID:   tokenID,
			OrderBook: ob,
		})
	}

	marketID := m.ConditionID
	if marketID == "" {
		marketID = m.ID
	}

	return types.MarketSnapshot{
		MarketID:        marketID,
		ConditionID:     m.ConditionID,
		Question:        m.Question,
		ExpiresAt:       m.EndDate,
		Volume:          m.Volume,
		Liquidity:       m.Liquidity,
		NegRisk:         m.NegRisk,
		Outcomes:        outcomes,
		IsLateCandidate: IsLateCandidate(m.Question),
		AcceptingOrders: m.AcceptingOrders,
		Active:          m.Active,
		ScannedAt:       time.Now().UTC(),
	}, true
}

// enqueue implements the resolved market-queue back-pressure policy:
// block for a grace window, then drop the oldest queued snapshot and
// retry once, logging the drop.
func (s *Scanner) enqueue(ctx context.Context, snap types.MarketSnapshot) {
	select {
	case s.Queue <- snap:
		return
	case <-ctx.Done():
		return
	case <-time.After(enqueueGrace):
	}

	select {
	case <-s.Queue:
		s.logger.Warn("market queue full, dropped oldest snapshot", "market_id", snap.MarketID)
	default:
	}

	select {
	case s.Queue <- snap:
	case <-ctx.Done():
	}
}

// IsLateCandidate is the textual classifier for the short-horizon
// strategy: a spot-asset keyword and a direction phrase, both present.
// Intentionally generous — false positives are filtered downstream by
// the window check and the signal engine's own preconditions.
func IsLateCandidate(question string) bool {
	q := strings.ToLower(question)
	hasSpot := false
	for _, kw := range spotKeywords {
		if strings.Contains(q, kw) {
			hasSpot = true
			break
		}
	}
	if !hasSpot {
		return false
	}
	for _, phrase := range directionPhrases {
		if strings.Contains(q, phrase) {
			return true
		}
	}
	return false
}
