package scanner

import (
	"context"
	"time"

	"github.com/polybot/arb-trader/pkg/types"
)

// watchlistListLimit bounds the feeder's own list_markets call,
// independent of the arb scan's MaxMarketsPerScan — the feeder only
// needs enough recent markets to find late-market candidates.
const watchlistListLimit = 100

func (s *Scanner) watchlistFeederLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.WatchlistFeederInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshWatchlist(ctx)
		}
	}
}

// refreshWatchlist fetches markets, keeps only late-market candidates
// inside the watchlist horizon, fully enriches new additions, and
// prunes markets that expired or left the horizon.
func (s *Scanner) refreshWatchlist(ctx context.Context) {
	markets, err := s.metadata.ListMarkets(ctx, 0, watchlistListLimit)
	if err != nil {
		s.logger.Warn("watchlist feeder: list markets failed", "err", err)
		return
	}

	s.watchlistMu.Lock()
	defer s.watchlistMu.Unlock()

	seen := make(map[string]bool, len(markets))
	for _, m := range markets {
		if !IsLateCandidate(m.Question) {
			continue
		}
		if !m.Active || !m.AcceptingOrders {
			continue
		}
		if m.EndDate.IsZero() {
			continue
		}
		secs := time.Until(m.EndDate)
		if secs <= 0 || secs > s.cfg.WatchlistHorizon {
			continue
		}

		marketID := m.ConditionID
		if marketID == "" {
			marketID = m.ID
		}
		seen[marketID] = true

		if _, tracked := s.watchlist[marketID]; tracked {
			continue
		}
		snap, ok := s.enrich(ctx, m)
		if !ok {
			continue
		}
		s.watchlist[marketID] = snap
		s.logger.Info("watchlist add", "market_id", marketID, "question", m.Question, "seconds_to_close", int(secs.Seconds()))
	}

	for marketID := range s.watchlist {
		if !seen[marketID] {
			delete(s.watchlist, marketID)
		}
	}
}

func (s *Scanner) hotLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.HotLoopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.hotLoopTick(ctx)
		}
	}
}

// hotLoopTick refreshes orderbooks only (no metadata call) for every
// watched market inside the entry window and enqueues it.
func (s *Scanner) hotLoopTick(ctx context.Context) {
	s.watchlistMu.Lock()
	candidates := make([]types.MarketSnapshot, 0, len(s.watchlist))
	for id, snap := range s.watchlist {
		ttc := snap.TimeToClose(time.Now())
		if ttc <= 0 {
			delete(s.watchlist, id)
			continue
		}
		candidates = append(candidates, snap)
	}
	s.watchlistMu.Unlock()

	for _, snap := range candidates {
		ttc := snap.TimeToClose(time.Now())
		if ttc < s.cfg.LateMarketWindowEnd || ttc > s.cfg.LateMarketWindowStart {
			continue
		}

		refreshed := s.refreshOrderbooks(ctx, snap)

		s.watchlistMu.Lock()
		s.watchlist[refreshed.MarketID] = refreshed
		s.watchlistMu.Unlock()

		s.enqueue(ctx, refreshed)
	}
}

func (s *Scanner) refreshOrderbooks(ctx context.Context, snap types.MarketSnapshot) types.MarketSnapshot {
	for i, o := range snap.Outcomes {
		snap.Outcomes[i].OrderBook = s.exchange.OrderBook(ctx, o.TokenID)
	}
	snap.ScannedAt = time.Now().UTC()
	return snap
}
