package scanner

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/polybot/arb-trader/internal/config"
	"github.com/polybot/arb-trader/internal/exchange"
	"github.com/polybot/arb-trader/internal/metadata"
	"github.com/polybot/arb-trader/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestScanner(t *testing.T, gammaServerURL string) *Scanner {
	t.Helper()
	md := metadata.NewClient(gammaServerURL, gammaServerURL, 2*time.Second, 0)
	ex := exchange.NewClient(config.ExchangeConfig{OrderRateCapacity: 5, OrderRatePerSecond: 5, BookRateCapacity: 20, BookRatePerSecond: 20}, true, nil, nil, testLogger())
	cfg := config.ScannerConfig{
		ArbScanInterval:         time.Second,
		MinMarketVolume:         1000,
		MinTimeToCloseMinutes:   30,
		MaxMarketsPerScan:       100,
		MarketQueueCapacity:     10,
		EnableLateMarket:        true,
		WatchlistFeederInterval: time.Second,
		WatchlistHorizon:        300 * time.Second,
		HotLoopInterval:         100 * time.Millisecond,
		LateMarketWindowStart:   180 * time.Second,
		LateMarketWindowEnd:     60 * time.Second,
	}
	return New(md, ex, nil, cfg, testLogger())
}

func TestIsLateCandidate(t *testing.T) {
	cases := []struct {
		question string
		want     bool
	}{
		{"Bitcoin Up or Down - Feb 17, 3:20PM-3:25PM ET", true},
		{"BTC Up or Down - Feb 17, 3:20PM-3:25PM ET", true},
		{"Bitcoin Up/Down - Feb 17, 10:00AM-10:05AM ET", true},
		{"Will it rain in NYC tomorrow?", false},
		{"Bitcoin will reach $100K", false},
		{"ETH Up or Down - Feb 17", true},
		{"Will the Fed cut rates in March?", false},
	}
	for _, c := range cases {
		if got := IsLateCandidate(c.question); got != c.want {
			t.Errorf("IsLateCandidate(%q) = %v, want %v", c.question, got, c.want)
		}
	}
}

func TestPassesBasicFiltersRejectsLowVolume(t *testing.T) {
	s := newTestScanner(t, "http://unused")
	m := metadata.ParsedMarket{
		Active:   true,
		Volume:   10,
		EndDate:  time.Now().Add(time.Hour),
		Outcomes: []string{"Yes", "No"},
	}
	if s.passesBasicFilters(m) {
		t.Error("expected low-volume market to be rejected")
	}
}

func TestPassesBasicFiltersRejectsNearExpiry(t *testing.T) {
	s := newTestScanner(t, "http://unused")
	m := metadata.ParsedMarket{
		Active:   true,
		Volume:   5000,
		EndDate:  time.Now().Add(5 * time.Minute),
		Outcomes: []string{"Yes", "No"},
	}
	if s.passesBasicFilters(m) {
		t.Error("expected near-expiry market to be rejected")
	}
}

func TestPassesBasicFiltersAcceptsValidMarket(t *testing.T) {
	s := newTestScanner(t, "http://unused")
	m := metadata.ParsedMarket{
		Active:   true,
		Volume:   5000,
		EndDate:  time.Now().Add(time.Hour),
		Outcomes: []string{"Yes", "No"},
	}
	if !s.passesBasicFilters(m) {
		t.Error("expected valid market to pass")
	}
}

func TestEnrichDropsMismatchedOutcomesAndTokens(t *testing.T) {
	s := newTestScanner(t, "http://unused")
	m := metadata.ParsedMarket{
		Outcomes: []string{"Yes", "No"},
		TokenIDs: []string{"only-one"},
	}
	if _, ok := s.enrich(context.Background(), m); ok {
		t.Error("expected mismatched outcomes/tokens to be dropped")
	}
}

func TestEnrichBuildsSnapshot(t *testing.T) {
	s := newTestScanner(t, "http://unused")
	endDate := time.Now().Add(2 * time.Hour)
	m := metadata.ParsedMarket{
		ID:          "m1",
		ConditionID: "c1",
		Question:    "Bitcoin Up or Down",
		Active:      true,
		EndDate:     endDate,
		Outcomes:    []string{"Yes", "No"},
		TokenIDs:    []string{"t1", "t2"},
	}
	snap, ok := s.enrich(context.Background(), m)
	if !ok {
		t.Fatal("expected enrich to succeed")
	}
	if len(snap.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(snap.Outcomes))
	}
	if !snap.IsLateCandidate {
		t.Error("expected Bitcoin Up or Down to be flagged as late candidate")
	}
	if snap.Outcomes[0].OrderBook.HasAsk {
		t.Error("expected missing orderbook for dry-run client with no SDK connection")
	}
}

func TestEnqueueDropsOldestOnFullQueue(t *testing.T) {
	s := newTestScanner(t, "http://unused")
	s.Queue = make(chan types.MarketSnapshot, 1)

	first := types.MarketSnapshot{MarketID: "first"}
	second := types.MarketSnapshot{MarketID: "second"}

	ctx := context.Background()
	s.Queue <- first

	done := make(chan struct{})
	go func() {
		s.enqueue(ctx, second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue did not return after grace window")
	}

	got := <-s.Queue
	if got.MarketID != "second" {
		t.Errorf("expected oldest entry dropped and new one enqueued, got %q", got.MarketID)
	}
}

func TestRefreshWatchlistAddsCandidateWithinHorizon(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endDate := time.Now().Add(200 * time.Second).UTC().Format(time.RFC3339)
		markets := []metadata.RawMarket{
			{
				ID: "m1", ConditionID: "c1", Question: "Bitcoin Up or Down",
				Active: true, AcceptingOrders: true, EndDate: endDate,
				Outcomes: `["Yes","No"]`, ClobTokenIDs: `["t1","t2"]`,
			},
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(markets)
	}))
	defer server.Close()

	s := newTestScanner(t, server.URL)
	s.refreshWatchlist(context.Background())

	if len(s.watchlist) != 1 {
		t.Fatalf("expected 1 watchlist entry, got %d", len(s.watchlist))
	}
}

func TestRefreshWatchlistPrunesOutOfHorizon(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode([]metadata.RawMarket{})
	}))
	defer server.Close()

	s := newTestScanner(t, server.URL)
	s.watchlist["stale"] = types.MarketSnapshot{MarketID: "stale"}
	s.refreshWatchlist(context.Background())

	if len(s.watchlist) != 0 {
		t.Errorf("expected stale entry pruned, got %d entries", len(s.watchlist))
	}
}
