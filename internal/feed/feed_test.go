package feed

import (
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/polybot/arb-trader/internal/config"
)

func newTestFeed(window int) *Feed {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	cfg := config.FeedConfig{
		Symbols:       []string{"btcusdt", "ethusdt"},
		HistoryWindow: window,
	}
	return NewFeed(cfg, logger)
}

func TestProcessUpdatesLatest(t *testing.T) {
	f := newTestFeed(60)
	f.process([]byte(`{"stream":"btcusdt@ticker","data":{"s":"BTCUSDT","c":"67890.12"}}`))

	price, ok := f.Latest("btcusdt")
	if !ok {
		t.Fatal("expected a latest price")
	}
	if price != 67890.12 {
		t.Errorf("Latest = %v, want 67890.12", price)
	}
}

func TestProcessIgnoresUntrackedSymbol(t *testing.T) {
	f := newTestFeed(60)
	f.process([]byte(`{"stream":"dogeusdt@ticker","data":{"s":"DOGEUSDT","c":"0.12"}}`))

	if _, ok := f.Latest("dogeusdt"); ok {
		t.Error("expected untracked symbol to be ignored")
	}
}

func TestProcessIgnoresBadPrice(t *testing.T) {
	f := newTestFeed(60)
	f.process([]byte(`{"stream":"btcusdt@ticker","data":{"s":"BTCUSDT","c":"not-a-number"}}`))
	if _, ok := f.Latest("btcusdt"); ok {
		t.Error("expected unparseable price to be dropped")
	}
}

func TestProcessRingBufferCapsAtWindow(t *testing.T) {
	f := newTestFeed(3)
	for i := 1; i <= 5; i++ {
		f.process([]byte(fmt.Sprintf(`{"data":{"s":"BTCUSDT","c":"%d"}}`, i)))
	}
	hist := f.History("btcusdt")
	if len(hist) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(hist))
	}
	if hist[0] != 3 || hist[2] != 5 {
		t.Errorf("expected [3 4 5], got %v", hist)
	}
}

func TestVolatilityInsufficientSamples(t *testing.T) {
	f := newTestFeed(60)
	f.process([]byte(`{"data":{"s":"BTCUSDT","c":"100"}}`))
	if v := f.Volatility("btcusdt", 60); v != 0 {
		t.Errorf("Volatility with 1 sample = %v, want 0", v)
	}
}

func TestVolatilityFlatPricesIsZero(t *testing.T) {
	f := newTestFeed(60)
	for i := 0; i < 5; i++ {
		f.process([]byte(`{"data":{"s":"BTCUSDT","c":"100"}}`))
	}
	if v := f.Volatility("btcusdt", 60); v != 0 {
		t.Errorf("Volatility with flat prices = %v, want 0", v)
	}
}

func TestVolatilityNonZeroForVaryingPrices(t *testing.T) {
	f := newTestFeed(60)
	prices := []string{"100", "105", "95", "110", "90"}
	for _, p := range prices {
		f.process([]byte(`{"data":{"s":"BTCUSDT","c":"` + p + `"}}`))
	}
	v := f.Volatility("btcusdt", 60)
	if v <= 0 {
		t.Errorf("expected positive volatility, got %v", v)
	}
}

func TestLatestMissingSymbol(t *testing.T) {
	f := newTestFeed(60)
	if _, ok := f.Latest("ethusdt"); ok {
		t.Error("expected no price before any tick arrives")
	}
}

func TestIsTimeout(t *testing.T) {
	if isTimeout(nil) {
		t.Error("nil error should not be a timeout")
	}
}
