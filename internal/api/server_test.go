package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/polybot/arb-trader/internal/risk"
	"github.com/polybot/arb-trader/internal/store"
	"github.com/polybot/arb-trader/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "api-store-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	st, err := store.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testGuard(st *store.Store) *risk.Guard {
	return risk.New(risk.Config{
		MaxArbPositionSize: 1000, MaxLatePositionSize: 1000, MaxConcurrentPositions: 10,
		MaxDailyExposure: 10000, DailyLossHaltAmount: 1000, MaxConsecutiveFails: 5, Bankroll: 5000,
	}, st)
}

func TestHandleStatus(t *testing.T) {
	st := newTestStore(t)
	guard := testGuard(st)
	s := NewServer(":0", st, guard, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	s.handleStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["halted"] != false {
		t.Errorf("halted = %v, want false", resp["halted"])
	}
}

func TestHandleStatusReflectsHalt(t *testing.T) {
	st := newTestStore(t)
	guard := testGuard(st)
	guard.Halt("test halt")
	s := NewServer(":0", st, guard, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	s.handleStatus(w, req)

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["halted"] != true {
		t.Errorf("halted = %v, want true", resp["halted"])
	}
	if resp["halt_reason"] != "test halt" {
		t.Errorf("halt_reason = %v", resp["halt_reason"])
	}
}

func TestHandlePositions(t *testing.T) {
	st := newTestStore(t)
	guard := testGuard(st)
	if err := st.CreatePosition(types.Position{
		PositionID: "pos-1",
		MarketID:   "mkt-1",
		Strategy:   types.StrategyYesNo,
		Status:     types.PositionOpen,
		OpenedAt:   time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create position: %v", err)
	}
	s := NewServer(":0", st, guard, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/positions", nil)
	w := httptest.NewRecorder()
	s.handlePositions(w, req)

	var resp struct {
		Count     int               `json:"count"`
		Positions []types.Position  `json:"positions"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
}

func TestHandlePnLUnknownDateReturnsZeroed(t *testing.T) {
	st := newTestStore(t)
	guard := testGuard(st)
	s := NewServer(":0", st, guard, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/pnl?date=2099-01-01", nil)
	w := httptest.NewRecorder()
	s.handlePnL(w, req)

	var resp types.DailyPnL
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Date != "2099-01-01" {
		t.Errorf("date = %q", resp.Date)
	}
	if resp.TotalPnL != 0 {
		t.Errorf("total pnl = %v, want 0", resp.TotalPnL)
	}
}

func TestHandlePnLExistingDate(t *testing.T) {
	st := newTestStore(t)
	guard := testGuard(st)
	today := time.Now().UTC().Format("2006-01-02")
	if err := st.SaveDailyPnL(types.DailyPnL{Date: today, TotalPnL: 42.5, TotalTrades: 3}); err != nil {
		t.Fatalf("save daily pnl: %v", err)
	}
	s := NewServer(":0", st, guard, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/pnl", nil)
	w := httptest.NewRecorder()
	s.handlePnL(w, req)

	var resp types.DailyPnL
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalPnL != 42.5 {
		t.Errorf("total pnl = %v, want 42.5", resp.TotalPnL)
	}
}

func TestHandleHealth(t *testing.T) {
	st := newTestStore(t)
	guard := testGuard(st)
	s := NewServer(":0", st, guard, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
