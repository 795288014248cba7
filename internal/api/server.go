// Package api is a small read-only HTTP dashboard over the document
// store and the risk guard. Out of core scope per spec §1 (the HTTP
// dashboard is ambient surface, not a spec module) but carried because
// the teacher always ships one: grounded on the teacher's own
// internal/api/server.go net/http.ServeMux + narrow-AppState-interface
// shape, trimmed from its full maker/taker dashboard (grants, coaching,
// CSV exports) down to the /status, /positions and /pnl endpoints this
// domain needs, plus a /health liveness probe.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/polybot/arb-trader/internal/risk"
	"github.com/polybot/arb-trader/pkg/types"
)

// StateProvider is the read surface the dashboard needs from the
// document store, satisfied by *internal/store.Store. Kept narrow so
// tests can fake it the way the teacher's AppState interface let its
// own server tests fake the trading app.
type StateProvider interface {
	OpenPositions() ([]types.Position, error)
	TotalExposure() (float64, error)
	GetDailyPnL(date string) (types.DailyPnL, bool, error)
}

// Server is a lightweight HTTP API for the trading dashboard.
type Server struct {
	httpServer *http.Server
	store      StateProvider
	guard      *risk.Guard
	startedAt  time.Time
	logger     *slog.Logger
}

// NewServer creates a new API server bound to addr.
func NewServer(addr string, store StateProvider, guard *risk.Guard, logger *slog.Logger) *Server {
	s := &Server{
		store:     store,
		guard:     guard,
		startedAt: time.Now(),
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/positions", s.handlePositions)
	mux.HandleFunc("/pnl", s.handlePnL)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving HTTP requests on a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("api server listening", "addr", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("api server stopped", "err", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response failed", "err", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"ok":       true,
		"uptime_s": time.Since(s.startedAt).Seconds(),
	})
}

// handleStatus reports the risk guard's halt state and exposure —
// the dashboard's single "is the bot healthy" view.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.guard.Snapshot()
	exposure, err := s.store.TotalExposure()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"halted":                snap.Halted,
		"halt_reason":           snap.HaltReason,
		"consecutive_failures":  snap.ConsecutiveFailures,
		"max_consecutive_fails": snap.MaxConsecutiveFails,
		"today_pnl":             snap.TodayPnL,
		"today_return_pct":      snap.TodayReturnPct,
		"open_exposure":         exposure,
		"uptime_s":              time.Since(s.startedAt).Seconds(),
	})
}

func (s *Server) handlePositions(w http.ResponseWriter, _ *http.Request) {
	positions, err := s.store.OpenPositions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"count":     len(positions),
		"positions": positions,
	})
}

func (s *Server) handlePnL(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	daily, ok, err := s.store.GetDailyPnL(date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		s.writeJSON(w, types.DailyPnL{Date: date})
		return
	}
	s.writeJSON(w, daily)
}
