// Package feed is the Price-Feed Client (C1): a reconnecting
// WebSocket subscription to a combined spot-ticker stream for a fixed
// symbol set, keeping a ring buffer of recent prices per symbol for
// the late-market strategy's volatility check. Adapted from the
// teacher's BookSnapshot (a concurrent-safe, mutex-guarded snapshot
// map keyed by asset) — the same concurrency idiom, holding recent
// spot prices instead of Polymarket orderbook levels.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polybot/arb-trader/internal/config"
)

// Feed maintains the latest price and a rolling price history per
// symbol. All reader methods (Latest, Volatility, History) take an
// RLock and never block on network I/O — the spec's "never blocks
// readers" contract.
type Feed struct {
	mu      sync.RWMutex
	history map[string][]float64

	symbols           []string
	window            int
	wsURL             string
	reconnectBackoff  time.Duration
	keepaliveInterval time.Duration

	logger *slog.Logger
}

// NewFeed builds a Price-Feed Client from configuration. It does not
// connect; call Run to start the reconnect loop.
func NewFeed(cfg config.FeedConfig, logger *slog.Logger) *Feed {
	history := make(map[string][]float64, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		history[strings.ToLower(s)] = nil
	}
	return &Feed{
		history:           history,
		symbols:           cfg.Symbols,
		window:            cfg.HistoryWindow,
		wsURL:             cfg.WSURL,
		reconnectBackoff:  cfg.ReconnectBackoff,
		keepaliveInterval: cfg.KeepaliveInterval,
		logger:            logger,
	}
}

// Run connects and listens until ctx is cancelled, reconnecting with
// a fixed back-off on every disconnect.
func (f *Feed) Run(ctx context.Context) error {
	streamURL := f.combinedStreamURL()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := f.connectAndListen(ctx, streamURL); err != nil && ctx.Err() == nil {
			f.logger.Warn("price feed disconnected", "err", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.reconnectBackoff):
		}
	}
}

func (f *Feed) combinedStreamURL() string {
	streams := make([]string, 0, len(f.symbols))
	for _, s := range f.symbols {
		streams = append(streams, strings.ToLower(s)+"@ticker")
	}
	return f.wsURL + "/" + strings.Join(streams, "/")
}

// connectAndListen runs one connection's worth of the read loop. A
// message silence of keepaliveInterval triggers a ping and the loop
// reads again. gorilla/websocket fails every read after a timed-out
// one, so that next read returns the timeout at once and the
// connection is closed after a single silent window; the loop does not
// wait a second window for traffic or a pong before the outer loop
// reconnects.
func (f *Feed) connectAndListen(ctx context.Context, url string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.logger.Info("price feed connected", "url", url)

	silentWindows := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn.SetReadDeadline(time.Now().Add(f.keepaliveInterval))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if isTimeout(err) {
				silentWindows++
				if silentWindows >= 2 {
					return err
				}
				if pingErr := conn.WriteMessage(websocket.PingMessage, nil); pingErr != nil {
					return pingErr
				}
				continue
			}
			return err
		}
		silentWindows = 0
		f.process(msg)
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

type combinedMsg struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type tickerData struct {
	Symbol string `json:"s"`
	Close  string `json:"c"`
}

func (f *Feed) process(raw []byte) {
	var env combinedMsg
	payload := raw
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		payload = env.Data
	}

	var tick tickerData
	if err := json.Unmarshal(payload, &tick); err != nil {
		return
	}
	symbol := strings.ToLower(tick.Symbol)
	price, err := strconv.ParseFloat(tick.Close, 64)
	if err != nil || price <= 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, tracked := f.history[symbol]; !tracked {
		return
	}
	hist := append(f.history[symbol], price)
	if len(hist) > f.window {
		hist = hist[len(hist)-f.window:]
	}
	f.history[symbol] = hist
}

// Latest returns the most recent price for symbol, or false if no
// tick has arrived yet.
func (f *Feed) Latest(symbol string) (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	hist := f.history[strings.ToLower(symbol)]
	if len(hist) == 0 {
		return 0, false
	}
	return hist[len(hist)-1], true
}

// Volatility returns the sample standard deviation of the last window
// prices, divided by their mean, in percent. Returns 0 with fewer
// than 2 samples.
func (f *Feed) Volatility(symbol string, window int) float64 {
	f.mu.RLock()
	hist := f.history[strings.ToLower(symbol)]
	f.mu.RUnlock()

	if window > 0 && len(hist) > window {
		hist = hist[len(hist)-window:]
	}
	if len(hist) < 2 {
		return 0
	}

	var sum float64
	for _, p := range hist {
		sum += p
	}
	mean := sum / float64(len(hist))
	if mean == 0 {
		return 0
	}

	var variance float64
	for _, p := range hist {
		diff := p - mean
		variance += diff * diff
	}
	variance /= float64(len(hist) - 1)

	return math.Sqrt(variance) / mean * 100
}

// Seed overwrites symbol's price history, truncated to the configured
// window. Used by tests and by replay tooling to preload a feed
// without a live connection.
func (f *Feed) Seed(symbol string, prices []float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hist := append([]float64(nil), prices...)
	if f.window > 0 && len(hist) > f.window {
		hist = hist[len(hist)-f.window:]
	}
	f.history[strings.ToLower(symbol)] = hist
}

// History returns a snapshot copy of the ring buffer for symbol.
func (f *Feed) History(symbol string) []float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	hist := f.history[strings.ToLower(symbol)]
	out := make([]float64, len(hist))
	copy(out, hist)
	return out
}
