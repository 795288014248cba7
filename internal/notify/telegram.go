package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Notifier sends alerts to a Telegram chat via the Bot API.
type Notifier struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	enabled    bool
	baseURL    string // overridable for testing; defaults to Telegram API
}

// NewNotifier creates a Notifier. Notifications are enabled only when both
// botToken and chatID are non-empty.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		enabled:    botToken != "" && chatID != "",
	}
}

// Enabled reports whether the notifier is active.
func (n *Notifier) Enabled() bool { return n.enabled }

// Send posts a message to the configured Telegram chat.
func (n *Notifier) Send(ctx context.Context, msg string) error {
	if !n.enabled {
		return nil
	}

	endpoint := n.baseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	}
	vals := url.Values{
		"chat_id":    {n.chatID},
		"text":       {msg},
		"parse_mode": {"HTML"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.URL.RawQuery = vals.Encode()

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("notify: telegram %d: %s", resp.StatusCode, body.Description)
	}
	return nil
}

// NotifyHalt sends the sticky-halt alert — spec's "an alert sink is
// notified on halt" (§7), fired whenever the risk guard transitions
// into a halted state.
func (n *Notifier) NotifyHalt(ctx context.Context, reason string) error {
	msg := fmt.Sprintf("<b>TRADING HALTED</b>\nReason: %s\nOperator action required to resume.", reason)
	return n.Send(ctx, msg)
}

// NotifyTradeFailed sends an alert for a position the executor could
// not open.
func (n *Notifier) NotifyTradeFailed(ctx context.Context, positionID string, strategy string, reason string) error {
	msg := fmt.Sprintf("<b>Trade Failed</b>\nPosition: <code>%s</code>\nStrategy: %s\nReason: %s", positionID, strategy, reason)
	return n.Send(ctx, msg)
}

// NotifyResolution sends an alert when the resolver closes a position,
// reporting its realized P&L.
func (n *Notifier) NotifyResolution(ctx context.Context, positionID string, strategy string, pnl float64) error {
	sign := ""
	if pnl >= 0 {
		sign = "+"
	}
	msg := fmt.Sprintf("<b>Position Resolved</b>\nPosition: <code>%s</code>\nStrategy: %s\nPnL: %s%.2f USDC", positionID, strategy, sign, pnl)
	return n.Send(ctx, msg)
}

// NotifyDailySummary sends the end-of-day performance rollup.
func (n *Notifier) NotifyDailySummary(ctx context.Context, totalPnL float64, totalTrades int, winRatePct float64) error {
	msg := fmt.Sprintf("<b>Daily Summary</b>\nPnL: %.2f USDC\nTrades: %d\nWin Rate: %.1f%%", totalPnL, totalTrades, winRatePct)
	return n.Send(ctx, msg)
}
