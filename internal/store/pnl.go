package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/polybot/arb-trader/pkg/types"
)

// GetDailyPnL returns the rollup document for an ISO date
// ("2006-01-02"), or (zero-value, false) if no trades have settled
// that day yet.
func (s *Store) GetDailyPnL(date string) (types.DailyPnL, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var body string
	err := s.db.QueryRow(`SELECT body FROM pnl_daily WHERE date = ?`, date).Scan(&body)
	if err == sql.ErrNoRows {
		return types.DailyPnL{}, false, nil
	}
	if err != nil {
		return types.DailyPnL{}, false, fmt.Errorf("get pnl_daily: %w", err)
	}
	var d types.DailyPnL
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return types.DailyPnL{}, false, fmt.Errorf("unmarshal pnl_daily: %w", err)
	}
	return d, true, nil
}

// SaveDailyPnL upserts the rollup document for a date.
func (s *Store) SaveDailyPnL(d types.DailyPnL) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal pnl_daily: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO pnl_daily (date, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		d.Date, string(body), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert pnl_daily: %w", err)
	}
	return nil
}
