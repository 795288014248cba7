package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/polybot/arb-trader/pkg/types"
)

// UpsertMarket writes the latest scanned snapshot for a market,
// replacing any prior document for the same market_id.
func (s *Store) UpsertMarket(m types.MarketSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal market: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO markets (market_id, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(market_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		m.MarketID, string(body), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert market: %w", err)
	}
	return nil
}

// GetMarket returns the last-scanned snapshot for a market, or
// (zero-value, false) if none is stored.
func (s *Store) GetMarket(marketID string) (types.MarketSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var body string
	err := s.db.QueryRow(`SELECT body FROM markets WHERE market_id = ?`, marketID).Scan(&body)
	if err == sql.ErrNoRows {
		return types.MarketSnapshot{}, false, nil
	}
	if err != nil {
		return types.MarketSnapshot{}, false, fmt.Errorf("get market: %w", err)
	}
	var m types.MarketSnapshot
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return types.MarketSnapshot{}, false, fmt.Errorf("unmarshal market: %w", err)
	}
	return m, true, nil
}
