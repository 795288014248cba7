package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/polybot/arb-trader/pkg/types"
)

// CreatePosition inserts a new position document (status pending or
// open). Overwrites any existing document for the same position_id,
// matching the executor's single-writer-per-position contract.
func (s *Store) CreatePosition(p types.Position) error {
	return s.SavePosition(p)
}

// SavePosition upserts a position document, keeping the status and
// opened_at index columns in sync with the body.
func (s *Store) SavePosition(p types.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	opened := p.OpenedAt.UTC().Format(time.RFC3339)
	_, err = s.db.Exec(
		`INSERT INTO positions (position_id, market_id, status, body, opened_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(position_id) DO UPDATE SET
		   market_id = excluded.market_id,
		   status    = excluded.status,
		   body      = excluded.body,
		   opened_at = excluded.opened_at,
		   updated_at = excluded.updated_at`,
		p.PositionID, p.MarketID, string(p.Status), string(body), opened, now,
	)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}

// GetPosition returns a single position by ID, or (zero-value, false)
// if no such document exists.
func (s *Store) GetPosition(positionID string) (types.Position, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var body string
	err := s.db.QueryRow(`SELECT body FROM positions WHERE position_id = ?`, positionID).Scan(&body)
	if err == sql.ErrNoRows {
		return types.Position{}, false, nil
	}
	if err != nil {
		return types.Position{}, false, fmt.Errorf("get position: %w", err)
	}
	var p types.Position
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return types.Position{}, false, fmt.Errorf("unmarshal position: %w", err)
	}
	return p, true, nil
}

// OpenPositions returns every position currently in the "open" state,
// newest first. Consumed by the resolver each polling tick.
func (s *Store) OpenPositions() ([]types.Position, error) {
	return s.positionsByStatus(types.PositionOpen)
}

func (s *Store) positionsByStatus(status types.PositionStatus) ([]types.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT body FROM positions WHERE status = ? ORDER BY opened_at DESC`, string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var out []types.Position
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		var p types.Position
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			return nil, fmt.Errorf("unmarshal position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountOpenPositions is a cheap existence-style count used by the risk
// guard's concurrent-positions check, avoiding a full document fetch.
func (s *Store) CountOpenPositions() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM positions WHERE status IN ('pending', 'open')`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open positions: %w", err)
	}
	return n, nil
}

// TotalExposure sums ActualTotalCost (falling back to TotalCost for
// positions not yet filled) across every non-terminal position.
func (s *Store) TotalExposure() (float64, error) {
	positions, err := s.openAndPendingPositions()
	if err != nil {
		return 0, err
	}
	var total float64
	for _, p := range positions {
		if p.ActualTotalCost > 0 {
			total += p.ActualTotalCost
		} else {
			total += p.TotalCost
		}
	}
	return total, nil
}

func (s *Store) openAndPendingPositions() ([]types.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT body FROM positions WHERE status IN ('pending', 'open') ORDER BY opened_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var out []types.Position
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		var p types.Position
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			return nil, fmt.Errorf("unmarshal position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
