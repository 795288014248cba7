package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/polybot/arb-trader/pkg/types"
)

// AppendEvent writes a single events_log row. The collection is
// append-only: no update or delete path exists by design.
func (s *Store) AppendEvent(e types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO events_log (timestamp, level, body) VALUES (?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano), string(e.Level), string(body),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit most-recent events_log rows,
// newest first.
func (s *Store) RecentEvents(limit int) ([]types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT body FROM events_log ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []types.Event
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e types.Event
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
