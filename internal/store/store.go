// Package store provides the opaque document store backing the bot:
// four collections (markets, positions, pnl_daily, events_log), each a
// SQLite table keyed by its natural document ID with the document body
// held as a JSON blob column. Single-document writes are wrapped in a
// transaction so a crash mid-write never leaves a collection with a
// partially-applied document, matching the atomic-replace guarantee
// the in-pack file-based store (one .tmp + os.Rename per position)
// gives at the filesystem level.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store wraps a single SQLite database file holding all four
// collections.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func dbPath(dir string) string {
	return filepath.Join(dir, "bot.db")
}

// Open creates dir if needed, opens (or creates) the SQLite database
// inside it, and runs schema migrations.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	path := dbPath(dir)
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(0)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	s := &Store{db: sqlDB}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS markets (
			market_id  TEXT PRIMARY KEY,
			body       TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS positions (
			position_id TEXT PRIMARY KEY,
			market_id   TEXT NOT NULL,
			status      TEXT NOT NULL,
			body        TEXT NOT NULL,
			opened_at   TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
		CREATE INDEX IF NOT EXISTS idx_positions_opened_at ON positions(opened_at DESC);

		CREATE TABLE IF NOT EXISTS pnl_daily (
			date       TEXT PRIMARY KEY,
			body       TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS events_log (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  TEXT NOT NULL,
			level      TEXT NOT NULL,
			body       TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_log_ts ON events_log(timestamp DESC);
	`)
	return err
}
