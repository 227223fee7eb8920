// Package store persists inbox summaries extracted from the messaging session.
//
// The inboxes table is an upsert-only projection: one row per
// (backend_id, account_index, phone_number), last writer wins, no history.
// The campaigns table carries the external exclusive-activity signal the
// reconciliation sweep yields to.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// InboxRow is one persisted conversation preview.
type InboxRow struct {
	BackendID     string
	AccountIndex  int
	Phone         string // normalized, digits only with country code
	LastMessage   string
	LastMessageAt time.Time // sync-time observation, not message time
	UnreadCount   int
	UpdatedAt     time.Time
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open initializes the SQLite database at the given path, creating the schema
// if needed. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS inboxes (
			backend_id            TEXT NOT NULL,
			account_index         INTEGER NOT NULL,
			phone_number          TEXT NOT NULL,
			last_message          TEXT NOT NULL DEFAULT '',
			last_message_timestamp TIMESTAMP,
			unread_count          INTEGER NOT NULL DEFAULT 0,
			updated_at            TIMESTAMP,
			PRIMARY KEY (backend_id, account_index, phone_number)
		)`,
		`CREATE TABLE IF NOT EXISTS campaigns (
			id         TEXT PRIMARY KEY,
			status     TEXT NOT NULL DEFAULT 'inactive',
			updated_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_inboxes_updated ON inboxes(updated_at)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertInbox writes one inbox summary row, overwriting any previous state for
// the same (backend, account, phone) key.
func (s *Store) UpsertInbox(ctx context.Context, row InboxRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inboxes (backend_id, account_index, phone_number, last_message, last_message_timestamp, unread_count, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(backend_id, account_index, phone_number) DO UPDATE SET
			last_message = excluded.last_message,
			last_message_timestamp = excluded.last_message_timestamp,
			unread_count = excluded.unread_count,
			updated_at = excluded.updated_at`,
		row.BackendID, row.AccountIndex, row.Phone,
		row.LastMessage, row.LastMessageAt, row.UnreadCount, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert inbox row %s/%d/%s: %w",
			row.BackendID, row.AccountIndex, row.Phone, err)
	}
	return nil
}

// ListInboxes returns all rows for a backend, most recently updated first.
func (s *Store) ListInboxes(ctx context.Context, backendID string) ([]InboxRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT backend_id, account_index, phone_number, last_message, last_message_timestamp, unread_count, updated_at
		 FROM inboxes WHERE backend_id = ? ORDER BY updated_at DESC`, backendID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inboxes: %w", err)
	}
	defer rows.Close()

	var out []InboxRow
	for rows.Next() {
		var r InboxRow
		if err := rows.Scan(&r.BackendID, &r.AccountIndex, &r.Phone,
			&r.LastMessage, &r.LastMessageAt, &r.UnreadCount, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inbox row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountInboxes returns the number of rows for a backend.
func (s *Store) CountInboxes(ctx context.Context, backendID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inboxes WHERE backend_id = ?`, backendID).Scan(&n)
	return n, err
}

// HasActiveCampaign reports whether any campaign row is marked active. The
// sweep treats this as a cooperative yield signal, not a lock.
func (s *Store) HasActiveCampaign(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM campaigns WHERE status = 'active'`).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query campaigns: %w", err)
	}
	return n > 0, nil
}

// SetCampaignStatus creates or updates a campaign's status.
func (s *Store) SetCampaignStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaigns (id, status, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set campaign %s status: %w", id, err)
	}
	return nil
}
