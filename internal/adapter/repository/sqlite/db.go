// Package sqlite stores settlements in a terminal-local SQLite database for
// tills that run without a reachable Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlitedriver "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// timeLayout keeps a fixed-width fraction so stored timestamps sort
// lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Open opens (or creates) the SQLite database at dsn and ensures all tables
// exist. Pass ":memory:" for an in-memory database.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pos_sessions (
			id TEXT PRIMARY KEY,
			terminal_id TEXT NOT NULL,
			opening_balance TEXT NOT NULL DEFAULT '0',
			expected_cash TEXT NOT NULL DEFAULT '0',
			started_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pos_transactions (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES pos_sessions(id),
			payment_method TEXT NOT NULL,
			total TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'completed',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pos_transactions_session ON pos_transactions(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS pos_refunds (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES pos_sessions(id),
			amount TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pos_refunds_session ON pos_refunds(session_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS settlements (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			opening_balance TEXT NOT NULL,
			expected_cash TEXT NOT NULL,
			actual_cash TEXT NOT NULL,
			difference TEXT NOT NULL,
			denominations TEXT NOT NULL DEFAULT '[]',
			notes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			completed_by TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_end_time ON settlements(end_time)`,
		`CREATE TABLE IF NOT EXISTS settlement_adjustments (
			id TEXT PRIMARY KEY,
			settlement_id TEXT NOT NULL REFERENCES settlements(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('add', 'subtract')),
			amount TEXT NOT NULL,
			reason TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_settlement_adjustments_settlement ON settlement_adjustments(settlement_id, position)`,

		`CREATE TABLE IF NOT EXISTS outbox_events (
			id TEXT PRIMARY KEY,
			aggregate_id TEXT NOT NULL,
			aggregate_type TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL,
			published_at TEXT,
			published INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_events_published ON outbox_events(published, created_at)`,

		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			resource_type TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			request_id TEXT NOT NULL DEFAULT '',
			before_state TEXT,
			after_state TEXT,
			status TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}

	return nil
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func errorCode(err error) int {
	var sqliteErr *sqlitedriver.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()
	}
	return 0
}

func isUniqueViolation(err error) bool {
	switch errorCode(err) {
	case sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// IsRetryable reports whether err is a busy or locked database, which a
// retry can clear once the other writer finishes.
func IsRetryable(err error) bool {
	switch errorCode(err) & 0xff {
	case sqlitelib.SQLITE_BUSY, sqlitelib.SQLITE_LOCKED:
		return true
	}
	return false
}
