package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var sessionStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

// seedSession writes the POS rows of a session the way the till would.
func seedSession(t *testing.T, db *sql.DB, id, opening, expected string) {
	t.Helper()
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO pos_sessions (id, terminal_id, opening_balance, expected_cash, started_at) VALUES (?,?,?,?,?)`,
		id, "till-1", opening, expected, formatTime(sessionStart))
	require.NoError(t, err)

	txs := []struct{ id, method, total string }{
		{id + "-tx1", "Cash", "200"},
		{id + "-tx2", "Visa Card", "80"},
		{id + "-tx3", "UPI", "30.50"},
	}
	for i, tx := range txs {
		_, err := db.ExecContext(ctx,
			`INSERT INTO pos_transactions (id, session_id, payment_method, total, created_at) VALUES (?,?,?,?,?)`,
			tx.id, id, tx.method, tx.total, formatTime(sessionStart.Add(time.Duration(i+1)*time.Minute)))
		require.NoError(t, err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO pos_refunds (id, session_id, amount, created_at) VALUES (?,?,?,?)`,
		id+"-rf1", id, "12.25", formatTime(sessionStart.Add(time.Hour)))
	require.NoError(t, err)
}
