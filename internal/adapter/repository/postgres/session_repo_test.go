package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/tillclose/internal/domain"
)

func TestSessionRepositoryGetSession(t *testing.T) {
	pool := newMockPool(t)
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	pool.ExpectQuery(regexp.QuoteMeta("FROM pos_sessions")).
		WithArgs("sess-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "terminal_id", "opening_balance", "expected_cash", "started_at"}).
			AddRow("sess-1", "till-3", "100.00", "300.00", started))

	repo := NewSessionRepository(pool)
	got, err := repo.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.Equal(t, "till-3", got.TerminalID)
	assert.True(t, got.OpeningBalance.Equal(decimal.NewFromInt(100)))
	assert.True(t, got.ExpectedCash.Equal(decimal.NewFromInt(300)))
	assert.True(t, got.StartedAt.Equal(started))

	assertExpectations(t, pool)
}

func TestSessionRepositoryGetSessionNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery(regexp.QuoteMeta("FROM pos_sessions")).
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"id", "terminal_id", "opening_balance", "expected_cash", "started_at"}))

	repo := NewSessionRepository(pool)
	_, err := repo.GetSession(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRepositoryListTransactionsError(t *testing.T) {
	pool := newMockPool(t)
	boom := errors.New("connection reset")
	pool.ExpectQuery(regexp.QuoteMeta("FROM pos_transactions")).
		WithArgs("sess-1").
		WillReturnError(boom)

	repo := NewSessionRepository(pool)
	_, err := repo.ListTransactions(context.Background(), "sess-1")

	assert.ErrorIs(t, err, boom)
}

func TestSessionRepositoryListRefundsEmpty(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery(regexp.QuoteMeta("FROM pos_refunds")).
		WithArgs("sess-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "amount"}))

	repo := NewSessionRepository(pool)
	got, err := repo.ListRefunds(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}
