package redis

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/tillclose/internal/domain"
)

func draftSettlement(t *testing.T) domain.Settlement {
	t.Helper()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := domain.NewSettlement("stl-1",
		domain.Session{ID: "sess-1", OpeningBalance: decimal.NewFromInt(100), ExpectedCash: decimal.NewFromInt(300), StartedAt: start},
		domain.DefaultDenominationSet(),
		[]domain.TransactionSummary{{ID: "tx-1", PaymentMethod: "Cash", Total: decimal.NewFromInt(200), Status: "completed"}},
		[]domain.Refund{{ID: "rf-1", Amount: decimal.RequireFromString("4.50")}},
		start,
	)

	s, err := s.WithDenominationCount("100", 3)
	require.NoError(t, err)

	adj, err := domain.NewAdjustment("adj-1", domain.AdjustmentTypeAdd, decimal.NewFromInt(20), "tip", start.Add(time.Hour))
	require.NoError(t, err)
	s, err = s.WithAdjustment(adj)
	require.NoError(t, err)

	s.Notes = "drawer short a note"
	return s
}

func TestDraftStoreSaveLoad(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewDraftStore(client, time.Hour)
	ctx := context.Background()
	want := draftSettlement(t)

	require.NoError(t, store.Save(ctx, want))
	assert.True(t, mr.Exists("draft:sess-1"))
	assert.Equal(t, time.Hour, mr.TTL("draft:sess-1"))

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, domain.SettlementStatusPending, got.Status)
	assert.Equal(t, want.Notes, got.Notes)
	assert.True(t, got.StartTime.Equal(want.StartTime))
	assert.True(t, got.ActualCash().Equal(decimal.NewFromInt(300)))
	assert.True(t, got.Difference().Equal(want.Difference()))
	require.Len(t, got.Denominations, len(want.Denominations))
	require.Len(t, got.Adjustments, 1)
	assert.Equal(t, domain.AdjustmentTypeAdd, got.Adjustments[0].Type)
	require.Len(t, got.Refunds, 1)
	assert.True(t, got.Refunds[0].Amount.Equal(decimal.RequireFromString("4.50")))
	assert.Equal(t, "Cash", got.Transactions[0].PaymentMethod)
}

func TestDraftStoreLoadMissing(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	_, err := NewDraftStore(client, 0).Load(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSettlementNotFound)
}

func TestDraftStoreExpiresAndDeletes(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewDraftStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, draftSettlement(t)))
	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, domain.ErrSettlementNotFound)

	require.NoError(t, store.Save(ctx, draftSettlement(t)))
	require.NoError(t, store.Delete(ctx, "sess-1"))
	assert.False(t, mr.Exists("draft:sess-1"))
}

func TestDraftStoreLoadCorrupt(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	require.NoError(t, mr.Set("draft:sess-1", "{broken"))

	_, err := NewDraftStore(client, 0).Load(context.Background(), "sess-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSettlementNotFound)
}
