package domain

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 10, 19, 21, 30, 0, 0, time.UTC)

func newTestSettlement(t *testing.T, expected int64, labels ...string) Settlement {
	t.Helper()

	session := Session{
		ID:             "sess-1",
		OpeningBalance: decimal.NewFromInt(100),
		ExpectedCash:   decimal.NewFromInt(expected),
		StartedAt:      testNow.Add(-8 * time.Hour),
	}
	txs := []TransactionSummary{
		{ID: "t1", PaymentMethod: "Cash", Total: decimal.NewFromInt(50)},
		{ID: "t2", PaymentMethod: "Visa Card", Total: decimal.NewFromInt(30)},
		{ID: "t3", PaymentMethod: "UPI", Total: decimal.NewFromInt(20)},
	}

	return NewSettlement("stl-1", session, testSet(t, labels...), txs, []Refund{{Amount: decimal.NewFromInt(4)}}, testNow)
}

func mustSetCount(t *testing.T, s Settlement, label string, count int) Settlement {
	t.Helper()
	next, err := s.WithDenominationCount(label, count)
	if err != nil {
		t.Fatalf("WithDenominationCount(%s, %d): %v", label, count, err)
	}
	return next
}

func TestNewSettlement(t *testing.T) {
	s := newTestSettlement(t, 300, "100", "10")

	if s.Status != SettlementStatusPending {
		t.Fatalf("expected pending, got %s", s.Status)
	}
	if !s.ActualCash().IsZero() {
		t.Fatalf("expected zero actual cash, got %s", s.ActualCash())
	}
	if !s.Difference().Equal(decimal.NewFromInt(-300)) {
		t.Fatalf("expected difference -300, got %s", s.Difference())
	}
	if s.EndTime != nil {
		t.Fatal("expected end time to be unset")
	}
	if !s.StartTime.Equal(testNow.Add(-8 * time.Hour)) {
		t.Fatalf("expected session start time, got %s", s.StartTime)
	}
}

func TestSettlement_ReconciliationScenario(t *testing.T) {
	s := newTestSettlement(t, 300, "100", "10")

	s = mustSetCount(t, s, "100", 3)
	s = mustSetCount(t, s, "10", 2)

	if !s.ActualCash().Equal(decimal.NewFromInt(320)) {
		t.Fatalf("expected actual cash 320, got %s", s.ActualCash())
	}
	if !s.Difference().Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected difference 20, got %s", s.Difference())
	}

	adj, err := NewAdjustment("adj-1", AdjustmentTypeSubtract, decimal.NewFromInt(20), "cash drop", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err = s.WithAdjustment(adj)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !s.NetAdjustment().Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("expected net impact -20, got %s", s.NetAdjustment())
	}
	if !s.Difference().Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected adjustments to leave difference at 20, got %s", s.Difference())
	}
	if s.Variance() != VarianceOver {
		t.Fatalf("expected over variance, got %s", s.Variance())
	}
}

func TestSettlement_DerivedFieldsStayConsistent(t *testing.T) {
	labels := []string{"500", "100", "20", "5", "1", "0.50"}
	s := newTestSettlement(t, 777, labels...)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		label := labels[rng.Intn(len(labels))]
		if rng.Intn(10) == 0 {
			label = "unknown"
		}
		count := rng.Intn(60) - 10

		prev := s
		s = mustSetCount(t, s, label, count)

		want := decimal.Zero
		for _, d := range s.Denominations {
			if d.Count < 0 {
				t.Fatalf("step %d: negative count stored for %s", i, d.Label)
			}
			want = want.Add(d.FaceValue.Mul(decimal.NewFromInt(int64(d.Count))))
		}

		if !s.ActualCash().Equal(want) {
			t.Fatalf("step %d: actual cash %s != Σ count×face %s", i, s.ActualCash(), want)
		}
		if !s.Difference().Equal(s.ActualCash().Sub(s.ExpectedCash)) {
			t.Fatalf("step %d: difference drifted", i)
		}
		if label == "unknown" && !prev.ActualCash().Equal(s.ActualCash()) {
			t.Fatalf("step %d: unknown label changed totals", i)
		}
	}
}

func TestSettlement_SnapshotsAreIndependent(t *testing.T) {
	s := newTestSettlement(t, 0, "10")

	next := mustSetCount(t, s, "10", 3)

	if s.Denominations[0].Count != 0 {
		t.Fatal("expected previous snapshot to be untouched")
	}
	if next.Denominations[0].Count != 3 {
		t.Fatalf("expected new snapshot count 3, got %d", next.Denominations[0].Count)
	}
}

func TestSettlement_AdjustmentRoundTrip(t *testing.T) {
	s := newTestSettlement(t, 300, "100")
	s = mustSetCount(t, s, "100", 3)
	keep, _ := NewAdjustment("adj-keep", AdjustmentTypeAdd, decimal.NewFromInt(7), "float top-up", testNow)
	s, _ = s.WithAdjustment(keep)
	before := s

	adj, _ := NewAdjustment("adj-tmp", AdjustmentTypeSubtract, decimal.NewFromInt(12), "payout", testNow)
	with, err := s.WithAdjustment(adj)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if with.NetAdjustment().Equal(before.NetAdjustment()) {
		t.Fatal("expected net impact to change after adding")
	}

	after, err := with.WithoutAdjustment("adj-tmp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !after.NetAdjustment().Equal(before.NetAdjustment()) {
		t.Fatalf("expected net impact %s, got %s", before.NetAdjustment(), after.NetAdjustment())
	}
	if len(after.Adjustments) != 1 || after.Adjustments[0].ID != "adj-keep" {
		t.Fatalf("unexpected adjustments: %+v", after.Adjustments)
	}
	if !after.ActualCash().Equal(before.ActualCash()) || !after.Difference().Equal(before.Difference()) || after.Notes != before.Notes {
		t.Fatal("expected other fields to be unchanged")
	}
}

func TestSettlement_RemoveUnknownAdjustmentIsNoop(t *testing.T) {
	s := newTestSettlement(t, 0, "10")
	adj, _ := NewAdjustment("adj-1", AdjustmentTypeAdd, decimal.NewFromInt(1), "r", testNow)
	s, _ = s.WithAdjustment(adj)

	next, err := s.WithoutAdjustment("missing")

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(next.Adjustments) != 1 {
		t.Fatalf("expected adjustments unchanged, got %d", len(next.Adjustments))
	}
}

func TestSettlement_ApplyNotes(t *testing.T) {
	s := newTestSettlement(t, 0, "10")
	notes := "drawer jammed at 14:00"

	next, err := s.Apply(SettlementUpdate{Notes: &notes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Notes != notes {
		t.Fatalf("expected notes to be merged, got %q", next.Notes)
	}

	unchanged, err := next.Apply(SettlementUpdate{})
	if err != nil || unchanged.Notes != notes {
		t.Fatalf("expected nil update to keep notes, got %q err=%v", unchanged.Notes, err)
	}
}

func TestSettlement_CompletedIsImmutable(t *testing.T) {
	s := newTestSettlement(t, 300, "100")
	s = mustSetCount(t, s, "100", 3)

	done, err := s.Complete(testNow, "op-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != SettlementStatusCompleted || done.EndTime == nil || done.CompletedBy != "op-1" {
		t.Fatalf("unexpected completed settlement: %+v", done)
	}

	notes := "late"
	adj, _ := NewAdjustment("adj-1", AdjustmentTypeAdd, decimal.NewFromInt(1), "r", testNow)

	if _, err := done.WithDenominationCount("100", 9); !errors.Is(err, ErrSettlementCompleted) {
		t.Fatalf("expected ErrSettlementCompleted for count, got %v", err)
	}
	if _, err := done.WithAdjustment(adj); !errors.Is(err, ErrSettlementCompleted) {
		t.Fatalf("expected ErrSettlementCompleted for adjustment, got %v", err)
	}
	if _, err := done.WithoutAdjustment("adj-1"); !errors.Is(err, ErrSettlementCompleted) {
		t.Fatalf("expected ErrSettlementCompleted for removal, got %v", err)
	}
	if _, err := done.Apply(SettlementUpdate{Notes: &notes}); !errors.Is(err, ErrSettlementCompleted) {
		t.Fatalf("expected ErrSettlementCompleted for notes, got %v", err)
	}
	if _, err := done.Complete(testNow, "op-2"); !errors.Is(err, ErrSettlementCompleted) {
		t.Fatalf("expected ErrSettlementCompleted for second completion, got %v", err)
	}
}
