package usecase

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tillclose/internal/domain"
)

func testWorkflowSettlement(t *testing.T) domain.Settlement {
	t.Helper()
	set, err := domain.NewDenominationSet([]domain.Denomination{
		{Label: "100", FaceValue: decimal.NewFromInt(100)},
		{Label: "10", FaceValue: decimal.NewFromInt(10)},
	})
	if err != nil {
		t.Fatalf("failed to build denominations: %v", err)
	}

	session := domain.Session{ID: "sess-1", ExpectedCash: decimal.NewFromInt(300)}
	return domain.NewSettlement("stl-1", session, set, nil, nil, time.Now())
}

func TestWorkflow_SavingBlocksMutation(t *testing.T) {
	w := newWorkflow(testWorkflowSettlement(t))

	if _, err := w.Mutate(func(s domain.Settlement) (domain.Settlement, error) {
		return s.WithDenominationCount("100", 3)
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := w.BeginCompletion(domain.CompletionPolicyBalanced, domain.SettlementUpdate{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.Saving() {
		t.Fatal("expected saving flag to be set")
	}

	_, err := w.Mutate(func(s domain.Settlement) (domain.Settlement, error) {
		return s.WithDenominationCount("10", 1)
	})
	if !errors.Is(err, domain.ErrCompletionInProgress) {
		t.Fatalf("expected ErrCompletionInProgress, got %v", err)
	}

	if _, err := w.BeginCompletion(domain.CompletionPolicyBalanced, domain.SettlementUpdate{}); !errors.Is(err, domain.ErrCompletionInProgress) {
		t.Fatalf("expected ErrCompletionInProgress for second completion, got %v", err)
	}

	w.FinishCompletion(nil)

	if _, err := w.Mutate(func(s domain.Settlement) (domain.Settlement, error) {
		return s.WithDenominationCount("10", 1)
	}); err != nil {
		t.Fatalf("expected mutation after failed completion, got %v", err)
	}
}

func TestWorkflow_GuardFailureLeavesFlagClear(t *testing.T) {
	w := newWorkflow(testWorkflowSettlement(t))

	_, err := w.BeginCompletion(domain.CompletionPolicyJustified, domain.SettlementUpdate{})
	if !errors.Is(err, domain.ErrCashNotCounted) {
		t.Fatalf("expected ErrCashNotCounted, got %v", err)
	}
	if w.Saving() {
		t.Fatal("expected saving flag to stay clear")
	}
}

func TestWorkflow_GuardFailureLeavesSnapshotUnchanged(t *testing.T) {
	w := newWorkflow(testWorkflowSettlement(t))

	notes := "closing early"
	_, err := w.BeginCompletion(domain.CompletionPolicyBalanced, domain.SettlementUpdate{Notes: &notes})
	if !errors.Is(err, domain.ErrCannotComplete) {
		t.Fatalf("expected ErrCannotComplete, got %v", err)
	}
	if got := w.Snapshot().Notes; got != "" {
		t.Fatalf("expected notes to stay empty, got %q", got)
	}
}

func TestWorkflow_SnapshotIsACopy(t *testing.T) {
	w := newWorkflow(testWorkflowSettlement(t))

	snap := w.Snapshot()
	snap.Denominations[0].Count = 99

	if w.Snapshot().Denominations[0].Count != 0 {
		t.Fatal("expected snapshot mutation not to leak into the workflow")
	}
}

func TestWorkflow_ConcurrentMutationsSerialize(t *testing.T) {
	w := newWorkflow(testWorkflowSettlement(t))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = w.Mutate(func(s domain.Settlement) (domain.Settlement, error) {
				return s.WithDenominationCount("10", s.Denominations[1].Count+1)
			})
		}()
	}
	wg.Wait()

	if got := w.Snapshot().Denominations[1].Count; got != 50 {
		t.Fatalf("expected 50 increments, got %d", got)
	}
}

func TestRegistry_FirstRegistrationWins(t *testing.T) {
	r := newRegistry()
	s := testWorkflowSettlement(t)

	first, created := r.register(s)
	if !created {
		t.Fatal("expected first registration to create a workflow")
	}

	other := s
	other.ID = "stl-2"
	second, created := r.register(other)
	if created || second != first {
		t.Fatal("expected existing workflow to be returned")
	}

	r.remove("sess-1", first)
	if _, ok := r.get("sess-1"); ok {
		t.Fatal("expected workflow to be removed")
	}
	if r.len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.len())
	}
}
