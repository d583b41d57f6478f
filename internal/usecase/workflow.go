package usecase

import (
	"sync"

	"github.com/iho/tillclose/internal/domain"
)

// workflow owns the open settlement of one session. All reads and writes of
// the snapshot go through mu; saving is set while a completion is being
// persisted and blocks every other mutation.
type workflow struct {
	mu       sync.Mutex
	snapshot domain.Settlement
	saving   bool
}

func newWorkflow(s domain.Settlement) *workflow {
	return &workflow{snapshot: s.Clone()}
}

// Snapshot returns a deep copy of the current settlement.
func (w *workflow) Snapshot() domain.Settlement {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot.Clone()
}

// Mutate applies fn to the current snapshot and stores the result.
func (w *workflow) Mutate(fn func(domain.Settlement) (domain.Settlement, error)) (domain.Settlement, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.saving {
		return domain.Settlement{}, domain.ErrCompletionInProgress
	}

	next, err := fn(w.snapshot)
	if err != nil {
		return domain.Settlement{}, err
	}

	w.snapshot = next
	return next.Clone(), nil
}

// BeginCompletion runs the completion guard and marks the workflow as
// saving. The returned snapshot is what must be persisted.
func (w *workflow) BeginCompletion(policy domain.CompletionPolicy, update domain.SettlementUpdate) (domain.Settlement, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.saving {
		return domain.Settlement{}, domain.ErrCompletionInProgress
	}

	next, err := w.snapshot.Apply(update)
	if err != nil {
		return domain.Settlement{}, err
	}

	// A rejected completion leaves the snapshot untouched.
	if err := policy.Check(next); err != nil {
		return domain.Settlement{}, err
	}

	w.snapshot = next
	w.saving = true
	return next.Clone(), nil
}

// FinishCompletion clears the saving flag. On success the snapshot is
// replaced by the persisted record.
func (w *workflow) FinishCompletion(persisted *domain.Settlement) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.saving = false
	if persisted != nil {
		w.snapshot = persisted.Clone()
	}
}

// Saving reports whether a completion is in flight.
func (w *workflow) Saving() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.saving
}

// registry tracks open workflows by session id.
type registry struct {
	mu        sync.Mutex
	workflows map[string]*workflow
}

func newRegistry() *registry {
	return &registry{workflows: make(map[string]*workflow)}
}

func (r *registry) get(sessionID string) (*workflow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[sessionID]
	return w, ok
}

// register stores a workflow for s unless one is already open, in which
// case the existing workflow wins.
func (r *registry) register(s domain.Settlement) (*workflow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.workflows[s.SessionID]; ok {
		return w, false
	}

	w := newWorkflow(s)
	r.workflows[s.SessionID] = w
	return w, true
}

func (r *registry) remove(sessionID string, w *workflow) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.workflows[sessionID] == w {
		delete(r.workflows, sessionID)
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workflows)
}
