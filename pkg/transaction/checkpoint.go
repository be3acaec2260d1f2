package transaction

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nmstate-go/nmstate/pkg/nmstate"
)

// Status is a checkpoint's lifecycle state.
type Status string

const (
	StatusOpen       Status = "open"
	StatusCommitted  Status = "committed"
	StatusRolledBack Status = "rolled_back"
)

// Checkpoint is an open transaction: the pre-apply snapshot and its
// precomputed revert document, plus the plan that was (or is being)
// applied under it.
type Checkpoint struct {
	ID        string
	CreatedAt time.Time
	Deadline  time.Time

	Plan     []nmstate.IfaceKey
	PreState *nmstate.NetworkState
	// RevertState is pkg/revert's inverse of the applied merge, computed
	// once at checkpoint creation; rollback merges it against whatever
	// the backend is in right now rather than replaying PreState
	// directly, so a freshly Added interface is explicitly torn down
	// instead of silently left alone (PreState never mentioned it).
	RevertState *nmstate.NetworkState

	Status Status
}

// store tracks checkpoints by id, committed and rolled-back ones included,
// so CheckpointCommit/CheckpointRollback can act on one independently of
// the Apply call that created it and a repeated call finds it closed.
type store struct {
	mu          sync.Mutex
	checkpoints map[string]*Checkpoint
}

func newStore() *store {
	return &store{checkpoints: make(map[string]*Checkpoint)}
}

func (s *store) put(cp *Checkpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[cp.ID] = cp
}

func (s *store) get(id string) (*Checkpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.checkpoints[id]
	return cp, ok
}

func (s *store) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, id)
}

func newCheckpoint(plan []nmstate.IfaceKey, pre, revertState *nmstate.NetworkState, timeout time.Duration) *Checkpoint {
	now := time.Now()
	return &Checkpoint{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		Deadline:    now.Add(timeout),
		Plan:        plan,
		PreState:    pre,
		RevertState: revertState,
		Status:      StatusOpen,
	}
}

// Expired reports whether the checkpoint has outlived its own timer, the
// ultimate safety net per spec.md §4.6: if the owning process dies, the
// backend is expected to auto-revert once this deadline passes.
func (c *Checkpoint) Expired(now time.Time) bool {
	return now.After(c.Deadline)
}

func (c *Checkpoint) String() string {
	return fmt.Sprintf("checkpoint %s (%s, opened %s)", c.ID, c.Status, c.CreatedAt.Format(time.RFC3339))
}
