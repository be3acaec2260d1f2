// Package audit provides audit logging for applied network-state changes:
// every apply/checkpoint_commit/checkpoint_rollback that touches a live
// system is recorded as a JSON-lines event, independent of the process's
// own stdout/stderr output.
package audit

import (
	"fmt"
	"time"
)

// Event represents an auditable state-change event.
type Event struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Operation  string        `json:"operation"`
	Checkpoint string        `json:"checkpoint,omitempty"`
	Added      int           `json:"added,omitempty"`
	Changed    int           `json:"changed,omitempty"`
	Removed    int           `json:"removed,omitempty"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// EventType categorizes audit events.
type EventType string

const (
	EventTypeApply              EventType = "apply"
	EventTypeGenConf            EventType = "gen_conf"
	EventTypeGenRevert          EventType = "gen_revert"
	EventTypeCheckpointCommit   EventType = "checkpoint_commit"
	EventTypeCheckpointRollback EventType = "checkpoint_rollback"
)

// Filter defines criteria for querying audit events.
type Filter struct {
	Operation   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event for operation.
func NewEvent(operation string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		Operation: operation,
	}
}

// WithCheckpoint sets the checkpoint ID this event applies to.
func (e *Event) WithCheckpoint(id string) *Event {
	e.Checkpoint = id
	return e
}

// WithCounts sets the interface added/changed/removed totals.
func (e *Event) WithCounts(added, changed, removed int) *Event {
	e.Added = added
	e.Changed = changed
	e.Removed = removed
	return e
}

// WithSuccess marks the event as successful.
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed.
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration.
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
