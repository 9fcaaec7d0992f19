package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a generation task.
type TaskStatus string

// Possible task status values. Queued is the initial state; completed,
// failed and cancelled are terminal.
const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsTerminal reports whether the status permits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// isValidTaskStatus checks if the given status is a known TaskStatus.
func isValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusQueued, TaskStatusProcessing, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// GenerationTask tracks one asynchronous profile generation request.
// After creation the record is mutated only by the background unit that
// owns it; readers receive snapshots.
type GenerationTask struct {
	ID          uuid.UUID       `json:"id"`
	Department  string          `json:"department"`
	Position    string          `json:"position"`
	Status      TaskStatus      `json:"status"`
	Progress    int             `json:"progress"`
	CurrentStep string          `json:"current_step"`
	Error       string          `json:"error,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// NewGenerationTask creates a queued task for the given request.
// Returns an error if validation fails.
func NewGenerationTask(department, position string) (*GenerationTask, error) {
	t := &GenerationTask{
		ID:          uuid.New(),
		Department:  department,
		Position:    position,
		Status:      TaskStatusQueued,
		Progress:    0,
		CurrentStep: "queued",
		CreatedAt:   time.Now().UTC(),
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate checks if the GenerationTask has valid data.
func (t *GenerationTask) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: task ID cannot be empty", ErrValidation)
	}
	if t.Department == "" {
		return fmt.Errorf("%w: task department cannot be empty", ErrValidation)
	}
	if t.Position == "" {
		return fmt.Errorf("%w: task position cannot be empty", ErrValidation)
	}
	if !isValidTaskStatus(t.Status) {
		return fmt.Errorf("%w: unknown task status %q", ErrValidation, t.Status)
	}
	if t.Progress < 0 || t.Progress > 100 {
		return fmt.Errorf("%w: task progress must be within 0..100", ErrValidation)
	}
	return nil
}

// Transition moves the task to the given status, enforcing the state
// machine: queued may move to processing, or directly to cancelled/failed
// (cancel before start, timeout while waiting for a slot); processing may
// move to any terminal state; terminal states are final. Completion always
// requires passing through processing. Timestamps are stamped as a side
// effect.
func (t *GenerationTask) Transition(to TaskStatus) error {
	if !isValidTaskStatus(to) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}

	allowed := false
	switch t.Status {
	case TaskStatusQueued:
		allowed = to == TaskStatusProcessing || to == TaskStatusCancelled || to == TaskStatusFailed
	case TaskStatusProcessing:
		allowed = to.IsTerminal()
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
	}

	now := time.Now().UTC()
	switch to {
	case TaskStatusProcessing:
		t.StartedAt = &now
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		t.CompletedAt = &now
	}

	t.Status = to
	return nil
}

// Snapshot returns a deep copy safe to hand to concurrent readers.
func (t *GenerationTask) Snapshot() *GenerationTask {
	cp := *t
	if t.StartedAt != nil {
		started := *t.StartedAt
		cp.StartedAt = &started
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		cp.CompletedAt = &completed
	}
	if t.Result != nil {
		cp.Result = make(json.RawMessage, len(t.Result))
		copy(cp.Result, t.Result)
	}
	return &cp
}
