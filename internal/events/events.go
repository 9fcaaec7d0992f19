// Package events provides a minimal in-process publish/subscribe mechanism
// for task lifecycle transitions, decoupling observers (audit logging,
// future notification channels) from the task registry itself.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/profilegen/profilegen-api/internal/domain"
)

// TaskLifecycleEvent describes one observed task state transition.
type TaskLifecycleEvent struct {
	// ID is a unique identifier for this event.
	ID uuid.UUID `json:"id"`

	// TaskID identifies the task that transitioned.
	TaskID uuid.UUID `json:"task_id"`

	// Status is the state the task moved into.
	Status domain.TaskStatus `json:"status"`

	// Progress and CurrentStep mirror the task record at transition time.
	Progress    int    `json:"progress"`
	CurrentStep string `json:"current_step"`

	// Error carries the task's error message for failed transitions.
	Error string `json:"error,omitempty"`

	// OccurredAt is the timestamp when the event was created.
	OccurredAt time.Time `json:"occurred_at"`
}

// NewTaskLifecycleEvent builds an event from a task snapshot.
func NewTaskLifecycleEvent(task *domain.GenerationTask) *TaskLifecycleEvent {
	return &TaskLifecycleEvent{
		ID:          uuid.New(),
		TaskID:      task.ID,
		Status:      task.Status,
		Progress:    task.Progress,
		CurrentStep: task.CurrentStep,
		Error:       task.Error,
		OccurredAt:  time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskLifecycleEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the orchestrator to publish transitions without direct
// knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *TaskLifecycleEvent) error
}
