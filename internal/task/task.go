// Package task contains the asynchronous generation task orchestrator: an
// in-memory registry serving status polls, a durable store for the audit
// trail, and the background execution pipeline that drives each task from
// queued to a terminal state.
package task

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/profilegen/profilegen-api/internal/domain"
)

// Errors returned by the orchestrator in addition to domain sentinels.
var (
	// ErrResultNotReady is returned by GetResult for tasks that have not
	// completed successfully.
	ErrResultNotReady = errors.New("task result not ready")

	// ErrStopped is returned by Start after the orchestrator shut down.
	ErrStopped = errors.New("orchestrator stopped")
)

// Request is one profile generation submission. Department may be a full
// unit path or a display name; paths are preferred because they are
// unambiguous.
type Request struct {
	Department string `json:"department" validate:"required"`
	Position   string `json:"position" validate:"required"`
}

// TaskStore persists task records durably. The registry remains the source
// of truth for live polling; the store is the audit trail that survives
// restarts.
type TaskStore interface {
	// SaveTask persists a newly created task.
	SaveTask(ctx context.Context, task *domain.GenerationTask) error

	// UpdateTask overwrites the stored record for an existing task.
	// Returns domain.ErrTaskNotFound if no record exists.
	UpdateTask(ctx context.Context, task *domain.GenerationTask) error

	// GetTask retrieves a task by ID.
	// Returns domain.ErrTaskNotFound if no record exists.
	GetTask(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error)
}
