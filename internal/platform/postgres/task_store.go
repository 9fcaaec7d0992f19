package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/profilegen/profilegen-api/internal/domain"
	"github.com/profilegen/profilegen-api/internal/store"
)

// TaskStore implements task.TaskStore using PostgreSQL. The table is an
// append-and-update audit trail: the in-memory registry serves live polls,
// this store makes task history survive restarts.
type TaskStore struct {
	db store.DBTX
}

// NewTaskStore creates a PostgreSQL-backed task store.
func NewTaskStore(db store.DBTX) *TaskStore {
	return &TaskStore{db: db}
}

// SaveTask persists a newly created task.
func (s *TaskStore) SaveTask(ctx context.Context, task *domain.GenerationTask) error {
	query := `
		INSERT INTO generation_tasks
			(id, department, position, status, progress, current_step,
			 error_message, result, created_at, started_at, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Department,
		task.Position,
		task.Status,
		task.Progress,
		task.CurrentStep,
		nullableString(task.Error),
		nullableBytes(task.Result),
		task.CreatedAt,
		task.StartedAt,
		task.CompletedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", MapError(err))
	}
	return nil
}

// UpdateTask overwrites the stored record for an existing task.
func (s *TaskStore) UpdateTask(ctx context.Context, task *domain.GenerationTask) error {
	query := `
		UPDATE generation_tasks
		SET status = $1, progress = $2, current_step = $3, error_message = $4,
		    result = $5, started_at = $6, completed_at = $7, updated_at = $8
		WHERE id = $9
	`

	result, err := s.db.ExecContext(ctx, query,
		task.Status,
		task.Progress,
		task.CurrentStep,
		nullableString(task.Error),
		nullableBytes(task.Result),
		task.StartedAt,
		task.CompletedAt,
		time.Now().UTC(),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", MapError(err))
	}
	if err := CheckRowsAffected(result, "task"); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, task.ID)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *TaskStore) GetTask(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error) {
	query := `
		SELECT id, department, position, status, progress, current_step,
		       error_message, result, created_at, started_at, completed_at
		FROM generation_tasks
		WHERE id = $1
	`

	var (
		task     domain.GenerationTask
		errorMsg sql.NullString
		result   []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID,
		&task.Department,
		&task.Position,
		&task.Status,
		&task.Progress,
		&task.CurrentStep,
		&errorMsg,
		&result,
		&task.CreatedAt,
		&task.StartedAt,
		&task.CompletedAt,
	)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
		}
		return nil, fmt.Errorf("failed to get task: %w", mapped)
	}

	task.Error = errorMsg.String
	task.Result = result
	return &task, nil
}

// nullableString maps an empty string to SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullableBytes maps an empty payload to SQL NULL, keeping the JSONB column
// free of empty-string artifacts.
func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
