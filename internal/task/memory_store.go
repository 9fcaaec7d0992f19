package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/profilegen/profilegen-api/internal/domain"
)

// MemoryTaskStore is a map-backed TaskStore used in tests and when the
// service runs without a database.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.GenerationTask
}

// NewMemoryTaskStore creates an empty in-memory task store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		tasks: make(map[uuid.UUID]*domain.GenerationTask),
	}
}

// SaveTask implements TaskStore.
func (s *MemoryTaskStore) SaveTask(_ context.Context, task *domain.GenerationTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already saved", task.ID)
	}
	s.tasks[task.ID] = task.Snapshot()
	return nil
}

// UpdateTask implements TaskStore.
func (s *MemoryTaskStore) UpdateTask(_ context.Context, task *domain.GenerationTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; !exists {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, task.ID)
	}
	s.tasks[task.ID] = task.Snapshot()
	return nil
}

// GetTask implements TaskStore.
func (s *MemoryTaskStore) GetTask(_ context.Context, id uuid.UUID) (*domain.GenerationTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return task.Snapshot(), nil
}
