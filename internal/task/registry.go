package task

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/profilegen/profilegen-api/internal/domain"
)

// Registry is the in-memory map of live task records, keyed by ID. Status
// polls read from here, never from the durable store. A single coarse lock
// guards the map; per-task contention is negligible because each record is
// mutated by exactly one background goroutine.
//
// Records are never evicted. Terminal tasks stay queryable for the lifetime
// of the process so late polls after completion still succeed.
type Registry struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.GenerationTask
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[uuid.UUID]*domain.GenerationTask),
	}
}

// Insert adds a new task record. Fails if the ID is already present.
func (r *Registry) Insert(task *domain.GenerationTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already registered", task.ID)
	}
	r.tasks[task.ID] = task
	return nil
}

// Get returns a deep-copied snapshot of the task, safe for concurrent use.
// Returns domain.ErrTaskNotFound for unknown IDs.
func (r *Registry) Get(id uuid.UUID) (*domain.GenerationTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return task.Snapshot(), nil
}

// Update applies fn to the live record under the write lock and returns a
// snapshot of the result. If fn returns an error the record keeps any
// mutations fn already made, so fn must mutate only after its checks pass.
func (r *Registry) Update(id uuid.UUID, fn func(*domain.GenerationTask) error) (*domain.GenerationTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	if err := fn(task); err != nil {
		return nil, err
	}
	return task.Snapshot(), nil
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
