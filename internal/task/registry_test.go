package task

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profilegen/profilegen-api/internal/domain"
)

func newRegisteredTask(t *testing.T, r *Registry) *domain.GenerationTask {
	t.Helper()
	task, err := domain.NewGenerationTask("Treasury", "Analyst")
	require.NoError(t, err)
	require.NoError(t, r.Insert(task))
	return task
}

func TestRegistryInsertAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	task := newRegisteredTask(t, r)

	got, err := r.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, 1, r.Len())

	assert.Error(t, r.Insert(task), "duplicate IDs are rejected")

	_, err = r.Get(uuid.New())
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestRegistryGetReturnsSnapshot(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	task := newRegisteredTask(t, r)

	first, err := r.Get(task.ID)
	require.NoError(t, err)
	first.Progress = 99

	second, err := r.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Progress, "mutating a snapshot must not touch the live record")
}

func TestRegistryUpdate(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	task := newRegisteredTask(t, r)

	snapshot, err := r.Update(task.ID, func(t *domain.GenerationTask) error {
		if err := t.Transition(domain.TaskStatusProcessing); err != nil {
			return err
		}
		t.Progress = 10
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusProcessing, snapshot.Status)
	assert.Equal(t, 10, snapshot.Progress)

	boom := errors.New("nope")
	_, err = r.Update(task.ID, func(*domain.GenerationTask) error { return boom })
	assert.ErrorIs(t, err, boom)

	_, err = r.Update(uuid.New(), func(*domain.GenerationTask) error { return nil })
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestMemoryTaskStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryTaskStore()

	task, err := domain.NewGenerationTask("Treasury", "Analyst")
	require.NoError(t, err)

	_, err = store.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.ErrorIs(t, store.UpdateTask(ctx, task), domain.ErrTaskNotFound)

	require.NoError(t, store.SaveTask(ctx, task))
	assert.Error(t, store.SaveTask(ctx, task), "double save is rejected")

	require.NoError(t, task.Transition(domain.TaskStatusProcessing))
	require.NoError(t, store.UpdateTask(ctx, task))

	got, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
}
