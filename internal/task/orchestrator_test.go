package task

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profilegen/profilegen-api/internal/config"
	"github.com/profilegen/profilegen-api/internal/domain"
	"github.com/profilegen/profilegen-api/internal/events"
	"github.com/profilegen/profilegen-api/internal/generation"
	"github.com/profilegen/profilegen-api/internal/kpi"
	"github.com/profilegen/profilegen-api/internal/org"
)

const (
	testUnitPath = "Horizon Group / IT Block / Infrastructure"
	testPosition = "Lead Engineer"
)

// stubGenerator runs a test-provided function per call.
type stubGenerator struct {
	fn func(ctx context.Context, req generation.Request) (json.RawMessage, error)
}

func (g *stubGenerator) GenerateProfile(ctx context.Context, req generation.Request) (json.RawMessage, error) {
	return g.fn(ctx, req)
}

// instantProfile returns a fixed payload immediately.
func instantProfile(_ context.Context, _ generation.Request) (json.RawMessage, error) {
	return json.RawMessage(`{"title":"Lead Engineer"}`), nil
}

// statusRecorder collects lifecycle events.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []domain.TaskStatus
}

func (r *statusRecorder) HandleEvent(_ context.Context, event *events.TaskLifecycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, event.Status)
	return nil
}

func (r *statusRecorder) seen() []domain.TaskStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.TaskStatus(nil), r.statuses...)
}

func testIndex(t *testing.T) *org.Index {
	t.Helper()

	root := &org.Node{
		Name: "Horizon Group",
		Units: []*org.Node{
			{
				Name: "IT Block",
				Units: []*org.Node{
					{
						Name: "Infrastructure",
						Positions: []org.PositionNode{
							{Name: "Head of Unit", Seniority: 1, Category: "management"},
							{Name: testPosition, Seniority: 2, Category: "technical"},
						},
					},
				},
			},
		},
	}

	index := org.NewIndex(slog.Default())
	require.NoError(t, index.Build(root))
	return index
}

func testResolver(t *testing.T, index *org.Index) *kpi.Resolver {
	t.Helper()

	catalog, err := kpi.ParseCatalog([]byte(`
documents:
  - id: kpi-infrastructure
    unit: Infrastructure
`))
	require.NoError(t, err)

	blocks, err := kpi.ParseBlockTable([]byte(`
blocks:
  Horizon Group: kpi-corporate
  IT Block: kpi-infrastructure
`))
	require.NoError(t, err)

	resolver, err := kpi.NewResolver(index, catalog, blocks, slog.Default())
	require.NoError(t, err)
	return resolver
}

func newTestOrchestrator(t *testing.T, cfg config.TaskConfig, gen generation.Generator) (*Orchestrator, *statusRecorder) {
	t.Helper()

	index := testIndex(t)
	emitter := events.NewInMemoryEventEmitter(slog.Default())
	recorder := &statusRecorder{}
	emitter.RegisterHandler(recorder)

	o := NewOrchestrator(cfg, NewRegistry(), NewMemoryTaskStore(),
		index, testResolver(t, index), gen, emitter, slog.Default())
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.Stop(stopCtx)
	})
	return o, recorder
}

// waitForTerminal polls until the task leaves its non-terminal states.
func waitForTerminal(t *testing.T, o *Orchestrator, id uuid.UUID) *domain.GenerationTask {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := o.GetStatus(id)
		require.NoError(t, err)
		if task.Status.IsTerminal() {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", id)
	return nil
}

func TestTaskLifecycleSuccess(t *testing.T) {
	o, recorder := newTestOrchestrator(t,
		config.TaskConfig{MaxConcurrent: 2, TimeoutSeconds: 30},
		&stubGenerator{fn: instantProfile})

	queued, err := o.Start(context.Background(), Request{Department: testUnitPath, Position: testPosition})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusQueued, queued.Status)
	assert.Equal(t, 0, queued.Progress)

	final := waitForTerminal(t, o, queued.ID)
	assert.Equal(t, domain.TaskStatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, "completed", final.CurrentStep)
	assert.NotNil(t, final.StartedAt)
	assert.NotNil(t, final.CompletedAt)
	assert.JSONEq(t, `{"title":"Lead Engineer"}`, string(final.Result))

	result, err := o.GetResult(queued.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Lead Engineer"}`, string(result.Result))

	// Events are emitted just after the registry update the poll observed.
	require.Eventually(t, func() bool {
		statuses := recorder.seen()
		return len(statuses) > 0 && statuses[len(statuses)-1] == domain.TaskStatusCompleted
	}, 5*time.Second, 5*time.Millisecond)

	statuses := recorder.seen()
	assert.Equal(t, domain.TaskStatusQueued, statuses[0])
	assert.Contains(t, statuses, domain.TaskStatusProcessing)
}

func TestTaskResolvesDepartmentByDisplayName(t *testing.T) {
	o, _ := newTestOrchestrator(t,
		config.TaskConfig{MaxConcurrent: 1, TimeoutSeconds: 30},
		&stubGenerator{fn: func(_ context.Context, req generation.Request) (json.RawMessage, error) {
			assert.Equal(t, testUnitPath, req.Unit.PathKey())
			assert.Equal(t, "kpi-infrastructure", req.ContextDocumentID)
			return json.RawMessage(`{"title":"ok"}`), nil
		}})

	queued, err := o.Start(context.Background(), Request{Department: "Infrastructure", Position: testPosition})
	require.NoError(t, err)

	final := waitForTerminal(t, o, queued.ID)
	assert.Equal(t, domain.TaskStatusCompleted, final.Status)
}

func TestTaskFailsForUnknownPosition(t *testing.T) {
	o, _ := newTestOrchestrator(t,
		config.TaskConfig{MaxConcurrent: 1, TimeoutSeconds: 30},
		&stubGenerator{fn: instantProfile})

	queued, err := o.Start(context.Background(), Request{Department: testUnitPath, Position: "Court Jester"})
	require.NoError(t, err)

	final := waitForTerminal(t, o, queued.ID)
	assert.Equal(t, domain.TaskStatusFailed, final.Status)
	assert.Contains(t, final.Error, "Court Jester")
	assert.Nil(t, final.Result)
}

func TestTaskFailsForUnknownDepartment(t *testing.T) {
	o, _ := newTestOrchestrator(t,
		config.TaskConfig{MaxConcurrent: 1, TimeoutSeconds: 30},
		&stubGenerator{fn: instantProfile})

	queued, err := o.Start(context.Background(), Request{Department: "Ministry of Silly Walks", Position: testPosition})
	require.NoError(t, err)

	final := waitForTerminal(t, o, queued.ID)
	assert.Equal(t, domain.TaskStatusFailed, final.Status)
	assert.Contains(t, final.Error, "Ministry of Silly Walks")
}

func TestTaskFailsWhenGeneratorErrors(t *testing.T) {
	o, _ := newTestOrchestrator(t,
		config.TaskConfig{MaxConcurrent: 1, TimeoutSeconds: 30},
		&stubGenerator{fn: func(_ context.Context, _ generation.Request) (json.RawMessage, error) {
			return nil, errors.New("model unavailable")
		}})

	queued, err := o.Start(context.Background(), Request{Department: testUnitPath, Position: testPosition})
	require.NoError(t, err)

	final := waitForTerminal(t, o, queued.ID)
	assert.Equal(t, domain.TaskStatusFailed, final.Status)
	assert.Contains(t, final.Error, "model unavailable")
}

func TestStartRejectsInvalidRequest(t *testing.T) {
	o, _ := newTestOrchestrator(t,
		config.TaskConfig{MaxConcurrent: 1, TimeoutSeconds: 30},
		&stubGenerator{fn: instantProfile})

	_, err := o.Start(context.Background(), Request{Department: "", Position: testPosition})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = o.Start(context.Background(), Request{Department: testUnitPath, Position: ""})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetResultBeforeCompletion(t *testing.T) {
	release := make(chan struct{})
	o, _ := newTestOrchestrator(t,
		config.TaskConfig{MaxConcurrent: 1, TimeoutSeconds: 30},
		&stubGenerator{fn: func(ctx context.Context, _ generation.Request) (json.RawMessage, error) {
			select {
			case <-release:
				return json.RawMessage(`{"title":"late"}`), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}})

	queued, err := o.Start(context.Background(), Request{Department: testUnitPath, Position: testPosition})
	require.NoError(t, err)

	_, err = o.GetResult(queued.ID)
	assert.ErrorIs(t, err, ErrResultNotReady)

	close(release)
	waitForTerminal(t, o, queued.ID)

	_, err = o.GetResult(uuid.New())
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestCancelQueuedTask(t *testing.T) {
	release := make(chan struct{})
	o, _ := newTestOrchestrator(t,
		config.TaskConfig{MaxConcurrent: 1, TimeoutSeconds: 30},
		&stubGenerator{fn: func(ctx context.Context, _ generation.Request) (json.RawMessage, error) {
			select {
			case <-release:
				return json.RawMessage(`{"title":"first"}`), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}})

	// Occupy the single pipeline slot so the second task stays queued.
	first, err := o.Start(context.Background(), Request{Department: testUnitPath, Position: testPosition})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		task, err := o.GetStatus(first.ID)
		return err == nil && task.Status == domain.TaskStatusProcessing
	}, 5*time.Second, 5*time.Millisecond)

	second, err := o.Start(context.Background(), Request{Department: testUnitPath, Position: testPosition})
	require.NoError(t, err)

	cancelled, err := o.Cancel(second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCancelled, cancelled.Status, "queued tasks cancel immediately")

	close(release)
	assert.Equal(t, domain.TaskStatusCompleted, waitForTerminal(t, o, first.ID).Status)
	assert.Equal(t, domain.TaskStatusCancelled, waitForTerminal(t, o, second.ID).Status)
}

func TestCancelProcessingTask(t *testing.T) {
	started := make(chan struct{})
	o, _ := newTestOrchestrator(t,
		config.TaskConfig{MaxConcurrent: 1, TimeoutSeconds: 30},
		&stubGenerator{fn: func(ctx context.Context, _ generation.Request) (json.RawMessage, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}})

	queued, err := o.Start(context.Background(), Request{Department: testUnitPath, Position: testPosition})
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("generator was never invoked")
	}

	snapshot, err := o.Cancel(queued.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusProcessing, snapshot.Status, "processing tasks stop at the next boundary")

	final := waitForTerminal(t, o, queued.ID)
	assert.Equal(t, domain.TaskStatusCancelled, final.Status)
	assert.Nil(t, final.Result, "a cancelled task never surfaces a result")

	// Cancelling a terminal task is a no-op.
	again, err := o.Cancel(queued.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCancelled, again.Status)
}

func TestCancelUnknownTask(t *testing.T) {
	o, _ := newTestOrchestrator(t,
		config.TaskConfig{MaxConcurrent: 1, TimeoutSeconds: 30},
		&stubGenerator{fn: instantProfile})

	_, err := o.Cancel(uuid.New())
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskTimeoutEndsAsFailed(t *testing.T) {
	o, _ := newTestOrchestrator(t,
		config.TaskConfig{MaxConcurrent: 1, TimeoutSeconds: 1},
		&stubGenerator{fn: func(ctx context.Context, _ generation.Request) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}})

	queued, err := o.Start(context.Background(), Request{Department: testUnitPath, Position: testPosition})
	require.NoError(t, err)

	final := waitForTerminal(t, o, queued.ID)
	assert.Equal(t, domain.TaskStatusFailed, final.Status, "timeouts fail rather than cancel")
	assert.Contains(t, final.Error, "deadline")
}

func TestStopRejectsNewTasks(t *testing.T) {
	index := testIndex(t)
	o := NewOrchestrator(config.TaskConfig{MaxConcurrent: 1, TimeoutSeconds: 30},
		NewRegistry(), NewMemoryTaskStore(), index, testResolver(t, index),
		&stubGenerator{fn: instantProfile},
		events.NewInMemoryEventEmitter(slog.Default()), slog.Default())

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Stop(stopCtx))

	_, err := o.Start(context.Background(), Request{Department: testUnitPath, Position: testPosition})
	assert.ErrorIs(t, err, ErrStopped)
}
