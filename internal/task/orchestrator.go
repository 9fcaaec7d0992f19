package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/profilegen/profilegen-api/internal/config"
	"github.com/profilegen/profilegen-api/internal/domain"
	"github.com/profilegen/profilegen-api/internal/events"
	"github.com/profilegen/profilegen-api/internal/generation"
	"github.com/profilegen/profilegen-api/internal/kpi"
	"github.com/profilegen/profilegen-api/internal/org"
	"github.com/profilegen/profilegen-api/internal/redact"
)

// Cancellation causes, distinguished in finalize: a user cancel ends the
// task as cancelled, a deadline ends it as failed.
var (
	errUserCancelled = errors.New("cancelled by user request")
	errTaskTimeout   = errors.New("task execution deadline exceeded")
)

// Progress milestones. Cancellation is cooperative: the pipeline checks its
// context between milestones, never mid-call.
const (
	stepResolving  = "resolving organization context"
	stepGenerating = "invoking generation pipeline"
	stepFinalizing = "finalizing"
)

// Orchestrator runs generation tasks in the background. Each Start spawns
// one goroutine; a semaphore bounds how many run the pipeline at once, the
// rest wait in queued state.
type Orchestrator struct {
	registry  *Registry
	store     TaskStore
	index     *org.Index
	resolver  *kpi.Resolver
	generator generation.Generator
	emitter   events.EventEmitter
	logger    *slog.Logger
	timeout   time.Duration

	sem chan struct{}

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelCauseFunc

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewOrchestrator wires the orchestrator. The base context governs all task
// goroutines; Stop cancels it.
func NewOrchestrator(
	cfg config.TaskConfig,
	registry *Registry,
	store TaskStore,
	index *org.Index,
	resolver *kpi.Resolver,
	generator generation.Generator,
	emitter events.EventEmitter,
	logger *slog.Logger,
) *Orchestrator {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Orchestrator{
		registry:   registry,
		store:      store,
		index:      index,
		resolver:   resolver,
		generator:  generator,
		emitter:    emitter,
		logger:     logger.With("component", "task_orchestrator"),
		timeout:    timeout,
		sem:        make(chan struct{}, maxConcurrent),
		cancels:    make(map[uuid.UUID]context.CancelCauseFunc),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
}

// Start validates the request, registers a queued task and spawns its
// background goroutine. The returned snapshot reflects the queued state; all
// further progress is observed through GetStatus.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*domain.GenerationTask, error) {
	if err := o.baseCtx.Err(); err != nil {
		return nil, ErrStopped
	}

	task, err := domain.NewGenerationTask(req.Department, req.Position)
	if err != nil {
		return nil, err
	}

	if err := o.registry.Insert(task); err != nil {
		return nil, err
	}
	snapshot := task.Snapshot()

	if err := o.store.SaveTask(ctx, snapshot); err != nil {
		// The registry record still serves polls; losing the audit row is
		// not worth failing the submission.
		o.logger.ErrorContext(ctx, "failed to persist new task",
			"task_id", task.ID, "error", redact.Error(err))
	}
	o.emit(ctx, snapshot)

	taskCtx, cancel := context.WithCancelCause(o.baseCtx)
	o.mu.Lock()
	o.cancels[task.ID] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.forget(task.ID)
		o.execute(taskCtx, task.ID)
	}()

	o.logger.InfoContext(ctx, "task queued",
		"task_id", task.ID,
		"department", req.Department,
		"position", req.Position)
	return snapshot, nil
}

// GetStatus returns a snapshot of the task record.
func (o *Orchestrator) GetStatus(id uuid.UUID) (*domain.GenerationTask, error) {
	return o.registry.Get(id)
}

// GetResult returns the generated profile for a completed task. Any other
// state returns ErrResultNotReady carrying the current status.
func (o *Orchestrator) GetResult(id uuid.UUID) (*domain.GenerationTask, error) {
	task, err := o.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.TaskStatusCompleted {
		return nil, fmt.Errorf("%w: task is %s", ErrResultNotReady, task.Status)
	}
	return task, nil
}

// Cancel requests cancellation of a task. A queued task is cancelled
// immediately; a processing task is signalled and stops at its next
// milestone boundary. Cancelling a terminal task is a no-op.
func (o *Orchestrator) Cancel(id uuid.UUID) (*domain.GenerationTask, error) {
	snapshot, err := o.registry.Update(id, func(t *domain.GenerationTask) error {
		if t.Status.IsTerminal() {
			return nil
		}
		if t.Status == domain.TaskStatusQueued {
			// The goroutine has not entered the pipeline; mark terminal now
			// so polls never observe a cancel-requested limbo.
			if err := t.Transition(domain.TaskStatusCancelled); err != nil {
				return err
			}
			t.CurrentStep = "cancelled"
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	cancel, ok := o.cancels[id]
	o.mu.Unlock()
	if ok {
		cancel(errUserCancelled)
	}

	if snapshot.Status == domain.TaskStatusCancelled {
		o.persist(context.Background(), snapshot)
		o.emit(context.Background(), snapshot)
		o.logger.Info("task cancelled while queued", "task_id", id)
	} else {
		o.logger.Info("task cancellation requested", "task_id", id, "status", snapshot.Status)
	}
	return snapshot, nil
}

// Stop cancels all running tasks and waits for their goroutines to finish
// or the context to expire.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.baseCancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("orchestrator shutdown timed out: %w", ctx.Err())
	}
}

// execute drives one task through the pipeline. Every exit path leaves the
// record in a terminal state.
func (o *Orchestrator) execute(taskCtx context.Context, id uuid.UUID) {
	ctx, cancelTimeout := context.WithTimeoutCause(taskCtx, o.timeout, errTaskTimeout)
	defer cancelTimeout()

	// Wait for a pipeline slot; queued tasks sit here.
	select {
	case o.sem <- struct{}{}:
		defer func() { <-o.sem }()
	case <-ctx.Done():
		o.finalizeAborted(ctx, id)
		return
	}

	snapshot, err := o.advance(ctx, id, domain.TaskStatusProcessing, 10, stepResolving)
	if err != nil {
		// Cancelled while queued; the record is already terminal.
		return
	}
	o.logger.Info("task processing started", "task_id", id)

	unit, err := o.resolveUnit(snapshot.Department)
	if err != nil {
		o.finalizeFailed(ctx, id, fmt.Errorf("department %q: %w", snapshot.Department, err))
		return
	}

	position, err := o.index.FindPosition(unit.PathKey(), snapshot.Position)
	if err != nil {
		o.finalizeFailed(ctx, id, err)
		return
	}

	resolution, err := o.resolver.Resolve(unit.PathKey())
	if err != nil {
		o.finalizeFailed(ctx, id, err)
		return
	}
	if _, err := o.advance(ctx, id, "", 30, stepResolving); err != nil {
		return
	}

	if o.aborted(ctx, id) {
		return
	}
	if _, err := o.advance(ctx, id, "", 40, stepGenerating); err != nil {
		return
	}

	result, err := o.generator.GenerateProfile(ctx, generation.Request{
		Unit:              unit,
		Position:          position,
		ContextDocumentID: resolution.DocumentID,
	})
	if err != nil {
		if ctx.Err() != nil {
			o.finalizeAborted(ctx, id)
			return
		}
		o.finalizeFailed(ctx, id, fmt.Errorf("%w: %v", domain.ErrGenerationPipeline, err))
		return
	}

	// A result arriving after cancellation is discarded, honouring the
	// guarantee that a cancelled task never completes.
	if o.aborted(ctx, id) {
		return
	}
	if _, err := o.advance(ctx, id, "", 90, stepFinalizing); err != nil {
		return
	}

	final, err := o.registry.Update(id, func(t *domain.GenerationTask) error {
		if t.Status.IsTerminal() {
			return fmt.Errorf("%w: task already %s", domain.ErrInvalidTransition, t.Status)
		}
		if err := t.Transition(domain.TaskStatusCompleted); err != nil {
			return err
		}
		t.Result = result
		t.Progress = 100
		t.CurrentStep = "completed"
		return nil
	})
	if err != nil {
		o.logger.Error("failed to finalize completed task", "task_id", id, "error", err)
		return
	}
	o.persist(ctx, final)
	o.emit(ctx, final)
	o.logger.Info("task completed",
		"task_id", id,
		"unit_path", unit.PathKey(),
		"context_document", resolution.DocumentID,
		"resolution_tier", int(resolution.Tier))
}

// advance moves the task to the given status (empty means keep current) and
// updates progress and step. Fails if the record turned terminal, which
// happens when Cancel won the race.
func (o *Orchestrator) advance(
	ctx context.Context,
	id uuid.UUID,
	to domain.TaskStatus,
	progress int,
	step string,
) (*domain.GenerationTask, error) {
	snapshot, err := o.registry.Update(id, func(t *domain.GenerationTask) error {
		if t.Status.IsTerminal() {
			return fmt.Errorf("%w: task already %s", domain.ErrInvalidTransition, t.Status)
		}
		if to != "" && t.Status != to {
			if err := t.Transition(to); err != nil {
				return err
			}
		}
		t.Progress = progress
		t.CurrentStep = step
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.persist(ctx, snapshot)
	if to != "" {
		o.emit(ctx, snapshot)
	}
	return snapshot, nil
}

// aborted checks the context at a milestone boundary and finalizes the task
// if cancellation or timeout fired.
func (o *Orchestrator) aborted(ctx context.Context, id uuid.UUID) bool {
	if ctx.Err() == nil {
		return false
	}
	o.finalizeAborted(ctx, id)
	return true
}

// finalizeAborted ends a task whose context fired: user cancels become
// cancelled, deadlines become failed. Tolerates records Cancel already made
// terminal.
func (o *Orchestrator) finalizeAborted(ctx context.Context, id uuid.UUID) {
	cause := context.Cause(ctx)
	status := domain.TaskStatusFailed
	step := "failed"
	if errors.Is(cause, errUserCancelled) {
		status = domain.TaskStatusCancelled
		step = "cancelled"
	}

	snapshot, err := o.registry.Update(id, func(t *domain.GenerationTask) error {
		if t.Status.IsTerminal() {
			return fmt.Errorf("%w: task already %s", domain.ErrInvalidTransition, t.Status)
		}
		if err := t.Transition(status); err != nil {
			return err
		}
		if status == domain.TaskStatusFailed {
			t.Error = cause.Error()
		}
		t.CurrentStep = step
		return nil
	})
	if err != nil {
		return
	}

	o.persist(context.WithoutCancel(ctx), snapshot)
	o.emit(context.WithoutCancel(ctx), snapshot)
	o.logger.Info("task aborted", "task_id", id, "status", status, "cause", cause.Error())
}

// finalizeFailed ends a task with a pipeline error.
func (o *Orchestrator) finalizeFailed(ctx context.Context, id uuid.UUID, taskErr error) {
	snapshot, err := o.registry.Update(id, func(t *domain.GenerationTask) error {
		if t.Status.IsTerminal() {
			return fmt.Errorf("%w: task already %s", domain.ErrInvalidTransition, t.Status)
		}
		if err := t.Transition(domain.TaskStatusFailed); err != nil {
			return err
		}
		t.Error = taskErr.Error()
		t.CurrentStep = "failed"
		return nil
	})
	if err != nil {
		return
	}

	o.persist(context.WithoutCancel(ctx), snapshot)
	o.emit(context.WithoutCancel(ctx), snapshot)
	o.logger.Error("task failed", "task_id", id, "error", redact.Error(taskErr))
}

// resolveUnit maps the submitted department to exactly one business unit.
// Full paths win outright; otherwise an unambiguous display name is
// accepted, and finally the best search match.
func (o *Orchestrator) resolveUnit(department string) (*domain.BusinessUnit, error) {
	if unit, err := o.index.FindByPath(department); err == nil {
		return unit, nil
	}

	units, err := o.index.FindByName(department)
	if err != nil {
		return nil, err
	}
	if len(units) == 1 {
		return units[0], nil
	}
	if len(units) > 1 {
		return nil, fmt.Errorf("%w: name %q is ambiguous across %d units; submit a full path",
			domain.ErrUnitNotFound, department, len(units))
	}

	matches, err := o.index.Search(department)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnitNotFound, department)
	}
	return matches[0], nil
}

// persist mirrors a snapshot into the durable store; failures are logged
// and never interrupt the pipeline.
func (o *Orchestrator) persist(ctx context.Context, snapshot *domain.GenerationTask) {
	if err := o.store.UpdateTask(ctx, snapshot); err != nil {
		o.logger.ErrorContext(ctx, "failed to persist task update",
			"task_id", snapshot.ID, "error", redact.Error(err))
	}
}

// emit publishes a lifecycle event for a status transition.
func (o *Orchestrator) emit(ctx context.Context, snapshot *domain.GenerationTask) {
	if o.emitter == nil {
		return
	}
	if err := o.emitter.EmitEvent(ctx, events.NewTaskLifecycleEvent(snapshot)); err != nil {
		o.logger.WarnContext(ctx, "lifecycle event delivery failed",
			"task_id", snapshot.ID, "error", err)
	}
}

// forget drops the cancel handle once the goroutine exits.
func (o *Orchestrator) forget(id uuid.UUID) {
	o.mu.Lock()
	delete(o.cancels, id)
	o.mu.Unlock()
}
