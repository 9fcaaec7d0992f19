package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/profilegen/profilegen-api/internal/api/shared"
	"github.com/profilegen/profilegen-api/internal/domain"
	"github.com/profilegen/profilegen-api/internal/task"
)

// TaskOrchestrator is the slice of the orchestrator the HTTP layer depends
// on. Satisfied by *task.Orchestrator.
type TaskOrchestrator interface {
	Start(ctx context.Context, req task.Request) (*domain.GenerationTask, error)
	GetStatus(id uuid.UUID) (*domain.GenerationTask, error)
	GetResult(id uuid.UUID) (*domain.GenerationTask, error)
	Cancel(id uuid.UUID) (*domain.GenerationTask, error)
}

// ProfileHandler handles profile generation task requests.
type ProfileHandler struct {
	orchestrator TaskOrchestrator
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(orchestrator TaskOrchestrator) *ProfileHandler {
	return &ProfileHandler{
		orchestrator: orchestrator,
	}
}

// CreateProfile handles POST /api/profiles requests. Submission is
// asynchronous: the response is 202 Accepted with the queued task.
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	queued, err := h.orchestrator.Start(r.Context(), task.Request{
		Department: req.Department,
		Position:   req.Position,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, taskToResponse(queued))
}

// GetTaskStatus handles GET /api/tasks/{id} requests.
func (h *ProfileHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	status, err := h.orchestrator.GetStatus(id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(status))
}

// GetTaskResult handles GET /api/tasks/{id}/result requests. Only completed
// tasks have a result; anything else is a conflict.
func (h *ProfileHandler) GetTaskResult(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	result, err := h.orchestrator.GetResult(id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskResultResponse{
		ID:          result.ID.String(),
		Status:      string(result.Status),
		Result:      result.Result,
		CompletedAt: result.CompletedAt,
	})
}

// CancelTask handles DELETE /api/tasks/{id} requests.
func (h *ProfileHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	cancelled, err := h.orchestrator.Cancel(id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(cancelled))
}

// parseTaskID extracts and validates the task ID path parameter, writing a
// 400 response on failure.
func parseTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return uuid.Nil, false
	}
	return id, true
}
