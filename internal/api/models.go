// Package api contains the HTTP handlers, request/response models and
// error mapping for the profile generation service.
package api

import (
	"encoding/json"
	"time"

	"github.com/profilegen/profilegen-api/internal/domain"
	"github.com/profilegen/profilegen-api/internal/kpi"
)

// CreateProfileRequest represents the request body for submitting a new
// profile generation task.
type CreateProfileRequest struct {
	Department string `json:"department" validate:"required,min=1"`
	Position   string `json:"position" validate:"required,min=1"`
}

// TaskResponse represents the response data for a generation task.
type TaskResponse struct {
	ID          string     `json:"id"`
	Department  string     `json:"department"`
	Position    string     `json:"position"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"current_step"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TaskResultResponse carries the generated profile of a completed task.
type TaskResultResponse struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Result      json.RawMessage `json:"result"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// PositionResponse represents one position within a unit. Display renders
// the position together with its owning unit for UI lists.
type PositionResponse struct {
	Name      string `json:"name"`
	Display   string `json:"display"`
	Seniority int    `json:"seniority"`
	Category  string `json:"category"`
}

// UnitResponse represents a business unit in search and listing results.
type UnitResponse struct {
	Path      string   `json:"path"`
	Name      string   `json:"name"`
	Level     int      `json:"level"`
	Positions []string `json:"positions,omitempty"`
}

// UnitDetailResponse represents a single unit with its full position data.
// Parent is empty for the root unit.
type UnitDetailResponse struct {
	Path      string             `json:"path"`
	Parent    string             `json:"parent,omitempty"`
	Name      string             `json:"name"`
	Level     int                `json:"level"`
	Positions []PositionResponse `json:"positions"`
}

// ResolutionResponse represents the outcome of a KPI context resolution.
type ResolutionResponse struct {
	UnitPath   string `json:"unit_path"`
	DocumentID string `json:"document_id"`
	Tier       int    `json:"tier"`
	Method     string `json:"method"`
	Confidence string `json:"confidence"`
}

// taskToResponse converts a domain.GenerationTask to a TaskResponse.
func taskToResponse(task *domain.GenerationTask) TaskResponse {
	return TaskResponse{
		ID:          task.ID.String(),
		Department:  task.Department,
		Position:    task.Position,
		Status:      string(task.Status),
		Progress:    task.Progress,
		CurrentStep: task.CurrentStep,
		Error:       task.Error,
		CreatedAt:   task.CreatedAt,
		StartedAt:   task.StartedAt,
		CompletedAt: task.CompletedAt,
	}
}

// unitToResponse converts a domain.BusinessUnit to a UnitResponse.
func unitToResponse(unit *domain.BusinessUnit) UnitResponse {
	return UnitResponse{
		Path:      unit.PathKey(),
		Name:      unit.Name,
		Level:     unit.Level,
		Positions: unit.Positions,
	}
}

// resolutionToResponse converts a kpi.Resolution to a ResolutionResponse.
func resolutionToResponse(res *kpi.Resolution) ResolutionResponse {
	return ResolutionResponse{
		UnitPath:   res.UnitPath,
		DocumentID: res.DocumentID,
		Tier:       int(res.Tier),
		Method:     res.Method,
		Confidence: string(res.Confidence),
	}
}
