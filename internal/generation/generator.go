// Package generation defines the boundary between the application core and
// the external profile generation pipeline (LLM provider).
package generation

import (
	"context"
	"encoding/json"

	"github.com/profilegen/profilegen-api/internal/domain"
)

// Request carries everything the pipeline needs to generate one position
// profile: the resolved business unit, the position, and the KPI context
// document selected for the unit.
type Request struct {
	Unit              *domain.BusinessUnit
	Position          *domain.Position
	ContextDocumentID string
}

// Generator is the interface for producing structured position profiles.
// It serves as a boundary between the application core and external AI/LLM
// services; the core treats the returned payload as opaque JSON.
type Generator interface {
	// GenerateProfile creates a structured profile for the requested
	// position. Retry and backoff behavior is the implementation's own
	// concern. The context governs cancellation and deadlines.
	GenerateProfile(ctx context.Context, req Request) (json.RawMessage, error)
}
