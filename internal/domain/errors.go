// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrIndexNotReady is returned when the organization index is consulted
	// before a build has completed.
	ErrIndexNotReady = errors.New("organization index not ready")

	// ErrMalformedHierarchy is returned when the hierarchy document cannot
	// be indexed (nameless node, cycle). Fatal at startup.
	ErrMalformedHierarchy = errors.New("malformed organization hierarchy")

	// ErrUnitNotFound is returned when a path is unknown to the index.
	ErrUnitNotFound = errors.New("business unit not found")

	// ErrPositionNotFound is returned when a position cannot be located
	// within its business unit.
	ErrPositionNotFound = errors.New("position not found")

	// ErrTaskNotFound is returned when a task ID is unknown to the registry.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTransition is returned when a task state change would leave
	// a terminal state or skip over one.
	ErrInvalidTransition = errors.New("invalid task state transition")

	// ErrGenerationPipeline wraps any failure reported by the external
	// generation pipeline. It is recorded on the task, never surfaced to
	// polling callers.
	ErrGenerationPipeline = errors.New("generation pipeline failed")

	// ErrBlockTableIncomplete is returned at startup when a top-level block
	// in the hierarchy has no entry in the block mapping table.
	ErrBlockTableIncomplete = errors.New("block mapping table incomplete")

	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")
)
