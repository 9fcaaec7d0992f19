package gemini

import "errors"

// Errors specific to the Gemini generator implementation.
var (
	// ErrNilRequest is returned when GenerateProfile is called without a
	// unit or position.
	ErrNilRequest = errors.New("generation request must include unit and position")

	// ErrEmptyPrompt is returned when prompt rendering yields no content.
	ErrEmptyPrompt = errors.New("rendered prompt is empty")
)
