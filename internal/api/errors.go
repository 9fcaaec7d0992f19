package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/profilegen/profilegen-api/internal/domain"
	"github.com/profilegen/profilegen-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrUnitNotFound),
		errors.Is(err, domain.ErrPositionNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, task.ErrResultNotReady),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict

	// Service not ready
	case errors.Is(err, domain.ErrIndexNotReady),
		errors.Is(err, task.ErrStopped):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, domain.ErrUnitNotFound):
		return "Business unit not found"

	case errors.Is(err, domain.ErrPositionNotFound):
		return "Position not found"

	case errors.Is(err, domain.ErrValidation):
		return "Invalid request data"

	case errors.Is(err, task.ErrResultNotReady):
		return "Task result is not ready"

	case errors.Is(err, domain.ErrInvalidTransition):
		return "Task is already in a final state"

	case errors.Is(err, domain.ErrIndexNotReady):
		return "Organization index is not ready"

	case errors.Is(err, task.ErrStopped):
		return "Service is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'CreateProfileRequest.Department' Error:Field
		// validation for 'Department' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
