package store

import "errors"

// Storage-level sentinel errors. Persistence implementations map driver
// errors onto these so callers never depend on driver types.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalidEntity indicates the record violated a database constraint.
	ErrInvalidEntity = errors.New("invalid entity")
)
