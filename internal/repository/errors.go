package repository

import "errors"

// Shared repository errors. Implementations map driver-specific failures to
// these so the service layer never depends on GORM or Redis error types.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry indicates a write violated a unique constraint.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)
