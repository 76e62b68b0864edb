package storage

import "errors"

// Storage errors shared by every backend.
var (
	// ErrNotFound is returned when a requested record or table does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a key appears more than once where it must be unique.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrColumnExists is returned by DDL adding a column that is already there.
	// Reconcilers treat it as success.
	ErrColumnExists = errors.New("column already exists")

	// ErrLocked is returned when another run holds the job lock.
	ErrLocked = errors.New("job lock held by another run")
)
