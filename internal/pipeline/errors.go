package pipeline

import (
	"errors"
	"fmt"
)

// Error taxonomy of a feature run. Only ErrFatalStorage aborts a run; the
// others are collected per record and the run continues.
var (
	// ErrSchemaMismatch marks a source field the layout could not provide.
	// Dependent features fall back to NULL.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrComputation marks a record whose features could not all be computed.
	ErrComputation = errors.New("computation error")

	// ErrWriteConflict marks a record the write-back could not target.
	ErrWriteConflict = errors.New("write conflict")

	// ErrFatalStorage aborts the run. Batches committed before it stay committed.
	ErrFatalStorage = errors.New("fatal storage error")
)

// RecordError is a non-fatal issue attached to one record. RecordID is 0
// for issues that concern the whole source, such as a missing column.
type RecordError struct {
	RecordID int64
	Kind     error // one of the taxonomy sentinels
	Err      error
}

func (e *RecordError) Error() string {
	if e.RecordID == 0 {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("record %d: %v: %v", e.RecordID, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *RecordError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func fatal(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrFatalStorage, err)
}
