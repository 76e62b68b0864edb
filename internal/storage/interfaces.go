package storage

import (
	"context"

	"vehicle-intelligence/internal/adapter"
	"vehicle-intelligence/internal/domain"
)

// MovementSource provides the materialized batch of movement records.
type MovementSource interface {
	// LoadMovements reads every record, ordered by id.
	LoadMovements(ctx context.Context) (*adapter.Batch, error)
}

// FeatureStore is a write-back target for derived features.
type FeatureStore interface {
	// ReconcileSchema adds every column missing from the target and returns
	// the names it added. Existing columns are never altered or dropped.
	ReconcileSchema(ctx context.Context, columns []domain.Column) ([]string, error)

	// ApplyBatch writes the non-NULL columns of each feature set, keyed by
	// record id, in one atomic unit. Records that cannot be targeted are
	// reported in the result; a returned error means nothing in the batch
	// was written.
	ApplyBatch(ctx context.Context, batch []*domain.DerivedFeatureSet) (*BatchResult, error)
}

// BatchResult reports the outcome of one ApplyBatch call.
type BatchResult struct {
	Applied   int
	Conflicts []Conflict
}

// Conflict is a record the store skipped. Err wraps ErrNotFound or ErrDuplicateKey.
type Conflict struct {
	RecordID int64
	Err      error
}

// SummaryStore persists run summaries.
type SummaryStore interface {
	// InsertSummary appends a summary. Returns ErrDuplicateKey if run_id exists.
	InsertSummary(ctx context.Context, s *domain.FeatureSummary) error
}

// Locker provides mutual exclusion between runs targeting the same table.
type Locker interface {
	// TryLock acquires the named lock without waiting. Returns ErrLocked when
	// it is held elsewhere. The returned function releases it.
	TryLock(ctx context.Context, name string) (release func(context.Context) error, err error)
}

// RunScoped is implemented by stores that tag written rows with the run id.
type RunScoped interface {
	BeginRun(runID string)
}
