package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"vehicle-intelligence/internal/adapter"
	"vehicle-intelligence/internal/domain"
	"vehicle-intelligence/internal/storage"
)

// MovementTable is an in-memory parking_records table. It serves as both
// the movement source and the feature write-back target.
type MovementTable struct {
	mu      sync.RWMutex
	records map[int64]*domain.MovementRecord
	columns map[string]domain.ColumnType
	values  map[int64]map[string]any // record id -> column -> value
}

// NewMovementTable creates a table holding copies of records.
// Records with a non-positive id are ignored.
func NewMovementTable(records []*domain.MovementRecord) *MovementTable {
	t := &MovementTable{
		records: make(map[int64]*domain.MovementRecord, len(records)),
		columns: make(map[string]domain.ColumnType),
		values:  make(map[int64]map[string]any, len(records)),
	}
	for _, r := range records {
		if !r.HasValidID() {
			continue
		}
		recordCopy := *r
		t.records[r.ID] = &recordCopy
		t.values[r.ID] = make(map[string]any)
	}
	return t
}

// Compile-time interface checks.
var (
	_ storage.MovementSource = (*MovementTable)(nil)
	_ storage.FeatureStore   = (*MovementTable)(nil)
)

// LoadMovements returns copies of every record ordered by id.
func (t *MovementTable) LoadMovements(_ context.Context) (*adapter.Batch, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	batch := &adapter.Batch{Layout: "memory"}
	for _, r := range t.records {
		recordCopy := *r
		batch.Records = append(batch.Records, &recordCopy)
	}
	sort.Slice(batch.Records, func(i, j int) bool {
		return batch.Records[i].ID < batch.Records[j].ID
	})
	return batch, nil
}

// AddColumn declares a pre-existing column, as an operator would.
func (t *MovementTable) AddColumn(name string, typ domain.ColumnType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.columns[name] = typ
}

// ReconcileSchema adds every missing column. Existing columns keep their type.
func (t *MovementTable) ReconcileSchema(_ context.Context, columns []domain.Column) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var added []string
	for _, c := range columns {
		if _, ok := t.columns[c.Name]; ok {
			continue
		}
		t.columns[c.Name] = c.Type
		added = append(added, c.Name)
	}
	return added, nil
}

// ApplyBatch writes the non-NULL columns of each feature set. Unknown record
// ids are reported as conflicts. A column missing from the schema fails the
// whole batch before anything is written.
func (t *MovementTable) ApplyBatch(_ context.Context, batch []*domain.DerivedFeatureSet) (*storage.BatchResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, f := range batch {
		for _, cv := range f.NonNullValues() {
			if _, ok := t.columns[cv.Name]; !ok {
				return nil, fmt.Errorf("column %s: %w", cv.Name, storage.ErrNotFound)
			}
		}
	}

	result := &storage.BatchResult{}
	for _, f := range batch {
		row, ok := t.values[f.RecordID]
		if !ok {
			result.Conflicts = append(result.Conflicts, storage.Conflict{
				RecordID: f.RecordID,
				Err:      fmt.Errorf("record %d: %w", f.RecordID, storage.ErrNotFound),
			})
			continue
		}
		for _, cv := range f.NonNullValues() {
			row[cv.Name] = cv.Value
		}
		result.Applied++
	}
	return result, nil
}

// Columns returns the column names currently in the schema, sorted.
func (t *MovementTable) Columns() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.columns))
	for n := range t.columns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Value returns the stored value of a feature column for a record.
func (t *MovementTable) Value(recordID int64, column string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.values[recordID]
	if !ok {
		return nil, false
	}
	v, ok := row[column]
	return v, ok
}

// Snapshot returns a copy of every stored feature value keyed by record id.
func (t *MovementTable) Snapshot() map[int64]map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[int64]map[string]any, len(t.values))
	for id, row := range t.values {
		rowCopy := make(map[string]any, len(row))
		for k, v := range row {
			rowCopy[k] = v
		}
		out[id] = rowCopy
	}
	return out
}
