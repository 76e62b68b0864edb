package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"vehicle-intelligence/internal/domain"
	"vehicle-intelligence/internal/observability"
	"vehicle-intelligence/internal/storage"
)

const mirrorTable = "movement_features"

// FeatureMirror keeps a full copy of every derived feature set in the
// movement_features ReplacingMergeTree, one logical row per record id. The
// latest version of a record replaces earlier ones on merge; read with FINAL.
type FeatureMirror struct {
	conn    *Conn
	log     *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time

	mu    sync.Mutex
	runID string
}

// NewFeatureMirror creates a new FeatureMirror.
func NewFeatureMirror(conn *Conn, log *zap.Logger) *FeatureMirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &FeatureMirror{conn: conn, log: log, now: time.Now}
}

// Compile-time interface checks.
var (
	_ storage.FeatureStore = (*FeatureMirror)(nil)
	_ storage.RunScoped    = (*FeatureMirror)(nil)
)

// WithMetrics records query durations and errors in m.
func (m *FeatureMirror) WithMetrics(metrics *observability.Metrics) *FeatureMirror {
	m.metrics = metrics
	return m
}

// BeginRun tags subsequent rows with runID.
func (m *FeatureMirror) BeginRun(runID string) {
	m.mu.Lock()
	m.runID = runID
	m.mu.Unlock()
}

// ReconcileSchema adds missing feature columns as Nullable columns.
func (m *FeatureMirror) ReconcileSchema(ctx context.Context, columns []domain.Column) ([]string, error) {
	start := time.Now()
	added, err := m.reconcile(ctx, columns)
	m.metrics.RecordDBQuery(observability.DatabaseClickhouse, "reconcile_schema", time.Since(start), err)
	return added, err
}

func (m *FeatureMirror) reconcile(ctx context.Context, columns []domain.Column) ([]string, error) {
	rows, err := m.conn.Query(ctx, `
		SELECT name FROM system.columns
		WHERE database = currentDatabase() AND table = ?
	`, mirrorTable)
	if err != nil {
		return nil, fmt.Errorf("list mirror columns: %w", err)
	}
	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan mirror column: %w", err)
		}
		existing[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mirror columns: %w", err)
	}
	if len(existing) == 0 {
		return nil, fmt.Errorf("table %s: %w", mirrorTable, storage.ErrNotFound)
	}

	var added []string
	for _, col := range columns {
		if existing[col.Name] {
			continue
		}
		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
			mirrorTable, quoteIdent(col.Name), chType(col.Type))
		if err := m.conn.Exec(ctx, ddl); err != nil {
			return added, fmt.Errorf("add mirror column %s: %w", col.Name, err)
		}
		added = append(added, col.Name)
		m.log.Info("mirror column added", zap.String("column", col.Name))
	}
	return added, nil
}

// ApplyBatch inserts one full row per feature set. NULL features are
// written as NULL.
func (m *FeatureMirror) ApplyBatch(ctx context.Context, batch []*domain.DerivedFeatureSet) (*storage.BatchResult, error) {
	start := time.Now()
	result, err := m.applyBatch(ctx, batch)
	m.metrics.RecordDBQuery(observability.DatabaseClickhouse, "apply_batch", time.Since(start), err)
	return result, err
}

func (m *FeatureMirror) applyBatch(ctx context.Context, batch []*domain.DerivedFeatureSet) (*storage.BatchResult, error) {
	result := &storage.BatchResult{}
	if len(batch) == 0 {
		return result, nil
	}

	names := make([]string, 0, len(domain.FeatureColumns)+4)
	names = append(names, "record_id", "run_id", "computed_at", "version")
	for _, c := range domain.FeatureColumns {
		names = append(names, quoteIdent(c.Name))
	}

	b, err := m.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s (%s)", mirrorTable, strings.Join(names, ", ")))
	if err != nil {
		return nil, fmt.Errorf("prepare batch: %w", err)
	}

	m.mu.Lock()
	runID := m.runID
	m.mu.Unlock()

	now := m.now()
	version := uint64(now.UnixNano())
	for _, f := range batch {
		values := make([]any, 0, len(names))
		values = append(values, f.RecordID, runID, now, version)
		for _, c := range domain.FeatureColumns {
			values = append(values, c.Value(f))
		}
		if err := b.Append(values...); err != nil {
			return nil, fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := b.Send(); err != nil {
		return nil, fmt.Errorf("send batch: %w", err)
	}
	result.Applied = len(batch)
	return result, nil
}

// Get reads the latest mirrored row of a record as column -> value.
// Returns ErrNotFound if the record was never mirrored.
func (m *FeatureMirror) Get(ctx context.Context, recordID int64) (map[string]any, error) {
	names := domain.FeatureColumnNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}

	rows, err := m.conn.Query(ctx, fmt.Sprintf("SELECT %s FROM %s FINAL WHERE record_id = ?",
		strings.Join(quoted, ", "), mirrorTable), recordID)
	if err != nil {
		return nil, fmt.Errorf("query mirror: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query mirror: %w", err)
		}
		return nil, storage.ErrNotFound
	}

	dest := make([]any, len(domain.FeatureColumns))
	for i, c := range domain.FeatureColumns {
		switch c.Type {
		case domain.ColumnInteger:
			dest[i] = new(*int64)
		case domain.ColumnReal:
			dest[i] = new(*float64)
		case domain.ColumnBoolean:
			dest[i] = new(*bool)
		default:
			dest[i] = new(*string)
		}
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan mirror row: %w", err)
	}

	out := make(map[string]any, len(names))
	for i, n := range names {
		switch p := dest[i].(type) {
		case **int64:
			if *p != nil {
				out[n] = **p
			}
		case **float64:
			if *p != nil {
				out[n] = **p
			}
		case **bool:
			if *p != nil {
				out[n] = **p
			}
		case **string:
			if *p != nil {
				out[n] = **p
			}
		}
	}
	return out, nil
}
