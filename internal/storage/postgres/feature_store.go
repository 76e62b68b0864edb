package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"vehicle-intelligence/internal/domain"
	"vehicle-intelligence/internal/observability"
	"vehicle-intelligence/internal/storage"
)

// FeatureStore writes derived features back into the movement table.
type FeatureStore struct {
	pool     *Pool
	table    string
	idColumn string
	log      *zap.Logger
	metrics  *observability.Metrics

	mu        sync.Mutex
	dataTypes map[string]string // column -> information_schema data_type
}

// NewFeatureStore creates a store updating table rows keyed by idColumn.
func NewFeatureStore(pool *Pool, table, idColumn string, log *zap.Logger) *FeatureStore {
	if log == nil {
		log = zap.NewNop()
	}
	if idColumn == "" {
		idColumn = "id"
	}
	return &FeatureStore{pool: pool, table: table, idColumn: idColumn, log: log}
}

// Compile-time interface check.
var _ storage.FeatureStore = (*FeatureStore)(nil)

// WithMetrics records query durations and errors in m.
func (s *FeatureStore) WithMetrics(m *observability.Metrics) *FeatureStore {
	s.metrics = m
	return s
}

// ReconcileSchema adds every missing feature column as a nullable column.
// A column created concurrently between inspection and ALTER counts as present.
func (s *FeatureStore) ReconcileSchema(ctx context.Context, columns []domain.Column) ([]string, error) {
	start := time.Now()
	added, err := s.reconcile(ctx, columns)
	s.metrics.RecordDBQuery(observability.DatabasePostgres, "reconcile_schema", time.Since(start), err)
	return added, err
}

func (s *FeatureStore) reconcile(ctx context.Context, columns []domain.Column) ([]string, error) {
	existing, err := describeTable(ctx, s.pool, s.table)
	if err != nil {
		return nil, err
	}
	types := make(map[string]string, len(existing))
	for _, c := range existing {
		types[c.Name] = c.DataType
	}

	var added []string
	for _, col := range columns {
		if _, ok := types[col.Name]; ok {
			continue
		}

		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			quoteTable(s.table), pgx.Identifier{col.Name}.Sanitize(), sqlType(col.Type))
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			err = mapError(err)
			if !errors.Is(err, storage.ErrColumnExists) {
				return added, fmt.Errorf("add column %s: %w", col.Name, err)
			}
			s.log.Debug("column already exists", zap.String("column", col.Name))
		} else {
			added = append(added, col.Name)
			s.log.Info("column added", zap.String("table", s.table), zap.String("column", col.Name))
		}
		types[col.Name] = strings.ToLower(sqlType(col.Type))
	}

	s.mu.Lock()
	s.dataTypes = types
	s.mu.Unlock()
	return added, nil
}

// ApplyBatch updates each row with the non-NULL columns of its feature set in
// one transaction. Every update runs in a savepoint so a row that is missing
// or matched more than once is skipped without touching anything else. Any
// other error rolls the whole batch back.
func (s *FeatureStore) ApplyBatch(ctx context.Context, batch []*domain.DerivedFeatureSet) (*storage.BatchResult, error) {
	start := time.Now()
	result, err := s.applyBatch(ctx, batch)
	s.metrics.RecordDBQuery(observability.DatabasePostgres, "apply_batch", time.Since(start), err)
	return result, err
}

func (s *FeatureStore) applyBatch(ctx context.Context, batch []*domain.DerivedFeatureSet) (*storage.BatchResult, error) {
	result := &storage.BatchResult{}
	if len(batch) == 0 {
		return result, nil
	}

	types, err := s.columnTypes(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, f := range batch {
		query, args := s.updateStatement(f, types)
		if query == "" {
			result.Applied++
			continue
		}

		sp, err := tx.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("savepoint: %w", err)
		}
		tag, err := sp.Exec(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("update record %d: %w", f.RecordID, mapError(err))
		}

		switch n := tag.RowsAffected(); {
		case n == 1:
			if err := sp.Commit(ctx); err != nil {
				return nil, fmt.Errorf("release savepoint: %w", err)
			}
			result.Applied++
		default:
			if err := sp.Rollback(ctx); err != nil {
				return nil, fmt.Errorf("rollback savepoint: %w", err)
			}
			cause := storage.ErrNotFound
			if n > 1 {
				cause = storage.ErrDuplicateKey
			}
			result.Conflicts = append(result.Conflicts, storage.Conflict{
				RecordID: f.RecordID,
				Err:      fmt.Errorf("%s=%d matched %d rows: %w", s.idColumn, f.RecordID, n, cause),
			})
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// updateStatement builds the partial UPDATE for f. Boolean flags written into
// integer columns left by older pipelines are cast to 0/1.
func (s *FeatureStore) updateStatement(f *domain.DerivedFeatureSet, types map[string]string) (string, []any) {
	values := f.NonNullValues()
	if len(values) == 0 {
		return "", nil
	}

	sets := make([]string, len(values))
	args := make([]any, 0, len(values)+1)
	for i, v := range values {
		args = append(args, v.Value)
		placeholder := fmt.Sprintf("$%d", i+1)
		if _, isBool := v.Value.(bool); isBool && isIntegerType(types[v.Name]) {
			placeholder += "::boolean::integer"
		}
		sets[i] = pgx.Identifier{v.Name}.Sanitize() + " = " + placeholder
	}
	args = append(args, f.RecordID)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		quoteTable(s.table), strings.Join(sets, ", "), pgx.Identifier{s.idColumn}.Sanitize(), len(args))
	return query, args
}

func (s *FeatureStore) columnTypes(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dataTypes != nil {
		return s.dataTypes, nil
	}
	existing, err := describeTable(ctx, s.pool, s.table)
	if err != nil {
		return nil, err
	}
	s.dataTypes = make(map[string]string, len(existing))
	for _, c := range existing {
		s.dataTypes[c.Name] = c.DataType
	}
	return s.dataTypes, nil
}

func isIntegerType(dataType string) bool {
	switch dataType {
	case "integer", "smallint", "bigint":
		return true
	}
	return false
}
