package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"vehicle-intelligence/internal/adapter"
	"vehicle-intelligence/internal/observability"
	"vehicle-intelligence/internal/storage"
)

// MovementSource reads movement records from a table in any supported layout.
type MovementSource struct {
	pool    *Pool
	table   string
	layout  string
	loc     *time.Location
	log     *zap.Logger
	metrics *observability.Metrics
}

// NewMovementSource creates a source over table. layout is a config layout
// name; loc interprets timestamps stored without a zone.
func NewMovementSource(pool *Pool, table, layout string, loc *time.Location, log *zap.Logger) *MovementSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &MovementSource{pool: pool, table: table, layout: layout, loc: loc, log: log}
}

// Compile-time interface check.
var _ storage.MovementSource = (*MovementSource)(nil)

// WithMetrics records query durations and errors in m.
func (s *MovementSource) WithMetrics(m *observability.Metrics) *MovementSource {
	s.metrics = m
	return s
}

// LoadMovements reads the whole table. Every mapped column is read as text
// and decoded by the adapter, so any column type the layout points at works.
// A missing id column is an error; other missing columns are reported in
// the batch.
func (s *MovementSource) LoadMovements(ctx context.Context) (*adapter.Batch, error) {
	start := time.Now()
	batch, err := s.load(ctx)
	s.metrics.RecordDBQuery(observability.DatabasePostgres, "load_movements", time.Since(start), err)
	return batch, err
}

func (s *MovementSource) load(ctx context.Context) (*adapter.Batch, error) {
	described, err := describeTable(ctx, s.pool, s.table)
	if err != nil {
		return nil, err
	}
	columns := columnNames(described)

	layout, err := adapter.ForName(s.layout, columns)
	if err != nil {
		return nil, err
	}
	mapping, err := adapter.Resolve(layout, columns, adapter.FieldID)
	if err != nil {
		return nil, err
	}

	fields := make([]adapter.Field, 0, len(mapping.Columns))
	selects := make([]string, 0, len(mapping.Columns))
	for _, f := range adapter.Fields {
		col, ok := mapping.Columns[f]
		if !ok {
			continue
		}
		fields = append(fields, f)
		selects = append(selects, pgx.Identifier{col}.Sanitize()+"::text")
	}
	idCol := pgx.Identifier{mapping.Columns[adapter.FieldID]}.Sanitize()

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(selects, ", "), quoteTable(s.table), idCol)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", mapError(err))
	}
	defer rows.Close()

	dec := adapter.NewDecoder(s.loc)
	batch := &adapter.Batch{Layout: layout.Name(), Missing: mapping.Missing}
	values := make([]*string, len(fields))
	dest := make([]any, len(fields))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		row := make(adapter.Row, len(fields))
		for i, f := range fields {
			if values[i] != nil {
				row[f] = *values[i]
			}
		}
		rec, issues := dec.Decode(row)
		batch.Records = append(batch.Records, rec)
		batch.Issues = append(batch.Issues, issues...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movements: %w", err)
	}

	s.log.Info("movements loaded",
		zap.String("table", s.table),
		zap.String("layout", batch.Layout),
		zap.Int("records", len(batch.Records)),
		zap.Int("decode_issues", len(batch.Issues)),
	)
	return batch, nil
}
