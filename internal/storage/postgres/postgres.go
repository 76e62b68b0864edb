package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vehicle-intelligence/internal/domain"
	"vehicle-intelligence/internal/storage"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation = "23505" // unique_violation
	pgErrDuplicateColumn = "42701" // duplicate_column
	pgErrUndefinedTable  = "42P01" // undefined_table
)

// mapError translates driver errors into storage sentinels, keeping the
// original in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, pgErr.Message)
		case pgErrDuplicateColumn:
			return fmt.Errorf("%w: %s", storage.ErrColumnExists, pgErr.Message)
		case pgErrUndefinedTable:
			return fmt.Errorf("%w: %s", storage.ErrNotFound, pgErr.Message)
		}
	}
	return err
}

// sqlType maps a semantic column type to its Postgres definition.
func sqlType(t domain.ColumnType) string {
	switch t {
	case domain.ColumnInteger:
		return "INTEGER"
	case domain.ColumnReal:
		return "DOUBLE PRECISION"
	case domain.ColumnBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// quoteTable quotes a possibly schema-qualified table name.
func quoteTable(table string) string {
	return pgx.Identifier(splitQualified(table)).Sanitize()
}

func splitQualified(table string) []string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return []string{schema, name}
	}
	return []string{table}
}

// tableColumn is one row of information_schema.columns.
type tableColumn struct {
	Name     string
	DataType string
}

// describeTable lists the columns of table in ordinal order.
func describeTable(ctx context.Context, q querier, table string) ([]tableColumn, error) {
	parts := splitQualified(table)
	schemaExpr, args := "current_schema()", []any{parts[0]}
	if len(parts) == 2 {
		schemaExpr, args = "$2", []any{parts[1], parts[0]}
	}

	rows, err := q.Query(ctx, `
		SELECT column_name, data_type FROM information_schema.columns
		WHERE table_name = $1 AND table_schema = `+schemaExpr+`
		ORDER BY ordinal_position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, mapError(err))
	}
	columns, err := pgx.CollectRows(rows, pgx.RowToStructByPos[tableColumn])
	if err != nil {
		return nil, fmt.Errorf("scan columns of %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s: %w", table, storage.ErrNotFound)
	}
	return columns, nil
}

func columnNames(columns []tableColumn) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}
