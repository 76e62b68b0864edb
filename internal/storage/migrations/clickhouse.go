package migrations

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	chstore "vehicle-intelligence/internal/storage/clickhouse"
)

// ErrUnterminatedString is returned for a migration whose quotes do not balance.
var ErrUnterminatedString = errors.New("unterminated string literal")

// RunClickhouseMigrations creates the DSN's database if needed and applies
// every embedded ClickHouse file, one statement per Exec. Returns an open
// connection to that database.
func RunClickhouseMigrations(ctx context.Context, dsn string) (_ *chstore.Conn, err error) {
	db, err := chstore.DatabaseName(dsn)
	if err != nil {
		return nil, err
	}

	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	err = admin.CreateDatabase(ctx, db)
	if closeErr := admin.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close admin connection: %w", closeErr)
	}
	if err != nil {
		return nil, fmt.Errorf("create database %s: %w", db, err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, db)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	files, err := sqlFiles(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		stmts, err := statements(string(data))
		if err != nil {
			return nil, fmt.Errorf("parse migration %s: %w", file, err)
		}
		for i, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				return nil, fmt.Errorf("apply migration %s statement %d: %w", file, i+1, err)
			}
		}
	}
	return conn, nil
}

// statements splits a script on top-level semicolons. Quoted text may hold
// semicolons and escaped quotes ('' or \'); -- comments run to end of line.
func statements(script string) ([]string, error) {
	var (
		stmts   []string
		current strings.Builder
		quote   byte
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			stmts = append(stmts, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(script); i++ {
		c := script[i]
		if quote != 0 {
			current.WriteByte(c)
			switch {
			case c == '\\' && i+1 < len(script):
				i++
				current.WriteByte(script[i])
			case c == quote && i+1 < len(script) && script[i+1] == quote:
				i++
				current.WriteByte(script[i])
			case c == quote:
				quote = 0
			}
			continue
		}

		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
			current.WriteByte(c)
		case c == '-' && strings.HasPrefix(script[i:], "--"):
			if nl := strings.IndexByte(script[i:], '\n'); nl >= 0 {
				i += nl
				current.WriteByte('\n')
			} else {
				i = len(script)
			}
		case c == ';':
			flush()
		default:
			current.WriteByte(c)
		}
	}
	if quote != 0 {
		return nil, ErrUnterminatedString
	}
	flush()
	return stmts, nil
}
