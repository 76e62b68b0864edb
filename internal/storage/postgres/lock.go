package postgres

import (
	"context"
	"fmt"

	"vehicle-intelligence/internal/storage"
)

// Locker implements storage.Locker with session-level advisory locks. The
// lock lives on a dedicated pooled connection held until release.
type Locker struct {
	pool *Pool
}

// NewLocker creates a new Locker.
func NewLocker(pool *Pool) *Locker {
	return &Locker{pool: pool}
}

// Compile-time interface check.
var _ storage.Locker = (*Locker)(nil)

// TryLock acquires pg_try_advisory_lock(hashtext(name)).
func (l *Locker) TryLock(ctx context.Context, name string) (func(context.Context) error, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock(hashtext($1))", name).Scan(&acquired); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, fmt.Errorf("%s: %w", name, storage.ErrLocked)
	}

	release := func(ctx context.Context) error {
		defer conn.Release()
		var released bool
		if err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock(hashtext($1))", name).Scan(&released); err != nil {
			return fmt.Errorf("advisory unlock: %w", err)
		}
		return nil
	}
	return release, nil
}
