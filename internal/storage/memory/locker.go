package memory

import (
	"context"
	"sync"

	"vehicle-intelligence/internal/storage"
)

// Locker is a process-local storage.Locker.
type Locker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocker creates a new in-memory locker.
func NewLocker() *Locker {
	return &Locker{held: make(map[string]bool)}
}

var _ storage.Locker = (*Locker)(nil)

// TryLock acquires name. Returns ErrLocked if it is already held.
func (l *Locker) TryLock(_ context.Context, name string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[name] {
		return nil, storage.ErrLocked
	}
	l.held[name] = true

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
