// Package lock provides non-blocking per-key locks used to serialise workflow
// actions on a single document.
package lock

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrLocked is returned when the key is already held.
	ErrLocked = errors.New("lock is held by another caller")
	// ErrNotHeld is returned when releasing a lock that expired or was taken
	// over by someone else.
	ErrNotHeld = errors.New("lock no longer held")
)

// Unlock releases a lock obtained from TryLock.
type Unlock func(ctx context.Context) error

// Locker hands out exclusive locks keyed by string.
type Locker interface {
	// TryLock acquires key without waiting and returns ErrLocked if it is
	// already held.
	TryLock(ctx context.Context, key string) (Unlock, error)
}

// LocalLocker is an in-process Locker for single-instance deployments.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) TryLock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, ErrLocked
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		released := false
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
			released = true
		})
		if !released {
			return ErrNotHeld
		}
		return nil
	}, nil
}
