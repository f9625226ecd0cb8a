// Package lock provides the timed, non-reentrant mutexes that serialize
// access to the library state and to the shared hardware bus.
//
// Every acquisition carries a timeout. A timeout is a soft failure: callers
// skip the operation and report it rather than block the display loop.
// Locks are never reentrant; a function that runs with a lock already held is
// named with a Locked suffix and must not acquire it again.
package lock

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/listenupapp/librarian/internal/errors"
	"github.com/listenupapp/librarian/internal/metrics"
)

// Lock names used in errors and metrics.
const (
	NameLibrary = "library"
	NameBus     = "bus"
	NameQueue   = "queue"
)

// Mutex is a binary semaphore with a default acquisition timeout.
type Mutex struct {
	name    string
	sem     *semaphore.Weighted
	timeout time.Duration
}

// New creates a mutex named name whose Lock gives up after timeout.
func New(name string, timeout time.Duration) *Mutex {
	return &Mutex{name: name, sem: semaphore.NewWeighted(1), timeout: timeout}
}

// Name returns the lock name.
func (m *Mutex) Name() string {
	return m.name
}

// Timeout returns the default acquisition timeout.
func (m *Mutex) Timeout() time.Duration {
	return m.timeout
}

// Lock acquires the mutex within the default timeout.
func (m *Mutex) Lock(ctx context.Context) error {
	return m.LockWithin(ctx, m.timeout)
}

// LockWithin acquires the mutex within d. It returns ErrLockTimeout when d
// elapses and the context error when ctx ends first.
func (m *Mutex) LockWithin(ctx context.Context, d time.Duration) error {
	if m.sem.TryAcquire(1) {
		return nil
	}
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	if err := m.sem.Acquire(tctx, 1); err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), errors.CodeCanceled, m.name+" lock wait canceled")
		}
		metrics.LockTimeouts.WithLabelValues(m.name).Inc()
		return errors.LockTimeout(m.name)
	}
	return nil
}

// TryLock acquires the mutex only if it is free.
func (m *Mutex) TryLock() bool {
	return m.sem.TryAcquire(1)
}

// Unlock releases the mutex.
func (m *Mutex) Unlock() {
	m.sem.Release(1)
}

// With runs fn while holding the mutex.
func (m *Mutex) With(ctx context.Context, fn func() error) error {
	if err := m.Lock(ctx); err != nil {
		return err
	}
	defer m.Unlock()
	return fn()
}

// Set groups the two shared locks. Lock ordering: the library lock may be
// held while taking the bus lock, never the reverse.
type Set struct {
	Library *Mutex
	Bus     *Mutex
	// BusLong bounds bus acquisition for whole-index rewrites and wipes.
	BusLong time.Duration
}

// NewSet creates the library and bus locks.
func NewSet(libraryTimeout, busTimeout, busLong time.Duration) *Set {
	return &Set{
		Library: New(NameLibrary, libraryTimeout),
		Bus:     New(NameBus, busTimeout),
		BusLong: busLong,
	}
}
