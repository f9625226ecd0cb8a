package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/librarian/internal/errors"
)

func TestMutex_TimesOutWhenHeld(t *testing.T) {
	m := New(NameBus, 20*time.Millisecond)
	require.NoError(t, m.Lock(context.Background()))

	start := time.Now()
	err := m.Lock(context.Background())

	assert.ErrorIs(t, err, errors.ErrLockTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	m.Unlock()
	assert.NoError(t, m.Lock(context.Background()))
	m.Unlock()
}

func TestMutex_CanceledContext(t *testing.T) {
	m := New(NameLibrary, time.Second)
	require.True(t, m.TryLock())
	defer m.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Lock(ctx)
	assert.ErrorIs(t, err, errors.ErrCanceled)
}

func TestMutex_TryLock(t *testing.T) {
	m := New(NameQueue, time.Millisecond)
	assert.True(t, m.TryLock())
	assert.False(t, m.TryLock())
	m.Unlock()
	assert.True(t, m.TryLock())
	m.Unlock()
}

func TestMutex_WithSerializes(t *testing.T) {
	m := New(NameLibrary, time.Second)
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.With(context.Background(), func() error {
				n := inside.Add(1)
				if n > maxInside.Load() {
					maxInside.Store(n)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
}

func TestNewSet(t *testing.T) {
	s := NewSet(time.Second, 2*time.Second, 5*time.Second)
	assert.Equal(t, NameLibrary, s.Library.Name())
	assert.Equal(t, 2*time.Second, s.Bus.Timeout())
	assert.Equal(t, 5*time.Second, s.BusLong)
}
