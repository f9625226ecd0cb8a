package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/librarian/internal/errors"
)

func TestLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		every    time.Duration
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial requests", every: time.Second, burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst blocks", every: time.Second, burst: 2, calls: 5, wantPass: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.every, tt.burst)
			passed := 0
			for range tt.calls {
				if l.Allow("lrclib") {
					passed++
				}
			}
			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestLimiter_Wait(t *testing.T) {
	l := New(100*time.Millisecond, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "ovh"))
	assert.Less(t, time.Since(start), 50*time.Millisecond, "first wait is immediate")

	start = time.Now()
	require.NoError(t, l.Wait(ctx, "ovh"))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiter_WaitCanceled(t *testing.T) {
	l := New(10*time.Second, 1)
	l.Allow("ovh")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx, "ovh")
	assert.ErrorIs(t, err, errors.ErrCanceled)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := New(time.Second, 1)
	l.Allow("itunes")
	assert.False(t, l.Allow("itunes"))
	assert.True(t, l.Allow("lrclib"))
}

func TestLimiter_Configure(t *testing.T) {
	l := New(time.Hour, 1)
	l.Configure("itunes", time.Millisecond, 3)

	for range 3 {
		assert.True(t, l.Allow("itunes"))
	}
	assert.True(t, l.Allow("other"))
	assert.False(t, l.Allow("other"))
}
