// Package ratelimit paces outbound requests per upstream service using a
// token bucket for each key.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/listenupapp/librarian/internal/errors"
)

// Limiter manages one token bucket per key. Keys without an explicit
// configuration share the default rate, each with its own bucket.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a limiter allowing one request per every interval with the
// given burst for any key not configured otherwise.
func New(every time.Duration, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(every),
		burst:    burst,
	}
}

// Configure sets the rate of key, replacing its bucket.
func (l *Limiter) Configure(key string, every time.Duration, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[key] = rate.NewLimiter(rate.Every(every), burst)
}

// Allow reports whether a request for key may go out now, consuming a
// token if so.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Wait blocks until a request for key is allowed. It fails with a canceled
// error when ctx ends first.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if err := l.get(key).Wait(ctx); err != nil {
		return errors.Wrap(err, errors.CodeCanceled, "rate limit wait for "+key)
	}
	return nil
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.limiters[key] = lim
	return lim
}
