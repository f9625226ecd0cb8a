package navcache

import (
	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/metrics"
)

// Cache holds one window per kind. Only the active kind's window carries
// records; activating another kind resets the one being left.
type Cache[T any] struct {
	windows map[domain.Kind]*Window[T]
	active  domain.Kind
}

// New allocates a window per kind.
func New[T any](perSide, margin int) (*Cache[T], error) {
	c := &Cache[T]{windows: make(map[domain.Kind]*Window[T], len(domain.Kinds))}
	for _, k := range domain.Kinds {
		w, err := NewWindow[T](perSide, margin)
		if err != nil {
			return nil, err
		}
		c.windows[k] = w
	}
	c.active = domain.Kinds[0]
	return c, nil
}

// Active returns the kind whose window is in use.
func (c *Cache[T]) Active() domain.Kind {
	return c.active
}

// Activate makes kind's window the active one. It reports whether the
// active kind changed; callers rebuild in that case.
func (c *Cache[T]) Activate(kind domain.Kind) bool {
	if kind == c.active {
		return false
	}
	c.windows[c.active].Reset()
	c.windows[kind].Reset()
	c.active = kind
	return true
}

// Window returns the active window.
func (c *Cache[T]) Window() *Window[T] {
	return c.windows[c.active]
}

// Get looks index up in the active window and counts the hit or miss.
func (c *Cache[T]) Get(index int) (T, bool) {
	v, ok := c.Window().Get(index)
	if ok {
		metrics.CacheHits.WithLabelValues(c.active.String()).Inc()
	} else {
		metrics.CacheMisses.WithLabelValues(c.active.String()).Inc()
	}
	return v, ok
}

// Rebuild rebuilds the active window around center.
func (c *Cache[T]) Rebuild(center, count int, load Loader[T]) int {
	metrics.CacheRebuilds.WithLabelValues(c.active.String()).Inc()
	return c.Window().Rebuild(center, count, load)
}

// Shift forwards to the active window's Shift and counts rebuilds.
func (c *Cache[T]) Shift(current int, forward bool, count int, load Loader[T]) Outcome {
	out := c.Window().Shift(current, forward, count, load)
	if out == Rebuilt {
		metrics.CacheRebuilds.WithLabelValues(c.active.String()).Inc()
	}
	return out
}

// Reset invalidates every window.
func (c *Cache[T]) Reset() {
	for _, w := range c.windows {
		w.Reset()
	}
}
