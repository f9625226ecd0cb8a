package logger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/listenupapp/librarian/internal/errors"
)

// DefaultRecentErrors is the number of warn+ records kept by a Recorder.
const DefaultRecentErrors = 20

// CategoryKey is the attribute key that overrides category detection.
const CategoryKey = "category"

// Entry is one recorded warning or error.
type Entry struct {
	Time      time.Time
	Level     slog.Level
	Category  string
	Component string
	Message   string
}

// Recorder keeps a bounded ring of recent warnings and errors.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	counts  map[string]int
}

// NewRecorder creates a recorder holding at most size entries.
func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = DefaultRecentErrors
	}
	return &Recorder{entries: make([]Entry, size), counts: make(map[string]int)}
}

func (r *Recorder) add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
	r.counts[e.Category]++
}

// Recent returns the recorded entries, oldest first.
func (r *Recorder) Recent() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]Entry(nil), r.entries[:r.next]...)
	}
	out := make([]Entry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	return append(out, r.entries[:r.next]...)
}

// Count returns how many entries were ever recorded for category.
func (r *Recorder) Count(category string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[category]
}

// Clear drops all entries and counters.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
	r.next, r.full = 0, false
	r.counts = make(map[string]int)
}

// Wrap returns a handler that records warn+ records before delegating.
func (r *Recorder) Wrap(next slog.Handler) slog.Handler {
	return &recordingHandler{next: next, rec: r}
}

type recordingHandler struct {
	next  slog.Handler
	rec   *Recorder
	attrs []slog.Attr
}

func (h *recordingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelWarn || h.next.Enabled(ctx, level)
}

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		e := Entry{Time: r.Time, Level: r.Level, Message: r.Message}
		scan := func(a slog.Attr) bool {
			switch a.Key {
			case CategoryKey:
				e.Category = a.Value.String()
			case "component":
				e.Component = a.Value.String()
			case "error":
				if err, ok := a.Value.Any().(error); ok && e.Category == "" {
					e.Category = errors.CodeOf(err).Category()
				}
			}
			return true
		}
		for _, a := range h.attrs {
			scan(a)
		}
		r.Attrs(scan)
		if e.Category == "" {
			e.Category = "system"
		}
		h.rec.add(e)
	}
	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &recordingHandler{next: h.next.WithAttrs(attrs), rec: h.rec, attrs: merged}
}

func (h *recordingHandler) WithGroup(name string) slog.Handler {
	return &recordingHandler{next: h.next.WithGroup(name), rec: h.rec, attrs: h.attrs}
}
