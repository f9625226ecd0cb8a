// Package navcache keeps a sliding window of hydrated records around the
// item being browsed so single-step navigation never waits on the card.
//
// A Window covers 2*perSide+1 contiguous library indices. Slots are held in a
// ring: shifting by one slot moves the ring head and hydrates exactly one new
// index, whatever the window size. Windows are not safe for concurrent use;
// the library service guards them with the library lock.
package navcache

import (
	"github.com/listenupapp/librarian/internal/errors"
)

// Loader hydrates the record at a library index. It reports false when the
// record could not be loaded; the slot then stays invalid.
type Loader[T any] func(index int) (T, bool)

// Outcome describes what Shift did to the window.
type Outcome int

const (
	// Unchanged means the current index was already safely inside.
	Unchanged Outcome = iota
	// Shifted means the window moved by exactly one slot.
	Shifted
	// Rebuilt means the window was hydrated from scratch.
	Rebuilt
)

func (o Outcome) String() string {
	switch o {
	case Shifted:
		return "shifted"
	case Rebuilt:
		return "rebuilt"
	default:
		return "unchanged"
	}
}

// unset marks a window that has not been built.
const unset = -1

// Window is a fixed-capacity ring of records for contiguous library indices.
type Window[T any] struct {
	slots  []T
	valid  []bool
	head   int // ring slot holding index start
	start  int
	half   int
	margin int
}

// NewWindow allocates a window of 2*perSide+1 slots. A shift is triggered
// once the current index comes closer than margin slots to the leading edge.
func NewWindow[T any](perSide, margin int) (*Window[T], error) {
	if perSide < 1 {
		return nil, errors.Validationf("items per side must be positive, got %d", perSide)
	}
	if margin < 0 || margin > perSide {
		return nil, errors.Validationf("edge margin %d outside [0, %d]", margin, perSide)
	}
	size := 2*perSide + 1
	return &Window[T]{
		slots:  make([]T, size),
		valid:  make([]bool, size),
		start:  unset,
		half:   perSide,
		margin: margin,
	}, nil
}

// Size is the number of slots.
func (w *Window[T]) Size() int { return len(w.slots) }

// Half is the offset of the center slot.
func (w *Window[T]) Half() int { return w.half }

// Margin is the edge margin.
func (w *Window[T]) Margin() int { return w.margin }

// Start is the library index of the first slot, or -1 before the first
// rebuild.
func (w *Window[T]) Start() int { return w.start }

// Built reports whether the window covers any range.
func (w *Window[T]) Built() bool { return w.start != unset }

// Contains reports whether index falls in the covered range.
func (w *Window[T]) Contains(index int) bool {
	return w.start != unset && index >= w.start && index < w.start+len(w.slots)
}

func (w *Window[T]) slot(index int) int {
	return (w.head + index - w.start) % len(w.slots)
}

// Reset marks every slot invalid and forgets the covered range.
func (w *Window[T]) Reset() {
	clear(w.slots)
	clear(w.valid)
	w.head = 0
	w.start = unset
}

// Rebuild centers the window on center and hydrates every slot whose index
// lies in [0, count). It returns the number of records loaded.
func (w *Window[T]) Rebuild(center, count int, load Loader[T]) int {
	w.head = 0
	w.start = center - w.half
	loaded := 0
	for i := range w.slots {
		if w.fill(i, w.start+i, count, load) {
			loaded++
		}
	}
	return loaded
}

func (w *Window[T]) fill(slot, index, count int, load Loader[T]) bool {
	var zero T
	w.slots[slot], w.valid[slot] = zero, false
	if index < 0 || index >= count {
		return false
	}
	v, ok := load(index)
	if ok {
		w.slots[slot], w.valid[slot] = v, true
	}
	return ok
}

// Get returns the cached record for index if its slot is valid.
func (w *Window[T]) Get(index int) (T, bool) {
	if !w.Contains(index) {
		var zero T
		return zero, false
	}
	s := w.slot(index)
	return w.slots[s], w.valid[s]
}

// Put stores v for index if index is covered. It reports whether it did.
func (w *Window[T]) Put(index int, v T) bool {
	if !w.Contains(index) {
		return false
	}
	s := w.slot(index)
	w.slots[s], w.valid[s] = v, true
	return true
}

// Invalidate drops the record cached for index.
func (w *Window[T]) Invalidate(index int) {
	if !w.Contains(index) {
		return
	}
	var zero T
	s := w.slot(index)
	w.slots[s], w.valid[s] = zero, false
}

// Refill reloads the slot for index.
func (w *Window[T]) Refill(index, count int, load Loader[T]) bool {
	if !w.Contains(index) {
		return false
	}
	return w.fill(w.slot(index), index, count, load)
}

// Shift keeps the window coherent after single-step navigation to current.
// Nothing happens while current stays at least margin slots from the edge it
// is moving towards. One step closer moves the window by one slot and loads
// one record. Any larger jump rebuilds around current.
func (w *Window[T]) Shift(current int, forward bool, count int, load Loader[T]) Outcome {
	if !w.Built() {
		w.Rebuild(current, count, load)
		return Rebuilt
	}

	end := w.start + len(w.slots) - 1
	room := current - w.start
	if forward {
		room = end - current
	}

	switch need := w.margin - room; {
	case need <= 0 && w.Contains(current):
		return Unchanged
	case need == 1:
		w.shiftOne(forward, count, load)
		if w.Contains(current) {
			return Shifted
		}
	}
	w.Rebuild(current, count, load)
	return Rebuilt
}

func (w *Window[T]) shiftOne(forward bool, count int, load Loader[T]) {
	n := len(w.slots)
	if forward {
		// The slot that held start becomes the new leading edge.
		s := w.head
		w.head = (w.head + 1) % n
		w.start++
		w.fill(s, w.start+n-1, count, load)
		return
	}
	w.head = (w.head - 1 + n) % n
	w.start--
	w.fill(w.head, w.start, count, load)
}

// Indices returns the library indices of valid slots in ascending order.
func (w *Window[T]) Indices() []int {
	if !w.Built() {
		return nil
	}
	var out []int
	for i := range w.slots {
		idx := w.start + i
		if w.valid[w.slot(idx)] {
			out = append(out, idx)
		}
	}
	return out
}
