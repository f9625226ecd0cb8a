package navcache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/errors"
)

// library is a fake backing store that counts loads.
type library struct {
	items []string
	loads []int
	fail  map[int]bool
}

func newLibrary(n int) *library {
	l := &library{fail: map[int]bool{}}
	for i := range n {
		l.items = append(l.items, fmt.Sprintf("item-%d", i))
	}
	return l
}

func (l *library) load(i int) (string, bool) {
	l.loads = append(l.loads, i)
	if l.fail[i] {
		return "", false
	}
	return l.items[i], true
}

func (l *library) count() int { return len(l.items) }

func TestNewWindow(t *testing.T) {
	w, err := NewWindow[string](10, 1)
	require.NoError(t, err)
	assert.Equal(t, 21, w.Size())
	assert.Equal(t, 10, w.Half())
	assert.Equal(t, -1, w.Start())
	assert.False(t, w.Built())
	assert.Empty(t, w.Indices())

	_, err = NewWindow[string](0, 0)
	assert.ErrorIs(t, err, errors.ErrValidation)
	_, err = NewWindow[string](5, 6)
	assert.ErrorIs(t, err, errors.ErrValidation)
	_, err = NewWindow[string](5, -1)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestWindow_StepForwardOverFiveItems(t *testing.T) {
	lib := newLibrary(5)
	w, err := NewWindow[string](1, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, w.Rebuild(2, lib.count(), lib.load))
	assert.Equal(t, []int{1, 2, 3}, w.Indices())

	lib.loads = nil
	out := w.Shift(3, true, lib.count(), lib.load)
	assert.Equal(t, Shifted, out)
	assert.Equal(t, []int{2, 3, 4}, w.Indices())
	assert.Equal(t, []int{4}, lib.loads, "exactly one fresh load")

	_, ok := w.Get(1)
	assert.False(t, ok)
	v, ok := w.Get(4)
	require.True(t, ok)
	assert.Equal(t, "item-4", v)
}

func TestWindow_RebuildClipsToLibrary(t *testing.T) {
	lib := newLibrary(4)
	w, _ := NewWindow[string](5, 1)

	loaded := w.Rebuild(0, lib.count(), lib.load)
	assert.Equal(t, 4, loaded)
	assert.Equal(t, -5, w.Start())
	assert.Equal(t, []int{0, 1, 2, 3}, w.Indices())
	assert.ElementsMatch(t, []int{0, 1, 2, 3}, lib.loads)
}

func TestWindow_RebuildMatchesDirectLoad(t *testing.T) {
	lib := newLibrary(40)
	w, _ := NewWindow[string](5, 1)
	w.Rebuild(17, lib.count(), lib.load)

	for i := w.Start(); i < w.Start()+w.Size(); i++ {
		v, ok := w.Get(i)
		require.True(t, ok, "index %d", i)
		assert.Equal(t, lib.items[i], v)
	}
	_, ok := w.Get(w.Start() - 1)
	assert.False(t, ok)
	_, ok = w.Get(w.Start() + w.Size())
	assert.False(t, ok)
}

func TestWindow_FailedLoadLeavesSlotInvalid(t *testing.T) {
	lib := newLibrary(10)
	lib.fail[5] = true
	w, _ := NewWindow[string](1, 1)

	assert.Equal(t, 2, w.Rebuild(5, lib.count(), lib.load))
	_, ok := w.Get(5)
	assert.False(t, ok)
	assert.Equal(t, []int{4, 6}, w.Indices())
}

func TestWindow_ShiftForwardChangesOneSlot(t *testing.T) {
	lib := newLibrary(50)
	w, _ := NewWindow[string](5, 1)
	w.Rebuild(20, lib.count(), lib.load)

	// Steps towards the edge stay put until the margin is reached.
	for cur := 21; cur <= 24; cur++ {
		assert.Equal(t, Unchanged, w.Shift(cur, true, lib.count(), lib.load), "cur %d", cur)
	}
	before := w.Indices()

	lib.loads = nil
	assert.Equal(t, Shifted, w.Shift(25, true, lib.count(), lib.load))
	after := w.Indices()
	assert.Equal(t, before[1:], after[:len(after)-1])
	assert.Equal(t, 26, after[len(after)-1])
	assert.Equal(t, []int{26}, lib.loads)

	// Every step from here on costs exactly one load.
	for cur := 26; cur < 35; cur++ {
		lib.loads = nil
		assert.Equal(t, Shifted, w.Shift(cur, true, lib.count(), lib.load))
		assert.Len(t, lib.loads, 1)
		v, ok := w.Get(cur)
		require.True(t, ok)
		assert.Equal(t, lib.items[cur], v)
	}
}

func TestWindow_ShiftBackward(t *testing.T) {
	lib := newLibrary(30)
	w, _ := NewWindow[string](2, 1)
	w.Rebuild(10, lib.count(), lib.load)
	assert.Equal(t, []int{8, 9, 10, 11, 12}, w.Indices())

	assert.Equal(t, Unchanged, w.Shift(9, false, lib.count(), lib.load))
	lib.loads = nil
	assert.Equal(t, Shifted, w.Shift(8, false, lib.count(), lib.load))
	assert.Equal(t, []int{7, 8, 9, 10, 11}, w.Indices())
	assert.Equal(t, []int{7}, lib.loads)

	for i := 7; i < 12; i++ {
		v, ok := w.Get(i)
		require.True(t, ok)
		assert.Equal(t, lib.items[i], v)
	}
}

func TestWindow_ShiftAtLibraryEdges(t *testing.T) {
	lib := newLibrary(5)
	w, _ := NewWindow[string](1, 1)
	w.Rebuild(3, lib.count(), lib.load)

	assert.Equal(t, Shifted, w.Shift(4, true, lib.count(), lib.load))
	assert.Equal(t, []int{3, 4}, w.Indices(), "slot past the end stays invalid")

	w.Rebuild(1, lib.count(), lib.load)
	assert.Equal(t, Shifted, w.Shift(0, false, lib.count(), lib.load))
	assert.Equal(t, []int{0, 1}, w.Indices())
}

func TestWindow_JumpRebuilds(t *testing.T) {
	lib := newLibrary(100)

	tests := []struct {
		name    string
		center  int
		current int
		forward bool
	}{
		{name: "far forward", center: 50, current: 80, forward: true},
		{name: "wrap to start", center: 95, current: 0, forward: true},
		{name: "wrap to end", center: 4, current: 99, forward: false},
		{name: "two past the edge", center: 5, current: 12, forward: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := NewWindow[string](5, 1)
			w.Rebuild(tt.center, lib.count(), lib.load)

			assert.Equal(t, Rebuilt, w.Shift(tt.current, tt.forward, lib.count(), lib.load))
			assert.Equal(t, tt.current-w.Half(), w.Start())
			v, ok := w.Get(tt.current)
			require.True(t, ok)
			assert.Equal(t, lib.items[tt.current], v)
		})
	}
}

func TestWindow_ShiftBeforeBuildRebuilds(t *testing.T) {
	lib := newLibrary(10)
	w, _ := NewWindow[string](1, 1)
	assert.Equal(t, Rebuilt, w.Shift(4, true, lib.count(), lib.load))
	assert.Equal(t, []int{3, 4, 5}, w.Indices())
}

func TestWindow_ZeroMarginShiftsOnlyPastTheEdge(t *testing.T) {
	lib := newLibrary(20)
	w, _ := NewWindow[string](1, 0)
	w.Rebuild(5, lib.count(), lib.load)

	assert.Equal(t, Unchanged, w.Shift(6, true, lib.count(), lib.load))
	assert.Equal(t, Shifted, w.Shift(7, true, lib.count(), lib.load))
	assert.Equal(t, []int{5, 6, 7}, w.Indices())
}

func TestWindow_PutInvalidateRefill(t *testing.T) {
	lib := newLibrary(10)
	w, _ := NewWindow[string](1, 1)
	w.Rebuild(5, lib.count(), lib.load)

	w.Invalidate(5)
	_, ok := w.Get(5)
	assert.False(t, ok)

	lib.items[5] = "edited"
	assert.True(t, w.Refill(5, lib.count(), lib.load))
	v, _ := w.Get(5)
	assert.Equal(t, "edited", v)

	assert.True(t, w.Put(6, "put"))
	v, _ = w.Get(6)
	assert.Equal(t, "put", v)

	assert.False(t, w.Put(9, "outside"))
	assert.False(t, w.Refill(0, lib.count(), lib.load))

	w.Reset()
	assert.False(t, w.Built())
	_, ok = w.Get(5)
	assert.False(t, ok)
}

func TestCache_ActivateResetsWindows(t *testing.T) {
	lib := newLibrary(10)
	c, err := New[string](5, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.KindDisc, c.Active())

	c.Rebuild(3, lib.count(), lib.load)
	v, ok := c.Get(3)
	require.True(t, ok)
	assert.Equal(t, "item-3", v)

	assert.False(t, c.Activate(domain.KindDisc))
	_, ok = c.Get(3)
	assert.True(t, ok)

	assert.True(t, c.Activate(domain.KindBook))
	assert.Equal(t, domain.KindBook, c.Active())
	_, ok = c.Get(3)
	assert.False(t, ok)
	assert.False(t, c.windows[domain.KindDisc].Built())

	assert.Equal(t, Rebuilt, c.Shift(2, true, lib.count(), lib.load))
	_, ok = c.Get(2)
	assert.True(t, ok)

	c.Reset()
	assert.False(t, c.Window().Built())
}

func TestCache_InvalidConfig(t *testing.T) {
	_, err := New[string](0, 0)
	assert.ErrorIs(t, err, errors.ErrValidation)
}
