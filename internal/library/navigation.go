package library

import (
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/errors"
	"github.com/listenupapp/librarian/internal/util"
)

// CurrentIndex returns the current item index of the active kind.
func (s *Service) CurrentIndex(ctx context.Context) (int, error) {
	var i int
	err := s.mu.With(ctx, func() error {
		i = s.current[s.Kind()]
		return nil
	})
	return i, err
}

// SetCurrentIndex jumps to index.
func (s *Service) SetCurrentIndex(ctx context.Context, index int) error {
	return s.mu.With(ctx, func() error {
		kind := s.Kind()
		if err := s.checkIndexLocked(kind, index); err != nil {
			return err
		}
		prev := s.current[kind]
		s.current[kind] = index
		s.followLocked(ctx, kind, index >= prev)
		return nil
	})
}

// Next moves to the next item, wrapping at the end and skipping items the
// active filter rejects. It returns the new current index.
func (s *Service) Next(ctx context.Context) (int, error) {
	return s.step(ctx, true)
}

// Prev moves to the previous item; see Next.
func (s *Service) Prev(ctx context.Context) (int, error) {
	return s.step(ctx, false)
}

func (s *Service) step(ctx context.Context, forward bool) (int, error) {
	index := -1
	err := s.mu.With(ctx, func() error {
		kind := s.Kind()
		n := len(s.lists[kind])
		if n == 0 {
			return errors.NotFoundf("no %s in the library", kind)
		}

		start := s.current[kind]
		candidate := start
		for {
			if forward {
				candidate = (candidate + 1) % n
			} else {
				candidate = (candidate - 1 + n) % n
			}
			if s.passesLocked(candidate) {
				break
			}
			if candidate == start {
				index = start
				return nil
			}
		}

		s.current[kind] = candidate
		s.followLocked(ctx, kind, forward)
		index = candidate
		return nil
	})
	return index, err
}

// followLocked keeps the window on the current item after a move and
// restarts the idle timer. The window is left alone while filtering.
func (s *Service) followLocked(ctx context.Context, kind domain.Kind, forward bool) {
	if s.matches == nil {
		s.cache.Shift(s.current[kind], forward, len(s.lists[kind]), s.loaderLocked(ctx, kind))
	}
	s.touchLocked()
}

func (s *Service) touchLocked() {
	if s.idleAfter <= 0 {
		return
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.idleAfter, s.recenter)
}

// recenter runs from the idle timer.
func (s *Service) recenter() {
	ctx, cancel := context.WithTimeout(context.Background(), s.mu.Timeout())
	defer cancel()

	err := s.mu.With(ctx, func() error {
		if s.matches != nil {
			return nil
		}
		s.rebuildLocked(ctx)
		return nil
	})
	if err != nil {
		s.logger.Debug("idle re-center skipped", "error", err)
	}
}

// SortByCreator orders the active kind by creator. Discs of one artist are
// ordered by year, books of one author by title. The current item stays
// selected.
func (s *Service) SortByCreator(ctx context.Context) error {
	return s.sort(ctx, "creator", func(a, b domain.IndexEntry) int {
		if c := strings.Compare(strings.ToLower(a.Creator), strings.ToLower(b.Creator)); c != 0 {
			return c
		}
		if s.Kind() == domain.KindDisc {
			return a.Year - b.Year
		}
		return strings.Compare(a.Title, b.Title)
	})
}

// SortByShelfPosition orders the active kind by first shelf position;
// items without a position go last.
func (s *Service) SortByShelfPosition(ctx context.Context) error {
	first := func(e domain.IndexEntry) int {
		if len(e.ShelfPositions) == 0 {
			return math.MaxInt
		}
		return e.ShelfPositions[0]
	}
	return s.sort(ctx, "shelf_position", func(a, b domain.IndexEntry) int {
		return first(a) - first(b)
	})
}

type sortable struct {
	rec  domain.Record
	key  domain.IndexEntry
	from int
}

func (s *Service) sort(ctx context.Context, by string, cmp func(a, b domain.IndexEntry) int) error {
	return s.mu.With(ctx, func() error {
		kind := s.Kind()
		list := s.lists[kind]
		if len(list) == 0 {
			return nil
		}
		current := s.current[kind]

		items := make([]sortable, len(list))
		for i, rec := range list {
			items[i] = sortable{rec: rec, key: rec.Summary(), from: i}
		}
		slices.SortStableFunc(items, func(a, b sortable) int { return cmp(a.key, b.key) })

		order := make([]int, len(items))
		for i, it := range items {
			list[i] = it.rec
			order[i] = it.from
			if it.from == current {
				s.current[kind] = i
			}
		}

		s.refreshFilterLocked()
		s.rebuildLocked(ctx)
		s.logger.Info("catalog sorted", "kind", kind, "by", by)
		return s.store.Reorder(ctx, kind, order)
	})
}

// SetFilter activates f and returns the number of matching items. When the
// current item does not match, the first match becomes current.
func (s *Service) SetFilter(ctx context.Context, f Filter) (int, error) {
	var n int
	err := s.mu.With(ctx, func() error {
		s.filter = f
		s.refreshFilterLocked()
		if s.matches == nil {
			n = len(s.lists[s.Kind()])
			s.rebuildLocked(ctx)
			return nil
		}
		n = len(s.matches)
		kind := s.Kind()
		if n > 0 && !slices.Contains(s.matches, s.current[kind]) {
			s.current[kind] = s.matches[0]
		}
		return nil
	})
	return n, err
}

// ClearFilter deactivates the filter and rebuilds the window, which was
// bypassed while filtering.
func (s *Service) ClearFilter(ctx context.Context) error {
	return s.mu.With(ctx, func() error {
		if s.matches == nil {
			return nil
		}
		s.filter, s.matches = Filter{}, nil
		s.rebuildLocked(ctx)
		return nil
	})
}

// FilteredIndices returns the indices of items passing the filter; with no
// active filter that is every index.
func (s *Service) FilteredIndices(ctx context.Context) ([]int, error) {
	var out []int
	err := s.mu.With(ctx, func() error {
		if s.matches != nil {
			out = slices.Clone(s.matches)
			return nil
		}
		out = make([]int, len(s.lists[s.Kind()]))
		for i := range out {
			out[i] = i
		}
		return nil
	})
	return out, err
}

// refreshFilterLocked recomputes the match list after the catalog or the
// filter changed.
func (s *Service) refreshFilterLocked() {
	if !s.filter.Active() {
		s.matches = nil
		return
	}
	matches := make([]int, 0)
	for i, rec := range s.lists[s.Kind()] {
		if s.filter.Match(rec.Summary()) {
			matches = append(matches, i)
		}
	}
	s.matches = matches
}

func (s *Service) passesLocked(index int) bool {
	if s.matches == nil {
		return true
	}
	_, found := slices.BinarySearch(s.matches, index)
	return found
}

func distinctGenres(list []domain.Record) []string {
	labels := make(map[string]string)
	for _, rec := range list {
		g := rec.Summary().Genre
		key := util.GenreKey(g)
		if key == "" {
			continue
		}
		if _, ok := labels[key]; !ok {
			labels[key] = g
		}
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = labels[k]
	}
	return out
}
