// Package library owns the in-memory catalogs of both kinds, the current
// selection and the navigation cache.
//
// Every field of Service is guarded by the library lock. Methods with a
// Locked suffix expect the caller to hold it. Store calls made while holding
// the library lock take the bus lock inside; the reverse order never occurs.
package library

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/errors"
	"github.com/listenupapp/librarian/internal/id"
	"github.com/listenupapp/librarian/internal/lock"
	"github.com/listenupapp/librarian/internal/navcache"
	"github.com/listenupapp/librarian/internal/validation"
)

// RecordStore is the persistence the service needs.
type RecordStore interface {
	Save(ctx context.Context, rec domain.Record, previousID string, deferIndexRewrite bool) error
	LoadDetail(ctx context.Context, kind domain.Kind, id string) (domain.Record, error)
	LoadIndex(ctx context.Context, kind domain.Kind) error
	Index(kind domain.Kind) []domain.IndexEntry
	Delete(ctx context.Context, kind domain.Kind, id string) error
	Reorder(ctx context.Context, kind domain.Kind, order []int) error
	RewriteIndex(ctx context.Context, kind domain.Kind) error
	SetEntryID(kind domain.Kind, index int, id string) error
}

// Options configures the navigation cache of a Service.
type Options struct {
	ItemsPerSide int
	EdgeMargin   int
	// IdleRecenter is how long navigation must pause before the window is
	// re-centered on the current item. Zero disables it.
	IdleRecenter time.Duration
}

// Service is the library service shared by the interactive side and the
// background worker.
type Service struct {
	store    RecordStore
	registry *Registry
	validate *validation.Validator
	mu       *lock.Mutex
	logger   *slog.Logger

	kind    atomic.Uint32
	lists   map[domain.Kind][]domain.Record
	current map[domain.Kind]int
	cache   *navcache.Cache[domain.Record]
	filter  Filter
	matches []int // indices passing filter; nil while no filter is active

	idleAfter time.Duration
	idleTimer *time.Timer

	now func() time.Time
}

// NewService creates a library service. Call Load before use.
func NewService(store RecordStore, registry *Registry, libraryLock *lock.Mutex, opts Options, logger *slog.Logger) (*Service, error) {
	cache, err := navcache.New[domain.Record](opts.ItemsPerSide, opts.EdgeMargin)
	if err != nil {
		return nil, err
	}
	return &Service{
		store:     store,
		registry:  registry,
		validate:  validation.New(),
		mu:        libraryLock,
		logger:    logger,
		lists:     make(map[domain.Kind][]domain.Record, len(domain.Kinds)),
		current:   make(map[domain.Kind]int, len(domain.Kinds)),
		cache:     cache,
		idleAfter: opts.IdleRecenter,
		now:       time.Now,
	}, nil
}

// Kind returns the active kind.
func (s *Service) Kind() domain.Kind {
	return domain.Kind(s.kind.Load())
}

// Descriptor returns the registry entry of kind.
func (s *Service) Descriptor(kind domain.Kind) KindDescriptor {
	return s.registry.Get(kind)
}

// Load reads both indexes from the store, replaces the in-memory catalogs
// and rebuilds the navigation window.
func (s *Service) Load(ctx context.Context) error {
	return s.mu.With(ctx, func() error {
		for _, kind := range domain.Kinds {
			if err := s.store.LoadIndex(ctx, kind); err != nil {
				return err
			}
			s.syncLocked(kind)
		}
		s.refreshFilterLocked()
		s.rebuildLocked(ctx)
		return nil
	})
}

// Reload is Load under the name used after a library sync.
func (s *Service) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

// Close stops the idle re-center timer.
func (s *Service) Close(ctx context.Context) error {
	return s.mu.With(ctx, func() error {
		if s.idleTimer != nil {
			s.idleTimer.Stop()
			s.idleTimer = nil
		}
		return nil
	})
}

func (s *Service) syncLocked(kind domain.Kind) {
	entries := s.store.Index(kind)
	list := make([]domain.Record, len(entries))
	for i, e := range entries {
		list[i] = domain.FromSummary(kind, e)
	}
	s.lists[kind] = list
	s.current[kind] = clampIndex(s.current[kind], len(list))
	s.logger.Debug("catalog synced", "kind", kind, "items", len(list))
}

func clampIndex(i, n int) int {
	if i >= n {
		i = n - 1
	}
	return max(i, 0)
}

// SwitchKind makes kind the active kind. The filter is cleared and the
// window rebuilt around the kind's current item.
func (s *Service) SwitchKind(ctx context.Context, kind domain.Kind) error {
	if !kind.Valid() {
		return errors.Validationf("unknown kind %d", kind)
	}
	return s.mu.With(ctx, func() error {
		if !s.cache.Activate(kind) {
			return nil
		}
		s.kind.Store(uint32(kind))
		s.filter, s.matches = Filter{}, nil
		s.rebuildLocked(ctx)
		s.logger.Info("kind switched", "kind", kind)
		return nil
	})
}

// ItemCount returns the number of items of the active kind.
func (s *Service) ItemCount(ctx context.Context) (int, error) {
	var n int
	err := s.mu.With(ctx, func() error {
		n = len(s.lists[s.Kind()])
		return nil
	})
	return n, err
}

// GetItemAt returns the full view of the item at index. Inside the window
// the cached record is used; otherwise the detail file is read directly.
// While a filter is active the window is bypassed.
func (s *Service) GetItemAt(ctx context.Context, index int) (domain.ItemView, error) {
	var view domain.ItemView
	err := s.mu.With(ctx, func() error {
		kind := s.Kind()
		if err := s.checkIndexLocked(kind, index); err != nil {
			return err
		}

		var rec domain.Record
		if s.matches == nil {
			if cached, ok := s.cache.Get(index); ok {
				rec = cached
			}
		}
		if rec == nil {
			loaded, err := s.loadLocked(ctx, kind, index)
			switch {
			case err == nil:
				rec = loaded
				if s.matches == nil {
					s.cache.Window().Put(index, loaded.Clone())
				}
			case errors.Is(err, errors.ErrLockTimeout), errors.Is(err, errors.ErrCanceled):
				return err
			default:
				s.logger.Warn("detail unavailable, showing index entry",
					"kind", kind, "index", index, "error", err)
				rec = s.lists[kind][index]
			}
		}

		view = s.viewOf(kind, rec)
		return nil
	})
	return view, err
}

// CurrentItem returns the view of the current item.
func (s *Service) CurrentItem(ctx context.Context) (domain.ItemView, error) {
	i, err := s.CurrentIndex(ctx)
	if err != nil {
		return domain.ItemView{}, err
	}
	return s.GetItemAt(ctx, i)
}

func (s *Service) viewOf(kind domain.Kind, rec domain.Record) domain.ItemView {
	v := rec.View()
	v.ExtraInfo = s.registry.Get(kind).ExtraInfo(v)
	return v
}

func (s *Service) checkIndexLocked(kind domain.Kind, index int) error {
	if index < 0 || index >= len(s.lists[kind]) {
		return errors.NotFoundf("no %s at index %d", kind, index)
	}
	return nil
}

// loadLocked reads the full record at index from its detail file. Catalog
// lists hold index summaries only; hydrated records live in the window.
func (s *Service) loadLocked(ctx context.Context, kind domain.Kind, index int) (domain.Record, error) {
	return s.store.LoadDetail(ctx, kind, s.lists[kind][index].Identifier())
}

// summaryOf is the catalog form of rec.
func summaryOf(rec domain.Record) domain.Record {
	return domain.FromSummary(rec.Kind(), rec.Summary())
}

// assignIdentifierLocked gives the id-less item at index an identifier: its
// code unless another item already uses it, else a generated one. The id is
// written into the store index entry at the same position so the next save
// replaces that entry instead of appending one. rec is the caller's copy of
// the item and receives the identifier too.
func (s *Service) assignIdentifierLocked(kind domain.Kind, index int, rec domain.Record) error {
	if err := s.ensureIdentifier(rec); err != nil {
		return err
	}
	if i := s.indexOfIDLocked(kind, rec.Identifier()); i >= 0 && i != index {
		rec.SetIdentifier("")
		generated, err := id.Generate(s.now())
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "generate identifier")
		}
		rec.SetIdentifier(generated)
	}
	if err := s.store.SetEntryID(kind, index, rec.Identifier()); err != nil {
		return err
	}
	s.lists[kind][index].SetIdentifier(rec.Identifier())
	s.logger.Info("identifier assigned", "kind", kind, "index", index, "id", rec.Identifier())
	return nil
}

func (s *Service) loaderLocked(ctx context.Context, kind domain.Kind) navcache.Loader[domain.Record] {
	return func(index int) (domain.Record, bool) {
		rec, err := s.loadLocked(ctx, kind, index)
		if err != nil {
			s.logger.Debug("window slot left empty", "kind", kind, "index", index, "error", err)
			return nil, false
		}
		return rec, true
	}
}

// rebuildLocked re-centers the active window on the current item.
func (s *Service) rebuildLocked(ctx context.Context) {
	kind := s.Kind()
	n := len(s.lists[kind])
	if n == 0 {
		s.cache.Window().Reset()
		return
	}
	loaded := s.cache.Rebuild(s.current[kind], n, s.loaderLocked(ctx, kind))
	s.logger.Debug("window rebuilt", "kind", kind, "center", s.current[kind], "loaded", loaded)
}

// SetItem replaces the item at index with view and persists it. An empty
// view id keeps the item's identifier; a different one renames it.
func (s *Service) SetItem(ctx context.Context, index int, view domain.ItemView) error {
	if err := s.validate.Validate(view); err != nil {
		return err
	}
	return s.mu.With(ctx, func() error {
		kind := s.Kind()
		if err := s.checkIndexLocked(kind, index); err != nil {
			return err
		}
		if s.lists[kind][index].Identifier() == "" {
			if err := s.assignIdentifierLocked(kind, index, s.lists[kind][index].Clone()); err != nil {
				return err
			}
		}
		prevID := s.lists[kind][index].Identifier()

		rec := domain.FromView(kind, view)
		if rec.Identifier() == "" {
			rec.SetIdentifier(prevID)
		}
		if i := s.indexOfIDLocked(kind, rec.Identifier()); i >= 0 && i != index {
			return errors.Validationf("%s %s is already in the library", kind, rec.Identifier())
		}
		markLoaded(rec)

		if err := s.store.Save(ctx, rec, prevID, false); err != nil {
			return err
		}
		s.lists[kind][index] = summaryOf(rec)
		s.cache.Window().Put(index, rec)
		s.refreshFilterLocked()
		s.logger.Info("item saved", "kind", kind, "id", rec.Identifier(), "previous_id", prevID)
		return nil
	})
}

// AddItem appends a new item and persists it. Missing identifiers are taken
// from the code or generated; missing shelf positions get the next free one.
// It returns the new item's index.
func (s *Service) AddItem(ctx context.Context, view domain.ItemView) (int, error) {
	if err := s.validate.Validate(view); err != nil {
		return -1, err
	}
	index := -1
	err := s.mu.With(ctx, func() error {
		kind := s.Kind()
		rec := domain.FromView(kind, view)
		if err := s.ensureIdentifier(rec); err != nil {
			return err
		}
		if s.indexOfIDLocked(kind, rec.Identifier()) >= 0 {
			return errors.Validationf("%s %s is already in the library", kind, rec.Identifier())
		}
		if len(rec.Positions()) == 0 {
			v := rec.View()
			v.ShelfPositions = []int{s.nextShelfPositionLocked(kind)}
			rec.Apply(v)
		}
		markLoaded(rec)

		if err := s.store.Save(ctx, rec, "", false); err != nil {
			return err
		}
		s.lists[kind] = append(s.lists[kind], summaryOf(rec))
		index = len(s.lists[kind]) - 1
		s.cache.Window().Put(index, rec)
		s.refreshFilterLocked()
		s.logger.Info("item added", "kind", kind, "id", rec.Identifier(), "index", index)
		return nil
	})
	return index, err
}

func markLoaded(rec domain.Record) {
	v := rec.View()
	v.DetailsLoaded = true
	rec.Apply(v)
}

// ensureIdentifier gives rec its code as identifier, or a generated one.
func (s *Service) ensureIdentifier(rec domain.Record) error {
	if rec.Identifier() != "" {
		return nil
	}
	if code := rec.Code(); code != "" {
		rec.SetIdentifier(code)
		return nil
	}
	generated, err := id.Generate(s.now())
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "generate identifier")
	}
	rec.SetIdentifier(generated)
	return nil
}

// DeleteItemAt removes the item at index from the store and the catalog.
func (s *Service) DeleteItemAt(ctx context.Context, index int) error {
	return s.mu.With(ctx, func() error {
		kind := s.Kind()
		if err := s.checkIndexLocked(kind, index); err != nil {
			return err
		}
		if s.lists[kind][index].Identifier() == "" {
			if err := s.assignIdentifierLocked(kind, index, s.lists[kind][index].Clone()); err != nil {
				return err
			}
		}
		itemID := s.lists[kind][index].Identifier()
		if err := s.store.Delete(ctx, kind, itemID); err != nil {
			return err
		}

		s.lists[kind] = slices.Delete(s.lists[kind], index, index+1)
		cur := s.current[kind]
		if cur > index {
			cur--
		}
		s.current[kind] = clampIndex(cur, len(s.lists[kind]))

		s.refreshFilterLocked()
		s.rebuildLocked(ctx)
		s.logger.Info("item deleted", "kind", kind, "id", itemID)
		return nil
	})
}

// ToggleFavoriteAt flips the favorite flag of the item at index, persists
// the full record and returns the new state.
func (s *Service) ToggleFavoriteAt(ctx context.Context, index int) (bool, error) {
	var favorite bool
	err := s.mu.With(ctx, func() error {
		kind := s.Kind()
		if err := s.checkIndexLocked(kind, index); err != nil {
			return err
		}
		rec, err := s.loadForUpdateLocked(ctx, kind, index)
		if err != nil {
			return err
		}
		v := rec.View()
		v.Favorite = !v.Favorite
		rec.Apply(v)

		if err := s.store.Save(ctx, rec, "", false); err != nil {
			return err
		}
		favorite = v.Favorite
		s.lists[kind][index] = summaryOf(rec)
		s.cache.Window().Put(index, rec)
		s.refreshFilterLocked()
		return nil
	})
	return favorite, err
}

// loadForUpdateLocked returns the full record at index for a mutation that
// rewrites it. An item without identifier is given one first; an item
// whose detail file is missing is rebuilt from its index entry.
func (s *Service) loadForUpdateLocked(ctx context.Context, kind domain.Kind, index int) (domain.Record, error) {
	if s.lists[kind][index].Identifier() == "" {
		rec := s.lists[kind][index].Clone()
		if err := s.assignIdentifierLocked(kind, index, rec); err != nil {
			return nil, err
		}
		markLoaded(rec)
		return rec, nil
	}
	rec, err := s.loadLocked(ctx, kind, index)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, errors.ErrNotFound):
		rec = s.lists[kind][index].Clone()
		markLoaded(rec)
		return rec, nil
	default:
		return nil, err
	}
}

// FindItemIndex returns the index of the item whose identifier or code is
// query, or -1.
func (s *Service) FindItemIndex(ctx context.Context, query string) (int, error) {
	found := -1
	if query == "" {
		return found, nil
	}
	err := s.mu.With(ctx, func() error {
		found = slices.IndexFunc(s.lists[s.Kind()], func(r domain.Record) bool {
			return r.Identifier() == query || r.Code() == query
		})
		return nil
	})
	return found, err
}

func (s *Service) indexOfIDLocked(kind domain.Kind, itemID string) int {
	if itemID == "" {
		return -1
	}
	return slices.IndexFunc(s.lists[kind], func(r domain.Record) bool {
		return r.Identifier() == itemID
	})
}

// NextShelfPosition returns the first shelf position after every position
// used by either kind, but never below the active kind's shelf start.
func (s *Service) NextShelfPosition(ctx context.Context) (int, error) {
	var next int
	err := s.mu.With(ctx, func() error {
		next = s.nextShelfPositionLocked(s.Kind())
		return nil
	})
	return next, err
}

func (s *Service) nextShelfPositionLocked(kind domain.Kind) int {
	highest := -1
	for _, list := range s.lists {
		for _, rec := range list {
			for _, p := range rec.Positions() {
				highest = max(highest, p)
			}
		}
	}
	return max(s.registry.Get(kind).ShelfStart, highest+1)
}

// Genres returns the distinct genres of the active kind, one label per
// genre key, in key order.
func (s *Service) Genres(ctx context.Context) ([]string, error) {
	var genres []string
	err := s.mu.With(ctx, func() error {
		genres = distinctGenres(s.lists[s.Kind()])
		return nil
	})
	return genres, err
}
