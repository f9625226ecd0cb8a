package library

import (
	"context"

	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/errors"
)

// The methods below serve the background worker. They take the kind
// explicitly because a job keeps working on the kind it was enqueued for
// even if the user switches kinds meanwhile. Each call holds the library
// lock only for its own duration.

// Count returns the number of items of kind.
func (s *Service) Count(ctx context.Context, kind domain.Kind) (int, error) {
	var n int
	err := s.mu.With(ctx, func() error {
		n = len(s.lists[kind])
		return nil
	})
	return n, err
}

// Hydrate returns a full copy of the item of kind at index. When the detail
// file cannot be read the index entry is returned. An item without an
// identifier is given one (its code, else a generated id) and its detail
// file is written; the index file is left for the caller's RewriteIndex.
func (s *Service) Hydrate(ctx context.Context, kind domain.Kind, index int) (domain.Record, error) {
	var out domain.Record
	err := s.mu.With(ctx, func() error {
		if err := s.checkIndexLocked(kind, index); err != nil {
			return err
		}

		if kind == s.Kind() && s.matches == nil {
			if cached, ok := s.cache.Window().Get(index); ok {
				out = cached.Clone()
			}
		}
		if out == nil {
			rec, err := s.loadLocked(ctx, kind, index)
			switch {
			case err == nil:
				out = rec
			case errors.Is(err, errors.ErrLockTimeout), errors.Is(err, errors.ErrCanceled):
				return err
			default:
				out = s.lists[kind][index].Clone()
			}
		}

		if out.Identifier() == "" {
			if err := s.assignIdentifierLocked(kind, index, out); err != nil {
				return err
			}
			markLoaded(out)
			if err := s.store.Save(ctx, out, "", true); err != nil {
				return err
			}
			if kind == s.Kind() {
				s.cache.Window().Put(index, out.Clone())
			}
		}
		return nil
	})
	return out, err
}

// CoverUpdate names the cover fields to change; empty fields are kept.
type CoverUpdate struct {
	URL  string
	File string
	Hash string
}

// UpdateCover changes the cover fields of the item identified by itemID and
// persists the full record. With deferIndex set the index file is left for
// a later RewriteIndex.
func (s *Service) UpdateCover(ctx context.Context, kind domain.Kind, itemID string, u CoverUpdate, deferIndex bool) error {
	return s.mu.With(ctx, func() error {
		index := s.indexOfIDLocked(kind, itemID)
		if index < 0 {
			return errors.NotFoundf("%s %s left the library", kind, itemID)
		}
		rec, err := s.loadForUpdateLocked(ctx, kind, index)
		if err != nil {
			return err
		}

		v := rec.View()
		if u.URL != "" {
			v.CoverURL = u.URL
		}
		if u.File != "" {
			v.CoverFile = u.File
		}
		if u.Hash != "" {
			v.CoverHash = u.Hash
		}
		v.DetailsLoaded = true
		rec.Apply(v)

		if err := s.store.Save(ctx, rec, "", deferIndex); err != nil {
			return err
		}
		s.lists[kind][index] = summaryOf(rec)
		if kind == s.Kind() {
			s.cache.Window().Put(index, rec)
		}
		return nil
	})
}

// RewriteIndex flushes the index of kind after deferred saves.
func (s *Service) RewriteIndex(ctx context.Context, kind domain.Kind) error {
	return s.store.RewriteIndex(ctx, kind)
}

// CoverFileName returns the canonical cover file name of an item.
func (s *Service) CoverFileName(kind domain.Kind, itemID string) string {
	return s.registry.Get(kind).CoverFileName(itemID)
}
