// Package store persists catalog records on the card.
//
// Each record lives in its own detail file. A compact JSONL index per kind
// mirrors the browse fields of every record in list order and is held in
// memory after LoadIndex. The detail file is the source of truth; the index
// can always be rebuilt from it.
package store

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/listenupapp/librarian/internal/device"
	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/errors"
	"github.com/listenupapp/librarian/internal/metrics"
)

// Store is the record store for both kinds.
type Store struct {
	dev    *device.Device
	logger *slog.Logger

	mu      sync.RWMutex
	indexes map[domain.Kind][]domain.IndexEntry

	now      func() time.Time
	readOnly bool
}

// New creates a store on dev. Indexes start empty until LoadIndex.
func New(dev *device.Device, logger *slog.Logger) *Store {
	return &Store{
		dev:    dev,
		logger: logger,
		indexes: map[domain.Kind][]domain.IndexEntry{
			domain.KindDisc: nil,
			domain.KindBook: nil,
		},
		now: time.Now,
	}
}

// NewReadOnly creates a store for inspection tools. Its loads never finish
// interrupted writes, so reading leaves the card as it was.
func NewReadOnly(dev *device.Device, logger *slog.Logger) *Store {
	s := New(dev, logger)
	s.readOnly = true
	return s
}

// Device returns the underlying device.
func (s *Store) Device() *device.Device {
	return s.dev
}

// Save persists rec. When previousID names a different identifier, the old
// detail file is removed first and the index entry carrying previousID is
// replaced in place. Unless deferIndexRewrite is set, the index file is
// rewritten before Save returns; bulk callers defer and call RewriteIndex
// once at the end.
func (s *Store) Save(ctx context.Context, rec domain.Record, previousID string, deferIndexRewrite bool) (err error) {
	defer func() { metrics.StoreOperations.WithLabelValues("save", metrics.Outcome(err)).Inc() }()

	kind := rec.Kind()
	id := rec.Identifier()
	if id == "" {
		return errors.Validation("record has no identifier")
	}

	if previousID != "" && previousID != id {
		if oldPath := DetailPath(kind, previousID); oldPath != DetailPath(kind, id) {
			if err := s.dev.Remove(ctx, oldPath); err != nil {
				return errors.Wrapf(err, errors.CodeOf(err), "remove renamed detail %s", previousID)
			}
		}
	}

	if err := s.dev.WriteAtomic(ctx, DetailPath(kind, id), func(w io.Writer) error {
		return encodeDetail(w, rec)
	}); err != nil {
		s.logger.Error("detail save failed", "kind", kind, "id", id, "error", err)
		return err
	}

	s.upsertEntry(kind, rec.Summary(), previousID)

	if deferIndexRewrite {
		return nil
	}
	return s.RewriteIndex(ctx, kind)
}

// upsertEntry replaces the entry matching the new or previous identifier,
// or appends one.
func (s *Store) upsertEntry(kind domain.Kind, entry domain.IndexEntry, previousID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := func(e domain.IndexEntry) bool {
		return e.ID == entry.ID || (previousID != "" && e.ID == previousID)
	}

	entries := s.indexes[kind]
	i := slices.IndexFunc(entries, matches)
	if i < 0 {
		s.indexes[kind] = append(entries, entry)
		return
	}
	entries[i] = entry
	// A rename onto an identifier that already had an entry leaves one line.
	tail := slices.DeleteFunc(entries[i+1:], matches)
	s.indexes[kind] = entries[:i+1+len(tail)]
}

// LoadDetail reads the full record for id. A missing file yields
// errors.ErrNotFound; an interrupted write is recovered first.
func (s *Store) LoadDetail(ctx context.Context, kind domain.Kind, id string) (rec domain.Record, err error) {
	defer func() { metrics.StoreOperations.WithLabelValues("load", metrics.Outcome(err)).Inc() }()

	if id == "" {
		return nil, errors.NotFoundf("%s without identifier has no detail file", kind)
	}
	path := DetailPath(kind, id)
	data, err := s.dev.ReadFile(ctx, path)
	if errors.Is(err, errors.ErrNotFound) && !s.readOnly {
		if promoted, _ := s.dev.PromoteTemp(ctx, path, jsonAPI.Valid); promoted {
			data, err = s.dev.ReadFile(ctx, path)
		}
	}
	if err != nil {
		return nil, err
	}

	rec, err = decodeDetail(kind, data)
	if err != nil {
		s.logger.Warn("corrupt detail file", "path", path, "error", err)
		return nil, err
	}
	if rec.Identifier() == "" {
		rec.SetIdentifier(id)
	}
	return rec, nil
}

// LoadIndex replaces the in-memory index of kind with the index file. A
// missing file is an empty library. Lines that fail to parse are skipped.
func (s *Store) LoadIndex(ctx context.Context, kind domain.Kind) error {
	path := IndexPath(kind)
	bulk := s.dev.Bulk()

	var entries []domain.IndexEntry
	skipped := 0
	read := func(r *bufio.Reader) error {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 4096), 1<<20)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			e, err := decodeEntry(line)
			if err != nil {
				skipped++
				continue
			}
			entries = append(entries, e)
		}
		return sc.Err()
	}

	err := bulk.Stream(ctx, path, read)
	if errors.Is(err, errors.ErrNotFound) && !s.readOnly {
		if promoted, _ := bulk.PromoteTemp(ctx, path, validJSONL); promoted {
			entries, skipped = nil, 0
			err = bulk.Stream(ctx, path, read)
		}
	}
	switch {
	case errors.Is(err, errors.ErrNotFound):
		entries = nil
	case err != nil:
		return err
	}

	if skipped > 0 {
		s.logger.Warn("skipped malformed index lines", "kind", kind, "skipped", skipped)
	}

	s.mu.Lock()
	s.indexes[kind] = entries
	s.mu.Unlock()

	s.logger.Debug("index loaded", "kind", kind, "entries", len(entries))
	return nil
}

func validJSONL(data []byte) bool {
	for line := range bytes.Lines(data) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 && !jsonAPI.Valid(line) {
			return false
		}
	}
	return true
}

// PendingWrites returns the temp files of interrupted writes to the indexes,
// detail files and track lists.
func (s *Store) PendingWrites(ctx context.Context) ([]string, error) {
	dirs := []string{DBDir, DetailDir(domain.KindDisc), DetailDir(domain.KindBook), TracksDir}
	var out []string
	for _, dir := range dirs {
		names, err := s.dev.List(ctx, dir)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if strings.HasSuffix(name, device.TempSuffix) {
				out = append(out, dir+"/"+name)
			}
		}
	}
	return out, nil
}

// RewriteIndex writes the whole in-memory index of kind to its file.
func (s *Store) RewriteIndex(ctx context.Context, kind domain.Kind) (err error) {
	defer func() { metrics.StoreOperations.WithLabelValues("rewrite_index", metrics.Outcome(err)).Inc() }()

	err = s.dev.Bulk().WriteAtomic(ctx, IndexPath(kind), func(w io.Writer) error {
		// Copied under the bus lock so the last rewrite to land is the newest.
		entries := s.Index(kind)
		enc := jsonAPI.NewEncoder(w)
		for i := range entries {
			if err := enc.Encode(&entries[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("index rewrite failed", "kind", kind, "error", err)
	}
	return err
}

// Delete removes the detail file and index entry of id. A missing detail
// file is tolerated.
func (s *Store) Delete(ctx context.Context, kind domain.Kind, id string) (err error) {
	defer func() { metrics.StoreOperations.WithLabelValues("delete", metrics.Outcome(err)).Inc() }()

	if id == "" {
		return errors.Validation("delete needs an identifier")
	}

	if err := s.dev.Remove(ctx, DetailPath(kind, id)); err != nil {
		return err
	}

	s.mu.Lock()
	s.indexes[kind] = slices.DeleteFunc(s.indexes[kind], func(e domain.IndexEntry) bool {
		return e.ID == id
	})
	s.mu.Unlock()

	return s.RewriteIndex(ctx, kind)
}

// Wipe removes the index file and every detail file of kind, then clears
// the in-memory index.
func (s *Store) Wipe(ctx context.Context, kind domain.Kind) (err error) {
	defer func() { metrics.StoreOperations.WithLabelValues("wipe", metrics.Outcome(err)).Inc() }()

	bulk := s.dev.Bulk()
	if err := bulk.Remove(ctx, IndexPath(kind)); err != nil {
		return err
	}
	n, err := bulk.RemoveFiles(ctx, DetailDir(kind), detailExt)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.indexes[kind] = nil
	s.mu.Unlock()

	s.logger.Info("library wiped", "kind", kind, "details_removed", n)
	return nil
}

// Index returns a copy of the in-memory index of kind in list order.
func (s *Store) Index(kind domain.Kind) []domain.IndexEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.indexes[kind]
	out := make([]domain.IndexEntry, len(src))
	for i, e := range src {
		e.ShelfPositions = slices.Clone(e.ShelfPositions)
		out[i] = e
	}
	return out
}

// Entry returns the index entry for id.
func (s *Store) Entry(kind domain.Kind, id string) (domain.IndexEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.indexes[kind] {
		if e.ID == id {
			e.ShelfPositions = slices.Clone(e.ShelfPositions)
			return e, true
		}
	}
	return domain.IndexEntry{}, false
}

// Reorder arranges the in-memory index of kind so that position i holds
// the entry previously at order[i], then rewrites the index file. order
// must be a permutation of the current positions.
func (s *Store) Reorder(ctx context.Context, kind domain.Kind, order []int) error {
	s.mu.Lock()
	entries := s.indexes[kind]
	if len(order) != len(entries) {
		s.mu.Unlock()
		return errors.Validationf("reorder of %d %s entries got %d positions", len(entries), kind, len(order))
	}
	seen := make([]bool, len(entries))
	sorted := make([]domain.IndexEntry, len(entries))
	for i, from := range order {
		if from < 0 || from >= len(entries) || seen[from] {
			s.mu.Unlock()
			return errors.Validationf("reorder position %d is not a permutation entry", from)
		}
		seen[from] = true
		sorted[i] = entries[from]
	}
	s.indexes[kind] = sorted
	s.mu.Unlock()

	return s.RewriteIndex(ctx, kind)
}

// SetEntryID gives the id-less entry at index the identifier id. The entry
// must not carry another identifier and id must be unused in kind. The
// index file is not rewritten.
func (s *Store) SetEntryID(kind domain.Kind, index int, id string) error {
	if id == "" {
		return errors.Validation("empty identifier")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.indexes[kind]
	if index < 0 || index >= len(entries) {
		return errors.NotFoundf("no %s index entry at %d", kind, index)
	}
	if cur := entries[index].ID; cur != "" && cur != id {
		return errors.Validationf("%s entry %d already has identifier %s", kind, index, cur)
	}
	for i, e := range entries {
		if i != index && e.ID == id {
			return errors.Validationf("%s identifier %s is already used", kind, id)
		}
	}
	entries[index].ID = id
	return nil
}

// CoverExists reports whether a cover image named name is on the card.
func (s *Store) CoverExists(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	return s.dev.Exists(ctx, CoverPath(name))
}
