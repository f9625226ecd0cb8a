package store

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/errors"
)

// Sidecars can be large (long track lists, full lyrics), so they are
// streamed through the device's pooled buffers rather than read whole.

// LoadTrackList reads the track list of a release.
func (s *Store) LoadTrackList(ctx context.Context, releaseID string) (*domain.TrackList, error) {
	if releaseID == "" {
		return nil, errors.Validation("empty release id")
	}
	var tl domain.TrackList
	err := s.dev.Stream(ctx, TrackListPath(releaseID), func(r *bufio.Reader) error {
		return jsonAPI.NewDecoder(r).Decode(&tl)
	})
	if err != nil {
		if isCoded(err) {
			return nil, err
		}
		return nil, errors.Decodef(err, "decode track list %s", releaseID)
	}
	for i := range tl.Tracks {
		if tl.Tracks[i].Lyrics.Status == "" {
			tl.Tracks[i].Lyrics.Status = domain.LyricsUnchecked
		}
	}
	if tl.ReleaseID == "" {
		tl.ReleaseID = releaseID
	}
	return &tl, nil
}

// SaveTrackList writes the track list of a release.
func (s *Store) SaveTrackList(ctx context.Context, tl *domain.TrackList) error {
	if tl == nil || tl.ReleaseID == "" {
		return errors.Validation("track list has no release id")
	}
	return s.dev.WriteAtomic(ctx, TrackListPath(tl.ReleaseID), func(w io.Writer) error {
		return jsonAPI.NewEncoder(w).Encode(tl)
	})
}

// SaveLyrics stores the lyrics text of one track and returns the path to
// record in the track's lyrics metadata.
func (s *Store) SaveLyrics(ctx context.Context, releaseID string, trackNo int, text, lang string) (string, error) {
	path := LyricsPath(releaseID, trackNo)
	doc := domain.Lyrics{Lang: lang, FetchedAt: s.now().Unix(), Text: text}
	err := s.dev.WriteAtomic(ctx, path, func(w io.Writer) error {
		return jsonAPI.NewEncoder(w).Encode(&doc)
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// LoadLyrics reads a lyrics sidecar by the reference stored in track
// metadata.
func (s *Store) LoadLyrics(ctx context.Context, ref string) (*domain.Lyrics, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.NotFound("track has no lyrics reference")
	}

	var lastErr error
	for _, path := range resolveLyricsPath(ref) {
		var doc domain.Lyrics
		err := s.dev.Stream(ctx, path, func(r *bufio.Reader) error {
			return jsonAPI.NewDecoder(r).Decode(&doc)
		})
		if err == nil {
			return &doc, nil
		}
		lastErr = err
		if !errors.Is(err, errors.ErrNotFound) {
			break
		}
	}
	if isCoded(lastErr) {
		return nil, lastErr
	}
	return nil, errors.Decodef(lastErr, "decode lyrics %s", ref)
}

// isCoded reports whether err already carries a domain code, as device
// errors do; anything else came from a decoder.
func isCoded(err error) bool {
	var e *errors.Error
	return errors.As(err, &e)
}
