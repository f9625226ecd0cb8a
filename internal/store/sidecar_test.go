package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/errors"
)

func TestTrackList_SaveAndLoad(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	tl := &domain.TrackList{
		ReleaseID: "5b11f4ce-a62d-471e-81fc-a69a8278c7da",
		Title:     "Nevermind",
		Artist:    "Nirvana",
		FetchedAt: 1700000000,
		Tracks: []domain.Track{
			{Number: 1, Title: "Smells Like Teen Spirit", DurationMs: 301000, Lyrics: domain.LyricsMetadata{Status: domain.LyricsUnchecked}},
			{Number: 2, Title: "In Bloom", DurationMs: 254000, Favorite: true, Lyrics: domain.LyricsMetadata{Status: domain.LyricsMissing, Error: "not found"}},
		},
	}
	require.NoError(t, s.SaveTrackList(ctx, tl))

	got, err := s.LoadTrackList(ctx, tl.ReleaseID)
	require.NoError(t, err)
	assert.Equal(t, tl, got)
	assert.Equal(t, int64(555000), got.TotalDurationMs())
}

func TestLoadTrackList_DefaultsLegacyFields(t *testing.T) {
	s, fsys := setupTestStore(t)
	doc := `{"cdTitle":"Old","tracks":[{"trackNo":1,"title":"One"},{"trackNo":2,"title":"Two","lyrics":{"status":"cached","path":"r/02.json"}}]}`
	require.NoError(t, afero.WriteFile(fsys, TrackListPath("rel"), []byte(doc), 0o644))

	got, err := s.LoadTrackList(context.Background(), "rel")
	require.NoError(t, err)
	assert.Equal(t, "rel", got.ReleaseID)
	require.Len(t, got.Tracks, 2)
	assert.Equal(t, domain.LyricsUnchecked, got.Tracks[0].Lyrics.Status)
	assert.Equal(t, domain.LyricsCached, got.Tracks[1].Lyrics.Status)
}

func TestLoadTrackList_Errors(t *testing.T) {
	s, fsys := setupTestStore(t)
	ctx := context.Background()

	_, err := s.LoadTrackList(ctx, "")
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = s.LoadTrackList(ctx, "absent")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	require.NoError(t, afero.WriteFile(fsys, TrackListPath("bad"), []byte(`{"tracks":[{`), 0o644))
	_, err = s.LoadTrackList(ctx, "bad")
	assert.ErrorIs(t, err, errors.ErrDecode)
}

func TestLyrics_SaveAndLoad(t *testing.T) {
	s, _ := setupTestStore(t)
	s.now = func() time.Time { return time.Unix(1700000100, 0) }
	ctx := context.Background()

	text := strings.Repeat("Load up on guns, bring your friends\n", 200)
	path, err := s.SaveLyrics(ctx, "rel", 3, text, "en")
	require.NoError(t, err)
	assert.Equal(t, "/lyrics/rel/03.json", path)

	got, err := s.LoadLyrics(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, &domain.Lyrics{Lang: "en", FetchedAt: 1700000100, Text: text}, got)
}

func TestLoadLyrics_RelativeReferences(t *testing.T) {
	s, fsys := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, afero.WriteFile(fsys, "/lyrics/rel/01.json", []byte(`{"lang":"en","text":"under lyrics"}`), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/legacy/02.json", []byte(`{"lang":"de","text":"at root"}`), 0o644))

	got, err := s.LoadLyrics(ctx, "rel/01.json")
	require.NoError(t, err)
	assert.Equal(t, "under lyrics", got.Text)

	got, err = s.LoadLyrics(ctx, "legacy/02.json")
	require.NoError(t, err)
	assert.Equal(t, "at root", got.Text)

	_, err = s.LoadLyrics(ctx, "  ")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = s.LoadLyrics(ctx, "rel/09.json")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
