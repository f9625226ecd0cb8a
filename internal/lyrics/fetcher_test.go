package lyrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/librarian/internal/device"
	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/errors"
	"github.com/listenupapp/librarian/internal/lock"
	"github.com/listenupapp/librarian/internal/logger"
	"github.com/listenupapp/librarian/internal/ratelimit"
	"github.com/listenupapp/librarian/internal/store"
)

// upstream is a fake provider endpoint that counts requests.
type upstream struct {
	*httptest.Server
	hits atomic.Int32
}

func newUpstream(t *testing.T, status int, body string) *upstream {
	t.Helper()
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(u.Close)
	return u
}

type fixture struct {
	fetcher *Fetcher
	store   *store.Store
}

func newFixture(t *testing.T, ovh, lrclib *upstream, settings BreakerSettings) *fixture {
	t.Helper()
	dev := device.New(afero.NewMemMapFs(), lock.New(lock.NameBus, time.Second), time.Second, logger.Discard())
	st := store.New(dev, logger.Discard())

	client := &http.Client{Timeout: 2 * time.Second}
	f := NewFetcher(st, ratelimit.New(time.Millisecond, 100), settings, logger.Discard(),
		&OVH{BaseURL: ovh.URL, UserAgent: "test", Client: client},
		&LRCLIB{BaseURL: lrclib.URL, UserAgent: "test", Client: client},
	)
	f.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	require.NoError(t, st.SaveTrackList(context.Background(), &domain.TrackList{
		ReleaseID: "rel",
		Title:     "OK Computer",
		Artist:    "Radiohead",
		Tracks: []domain.Track{
			{Number: 1, Title: "Airbag", DurationMs: 284000},
			{Number: 2, Title: "Paranoid Android", DurationMs: 383000},
			{Number: 3, Title: "Subterranean Homesick Alien", DurationMs: 267000},
		},
	}))
	return &fixture{fetcher: f, store: st}
}

func (fx *fixture) track(t *testing.T, i int) domain.Track {
	t.Helper()
	tl, err := fx.store.LoadTrackList(context.Background(), "rel")
	require.NoError(t, err)
	return tl.Tracks[i]
}

func TestFetchLyrics_FirstProvider(t *testing.T) {
	ovh := newUpstream(t, http.StatusOK, `{"lyrics":"In the next world war&#39;s\r\nIn a jack-knifed juggernaut"}`)
	lrclib := newUpstream(t, http.StatusOK, `{"plainLyrics":"unused"}`)
	fx := newFixture(t, ovh, lrclib, DefaultBreakerSettings)
	ctx := context.Background()

	res, err := fx.fetcher.FetchLyrics(ctx, "rel", 0, false)
	require.NoError(t, err)
	assert.Equal(t, domain.LyricsFetchedNow, res)
	assert.Zero(t, lrclib.hits.Load())

	track := fx.track(t, 0)
	assert.Equal(t, domain.LyricsCached, track.Lyrics.Status)
	assert.Equal(t, "/lyrics/rel/01.json", track.Lyrics.Path)
	assert.Equal(t, int64(1_700_000_000), track.Lyrics.FetchedAt)

	doc, err := fx.store.LoadLyrics(ctx, track.Lyrics.Path)
	require.NoError(t, err)
	assert.Equal(t, "In the next world war's\nIn a jack-knifed juggernaut", doc.Text)

	// A cached track is not looked up again.
	res, err = fx.fetcher.FetchLyrics(ctx, "rel", 0, false)
	require.NoError(t, err)
	assert.Equal(t, domain.LyricsAlreadyCached, res)
	assert.Equal(t, int32(1), ovh.hits.Load())
}

func TestFetchLyrics_FallsBackToSyncedLyrics(t *testing.T) {
	ovh := newUpstream(t, http.StatusNotFound, `{"error":"No lyrics found"}`)
	lrclib := newUpstream(t, http.StatusOK,
		`{"plainLyrics":null,"syncedLyrics":"[00:12.50] Rain down\n[00:15.00] Come on rain down on me"}`)
	fx := newFixture(t, ovh, lrclib, DefaultBreakerSettings)

	res, err := fx.fetcher.FetchLyrics(context.Background(), "rel", 1, false)
	require.NoError(t, err)
	assert.Equal(t, domain.LyricsFetchedNow, res)
	assert.Equal(t, int32(1), ovh.hits.Load())
	assert.Equal(t, int32(1), lrclib.hits.Load())

	doc, err := fx.store.LoadLyrics(context.Background(), "/lyrics/rel/02.json")
	require.NoError(t, err)
	assert.Equal(t, "Rain down\nCome on rain down on me", doc.Text)
}

func TestFetchLyrics_MissingIsSticky(t *testing.T) {
	ovh := newUpstream(t, http.StatusNotFound, `{}`)
	lrclib := newUpstream(t, http.StatusNotFound, `{"statusCode":404}`)
	fx := newFixture(t, ovh, lrclib, DefaultBreakerSettings)
	ctx := context.Background()

	res, err := fx.fetcher.FetchLyrics(ctx, "rel", 2, false)
	require.NoError(t, err)
	assert.Equal(t, domain.LyricsNotFound, res)
	assert.Equal(t, domain.LyricsMissing, fx.track(t, 2).Lyrics.Status)

	res, err = fx.fetcher.FetchLyrics(ctx, "rel", 2, false)
	require.NoError(t, err)
	assert.Equal(t, domain.LyricsNotFound, res)
	assert.Equal(t, int32(1), ovh.hits.Load(), "missing tracks are not retried")

	_, err = fx.fetcher.FetchLyrics(ctx, "rel", 2, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), ovh.hits.Load(), "force retries")
}

func TestFetchLyrics_TransportFailureLeavesTrackUnchecked(t *testing.T) {
	ovh := newUpstream(t, http.StatusInternalServerError, ``)
	lrclib := newUpstream(t, http.StatusBadGateway, ``)
	fx := newFixture(t, ovh, lrclib, DefaultBreakerSettings)

	res, err := fx.fetcher.FetchLyrics(context.Background(), "rel", 0, false)
	assert.ErrorIs(t, err, errors.ErrNetwork)
	assert.Equal(t, domain.LyricsError, res)

	track := fx.track(t, 0)
	assert.Equal(t, domain.LyricsUnchecked, track.Lyrics.Status)
	assert.NotEmpty(t, track.Lyrics.Error)
	assert.Equal(t, int64(1_700_000_000), track.Lyrics.LastTriedAt)
}

func TestFetchLyrics_OpenBreakerSkipsProvider(t *testing.T) {
	ovh := newUpstream(t, http.StatusServiceUnavailable, ``)
	lrclib := newUpstream(t, http.StatusOK, `{"plainLyrics":"la la"}`)
	fx := newFixture(t, ovh, lrclib, BreakerSettings{Failures: 1, Cooldown: time.Hour})
	ctx := context.Background()

	for i := range 3 {
		res, err := fx.fetcher.FetchLyrics(ctx, "rel", i, false)
		require.NoError(t, err)
		assert.Equal(t, domain.LyricsFetchedNow, res)
	}
	assert.Equal(t, int32(1), ovh.hits.Load(), "breaker opened after the first failure")
	assert.Equal(t, int32(3), lrclib.hits.Load())
}

func TestFetchLyrics_BadInput(t *testing.T) {
	ovh := newUpstream(t, http.StatusOK, `{"lyrics":"x"}`)
	lrclib := newUpstream(t, http.StatusOK, `{}`)
	fx := newFixture(t, ovh, lrclib, DefaultBreakerSettings)
	ctx := context.Background()

	res, err := fx.fetcher.FetchLyrics(ctx, "unknown", 0, false)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.Equal(t, domain.LyricsNotFound, res)

	_, err = fx.fetcher.FetchLyrics(ctx, "rel", 3, false)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.Zero(t, ovh.hits.Load())
}

func TestFetchLyrics_Canceled(t *testing.T) {
	ovh := newUpstream(t, http.StatusOK, `{"lyrics":"x"}`)
	lrclib := newUpstream(t, http.StatusOK, `{}`)
	fx := newFixture(t, ovh, lrclib, DefaultBreakerSettings)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := fx.fetcher.FetchLyrics(ctx, "rel", 0, false)
	assert.ErrorIs(t, err, errors.ErrCanceled)
	assert.Equal(t, domain.LyricsError, res)
	assert.Zero(t, ovh.hits.Load())
	assert.Equal(t, domain.LyricsUnchecked, fx.track(t, 0).Lyrics.Status)
}

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "entities", in: "Rock &amp; Roll &quot;Star&quot;", want: `Rock & Roll "Star"`},
		{name: "line endings", in: "a\r\nb\rc", want: "a\nb\nc"},
		{name: "lrc tags", in: "[00:01.00]one\n[01:02.345][01:30.00] two", want: "one\ntwo"},
		{name: "typography", in: "It’s — Café", want: "It's - Cafe"},
		{name: "blank runs", in: "verse\n\n\n\n\nchorus\n", want: "verse\n\nchorus"},
		{name: "only whitespace", in: " \n\t", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}
