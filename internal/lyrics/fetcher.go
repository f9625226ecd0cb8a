package lyrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/errors"
	"github.com/listenupapp/librarian/internal/metrics"
	"github.com/listenupapp/librarian/internal/ratelimit"
)

// TrackStore is the sidecar persistence the fetcher needs.
type TrackStore interface {
	LoadTrackList(ctx context.Context, releaseID string) (*domain.TrackList, error)
	SaveTrackList(ctx context.Context, tl *domain.TrackList) error
	SaveLyrics(ctx context.Context, releaseID string, trackNo int, text, lang string) (string, error)
}

// BreakerSettings tunes the circuit breaker placed in front of each
// provider.
type BreakerSettings struct {
	// Failures is the number of consecutive failures that open the breaker.
	Failures uint32
	// Cooldown is how long an open breaker rejects requests.
	Cooldown time.Duration
}

// DefaultBreakerSettings opens after three straight failures for a minute.
var DefaultBreakerSettings = BreakerSettings{Failures: 3, Cooldown: time.Minute}

type guardedProvider struct {
	Provider
	breaker *gobreaker.CircuitBreaker
}

// Fetcher looks lyrics up through an ordered chain of providers and records
// the outcome per track. Provider calls run without any lock held; the
// store takes the bus lock for each sidecar access.
type Fetcher struct {
	store     TrackStore
	providers []guardedProvider
	limiter   *ratelimit.Limiter
	logger    *slog.Logger
	now       func() time.Time
}

// NewFetcher creates a fetcher trying providers in order.
func NewFetcher(store TrackStore, limiter *ratelimit.Limiter, settings BreakerSettings, logger *slog.Logger, providers ...Provider) *Fetcher {
	f := &Fetcher{
		store:   store,
		limiter: limiter,
		logger:  logger,
		now:     time.Now,
	}
	for _, p := range providers {
		f.providers = append(f.providers, guardedProvider{
			Provider: p,
			breaker:  newBreaker(p.Name(), settings, logger),
		})
	}
	return f
}

func newBreaker(name string, settings BreakerSettings, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.Failures
		},
		// A provider answering "no lyrics" is healthy.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errors.ErrNotFound) || errors.Is(err, errors.ErrCanceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			open := 0.0
			if to == gobreaker.StateOpen {
				open = 1
			}
			metrics.CircuitBreakerOpen.WithLabelValues(name).Set(open)
			logger.Warn("lyrics provider breaker changed state",
				"provider", name, "from", from.String(), "to", to.String(), "category", "network")
		},
	})
}

// FetchLyrics resolves the lyrics of the track at trackIndex of a release.
// Tracks already cached or known missing are left alone unless force is
// set. A found text is stored as a sidecar and the track marked cached; when
// every provider that answered had nothing the track is marked missing.
// Transport failures leave the track unchecked for a later attempt and
// return LyricsError.
func (f *Fetcher) FetchLyrics(ctx context.Context, releaseID string, trackIndex int, force bool) (domain.LyricsResult, error) {
	tl, err := f.store.LoadTrackList(ctx, releaseID)
	if err != nil {
		return domain.LyricsNotFound, err
	}
	if trackIndex < 0 || trackIndex >= len(tl.Tracks) {
		return domain.LyricsNotFound, errors.NotFoundf("release %s has no track %d", releaseID, trackIndex)
	}
	track := &tl.Tracks[trackIndex]

	if !force {
		switch track.Lyrics.Status {
		case domain.LyricsCached:
			return domain.LyricsAlreadyCached, nil
		case domain.LyricsMissing:
			return domain.LyricsNotFound, nil
		}
	}

	text, err := f.lookup(ctx, Query{
		Artist:     tl.Artist,
		Title:      track.Title,
		Album:      tl.Title,
		DurationMs: track.DurationMs,
	})
	now := f.now()
	result := domain.LyricsFetchedNow
	switch {
	case err == nil:
		path, err := f.store.SaveLyrics(ctx, releaseID, track.Number, text, "")
		if err != nil {
			return domain.LyricsError, err
		}
		track.Lyrics.MarkCached(path, "", now)
	case errors.Is(err, errors.ErrNotFound):
		track.Lyrics.MarkMissing("not found", now)
		result = domain.LyricsNotFound
	case errors.Is(err, errors.ErrCanceled):
		return domain.LyricsError, err
	default:
		track.Lyrics.LastTriedAt = now.Unix()
		track.Lyrics.Error = err.Error()
		result = domain.LyricsError
	}

	if saveErr := f.store.SaveTrackList(ctx, tl); saveErr != nil {
		return domain.LyricsError, saveErr
	}
	f.logger.Debug("lyrics lookup finished",
		"release", releaseID, "track", track.Number, "result", result.String())
	if result == domain.LyricsError {
		return result, err
	}
	return result, nil
}

// lookup walks the provider chain. It returns a not-found error if at
// least one provider answered without lyrics and none had them, and a
// network error if no provider could be reached.
func (f *Fetcher) lookup(ctx context.Context, q Query) (string, error) {
	if q.Title == "" {
		return "", errors.NotFound("track has no title")
	}

	var lastErr error
	answered := false
	for _, p := range f.providers {
		if err := f.limiter.Wait(ctx, p.Name()); err != nil {
			return "", err
		}
		out, err := p.breaker.Execute(func() (interface{}, error) {
			return p.Fetch(ctx, q)
		})
		outcome := "ok"
		switch {
		case err == nil:
			if text := Clean(out.(string)); text != "" {
				metrics.ProviderRequests.WithLabelValues(p.Name(), outcome).Inc()
				return text, nil
			}
			answered = true
			outcome = "not_found"
		case errors.Is(err, errors.ErrNotFound):
			answered = true
			outcome = "not_found"
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			outcome = "open"
			lastErr = err
		case ctx.Err() != nil:
			return "", errors.Wrap(ctx.Err(), errors.CodeCanceled, "lyrics lookup")
		default:
			outcome = "error"
			lastErr = err
			f.logger.Warn("lyrics provider failed",
				"provider", p.Name(), "title", q.Title, "error", err)
		}
		metrics.ProviderRequests.WithLabelValues(p.Name(), outcome).Inc()
	}

	if answered || lastErr == nil {
		return "", errors.NotFoundf("no lyrics for %q", q.Title)
	}
	return "", errors.Network(lastErr, "no lyrics provider reachable")
}
