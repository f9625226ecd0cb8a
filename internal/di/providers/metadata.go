package providers

import (
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/listenupapp/librarian/internal/config"
	"github.com/listenupapp/librarian/internal/device"
	"github.com/listenupapp/librarian/internal/logger"
	"github.com/listenupapp/librarian/internal/lyrics"
	"github.com/listenupapp/librarian/internal/media/covers"
	"github.com/listenupapp/librarian/internal/metadata/itunes"
	"github.com/listenupapp/librarian/internal/ratelimit"
	"github.com/listenupapp/librarian/internal/store"
)

// ProvideRateLimiter provides the shared per-upstream rate limiter.
func ProvideRateLimiter(i do.Injector) (*ratelimit.Limiter, error) {
	return ratelimit.New(time.Second, 2), nil
}

// ProvideITunesClient provides the iTunes metadata and artwork client.
func ProvideITunesClient(i do.Injector) (*itunes.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	limiter := do.MustInvoke[*ratelimit.Limiter](i)

	client := itunes.NewClient(itunes.Options{
		Country:   cfg.Lookup.Country,
		UserAgent: cfg.Lookup.UserAgent,
		Timeout:   cfg.Lookup.HTTPTimeout,
	}, limiter, log.WithComponent("itunes"))
	log.Info("iTunes client initialized", "country", cfg.Lookup.Country)

	return client, nil
}

// ProvideCoverDownloader provides the cover downloader writing to the card.
func ProvideCoverDownloader(i do.Injector) (*covers.Downloader, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	dev := do.MustInvoke[*device.Device](i)

	return covers.NewDownloader(dev, covers.Options{UserAgent: cfg.Lookup.UserAgent}, log.WithComponent("covers")), nil
}

// ProvideLyricsFetcher provides the lyrics fetcher with its provider chain.
func ProvideLyricsFetcher(i do.Injector) (*lyrics.Fetcher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	st := do.MustInvoke[*store.Store](i)
	limiter := do.MustInvoke[*ratelimit.Limiter](i)

	client := &http.Client{Timeout: cfg.Lookup.HTTPTimeout}
	providers := []lyrics.Provider{
		&lyrics.LRCLIB{BaseURL: lyrics.LRCLIBBaseURL, UserAgent: cfg.Lookup.UserAgent, Client: client},
		&lyrics.OVH{BaseURL: lyrics.OVHBaseURL, UserAgent: cfg.Lookup.UserAgent, Client: client},
	}
	return lyrics.NewFetcher(st, limiter, lyrics.DefaultBreakerSettings, log.WithComponent("lyrics"), providers...), nil
}
