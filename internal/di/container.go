// Package di provides dependency injection configuration for the librarian.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/librarian/internal/config"
	"github.com/listenupapp/librarian/internal/di/providers"
	"github.com/listenupapp/librarian/internal/library"
	"github.com/listenupapp/librarian/internal/logger"
	"github.com/listenupapp/librarian/internal/lyrics"
	"github.com/listenupapp/librarian/internal/media/covers"
	"github.com/listenupapp/librarian/internal/metadata/itunes"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideLocks)

	// Storage layer
	do.Provide(injector, providers.ProvideDevice)
	do.Provide(injector, providers.ProvideStore)

	// Library
	do.Provide(injector, providers.ProvideRegistry)
	do.Provide(injector, providers.ProvideLibraryService)

	// Collaborators
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideITunesClient)
	do.Provide(injector, providers.ProvideCoverDownloader)
	do.Provide(injector, providers.ProvideLyricsFetcher)

	// Workers
	do.Provide(injector, providers.ProvideEngine)

	// Server
	do.Provide(injector, providers.ProvideMetricsServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*library.Registry](injector)
	if _, err := do.Invoke[*providers.LibraryServiceHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*itunes.Client](injector)
	_ = do.MustInvoke[*covers.Downloader](injector)
	_ = do.MustInvoke[*lyrics.Fetcher](injector)

	// Workers
	_ = do.MustInvoke[*providers.EngineHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.MetricsServerHandle](injector)

	return nil
}
