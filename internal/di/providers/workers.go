package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/librarian/internal/config"
	"github.com/listenupapp/librarian/internal/logger"
	"github.com/listenupapp/librarian/internal/lock"
	"github.com/listenupapp/librarian/internal/lyrics"
	"github.com/listenupapp/librarian/internal/media/covers"
	"github.com/listenupapp/librarian/internal/metadata/itunes"
	"github.com/listenupapp/librarian/internal/store"
	"github.com/listenupapp/librarian/internal/worker"
)

// EngineHandle wraps the background job engine with shutdown capability.
type EngineHandle struct {
	*worker.Engine
}

// Shutdown implements do.Shutdownable.
func (h *EngineHandle) Shutdown() error {
	h.Engine.Stop()
	return nil
}

// ProvideEngine provides the background job engine and starts its worker.
func ProvideEngine(i do.Injector) (*EngineHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	st := do.MustInvoke[*store.Store](i)
	libHandle := do.MustInvoke[*LibraryServiceHandle](i)
	client := do.MustInvoke[*itunes.Client](i)
	downloader := do.MustInvoke[*covers.Downloader](i)
	fetcher := do.MustInvoke[*lyrics.Fetcher](i)

	engine := worker.NewEngine(worker.Deps{
		Library:    libHandle.Service,
		Tracks:     st,
		Covers:     st,
		Lookup:     client,
		TrackInfo:  client,
		Resolver:   client,
		Downloader: downloader,
		Lyrics:     fetcher,
	}, lock.New(lock.NameQueue, cfg.Locks.Queue), cfg.Worker, log.WithComponent("worker"))

	engine.Start()
	log.Info("Background worker started")

	return &EngineHandle{Engine: engine}, nil
}
