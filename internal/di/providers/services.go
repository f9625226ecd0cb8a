package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/librarian/internal/config"
	"github.com/listenupapp/librarian/internal/library"
	"github.com/listenupapp/librarian/internal/lock"
	"github.com/listenupapp/librarian/internal/logger"
	"github.com/listenupapp/librarian/internal/store"
)

// ProvideRegistry provides the kind registry.
func ProvideRegistry(i do.Injector) (*library.Registry, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return library.NewRegistry(cfg.Shelf), nil
}

// LibraryServiceHandle wraps the library service with shutdown capability.
type LibraryServiceHandle struct {
	*library.Service
}

// Shutdown implements do.Shutdownable.
func (h *LibraryServiceHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Close(ctx)
}

// ProvideLibraryService provides the library service, loaded from the card.
func ProvideLibraryService(i do.Injector) (*LibraryServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	locks := do.MustInvoke[*lock.Set](i)
	st := do.MustInvoke[*store.Store](i)
	registry := do.MustInvoke[*library.Registry](i)

	svc, err := library.NewService(st, registry, locks.Library, library.Options{
		ItemsPerSide: cfg.Cache.ItemsPerSide,
		EdgeMargin:   cfg.Cache.EdgeMargin,
		IdleRecenter: cfg.Cache.IdleRecenter,
	}, log.WithComponent("library"))
	if err != nil {
		return nil, err
	}

	if err := svc.Load(context.Background()); err != nil {
		return nil, err
	}
	log.Info("Library loaded")

	return &LibraryServiceHandle{Service: svc}, nil
}
