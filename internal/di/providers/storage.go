package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/librarian/internal/config"
	"github.com/listenupapp/librarian/internal/device"
	"github.com/listenupapp/librarian/internal/lock"
	"github.com/listenupapp/librarian/internal/logger"
	"github.com/listenupapp/librarian/internal/store"
)

// ProvideLocks provides the shared library and bus locks.
func ProvideLocks(i do.Injector) (*lock.Set, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return lock.NewSet(cfg.Locks.Library, cfg.Locks.Bus, cfg.Locks.BusLong), nil
}

// ProvideDevice provides the card device rooted at the configured mount point.
func ProvideDevice(i do.Injector) (*device.Device, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	locks := do.MustInvoke[*lock.Set](i)

	dev := device.NewOS(cfg.Storage.RootPath, locks.Bus, locks.BusLong, log.WithComponent("device"))
	log.Info("Card device ready", "root", cfg.Storage.RootPath)
	return dev, nil
}

// ProvideStore provides the record store.
func ProvideStore(i do.Injector) (*store.Store, error) {
	log := do.MustInvoke[*logger.Logger](i)
	dev := do.MustInvoke[*device.Device](i)

	return store.New(dev, log.WithComponent("store")), nil
}
