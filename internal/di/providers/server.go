package providers

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do/v2"

	"github.com/listenupapp/librarian/internal/config"
	"github.com/listenupapp/librarian/internal/logger"
)

// MetricsServerHandle wraps the optional Prometheus listener with
// Shutdownable. Server is nil when no address is configured.
type MetricsServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *MetricsServerHandle) Shutdown() error {
	if h.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideMetricsServer provides the Prometheus listener.
func ProvideMetricsServer(i do.Injector) (*MetricsServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Metrics.Addr == "" {
		log.Info("Metrics listener disabled")
		return &MetricsServerHandle{}, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Start in background
	go func() {
		log.Info("Metrics server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics server error", "error", err)
		}
	}()

	return &MetricsServerHandle{Server: srv}, nil
}
