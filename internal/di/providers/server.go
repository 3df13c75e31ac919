package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"

	"github.com/pabliki/pabliki-server/internal/api"
	"github.com/pabliki/pabliki-server/internal/config"
	"github.com/pabliki/pabliki-server/internal/locale"
	"github.com/pabliki/pabliki-server/internal/logger"
	"github.com/pabliki/pabliki-server/internal/metrics"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	timeout time.Duration
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	timeout := h.timeout
	if timeout <= 0 {
		timeout = shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer builds the API server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	services := do.MustInvoke[*api.Services](i)
	negotiator := do.MustInvoke[*locale.Negotiator](i)
	limiter := do.MustInvoke[*AuthLimiterHandle](i)
	reg := do.MustInvoke[*prometheus.Registry](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	server := api.NewServer(api.Options{
		Store:        storeHandle.Store,
		Services:     services,
		SSE:          sseHandle.Manager,
		Negotiator:   negotiator,
		Metrics:      m,
		Registry:     reg,
		AuthLimiter:  limiter.KeyedRateLimiter,
		CORSOrigins:  cfg.Server.CORSOrigins,
		CookieSecure: cfg.Auth.CookieSecure,
		Version:      Version,
		Logger:       log.Logger,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", httpServer.Addr, "version", Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "error", fmt.Errorf("listen on %s: %w", httpServer.Addr, err))
		}
	}()

	return &HTTPServerHandle{Server: httpServer, timeout: cfg.Server.ShutdownTimeout}, nil
}
