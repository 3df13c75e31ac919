package providers

import (
	"github.com/samber/do/v2"

	"github.com/pabliki/pabliki-server/internal/config"
	"github.com/pabliki/pabliki-server/internal/logger"
	"github.com/pabliki/pabliki-server/internal/preview"
)

// PreviewHandle owns the preview fetcher and its badger cache. Both are nil
// when previews are disabled.
type PreviewHandle struct {
	Fetcher *preview.Fetcher
	Cache   *preview.Cache
}

// Shutdown implements do.Shutdownable.
func (h *PreviewHandle) Shutdown() error {
	if h.Fetcher != nil {
		h.Fetcher.Close()
	}
	if h.Cache != nil {
		return h.Cache.Close()
	}
	return nil
}

// ProvidePreviews provides the link preview fetcher.
func ProvidePreviews(i do.Injector) (*PreviewHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Preview.Enabled {
		log.Info("Link previews disabled")
		return &PreviewHandle{}, nil
	}

	cache, err := preview.OpenCache(cfg.Data.PreviewCachePath(), cfg.Preview.CacheTTL, log.Logger)
	if err != nil {
		return nil, err
	}

	fetcher := preview.NewFetcher(preview.Options{
		Timeout:      cfg.Preview.Timeout,
		MaxBytes:     cfg.Preview.MaxBytes,
		HostRPS:      cfg.Preview.HostRPS,
		UserAgent:    cfg.Preview.UserAgent,
		AllowPrivate: cfg.Preview.AllowPrivate,
	}, cache, log.Logger)

	log.Info("Link previews enabled", "cache", cfg.Data.PreviewCachePath(), "ttl", cfg.Preview.CacheTTL)

	return &PreviewHandle{Fetcher: fetcher, Cache: cache}, nil
}
