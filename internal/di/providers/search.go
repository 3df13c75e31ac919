package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/pabliki/pabliki-server/internal/config"
	"github.com/pabliki/pabliki-server/internal/logger"
	"github.com/pabliki/pabliki-server/internal/search"
	"github.com/pabliki/pabliki-server/internal/service"
)

// SearchIndexHandle wraps the bleve index. Index is nil when search is disabled
// or the index could not be opened.
type SearchIndexHandle struct {
	Index *search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.Index == nil {
		return nil
	}
	return h.Index.Close()
}

// ProvideSearchIndex provides the full-text index. A broken index degrades to
// store-backed search rather than failing startup.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Search.Enabled {
		log.Info("Search index disabled")
		return &SearchIndexHandle{}, nil
	}

	idx, err := search.Open(search.Options{
		DataPath: cfg.Data.BasePath,
		Logger:   log.Logger,
	})
	if err != nil {
		log.Error("Failed to open search index, falling back to database search", "error", err)
		return &SearchIndexHandle{}, nil
	}

	return &SearchIndexHandle{Index: idx}, nil
}

// TriggerSearchReindexIfNeeded rebuilds a freshly created index in the background.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	go func() {
		if err := searchService.ReindexIfNeeded(context.Background()); err != nil {
			log.Error("Search reindex failed", "error", err)
		}
	}()
}
