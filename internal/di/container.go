// Package di provides dependency injection configuration for the Pabliki server.
package di

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"

	"github.com/pabliki/pabliki-server/internal/api"
	"github.com/pabliki/pabliki-server/internal/auth"
	"github.com/pabliki/pabliki-server/internal/backup"
	"github.com/pabliki/pabliki-server/internal/config"
	"github.com/pabliki/pabliki-server/internal/di/providers"
	"github.com/pabliki/pabliki-server/internal/locale"
	"github.com/pabliki/pabliki-server/internal/logger"
	"github.com/pabliki/pabliki-server/internal/metrics"
	"github.com/pabliki/pabliki-server/internal/service"
	"github.com/pabliki/pabliki-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideNegotiator)
	do.Provide(injector, providers.ProvideRegistry)
	do.Provide(injector, providers.ProvideMetrics)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Search and previews
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvidePreviews)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideAuthLimiter)

	// Business services
	do.Provide(injector, providers.ProvideActivityService)
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvidePreferencesService)
	do.Provide(injector, providers.ProvideSearchService)
	do.Provide(injector, providers.ProvideLinkService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideCollectionService)
	do.Provide(injector, providers.ProvideNoteService)
	do.Provide(injector, providers.ProvideExporter)
	do.Provide(injector, providers.ProvideServices)

	// Workers
	do.Provide(injector, providers.ProvideScheduler)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services in dependency order and starts the
// HTTP server and background workers.
func Bootstrap(injector do.Injector) error {
	steps := []func() error{
		invoke[*config.Config](injector),
		invoke[*logger.Logger](injector),
		invoke[*validation.Validator](injector),
		invoke[*locale.Negotiator](injector),
		invoke[*prometheus.Registry](injector),
		invoke[*metrics.Metrics](injector),
		invoke[providers.AuthKey](injector),
		invoke[*providers.SSEManagerHandle](injector),
		invoke[*providers.StoreHandle](injector),
		invoke[*providers.SearchIndexHandle](injector),
		invoke[*providers.PreviewHandle](injector),
		invoke[*auth.TokenService](injector),
		invoke[*providers.AuthLimiterHandle](injector),

		// Business services
		invoke[*service.ActivityService](injector),
		invoke[*service.SessionService](injector),
		invoke[*service.AuthService](injector),
		invoke[*service.PreferencesService](injector),
		invoke[*service.SearchService](injector),
		invoke[*service.LinkService](injector),
		invoke[*service.TagService](injector),
		invoke[*service.CollectionService](injector),
		invoke[*service.NoteService](injector),
		invoke[*backup.Exporter](injector),
		invoke[*api.Services](injector),

		// Workers and server
		invoke[*providers.SchedulerHandle](injector),
		invoke[*providers.HTTPServerHandle](injector),
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}

func invoke[T any](injector do.Injector) func() error {
	return func() error {
		if _, err := do.Invoke[T](injector); err != nil {
			return fmt.Errorf("initialize %T: %w", *new(T), err)
		}
		return nil
	}
}
