// Package providers contains dependency injection providers for the Pabliki server.
package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/pabliki/pabliki-server/internal/config"
	"github.com/pabliki/pabliki-server/internal/locale"
	"github.com/pabliki/pabliki-server/internal/logger"
	"github.com/pabliki/pabliki-server/internal/validation"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Pabliki Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.BasePath,
		"locales", cfg.Locale.Supported,
	)

	return log, nil
}

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}

// ProvideValidator provides the shared request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideNegotiator provides the locale negotiator used by page routes.
func ProvideNegotiator(i do.Injector) (*locale.Negotiator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return locale.NewNegotiator(cfg.Locale.Supported, cfg.Locale.Default)
}
