// Package config loads Pabliki server configuration from command-line flags,
// environment variables, a .env file, and defaults, in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Data      DataConfig
	Server    ServerConfig
	Auth      AuthConfig
	Locale    LocaleConfig
	Preview   PreviewConfig
	Search    SearchConfig
	Jobs      JobsConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// IsProduction reports whether the server runs in production mode.
func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig locates on-disk state: the SQLite database, the search index,
// the preview cache and the token signing key all live under BasePath.
type DataConfig struct {
	BasePath string
}

// DatabasePath returns the SQLite database file path.
func (d DataConfig) DatabasePath() string {
	return filepath.Join(d.BasePath, "pabliki.db")
}

// PreviewCachePath returns the BadgerDB directory for cached link previews.
func (d DataConfig) PreviewCachePath() string {
	return filepath.Join(d.BasePath, "cache", "previews")
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	PublicURL       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	// CookieSecure marks the token cookie Secure. Defaults to true in production.
	CookieSecure bool
}

// LocaleConfig controls locale negotiation for page routes.
type LocaleConfig struct {
	Supported []string
	Default   string
}

// PreviewConfig controls fetching of link previews.
type PreviewConfig struct {
	Enabled   bool
	Timeout   time.Duration
	CacheTTL  time.Duration
	MaxBytes  int64
	HostRPS   float64
	UserAgent string

	// AllowPrivate lets previews reach loopback and private addresses.
	AllowPrivate bool
}

// SearchConfig controls the full-text link index.
type SearchConfig struct {
	Enabled bool
}

// JobsConfig controls scheduled maintenance.
type JobsConfig struct {
	ActivityRetentionDays int
	MaintenanceSchedule   string
}

// RateLimitConfig limits auth endpoint attempts per client IP.
type RateLimitConfig struct {
	AuthPerMinute int
	AuthBurst     int
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// LoadConfig loads configuration from the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds a Config from args with precedence:
// 1. Command-line flags.
// 2. Environment variables.
// 3. .env file.
// 4. Defaults.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("pabliki", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for the database, search index and caches")
	port := fs.String("port", "", "Server port (default: 8080)")
	publicURL := fs.String("public-url", "", "Externally visible base URL")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 30s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated allowed CORS origins")
	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (e.g., 15m)")
	refreshTokenDuration := fs.String("refresh-token-duration", "", "Refresh token lifetime (e.g., 720h)")
	locales := fs.String("locales", "", "Comma separated supported locales (default: ru,en,es)")
	defaultLocale := fs.String("default-locale", "", "Fallback locale (default: ru)")
	previewEnabled := fs.String("preview-enabled", "", "Fetch link previews on save (default: true)")
	searchEnabled := fs.String("search-enabled", "", "Maintain the full-text index (default: true)")
	metricsEnabled := fs.String("metrics-enabled", "", "Expose /metrics (default: true)")
	schedule := fs.String("maintenance-schedule", "", "Cron spec for maintenance jobs (default: 30 3 * * *)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// A missing .env file is fine; variables already set in the environment win.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", *envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*port, "PORT", "8080"),
			PublicURL:   getConfigValue(*publicURL, "PUBLIC_URL", ""),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "")),
		},
		Locale: LocaleConfig{
			Supported: splitList(getConfigValue(*locales, "LOCALES", "ru,en,es")),
			Default:   getConfigValue(*defaultLocale, "DEFAULT_LOCALE", "ru"),
		},
		Preview: PreviewConfig{
			Enabled:      getBoolConfigValue(*previewEnabled, "PREVIEW_ENABLED", true),
			MaxBytes:     int64(getIntConfigValue("", "PREVIEW_MAX_BYTES", 2<<20)),
			HostRPS:      getFloatConfigValue("", "PREVIEW_HOST_RPS", 1),
			UserAgent:    getConfigValue("", "PREVIEW_USER_AGENT", "PablikiBot/1.0 (+https://pabliki.app)"),
			AllowPrivate: getBoolConfigValue("", "PREVIEW_ALLOW_PRIVATE", false),
		},
		Search: SearchConfig{
			Enabled: getBoolConfigValue(*searchEnabled, "SEARCH_ENABLED", true),
		},
		Jobs: JobsConfig{
			ActivityRetentionDays: getIntConfigValue("", "ACTIVITY_RETENTION_DAYS", 365),
			MaintenanceSchedule:   getConfigValue(*schedule, "MAINTENANCE_SCHEDULE", "30 3 * * *"),
		},
		RateLimit: RateLimitConfig{
			AuthPerMinute: getIntConfigValue("", "AUTH_RATE_PER_MINUTE", 10),
			AuthBurst:     getIntConfigValue("", "AUTH_RATE_BURST", 5),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolConfigValue(*metricsEnabled, "METRICS_ENABLED", true),
		},
	}
	cfg.Auth.CookieSecure = getBoolConfigValue("", "COOKIE_SECURE", cfg.App.IsProduction())

	durations := []struct {
		target *time.Duration
		flag   string
		envKey string
		def    string
	}{
		{&cfg.Auth.AccessTokenDuration, *accessTokenDuration, "ACCESS_TOKEN_DURATION", "15m"},
		{&cfg.Auth.RefreshTokenDuration, *refreshTokenDuration, "REFRESH_TOKEN_DURATION", "720h"},
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "30s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Server.ShutdownTimeout, "", "SERVER_SHUTDOWN_TIMEOUT", "30s"},
		{&cfg.Preview.Timeout, "", "PREVIEW_TIMEOUT", "10s"},
		{&cfg.Preview.CacheTTL, "", "PREVIEW_CACHE_TTL", "168h"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.target = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	case "":
		return errors.New("ENV is required")
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if len(c.Locale.Supported) == 0 {
		return errors.New("at least one locale must be supported")
	}
	if !slices.Contains(c.Locale.Supported, c.Locale.Default) {
		return fmt.Errorf("default locale %q is not in supported locales %v", c.Locale.Default, c.Locale.Supported)
	}

	if c.Jobs.ActivityRetentionDays < 0 {
		return errors.New("activity retention days cannot be negative")
	}
	if c.Jobs.MaintenanceSchedule != "" {
		if _, err := cron.ParseStandard(c.Jobs.MaintenanceSchedule); err != nil {
			return fmt.Errorf("invalid maintenance schedule %q: %w", c.Jobs.MaintenanceSchedule, err)
		}
	}

	if c.RateLimit.AuthPerMinute <= 0 || c.RateLimit.AuthBurst <= 0 {
		return errors.New("auth rate limit and burst must be positive")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	expanded, err := expandPath(c.Data.BasePath, filepath.Join(homeDir, "Pabliki", "data"))
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1" and "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
