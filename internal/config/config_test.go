package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:       AppConfig{Environment: "development"},
		Logger:    LoggerConfig{Level: "info"},
		Data:      DataConfig{BasePath: "/some/path"},
		Locale:    LocaleConfig{Supported: []string{"ru", "en", "es"}, Default: "ru"},
		Jobs:      JobsConfig{ActivityRetentionDays: 30, MaintenanceSchedule: "30 3 * * *"},
		RateLimit: RateLimitConfig{AuthPerMinute: 10, AuthBurst: 5},
	}
}

// unsetEnv clears keys for the duration of the test and restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Environments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env
			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestValidate_LogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level
			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestValidate_Locales(t *testing.T) {
	cfg := validConfig()
	cfg.Locale.Default = "de"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default locale")

	cfg = validConfig()
	cfg.Locale.Supported = nil
	assert.Error(t, cfg.Validate())
}

func TestValidate_Schedule(t *testing.T) {
	cfg := validConfig()
	cfg.Jobs.MaintenanceSchedule = "not a cron spec"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maintenance schedule")

	cfg.Jobs.MaintenanceSchedule = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data base path cannot be empty")
}

func TestExpandDataPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty uses default", "", filepath.Join(homeDir, "Pabliki", "data")},
		{"tilde", "~/bookmarks", filepath.Join(homeDir, "bookmarks")},
		{"absolute", "/srv/pabliki", "/srv/pabliki"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Data: DataConfig{BasePath: tt.in}}
			require.NoError(t, cfg.expandDataPath())
			assert.Equal(t, tt.want, cfg.Data.BasePath)
		})
	}

	cfg := &Config{Data: DataConfig{BasePath: "relative/dir"}}
	require.NoError(t, cfg.expandDataPath())
	assert.True(t, filepath.IsAbs(cfg.Data.BasePath))
}

func TestGetConfigValue_Precedence(t *testing.T) {
	assert.Equal(t, "flag-value", getConfigValue("flag-value", "PABLIKI_TEST_KEY", "default"))

	t.Setenv("PABLIKI_TEST_KEY", "env-value")
	assert.Equal(t, "env-value", getConfigValue("", "PABLIKI_TEST_KEY", "default"))

	assert.Equal(t, "default", getConfigValue("", "PABLIKI_MISSING_KEY", "default"))
}

func TestTypedConfigValues(t *testing.T) {
	t.Setenv("PABLIKI_BOOL", "YES")
	t.Setenv("PABLIKI_INT", "42")
	t.Setenv("PABLIKI_BAD_INT", "forty")
	t.Setenv("PABLIKI_FLOAT", "2.5")

	assert.True(t, getBoolConfigValue("", "PABLIKI_BOOL", false))
	assert.False(t, getBoolConfigValue("no", "PABLIKI_BOOL", true))
	assert.True(t, getBoolConfigValue("", "PABLIKI_UNSET_BOOL", true))
	assert.Equal(t, 42, getIntConfigValue("", "PABLIKI_INT", 1))
	assert.Equal(t, 1, getIntConfigValue("", "PABLIKI_BAD_INT", 1))
	assert.InDelta(t, 2.5, getFloatConfigValue("", "PABLIKI_FLOAT", 1), 0.0001)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"ru", "en", "es"}, splitList(" ru, en ,,es "))
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, "ENV", "LOG_LEVEL", "DATA_PATH", "PORT", "LOCALES", "DEFAULT_LOCALE", "COOKIE_SECURE")
	dataDir := t.TempDir()

	cfg, err := Load([]string{"-data-path", dataDir, "-env-file", filepath.Join(dataDir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, dataDir, cfg.Data.BasePath)
	assert.Equal(t, filepath.Join(dataDir, "pabliki.db"), cfg.Data.DatabasePath())
	assert.Equal(t, []string{"ru", "en", "es"}, cfg.Locale.Supported)
	assert.Equal(t, "ru", cfg.Locale.Default)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, 720*time.Hour, cfg.Auth.RefreshTokenDuration)
	assert.False(t, cfg.Auth.CookieSecure)
	assert.True(t, cfg.Preview.Enabled)
}

func TestLoad_EnvFileAndFlags(t *testing.T) {
	unsetEnv(t, "ENV", "LOG_LEVEL", "DATA_PATH", "PORT", "DEFAULT_LOCALE", "LOCALES", "ACCESS_TOKEN_DURATION", "COOKIE_SECURE")
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "# pabliki\nENV=production\nLOG_LEVEL=debug\nPORT=9000\nDEFAULT_LOCALE=en\nACCESS_TOKEN_DURATION=5m\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	cfg, err := Load([]string{"-env-file", envFile, "-data-path", dir, "-port", "7000"})
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Environment)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "7000", cfg.Server.Port, "flag beats .env")
	assert.Equal(t, "en", cfg.Locale.Default)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.True(t, cfg.Auth.CookieSecure, "secure cookies default on in production")
}

func TestLoad_InvalidDuration(t *testing.T) {
	unsetEnv(t, "ENV", "LOG_LEVEL", "DEFAULT_LOCALE", "LOCALES")
	dir := t.TempDir()

	_, err := Load([]string{"-data-path", dir, "-env-file", filepath.Join(dir, "none"), "-access-token-duration", "soon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_DURATION")
}
