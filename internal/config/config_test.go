package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/apod-cache/internal/cache"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		EnvAPIKey, EnvAPIURL, EnvArchiveURL, EnvBackend, EnvCachePath, EnvMaxEntries,
		EnvSaveInterval, EnvSweepInterval, EnvLogPath, EnvLogLevel, EnvMetricsAddr,
	} {
		t.Setenv(name, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultArchiveURL, cfg.ArchiveURL)
	assert.Equal(t, cache.BackendFile, cfg.Backend)
	assert.Equal(t, "cache.json", filepath.Base(cfg.CachePath))
	assert.Equal(t, cache.DefaultMaxEntries, cfg.MaxEntries)
	assert.Equal(t, 5*time.Minute, cfg.SaveInterval)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIKey, "DEMO_KEY")
	t.Setenv(EnvBackend, "bolt")
	t.Setenv(EnvMaxEntries, "50")
	t.Setenv(EnvSaveInterval, "30s")
	t.Setenv(EnvSweepInterval, "off")
	t.Setenv(EnvMetricsAddr, ":9090")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "DEMO_KEY", cfg.APIKey)
	assert.Equal(t, cache.BackendBolt, cfg.Backend)
	assert.Equal(t, "cache.bbolt", filepath.Base(cfg.CachePath))
	assert.Equal(t, 50, cfg.MaxEntries)
	assert.Equal(t, 30*time.Second, cfg.SaveInterval)
	assert.Negative(t, int64(cfg.SweepInterval))
	assert.Equal(t, ":9090", cfg.MetricsAddr)

	opts := cfg.CacheOptions(nil)
	assert.Equal(t, 50, opts.MaxEntries)
	assert.Equal(t, 30*time.Second, opts.SaveInterval)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name, env, value string
	}{
		{"backend", EnvBackend, "memcached"},
		{"max entries not a number", EnvMaxEntries, "lots"},
		{"max entries zero", EnvMaxEntries, "0"},
		{"save interval", EnvSaveInterval, "soon"},
		{"sweep interval", EnvSweepInterval, "1 hour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.env, tt.value)

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.env)
		})
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, even if empty.
	require.NoError(t, os.Unsetenv(EnvAPIKey))
	t.Cleanup(func() { _ = os.Unsetenv(EnvAPIKey) })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NASA_API_KEY=from-dotenv\n"), 0o600))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.APIKey)
}

func TestLoad_WithoutDotEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	_, err := Load()
	assert.NoError(t, err)
}
