// Package config reads process settings from the environment, after loading
// a .env file from the working directory when one exists.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/leonardcser/apod-cache/internal/cache"
)

// Environment variable names.
const (
	EnvAPIKey        = "NASA_API_KEY"
	EnvAPIURL        = "APOD_API_URL"
	EnvArchiveURL    = "APOD_ARCHIVE_URL"
	EnvBackend       = "APOD_CACHE_BACKEND"
	EnvCachePath     = "APOD_CACHE_PATH"
	EnvMaxEntries    = "APOD_CACHE_MAX_ENTRIES"
	EnvSaveInterval  = "APOD_CACHE_SAVE_INTERVAL"
	EnvSweepInterval = "APOD_CACHE_SWEEP_INTERVAL"
	EnvLogPath       = "APOD_LOG"
	EnvLogLevel      = "APOD_LOG_LEVEL"
	EnvMetricsAddr   = "APOD_METRICS_ADDR"
)

const (
	DefaultAPIURL     = "https://api.nasa.gov/planetary/apod"
	DefaultArchiveURL = "https://apod.nasa.gov/apod/"
)

type Config struct {
	APIKey     string
	APIURL     string
	ArchiveURL string

	Backend       string
	CachePath     string
	MaxEntries    int
	SaveInterval  time.Duration
	SweepInterval time.Duration

	LogPath     string
	LogLevel    string
	MetricsAddr string
}

// Load reads .env (if present) and the environment. Variables already set in
// the environment win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment alone.
func FromEnv() (*Config, error) {
	cfg := &Config{
		APIKey:      os.Getenv(EnvAPIKey),
		APIURL:      defaultString(os.Getenv(EnvAPIURL), DefaultAPIURL),
		ArchiveURL:  defaultString(os.Getenv(EnvArchiveURL), DefaultArchiveURL),
		Backend:     defaultString(os.Getenv(EnvBackend), cache.BackendFile),
		LogPath:     defaultString(os.Getenv(EnvLogPath), defaultLogPath()),
		LogLevel:    defaultString(os.Getenv(EnvLogLevel), "info"),
		MetricsAddr: os.Getenv(EnvMetricsAddr),
	}

	switch cfg.Backend {
	case cache.BackendFile, cache.BackendBolt:
	default:
		return nil, fmt.Errorf("config: %s: %w: %q", EnvBackend, cache.ErrUnknownBackend, cfg.Backend)
	}
	cfg.CachePath = defaultString(os.Getenv(EnvCachePath), DefaultCachePath(cfg.Backend))

	var err error
	if cfg.MaxEntries, err = intEnv(EnvMaxEntries, cache.DefaultMaxEntries); err != nil {
		return nil, err
	}
	if cfg.SaveInterval, err = durationEnv(EnvSaveInterval, cache.DefaultSaveInterval); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = durationEnv(EnvSweepInterval, cache.DefaultSweepInterval); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CacheOptions maps the cache settings onto cache.Options.
func (c *Config) CacheOptions(store cache.Store) cache.Options {
	return cache.Options{
		MaxEntries:    c.MaxEntries,
		SaveInterval:  c.SaveInterval,
		SweepInterval: c.SweepInterval,
		Store:         store,
	}
}

// DefaultCachePath returns the snapshot location under the user cache
// directory for backend.
func DefaultCachePath(backend string) string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	name := "cache.json"
	if backend == cache.BackendBolt {
		name = "cache.bbolt"
	}
	return filepath.Join(home, ".cache", "apod-cache", name)
}

func defaultLogPath() string {
	// Default to the directory where the executable is located
	if exePath, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exePath), "apod-cache.log")
	}
	return "./apod-cache.log"
}

func intEnv(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("config: %s: want a positive integer, got %q", name, v)
	}
	return n, nil
}

// durationEnv parses a Go duration; "off" or a negative value disables the
// timer it configures.
func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	switch v {
	case "":
		return def, nil
	case "off":
		return -1, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}

func defaultString(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
