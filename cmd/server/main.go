package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leonardcser/apod-cache/internal/apod"
	"github.com/leonardcser/apod-cache/internal/cache"
	"github.com/leonardcser/apod-cache/internal/config"
	"github.com/leonardcser/apod-cache/internal/logger"
	tools "github.com/leonardcser/apod-cache/internal/tools"
)

func main() {
	if err := run(); err != nil {
		logger.Errorf("server error: %v", err)
		fmt.Fprintln(os.Stderr, err)
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.LogPath); err != nil {
		return err
	}
	logger.SetLevel(cfg.LogLevel)
	logger.Infof("Starting APOD MCP server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cache.OpenStore(cfg.Backend, cfg.CachePath)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Infof("Opened %s cache store at %s", cfg.Backend, cfg.CachePath)

	c := cache.New[json.RawMessage](cfg.CacheOptions(store))
	closed := c.CloseOnDone(ctx)
	// Runs before store.Close so the final snapshot reaches the store.
	defer func() {
		stop()
		<-closed
	}()

	var src apod.Source
	if cfg.APIKey != "" {
		src = apod.NewClient(cfg.APIURL, cfg.APIKey)
		logger.Infof("Using APOD API at %s", cfg.APIURL)
	} else {
		scraper, err := apod.NewScraper(cfg.ArchiveURL)
		if err != nil {
			return err
		}
		src = scraper
		logger.Warnf("%s not set, reading pictures from %s", config.EnvAPIKey, cfg.ArchiveURL)
	}
	archive, err := apod.NewArchive(cfg.ArchiveURL)
	if err != nil {
		return err
	}
	svc := apod.NewService(c, src, archive)

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, c)
	}

	s := newMCPServer(svc, c)
	logger.Infof("Starting MCP server on stdio")
	err = server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return err
	}
	logger.Infof("Shutting down")
	return nil
}

func newMCPServer(svc *apod.Service, c *cache.Cache[json.RawMessage]) *server.MCPServer {
	s := server.NewMCPServer(
		"APOD MCP",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("apod-today",
		mcp.WithDescription(multiline(
			"Returns NASA's Astronomy Picture of the Day for today",
			"\nFunctionality:",
			"- Returns the title, date, media URLs, credit and explanation",
			"- Responses are cached for one hour",
		)),
	), tools.TodayHandler(svc))

	s.AddTool(mcp.NewTool("apod-date",
		mcp.WithDescription(multiline(
			"Returns the Astronomy Picture of the Day for a given date",
			"\nUsage notes:",
			"- The date must be YYYY-MM-DD, between 1995-06-16 and today",
			"- Responses are cached for 30 days",
		)),
		mcp.WithString("date", mcp.Required(), mcp.Description("The date in YYYY-MM-DD format")),
	), tools.DateHandler(svc))

	s.AddTool(mcp.NewTool("apod-range",
		mcp.WithDescription(multiline(
			"Returns every Astronomy Picture of the Day between two dates, inclusive",
			"\nUsage notes:",
			fmt.Sprintf("- The dates may be at most %d days apart", apod.MaxRangeDays),
			"- Responses are cached for 7 days",
		)),
		mcp.WithString("start_date", mcp.Required(), mcp.Description("First date in YYYY-MM-DD format")),
		mcp.WithString("end_date", mcp.Required(), mcp.Description("Last date in YYYY-MM-DD format")),
	), tools.RangeHandler(svc))

	s.AddTool(mcp.NewTool("apod-random",
		mcp.WithDescription(multiline(
			"Returns the Astronomy Picture of the Day for a random date since 1995-06-16",
			"\nUsage notes:",
			"- A date that was already fetched is served from the cache",
		)),
	), tools.RandomHandler(svc))

	s.AddTool(mcp.NewTool("apod-search",
		mcp.WithDescription(multiline(
			"Searches the titles of every published Astronomy Picture of the Day",
			"\nFunctionality:",
			"- Matches every word of the query against titles, ignoring case",
			"- Returns the newest matches first with their dates and page URLs",
			"\nUsage notes:",
			"- Use apod-date with a returned date to read the full entry",
		)),
		mcp.WithString("query", mcp.Required(), mcp.Description("Words to look for in titles")),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Maximum results (default %d, at most %d)", apod.DefaultSearchLimit, apod.MaxSearchLimit))),
	), tools.SearchHandler(svc))

	s.AddTool(mcp.NewTool("cache-stats",
		mcp.WithDescription("Reports cache hits, misses, size, hit rate and creation time"),
	), tools.StatsHandler(c))

	s.AddTool(mcp.NewTool("cache-clear",
		mcp.WithDescription(multiline(
			"Removes cached responses",
			"\nUsage notes:",
			"- With a prefix such as apod:date: only matching keys are removed",
			"- Without a prefix the whole cache is cleared",
		)),
		mcp.WithString("prefix", mcp.Description("Only remove keys starting with this prefix")),
	), tools.ClearHandler(c))

	logger.Infof("Registered apod and cache tools")
	return s
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }

func serveMetrics(ctx context.Context, addr string, c *cache.Cache[json.RawMessage]) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(cache.NewCollector(c, "apod_cache"))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("metrics server: %v", err)
	}
}
