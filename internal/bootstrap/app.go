// Package bootstrap handles application initialization and lifecycle
// management for the webloader service.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jonesrussell/webloader/internal/logger"
	"github.com/jonesrussell/webloader/internal/metrics"
	"github.com/jonesrussell/webloader/internal/profiling"
)

const version = "dev"

// Start initializes and runs the webloader application.
func Start() error {
	// Phase 1: Load config and create logger
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := CreateLogger(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Phase 1b: Optional profiling (pprof + continuous)
	profiling.StartPprofServer(log)
	profiler, err := profiling.StartPyroscope("webloader", version, log)
	if err != nil {
		log.Warn("Continuous profiling unavailable", logger.Error(err))
	}
	defer func() {
		if stopErr := profiler.Stop(); stopErr != nil {
			log.Error("Failed to stop profiler", logger.Error(stopErr))
		}
	}()

	m := metrics.New()

	// Phase 2: Setup render cache (optional)
	renderCache := SetupCache(cfg, log)

	// Phase 3: Setup renderer and scrape pipeline
	scraper := SetupScraper(cfg, renderCache, m, log)
	defer func() {
		if closeErr := scraper.Close(); closeErr != nil {
			log.Error("Failed to close scrape pipeline", logger.Error(closeErr))
		}
	}()

	// Phase 4: Setup and run HTTP server
	srv := SetupHTTPServer(cfg, scraper, renderCache, m, log)

	log.Info("Starting webloader",
		logger.String("host", cfg.Server.Host),
		logger.Int("port", cfg.Server.Port),
		logger.Bool("browser_disabled", cfg.Browser.Disabled),
		logger.Bool("cache_enabled", renderCache != nil),
	)

	if runErr := srv.RunWithGracefulShutdown(context.Background()); runErr != nil {
		log.Error("Server error", logger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	log.Info("Server exited")
	return nil
}
