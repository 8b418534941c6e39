package bootstrap

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/webloader/internal/api"
	"github.com/jonesrussell/webloader/internal/cache"
	"github.com/jonesrussell/webloader/internal/config"
	"github.com/jonesrussell/webloader/internal/logger"
	"github.com/jonesrussell/webloader/internal/metrics"
	"github.com/jonesrussell/webloader/internal/render"
	"github.com/jonesrussell/webloader/internal/scrape"
	"github.com/jonesrussell/webloader/internal/server"
)

// SetupHTTPServer creates and configures the HTTP server.
func SetupHTTPServer(
	cfg *config.Config,
	scraper *scrape.Service,
	renderCache *cache.Cache,
	m *metrics.Metrics,
	log logger.Logger,
) *server.Server {
	health := server.NewHealthHandler("webloader", version)
	registerHealthChecks(health, cfg, renderCache)

	return server.New(cfg.Server, cfg.Debug, log, func(router *gin.Engine) {
		api.RegisterRoutes(router, scraper, health, m)
	})
}

func registerHealthChecks(health *server.HealthHandler, cfg *config.Config, renderCache *cache.Cache) {
	if !cfg.Browser.Disabled {
		connectionURL := cfg.Browser.ConnectionURL
		health.Register("browser", func(ctx context.Context) error {
			if err := render.CheckEndpoint(ctx, connectionURL); err != nil {
				return fmt.Errorf("browser unreachable: %w", err)
			}
			return nil
		})
	}

	if renderCache != nil {
		health.Register("cache", renderCache.Ping)
	}
}
