package bootstrap

import (
	"github.com/jonesrussell/webloader/internal/cache"
	"github.com/jonesrussell/webloader/internal/config"
	"github.com/jonesrussell/webloader/internal/logger"
	"github.com/jonesrussell/webloader/internal/metrics"
	"github.com/jonesrussell/webloader/internal/render"
	"github.com/jonesrussell/webloader/internal/scrape"
	"github.com/jonesrussell/webloader/internal/urlguard"
)

// SetupScraper builds the scrape pipeline with the configured renderer.
func SetupScraper(
	cfg *config.Config,
	renderCache *cache.Cache,
	m *metrics.Metrics,
	log logger.Logger,
) *scrape.Service {
	guard := urlguard.New(cfg.Scrape.AllowPrivateHosts)
	renderer := setupRenderer(cfg, guard, log)

	log.Info("Render pipeline configured",
		logger.String("mode", renderer.Mode()),
		logger.Int("max_concurrent", cfg.Scrape.MaxConcurrent),
		logger.Duration("page_timeout", cfg.Scrape.PageTimeout),
	)

	return scrape.New(
		scrape.Config{
			MaxConcurrent: cfg.Scrape.MaxConcurrent,
			PageTimeout:   cfg.Scrape.PageTimeout,
		},
		guard,
		renderer,
		renderCache,
		m,
		log,
	)
}

func setupRenderer(cfg *config.Config, guard *urlguard.Guard, log logger.Logger) render.Renderer {
	if cfg.Browser.Disabled {
		return render.NewStaticRenderer(render.StaticConfig{
			Timeout:      cfg.Scrape.PageTimeout,
			UserAgent:    cfg.Scrape.UserAgent,
			MaxBodyBytes: cfg.Scrape.MaxBodyBytes,
			Guard:        guard,
		})
	}

	return render.NewChromeRenderer(render.ChromeConfig{
		ConnectionURL:      cfg.Browser.ConnectionURL,
		UserAgent:          cfg.Scrape.UserAgent,
		SettleDelay:        cfg.Scrape.SettleDelay,
		NetworkIdleTimeout: cfg.Scrape.NetworkIdleTimeout,
		BlockAnalytics:     cfg.Scrape.BlockAnalytics,
	}, log)
}
