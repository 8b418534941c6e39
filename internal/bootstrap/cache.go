package bootstrap

import (
	"github.com/jonesrussell/webloader/internal/cache"
	"github.com/jonesrussell/webloader/internal/config"
	"github.com/jonesrussell/webloader/internal/logger"
)

// SetupCache creates the optional render cache. Returns nil when the
// cache is disabled or Redis is unavailable; a nil cache is a no-op.
func SetupCache(cfg *config.Config, log logger.Logger) *cache.Cache {
	if !cfg.Cache.Enabled {
		return nil
	}

	renderCache, err := cache.New(cache.Config{
		Address:  cfg.Cache.Address,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		TTL:      cfg.Cache.TTL,
	}, log)
	if err != nil {
		log.Warn("Redis not available, render cache disabled",
			logger.String("redis_address", cfg.Cache.Address),
			logger.Error(err),
		)
		return nil
	}

	log.Info("Render cache initialized",
		logger.String("redis_address", cfg.Cache.Address),
		logger.Duration("ttl", cfg.Cache.TTL),
	)
	return renderCache
}
