package bootstrap

import (
	"flag"
	"fmt"

	"github.com/jonesrussell/webloader/internal/config"
	"github.com/jonesrussell/webloader/internal/logger"
)

// LoadConfig loads configuration. Uses the -config flag with the
// CONFIG_PATH environment default; a missing file means env-only config.
func LoadConfig() (*config.Config, error) {
	configPath := flag.String("config", config.GetConfigPath("config.yml"), "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// CreateLogger creates a logger instance from configuration.
func CreateLogger(cfg *config.Config, version string) (logger.Logger, error) {
	logCfg := cfg.Logging
	logCfg.Development = logCfg.Development || cfg.Debug

	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(
		logger.String("service", "webloader"),
		logger.String("version", version),
	), nil
}
