package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jonesrussell/webloader/internal/logger"
)

const (
	defaultServerPort         = 3000
	defaultServerTimeout      = 30
	defaultChromeURL          = "http://127.0.0.1:9222/json/version"
	defaultPageTimeout        = 30 * time.Second
	defaultSettleDelay        = 200 * time.Millisecond
	defaultNetworkIdleTimeout = 2 * time.Second
	defaultMaxConcurrent      = 4
	defaultMaxBodyBytes       = 10 * 1024 * 1024 // 10 MB
	defaultCacheTTL           = 15 * time.Minute
	defaultRedisAddress       = "localhost:6379"
	defaultUserAgent          = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 Safari/537.36"
)

// Config is the root configuration for the webloader service.
type Config struct {
	Debug   bool          `env:"APP_DEBUG" yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Browser BrowserConfig `yaml:"browser"`
	Scrape  ScrapeConfig  `yaml:"scrape"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging logger.Config `yaml:"logging"`
}

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Host         string        `env:"SERVER_HOST"  yaml:"host"`
	Port         int           `env:"APP_PORT"     yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" yaml:"cors_origins"`
}

// BrowserConfig holds the remote headless-browser connection settings.
// ConnectionURL points at the browser's version-metadata endpoint
// (for example http://chrome:9222/json/version); the websocket debugger
// URL is resolved from it at connect time.
type BrowserConfig struct {
	// Disabled switches the service to the static HTTP fetcher instead of
	// rendering through the remote browser.
	Disabled      bool   `env:"CHROME_DISABLED"       yaml:"disabled"`
	ConnectionURL string `env:"CHROME_CONNECTION_URL" yaml:"connection_url"`
}

// ScrapeConfig tunes the rendering pipeline.
type ScrapeConfig struct {
	// MaxConcurrent bounds per-request render fan-out.
	MaxConcurrent int `env:"SCRAPE_MAX_CONCURRENT" yaml:"max_concurrent"`
	// PageTimeout bounds navigation and capture for a single URL.
	PageTimeout time.Duration `env:"SCRAPE_PAGE_TIMEOUT" yaml:"page_timeout"`
	// SettleDelay is an extra wait after load before capturing the DOM.
	SettleDelay time.Duration `yaml:"settle_delay"`
	// NetworkIdleTimeout bounds the wait for in-flight requests to finish.
	NetworkIdleTimeout time.Duration `yaml:"network_idle_timeout"`
	// UserAgent overrides the browser user agent for outbound requests.
	UserAgent string `env:"SCRAPE_USER_AGENT" yaml:"user_agent"`
	// MaxBodyBytes limits static-mode response bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// AllowPrivateHosts disables the SSRF guard for intra-network targets.
	AllowPrivateHosts bool `env:"SCRAPE_ALLOW_PRIVATE_HOSTS" yaml:"allow_private_hosts"`
	// BlockAnalytics aborts requests to known analytics endpoints while rendering.
	BlockAnalytics bool `env:"SCRAPE_BLOCK_ANALYTICS" yaml:"block_analytics"`
}

// CacheConfig holds the optional Redis render-cache configuration.
type CacheConfig struct {
	Enabled  bool          `env:"REDIS_CACHE_ENABLED" yaml:"enabled"` // Feature flag for the render cache
	Address  string        `env:"REDIS_ADDRESS"       yaml:"address"`
	Password string        `env:"REDIS_PASSWORD"      yaml:"password"`
	DB       int           `env:"REDIS_DB"            yaml:"db"`
	TTL      time.Duration `env:"CACHE_TTL"           yaml:"ttl"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port is required and must be positive")
	}
	if !c.Browser.Disabled {
		u, err := url.Parse(c.Browser.ConnectionURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("browser.connection_url is not a valid URL: %q", c.Browser.ConnectionURL)
		}
	}
	if c.Scrape.MaxConcurrent <= 0 {
		return errors.New("scrape.max_concurrent must be positive")
	}
	if c.Cache.Enabled && c.Cache.Address == "" {
		return errors.New("cache.address is required when the cache is enabled")
	}
	return nil
}

// Load reads the configuration from the given path and the environment.
func Load(path string) (*Config, error) {
	cfg, err := load(path, setDefaults)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerTimeout * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// Rendering can take most of the page timeout per URL, so the
		// write timeout leaves headroom above it.
		cfg.Server.WriteTimeout = 2 * defaultPageTimeout
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	// The browser defaults to the conventional local CDP endpoint,
	// matching the documented deployment wiring.
	if cfg.Browser.ConnectionURL == "" {
		cfg.Browser.ConnectionURL = defaultChromeURL
	}

	if cfg.Scrape.MaxConcurrent == 0 {
		cfg.Scrape.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.Scrape.PageTimeout == 0 {
		cfg.Scrape.PageTimeout = defaultPageTimeout
	}
	if cfg.Scrape.SettleDelay == 0 {
		cfg.Scrape.SettleDelay = defaultSettleDelay
	}
	if cfg.Scrape.NetworkIdleTimeout == 0 {
		cfg.Scrape.NetworkIdleTimeout = defaultNetworkIdleTimeout
	}
	if cfg.Scrape.UserAgent == "" {
		cfg.Scrape.UserAgent = defaultUserAgent
	}
	if cfg.Scrape.MaxBodyBytes == 0 {
		cfg.Scrape.MaxBodyBytes = defaultMaxBodyBytes
	}

	if cfg.Cache.Address == "" {
		cfg.Cache.Address = defaultRedisAddress
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = defaultCacheTTL
	}
	// Note: cfg.Cache.Enabled defaults to false (feature flag)
}
