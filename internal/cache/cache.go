// Package cache provides an optional Redis-backed cache for rendered
// markdown, keyed by target URL. A nil *Cache is valid and disables
// caching entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/webloader/internal/logger"
)

// keyPrefix namespaces cache keys so the instance can share a Redis DB.
const keyPrefix = "webloader:render:"

// connectionTimeout bounds the startup connection check.
const connectionTimeout = 5 * time.Second

// ErrEmptyAddress is returned when the Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

// Config holds Redis cache configuration.
type Config struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// Entry is a cached render result.
type Entry struct {
	Title    string `json:"title,omitempty"`
	Markdown string `json:"markdown"`
}

// Cache stores rendered markdown in Redis with a fixed TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// New creates a cache and verifies the Redis connection.
func New(cfg Config, log logger.Logger) (*Cache, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Cache{
		client: client,
		ttl:    cfg.TTL,
		log:    log,
	}, nil
}

// Key derives the cache key for a target URL.
func Key(targetURL string) string {
	sum := sha256.Sum256([]byte(targetURL))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached entry for the URL, or nil on a miss. Redis
// errors are logged and treated as misses so a cache outage never fails
// a scrape.
func (c *Cache) Get(ctx context.Context, targetURL string) *Entry {
	if c == nil {
		return nil
	}

	data, err := c.client.Get(ctx, Key(targetURL)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache read failed",
				logger.String("url", targetURL),
				logger.Error(err))
		}
		return nil
	}

	var entry Entry
	if err := entry.unmarshal(data); err != nil {
		c.log.Warn("cache entry corrupt",
			logger.String("url", targetURL),
			logger.Error(err))
		return nil
	}

	return &entry
}

// Set stores a render result for the URL. Failures are logged, not
// returned, for the same reason Get swallows them.
func (c *Cache) Set(ctx context.Context, targetURL string, entry *Entry) {
	if c == nil || entry == nil {
		return
	}

	data, err := entry.marshal()
	if err != nil {
		c.log.Warn("cache entry encode failed",
			logger.String("url", targetURL),
			logger.Error(err))
		return
	}

	if err := c.client.Set(ctx, Key(targetURL), data, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed",
			logger.String("url", targetURL),
			logger.Error(err))
	}
}

// Ping checks the Redis connection, for health reporting.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying Redis client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func (e *Entry) marshal() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Entry) unmarshal(data []byte) error {
	return json.Unmarshal(data, e)
}
