// Package scrape orchestrates the render pipeline: URL validation, cache
// lookup, rendering behind a circuit breaker with retries, markdown
// conversion, and cache writeback.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonesrussell/webloader/internal/cache"
	"github.com/jonesrussell/webloader/internal/circuitbreaker"
	"github.com/jonesrussell/webloader/internal/content"
	"github.com/jonesrussell/webloader/internal/logger"
	"github.com/jonesrussell/webloader/internal/metrics"
	"github.com/jonesrussell/webloader/internal/render"
	"github.com/jonesrussell/webloader/internal/retry"
	"github.com/jonesrussell/webloader/internal/urlguard"
)

// Document is a rendered page ready to hand back to the caller.
type Document struct {
	// SourceURL is the URL as requested, used as the document identity.
	SourceURL string
	// Title is the extracted page title, may be empty.
	Title string
	// Markdown is the page content converted to markdown.
	Markdown string
}

// Config holds scrape pipeline settings.
type Config struct {
	// MaxConcurrent bounds parallel renders within one request.
	MaxConcurrent int
	// PageTimeout bounds a single render attempt.
	PageTimeout time.Duration
}

// Service runs the scrape pipeline.
type Service struct {
	cfg       Config
	guard     *urlguard.Guard
	renderer  render.Renderer
	converter *content.Converter
	cache     *cache.Cache
	breaker   *circuitbreaker.Breaker
	retryCfg  retry.Config
	metrics   *metrics.Metrics
	log       logger.Logger
}

// New creates the scrape service. The cache may be nil to disable caching.
func New(
	cfg Config,
	guard *urlguard.Guard,
	renderer render.Renderer,
	renderCache *cache.Cache,
	m *metrics.Metrics,
	log logger.Logger,
) *Service {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 30 * time.Second
	}

	breakerCfg := circuitbreaker.DefaultConfig()
	breakerCfg.OnStateChange = func(from, to circuitbreaker.State) {
		log.Warn("browser circuit breaker state changed",
			logger.String("from", from.String()),
			logger.String("to", to.String()))
		m.BreakerState.Set(float64(to))
	}

	return &Service{
		cfg:       cfg,
		guard:     guard,
		renderer:  renderer,
		converter: content.NewConverter(),
		cache:     renderCache,
		breaker:   circuitbreaker.New(breakerCfg),
		retryCfg:  retry.DefaultConfig(),
		metrics:   m,
		log:       log,
	}
}

// ScrapeAll renders every URL concurrently, bounded by MaxConcurrent, and
// returns the successful documents in input order. Failed and empty pages
// are logged and omitted.
func (s *Service) ScrapeAll(ctx context.Context, urls []string) []*Document {
	s.metrics.RequestURLs.Observe(float64(len(urls)))

	results := make([]*Document, len(urls))
	sem := make(chan struct{}, s.cfg.MaxConcurrent)

	var wg sync.WaitGroup
	for i, target := range urls {
		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			doc, err := s.Scrape(ctx, url)
			if err != nil {
				s.log.Warn("scrape failed",
					logger.String("url", url),
					logger.Error(err))
				return
			}
			results[idx] = doc
		}(i, target)
	}
	wg.Wait()

	docs := make([]*Document, 0, len(urls))
	for _, doc := range results {
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs
}

// Scrape runs the full pipeline for a single URL.
func (s *Service) Scrape(ctx context.Context, target string) (*Document, error) {
	if err := s.guard.Validate(target); err != nil {
		s.metrics.RendersTotal.WithLabelValues(metrics.OutcomeBlocked, s.renderer.Mode()).Inc()
		return nil, fmt.Errorf("validate %s: %w", target, err)
	}

	if entry := s.cache.Get(ctx, target); entry != nil {
		s.metrics.CacheHitsTotal.Inc()
		s.log.Debug("cache hit", logger.String("url", target))
		return &Document{
			SourceURL: target,
			Title:     entry.Title,
			Markdown:  entry.Markdown,
		}, nil
	}
	s.metrics.CacheMissesTotal.Inc()

	page, err := s.render(ctx, target)
	if err != nil {
		return nil, err
	}

	result, err := s.converter.Convert(page.HTML, page.URL)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", target, err)
	}
	if strings.TrimSpace(result.Markdown) == "" {
		s.metrics.RendersTotal.WithLabelValues(metrics.OutcomeEmpty, s.renderer.Mode()).Inc()
		return nil, fmt.Errorf("convert %s: %w", target, render.ErrEmptyPage)
	}
	s.metrics.RendersTotal.WithLabelValues(metrics.OutcomeOK, s.renderer.Mode()).Inc()

	s.cache.Set(ctx, target, &cache.Entry{
		Title:    result.Title,
		Markdown: result.Markdown,
	})

	return &Document{
		SourceURL: target,
		Title:     result.Title,
		Markdown:  result.Markdown,
	}, nil
}

// render loads the page through the circuit breaker, retrying transient
// failures, and records render metrics.
func (s *Service) render(ctx context.Context, target string) (*render.Page, error) {
	mode := s.renderer.Mode()

	s.metrics.RendersInFlight.Inc()
	defer s.metrics.RendersInFlight.Dec()

	start := time.Now()

	var page *render.Page
	err := retry.Do(ctx, s.retryCfg, func() error {
		return s.breaker.Execute(func() error {
			renderCtx, cancel := context.WithTimeout(ctx, s.cfg.PageTimeout)
			defer cancel()

			var renderErr error
			page, renderErr = s.renderer.Render(renderCtx, target)
			return renderErr
		})
	})

	s.metrics.RenderDurationSeconds.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, render.ErrEmptyPage) {
			outcome = metrics.OutcomeEmpty
		}
		s.metrics.RendersTotal.WithLabelValues(outcome, mode).Inc()
		return nil, fmt.Errorf("render %s: %w", target, err)
	}

	return page, nil
}

// Close releases the renderer and cache.
func (s *Service) Close() error {
	var errs []error
	if err := s.renderer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close renderer: %w", err))
	}
	if err := s.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	return errors.Join(errs...)
}
