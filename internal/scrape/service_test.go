package scrape

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/webloader/internal/logger"
	"github.com/jonesrussell/webloader/internal/metrics"
	"github.com/jonesrussell/webloader/internal/render"
	"github.com/jonesrussell/webloader/internal/urlguard"
)

// fakeRenderer serves canned HTML per URL and records concurrency.
type fakeRenderer struct {
	mu         sync.Mutex
	pages      map[string]string
	errs       map[string]error
	delay      time.Duration
	inFlight   int
	maxSeen    int
	renderCnt  int
	closeCalls int
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		pages: make(map[string]string),
		errs:  make(map[string]error),
	}
}

func (f *fakeRenderer) Render(ctx context.Context, url string) (*render.Page, error) {
	f.mu.Lock()
	f.renderCnt++
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	f.inFlight--
	html, ok := f.pages[url]
	err := f.errs[url]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no page for %s", url)
	}
	return &render.Page{URL: url, HTML: html}, nil
}

func (f *fakeRenderer) Mode() string { return render.ModeStatic }

func (f *fakeRenderer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

func pageHTML(title, body string) string {
	return fmt.Sprintf(
		"<html><head><title>%s</title></head><body><article><h1>%s</h1><p>%s</p></article></body></html>",
		title, title, body)
}

func newTestService(renderer render.Renderer, maxConcurrent int) *Service {
	return New(
		Config{MaxConcurrent: maxConcurrent, PageTimeout: 5 * time.Second},
		urlguard.New(true),
		renderer,
		nil,
		metrics.New(),
		logger.NewNop(),
	)
}

func TestScrape(t *testing.T) {
	renderer := newFakeRenderer()
	renderer.pages["https://example.com/article"] = pageHTML("First Post", "Interesting content about a topic worth reading in full.")

	svc := newTestService(renderer, 2)

	doc, err := svc.Scrape(context.Background(), "https://example.com/article")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/article", doc.SourceURL)
	assert.Equal(t, "First Post", doc.Title)
	assert.Contains(t, doc.Markdown, "Interesting content")
}

func TestScrape_InvalidURL(t *testing.T) {
	svc := newTestService(newFakeRenderer(), 2)

	_, err := svc.Scrape(context.Background(), "ftp://example.com/file")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme")
}

func TestScrape_PrivateURLBlocked(t *testing.T) {
	renderer := newFakeRenderer()
	svc := New(
		Config{MaxConcurrent: 2, PageTimeout: 5 * time.Second},
		urlguard.New(false),
		renderer,
		nil,
		metrics.New(),
		logger.NewNop(),
	)

	_, err := svc.Scrape(context.Background(), "http://192.168.1.10/admin")
	require.ErrorIs(t, err, urlguard.ErrPrivateTarget)

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	assert.Zero(t, renderer.renderCnt, "blocked URL must not reach the renderer")
}

func TestScrape_EmptyPageOmitted(t *testing.T) {
	renderer := newFakeRenderer()
	renderer.errs["https://example.com/empty"] = render.ErrEmptyPage

	svc := newTestService(renderer, 2)

	_, err := svc.Scrape(context.Background(), "https://example.com/empty")
	require.ErrorIs(t, err, render.ErrEmptyPage)
}

func TestScrape_RetriesTransientFailures(t *testing.T) {
	var calls int
	flaky := renderFunc(func(ctx context.Context, url string) (*render.Page, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection refused")
		}
		return &render.Page{URL: url, HTML: pageHTML("Flaky", "Made it eventually with enough persistence.")}, nil
	})

	svc := newTestService(flaky, 1)
	svc.retryCfg.InitialDelay = time.Millisecond

	doc, err := svc.Scrape(context.Background(), "https://example.com/flaky")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, doc.Markdown, "persistence")
}

// renderFunc adapts a function to the Renderer interface.
type renderFunc func(ctx context.Context, url string) (*render.Page, error)

func (f renderFunc) Render(ctx context.Context, url string) (*render.Page, error) {
	return f(ctx, url)
}
func (f renderFunc) Mode() string { return "fake" }
func (f renderFunc) Close() error { return nil }

func TestScrapeAll(t *testing.T) {
	renderer := newFakeRenderer()
	renderer.pages["https://example.com/a"] = pageHTML("Alpha", "First article body with a reasonable amount of text.")
	renderer.pages["https://example.com/b"] = pageHTML("Beta", "Second article body with a reasonable amount of text.")
	renderer.errs["https://example.com/c"] = errors.New("page load failed")
	renderer.pages["https://example.com/d"] = pageHTML("Delta", "Fourth article body with a reasonable amount of text.")

	svc := newTestService(renderer, 2)
	svc.retryCfg.MaxAttempts = 1

	docs := svc.ScrapeAll(context.Background(), []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
		"https://example.com/d",
	})

	// Failures are omitted and input order is preserved.
	require.Len(t, docs, 3)
	assert.Equal(t, "https://example.com/a", docs[0].SourceURL)
	assert.Equal(t, "https://example.com/b", docs[1].SourceURL)
	assert.Equal(t, "https://example.com/d", docs[2].SourceURL)
}

func TestScrapeAll_BoundedConcurrency(t *testing.T) {
	renderer := newFakeRenderer()
	renderer.delay = 30 * time.Millisecond
	urls := make([]string, 8)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://example.com/%d", i)
		renderer.pages[urls[i]] = pageHTML(fmt.Sprintf("Page %d", i), "Body text padded out to survive content extraction.")
	}

	svc := newTestService(renderer, 2)

	docs := svc.ScrapeAll(context.Background(), urls)
	require.Len(t, docs, 8)

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	assert.LessOrEqual(t, renderer.maxSeen, 2)
}

func TestScrapeAll_Empty(t *testing.T) {
	svc := newTestService(newFakeRenderer(), 2)

	docs := svc.ScrapeAll(context.Background(), nil)
	assert.Empty(t, docs)
}

func TestClose(t *testing.T) {
	renderer := newFakeRenderer()
	svc := newTestService(renderer, 2)

	require.NoError(t, svc.Close())

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	assert.Equal(t, 1, renderer.closeCalls)
}
