package render

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/jonesrussell/webloader/internal/logger"
)

// versionResolveTimeout bounds the /json/version metadata request.
const versionResolveTimeout = 10 * time.Second

// domWaitTimeout bounds the wait for the document body to appear.
const domWaitTimeout = 5 * time.Second

// Desktop viewport ranges for randomization.
const (
	viewportMinWidth  = 1280
	viewportMaxWidth  = 1920
	viewportMinHeight = 768
	viewportMaxHeight = 1080
)

// analyticsPatterns are request URL patterns aborted while rendering when
// analytics blocking is enabled.
var analyticsPatterns = []string{
	"*google-analytics.com*",
	"*googletagmanager.com*",
	"*doubleclick.net*",
	"*segment.io*",
	"*segment.com*",
	"*mixpanel.com*",
	"*hotjar.com*",
	"*connect.facebook.net*",
}

// ChromeConfig configures the remote browser renderer.
type ChromeConfig struct {
	// ConnectionURL is the browser's version-metadata endpoint
	// (http://host:port/json/version) or a ws:// debugger URL directly.
	ConnectionURL string
	// UserAgent overrides the browser user agent per page.
	UserAgent string
	// SettleDelay is an extra wait after load before capturing the DOM.
	SettleDelay time.Duration
	// NetworkIdleTimeout bounds the post-load idle wait.
	NetworkIdleTimeout time.Duration
	// BlockAnalytics aborts requests matching analyticsPatterns.
	BlockAnalytics bool
}

// ChromeRenderer renders pages through a remote headless Chrome reached
// over the DevTools protocol. The browser connection is established
// lazily and re-established after connection failures.
type ChromeRenderer struct {
	cfg ChromeConfig
	log logger.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// NewChromeRenderer creates a renderer for the given remote browser.
// It does not connect until the first render.
func NewChromeRenderer(cfg ChromeConfig, log logger.Logger) *ChromeRenderer {
	return &ChromeRenderer{
		cfg: cfg,
		log: log,
	}
}

// Mode identifies the renderer.
func (r *ChromeRenderer) Mode() string {
	return ModeChrome
}

// versionInfo is the subset of the /json/version payload the renderer needs.
type versionInfo struct {
	Browser              string `json:"Browser"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// ResolveWebSocketURL fetches the browser's version metadata and returns
// the websocket debugger URL, rewritten to the metadata endpoint's host so
// that browsers advertising a loopback address stay reachable across the
// container network.
func ResolveWebSocketURL(ctx context.Context, connectionURL string) (string, error) {
	parsed, err := url.Parse(connectionURL)
	if err != nil {
		return "", fmt.Errorf("parse connection URL: %w", err)
	}

	// A ws:// URL is already a debugger endpoint.
	if parsed.Scheme == "ws" || parsed.Scheme == "wss" {
		return connectionURL, nil
	}

	ctx, cancel := context.WithTimeout(ctx, versionResolveTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, connectionURL, nil)
	if err != nil {
		return "", fmt.Errorf("create version request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch browser version metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("browser version endpoint returned HTTP %d", resp.StatusCode)
	}

	var info versionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode version metadata: %w", err)
	}

	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("version metadata has no webSocketDebuggerUrl")
	}

	wsURL, err := url.Parse(info.WebSocketDebuggerURL)
	if err != nil {
		return "", fmt.Errorf("parse debugger URL: %w", err)
	}
	wsURL.Host = parsed.Host

	return wsURL.String(), nil
}

// CheckEndpoint verifies the configured browser endpoint is reachable.
// HTTP endpoints are probed through the version metadata; ws endpoints
// get a TCP dial, since the debugger socket does not serve /json/version.
func CheckEndpoint(ctx context.Context, connectionURL string) error {
	parsed, err := url.Parse(connectionURL)
	if err != nil {
		return fmt.Errorf("parse connection URL: %w", err)
	}

	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		_, err = ResolveWebSocketURL(ctx, connectionURL)
		return err
	}

	addr := parsed.Host
	if parsed.Port() == "" {
		port := "80"
		if parsed.Scheme == "wss" {
			port = "443"
		}
		addr = net.JoinHostPort(parsed.Hostname(), port)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial browser endpoint: %w", err)
	}
	return conn.Close()
}

// randomViewport picks a desktop-sized viewport for a render.
func randomViewport() (width, height int) {
	width = viewportMinWidth + rand.Intn(viewportMaxWidth-viewportMinWidth+1)
	height = viewportMinHeight + rand.Intn(viewportMaxHeight-viewportMinHeight+1)
	return width, height
}

// connect returns the shared browser connection, establishing it if needed.
func (r *ChromeRenderer) connect(ctx context.Context) (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	wsURL, err := ResolveWebSocketURL(ctx, r.cfg.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("resolve browser endpoint: %w", err)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	r.log.Info("Connected to remote browser",
		logger.String("endpoint", r.cfg.ConnectionURL),
	)

	r.browser = browser
	return browser, nil
}

// drop discards the shared connection so the next render reconnects.
func (r *ChromeRenderer) drop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		_ = r.browser.Close()
		r.browser = nil
	}
}

// Render navigates to the URL in a fresh page and captures the document
// HTML after the page settles.
func (r *ChromeRenderer) Render(ctx context.Context, target string) (*Page, error) {
	browser, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}

	// Stealth pages patch the common headless fingerprints (webdriver
	// flag, plugins, languages) before any page script runs.
	page, err := stealth.Page(browser)
	if err != nil {
		// Page creation failing usually means the connection died.
		r.drop()
		return nil, fmt.Errorf("create page: %w", err)
	}

	page = page.Context(ctx)
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			r.log.Debug("Failed to close page", logger.Error(closeErr))
		}
	}()

	if r.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: r.cfg.UserAgent,
		}); err != nil {
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}

	// A fixed viewport across renders is itself a fingerprint.
	width, height := randomViewport()
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}).Call(page); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if r.cfg.BlockAnalytics {
		router := page.HijackRequests()
		for _, pattern := range analyticsPatterns {
			if err := router.Add(pattern, "", func(h *rod.Hijack) {
				h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			}); err != nil {
				return nil, fmt.Errorf("install request hijack: %w", err)
			}
		}
		go router.Run()
		defer func() { _ = router.Stop() }()
	}

	if err := page.Navigate(target); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for load: %w", err)
	}

	// Give scripts a bounded window to settle before capture. None of
	// these waits is fatal: heavy pages are captured as-is when time
	// runs out.
	if err := page.Timeout(domWaitTimeout).WaitElementsMoreThan("body", 0); err != nil {
		r.log.Debug("Document body did not appear in time",
			logger.String("url", target),
			logger.Error(err),
		)
	}
	if r.cfg.NetworkIdleTimeout > 0 {
		if err := page.WaitIdle(r.cfg.NetworkIdleTimeout); err != nil {
			r.log.Debug("Page did not reach idle",
				logger.String("url", target),
				logger.Error(err),
			)
		}
	}
	if r.cfg.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.cfg.SettleDelay):
		}
	}

	docHTML, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("capture document: %w", err)
	}

	if strings.TrimSpace(docHTML) == "" {
		return nil, ErrEmptyPage
	}

	finalURL := target
	if info, infoErr := page.Info(); infoErr == nil && info.URL != "" {
		finalURL = info.URL
	}

	return &Page{
		URL:  finalURL,
		HTML: docHTML,
	}, nil
}

// Close disconnects from the remote browser.
func (r *ChromeRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}

	err := r.browser.Close()
	r.browser = nil
	return err
}
