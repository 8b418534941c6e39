package render

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jonesrussell/webloader/internal/urlguard"
)

// maxRedirects caps redirect chains in static mode.
const maxRedirects = 5

// StaticConfig configures the fallback HTTP fetcher.
type StaticConfig struct {
	// Timeout bounds the whole fetch.
	Timeout time.Duration
	// UserAgent is sent on outbound requests.
	UserAgent string
	// MaxBodyBytes limits the response body size.
	MaxBodyBytes int64
	// Guard validates redirect targets and, through the dialer, resolved
	// IPs (DNS rebinding protection).
	Guard *urlguard.Guard
}

// StaticRenderer fetches pages over plain HTTP without JavaScript
// execution. It is used when no remote browser is configured.
type StaticRenderer struct {
	cfg    StaticConfig
	client *http.Client
}

// NewStaticRenderer creates the fallback HTTP fetcher.
func NewStaticRenderer(cfg StaticConfig) *StaticRenderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 * 1024 * 1024
	}
	if cfg.Guard == nil {
		cfg.Guard = urlguard.New(false)
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	// Validate resolved IPs before connecting so that a hostname passing
	// the URL guard cannot be rebound to a private address.
	safeDialContext := func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}

		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("DNS lookup failed: %w", err)
		}

		if !cfg.Guard.AllowsPrivateHosts() {
			for _, ipAddr := range ips {
				if urlguard.IsPrivateIP(ipAddr.IP) {
					return nil, fmt.Errorf("connection to private IP %s is not allowed", ipAddr.IP)
				}
			}
		}

		var lastErr error
		for _, ipAddr := range ips {
			conn, dialErr := dialer.DialContext(ctx, network, net.JoinHostPort(ipAddr.IP.String(), port))
			if dialErr == nil {
				return conn, nil
			}
			lastErr = dialErr
		}

		if lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("no resolved IP for %s", host)
	}

	transport := &http.Transport{
		DialContext:           safeDialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			if err := cfg.Guard.Validate(req.URL.String()); err != nil {
				return fmt.Errorf("redirect blocked: %w", err)
			}
			return nil
		},
	}

	return &StaticRenderer{
		cfg:    cfg,
		client: client,
	}
}

// Mode identifies the renderer.
func (r *StaticRenderer) Mode() string {
	return ModeStatic
}

// Render fetches the URL and returns the response body as the page HTML.
func (r *StaticRenderer) Render(ctx context.Context, target string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if r.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", r.cfg.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	limitReader := io.LimitReader(resp.Body, r.cfg.MaxBodyBytes+1)
	body, err := io.ReadAll(limitReader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if int64(len(body)) > r.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("content too large (exceeds %d bytes)", r.cfg.MaxBodyBytes)
	}

	if strings.TrimSpace(string(body)) == "" {
		return nil, ErrEmptyPage
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Page{
		URL:  finalURL,
		HTML: string(body),
	}, nil
}

// Close is a no-op for the static renderer.
func (r *StaticRenderer) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
