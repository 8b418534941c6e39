// Package render loads target pages and captures their final HTML, either
// through a remote headless Chrome or a plain HTTP fetch.
package render

import (
	"context"
	"errors"
)

// Render modes reported in logs and metrics.
const (
	ModeChrome = "chrome"
	ModeStatic = "static"
)

// ErrEmptyPage is returned when a page loads but yields no usable HTML.
var ErrEmptyPage = errors.New("page rendered empty")

// Page is a captured page.
type Page struct {
	// URL is the final URL after redirects.
	URL string
	// HTML is the serialized document after rendering.
	HTML string
}

// Renderer loads a single URL and captures the resulting document.
type Renderer interface {
	// Render navigates to url and returns the captured page. The context
	// bounds the whole operation.
	Render(ctx context.Context, url string) (*Page, error)
	// Mode identifies the renderer for logs and metrics.
	Mode() string
	// Close releases renderer resources.
	Close() error
}
