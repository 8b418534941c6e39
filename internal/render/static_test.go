package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/webloader/internal/urlguard"
)

func newTestStaticRenderer(maxBody int64) *StaticRenderer {
	return NewStaticRenderer(StaticConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "test-agent/1.0",
		MaxBodyBytes: maxBody,
		Guard:        urlguard.New(true),
	})
}

func TestStaticRenderer_Render(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><h1>Hello</h1></body></html>"))
	}))
	defer server.Close()

	renderer := newTestStaticRenderer(0)
	defer renderer.Close()

	page, err := renderer.Render(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, server.URL, page.URL)
	assert.Contains(t, page.HTML, "<h1>Hello</h1>")
}

func TestStaticRenderer_Mode(t *testing.T) {
	renderer := newTestStaticRenderer(0)
	defer renderer.Close()

	assert.Equal(t, ModeStatic, renderer.Mode())
}

func TestStaticRenderer_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+"/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>landed</body></html>"))
	})

	renderer := newTestStaticRenderer(0)
	defer renderer.Close()

	page, err := renderer.Render(context.Background(), server.URL+"/start")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/final", page.URL)
	assert.Contains(t, page.HTML, "landed")
}

func TestStaticRenderer_RedirectLimit(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	renderer := newTestStaticRenderer(0)
	defer renderer.Close()

	_, err := renderer.Render(context.Background(), server.URL+"/loop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many redirects")
}

func TestStaticRenderer_RedirectToPrivateBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://169.254.169.254/latest/meta-data/", http.StatusFound)
	}))
	defer server.Close()

	renderer := NewStaticRenderer(StaticConfig{
		Timeout:   5 * time.Second,
		UserAgent: "test-agent/1.0",
		// Private hosts disallowed, but the test server itself is loopback,
		// so dial it directly and rely on the redirect check.
		Guard: urlguard.New(false),
	})
	defer renderer.Close()

	// The initial request to the loopback test server is rejected by the
	// dialer itself, which also proves the private-IP check fires.
	_, err := renderer.Render(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private IP")
}

func TestStaticRenderer_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	renderer := newTestStaticRenderer(0)
	defer renderer.Close()

	_, err := renderer.Render(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestStaticRenderer_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("   \n\t  "))
	}))
	defer server.Close()

	renderer := newTestStaticRenderer(0)
	defer renderer.Close()

	_, err := renderer.Render(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrEmptyPage)
}

func TestStaticRenderer_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 2048)))
	}))
	defer server.Close()

	renderer := newTestStaticRenderer(1024)
	defer renderer.Close()

	_, err := renderer.Render(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content too large")
}

func TestStaticRenderer_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	renderer := newTestStaticRenderer(0)
	defer renderer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := renderer.Render(ctx, server.URL)
	require.Error(t, err)
}
