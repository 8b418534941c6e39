package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/webloader/internal/metrics"
	"github.com/jonesrussell/webloader/internal/scrape"
	"github.com/jonesrussell/webloader/internal/server"
)

// fakeScraper returns canned documents for known URLs, in input order.
type fakeScraper struct {
	docs map[string]*scrape.Document
}

func (f *fakeScraper) ScrapeAll(ctx context.Context, urls []string) []*scrape.Document {
	results := make([]*scrape.Document, 0, len(urls))
	for _, u := range urls {
		if doc, ok := f.docs[u]; ok {
			results = append(results, doc)
		}
	}
	return results
}

func newTestRouter(scraper Scraper) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	health := server.NewHealthHandler("webloader", "test")
	RegisterRoutes(router, scraper, health, metrics.New())

	return router
}

func TestLoad(t *testing.T) {
	scraper := &fakeScraper{docs: map[string]*scrape.Document{
		"https://example.com/a": {
			SourceURL: "https://example.com/a",
			Title:     "Alpha",
			Markdown:  "# Alpha\n\nbody",
		},
		"https://example.com/b": {
			SourceURL: "https://example.com/b",
			Markdown:  "# Beta\n\nbody",
		},
	}}
	router := newTestRouter(scraper)

	body := `{"urls": ["https://example.com/a", "https://example.com/broken", "https://example.com/b"]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var docs []DocumentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))

	// The failed URL is omitted, the rest keep request order.
	require.Len(t, docs, 2)
	assert.Equal(t, "https://example.com/a", docs[0].Metadata.Source)
	assert.Equal(t, "Alpha", docs[0].Metadata.Title)
	assert.Equal(t, "# Alpha\n\nbody", docs[0].PageContent)
	assert.Equal(t, "https://example.com/b", docs[1].Metadata.Source)
}

func TestLoad_EmptyURLList(t *testing.T) {
	router := newTestRouter(&fakeScraper{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"urls": []}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestLoad_InvalidBody(t *testing.T) {
	router := newTestRouter(&fakeScraper{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"urls": "not-an-array"`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid request body")
}

func TestLoad_AllFailed(t *testing.T) {
	router := newTestRouter(&fakeScraper{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"urls": ["https://example.com/gone"]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	// Failures are omitted rather than erroring the whole batch.
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestOpenAPISpec(t *testing.T) {
	router := newTestRouter(&fakeScraper{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api-docs/openapi.json", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var spec struct {
		OpenAPI string                     `json:"openapi"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &spec))
	assert.NotEmpty(t, spec.OpenAPI)
	assert.Contains(t, spec.Paths, "/")
	assert.Contains(t, spec.Paths, "/health")
	assert.Contains(t, spec.Paths, "/metrics")
}

func TestSwaggerUI(t *testing.T) {
	router := newTestRouter(&fakeScraper{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/swagger-ui/index.html", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swagger")
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&fakeScraper{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "webloader_")
}
