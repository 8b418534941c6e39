package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/webloader/internal/logger"
	"github.com/jonesrussell/webloader/internal/scrape"
)

// Scraper runs the render pipeline for a batch of URLs.
type Scraper interface {
	ScrapeAll(ctx context.Context, urls []string) []*scrape.Document
}

// LoadHandler serves the batch load endpoint.
type LoadHandler struct {
	scraper Scraper
}

// NewLoadHandler creates the load handler.
func NewLoadHandler(scraper Scraper) *LoadHandler {
	return &LoadHandler{scraper: scraper}
}

// Load renders every requested URL and returns the successful documents.
// Failed and empty pages are omitted from the response.
func (h *LoadHandler) Load(c *gin.Context) {
	log := logger.FromContext(c.Request.Context())

	var req LoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug("Invalid request body",
			logger.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	log.Info("Load request received",
		logger.Int("url_count", len(req.URLs)),
	)

	docs := h.scraper.ScrapeAll(c.Request.Context(), req.URLs)

	response := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		response = append(response, DocumentResponse{
			PageContent: doc.Markdown,
			Metadata: DocumentMetadata{
				Source: doc.SourceURL,
				Title:  doc.Title,
			},
		})
	}

	log.Info("Load request completed",
		logger.Int("requested", len(req.URLs)),
		logger.Int("returned", len(response)),
	)

	c.JSON(http.StatusOK, response)
}
