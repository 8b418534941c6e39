// Package api wires the HTTP routes for the webloader service.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/webloader/internal/metrics"
	"github.com/jonesrussell/webloader/internal/server"
)

// RegisterRoutes mounts the load endpoint, health, and metrics on the router.
func RegisterRoutes(
	router *gin.Engine,
	scraper Scraper,
	health *server.HealthHandler,
	m *metrics.Metrics,
) {
	loadHandler := NewLoadHandler(scraper)
	router.POST("/", loadHandler.Load)

	health.RegisterRoutes(router)
	registerDocs(router)

	router.GET("/metrics", gin.WrapH(m.Handler()))
}
