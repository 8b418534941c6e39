package api

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//go:embed openapi.json
var openAPISpec []byte

// registerDocs serves the OpenAPI description and the interactive
// swagger UI pointed at it.
func registerDocs(router *gin.Engine) {
	router.GET("/api-docs/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openAPISpec)
	})

	router.GET("/swagger-ui/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/api-docs/openapi.json"),
	))
}
