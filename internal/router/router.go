package router

import (
	"html/template"

	"github.com/gin-gonic/gin"

	"docparser/internal/handler"
	"docparser/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	tmpl *template.Template,
	allowedOrigins []string,
	pageH *handler.PageHandler,
	parseH *handler.ParseHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(tmpl)

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	// Upload page
	r.GET("/", pageH.Index)
	r.POST("/parse", pageH.Parse)

	v1 := r.Group("/api/v1")
	v1.GET("/backends", parseH.Backends)
	v1.POST("/parse", parseH.Parse)

	return r
}
