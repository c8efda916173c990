package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bluecatalog/directory-api/internal/config"
	"github.com/bluecatalog/directory-api/internal/handler"
	middlewarepkg "github.com/bluecatalog/directory-api/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Records      *handler.RecordsHandler
	Upload       *handler.UploadHandler
	Verification *handler.VerificationHandler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, handlers Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})

	e.GET("/records", handlers.Records.List)
	e.POST("/records/:id/verification", handlers.Verification.Submit)

	admin := e.Group("/admin")
	admin.POST("/upload-csv", handlers.Upload.UploadCSV, middlewarepkg.UploadRateLimiter(cfg.RateLimitUpload))
}
