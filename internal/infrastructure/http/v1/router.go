// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"feedvalidator/internal/feed"
	"feedvalidator/internal/infrastructure/cache"
	"feedvalidator/internal/infrastructure/http/v1/handlers"
	"feedvalidator/internal/infrastructure/http/v1/middleware"
	"feedvalidator/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Validator validates uploaded feeds against the loaded schema
	Validator *feed.Validator

	// Workers is reported by /health/info
	Workers int

	// MaxUploadBytes limits the size of an uploaded feed; 0 means no limit
	MaxUploadBytes int64

	// Reports keeps recent reports for GET /api/v1/reports/:runId; nil disables it
	Reports *cache.ReportStore
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	if cfg.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = min(cfg.MaxUploadBytes, 32<<20)
	}

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Validator.Plan(), cfg.Workers)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	{
		registerSchemaRoutes(v1, cfg)
		registerValidateRoutes(v1, cfg)
		registerReportRoutes(v1, cfg)
	}

	return router
}

// registerSchemaRoutes registers the read-only schema endpoints.
func registerSchemaRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	handler := handlers.NewSchemaHandler(handlers.NewBaseHandler(), cfg.Validator.Plan().Schema)
	schema := rg.Group("/schema")
	{
		schema.GET("", handler.ListTables)
		schema.GET("/:filename", handler.GetTable)
	}
}

// registerValidateRoutes registers feed validation.
func registerValidateRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	handler := handlers.NewValidateHandler(handlers.NewBaseHandler(), cfg.Validator, cfg.Reports, cfg.MaxUploadBytes)
	rg.POST("/validate", handler.Validate)
}

// registerReportRoutes registers retrieval of stored reports.
func registerReportRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.Reports == nil {
		return
	}

	handler := handlers.NewReportsHandler(handlers.NewBaseHandler(), cfg.Reports)
	rg.GET("/reports/:runId", handler.Get)
}
