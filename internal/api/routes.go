// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/qubitmask/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Catalog       DesignCatalog
	Workspace     LayoutWorkspace
	Jobs          JobRunner
	Store         storage.Store
	Styles        StylePalette
	StylesPath    string
	AllowDeletion bool
	Version       string
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Design    DesignHandler
	File      FileHandler
	Style     StyleHandler
	Batch     BatchHandler
	JobSocket *JobSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Catalog, deps.Version),
		Design:    NewDesignHandler(deps.Catalog, deps.Workspace, deps.Store, deps.Styles, deps.AllowDeletion),
		File:      NewFileHandler(deps.Store, deps.AllowDeletion),
		Style:     NewStyleHandler(deps.Styles, deps.StylesPath),
		Batch:     NewBatchHandler(deps.Jobs, deps.Catalog),
		JobSocket: NewJobSocketHandler(deps.Jobs),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/health", handlers.Health.HandleHealth)
	e.GET("/api/health", handlers.Health.HandleHealth)

	// Design catalog routes
	designGroup := e.Group("/api/designs")
	designGroup.POST("", handlers.Design.HandleCreateDesign)
	designGroup.GET("", handlers.Design.HandleListDesigns)
	designGroup.GET("/:id", handlers.Design.HandleGetDesign)
	designGroup.DELETE("/:id", handlers.Design.HandleDeleteDesign)
	designGroup.GET("/:id/document", handlers.Design.HandleGetDesignDocument)
	designGroup.GET("/:id/layout", handlers.Design.HandleGetDesignLayout)
	designGroup.GET("/:id/layout/msgpack", handlers.Design.HandleGetDesignLayoutMsgpack)
	designGroup.POST("/:id/export", handlers.Design.HandleExportDesign)

	// Exported artifact routes
	fileGroup := e.Group("/api/files")
	fileGroup.GET("/recent", handlers.File.HandleGetRecentFiles)
	fileGroup.GET("/:id", handlers.File.HandleGetFile)
	fileGroup.GET("/:id/download", handlers.File.HandleDownloadFile)
	fileGroup.DELETE("/:id", handlers.File.HandleDeleteFile)
	fileGroup.PUT("/:id", handlers.File.HandleRenameFile)

	// Layer style routes
	styleGroup := e.Group("/api/styles")
	styleGroup.GET("", handlers.Style.HandleGetStyles)
	styleGroup.POST("", handlers.Style.HandleUpdateStyles)

	// Batch export routes
	batchGroup := e.Group("/api/batch")
	batchGroup.POST("", handlers.Batch.HandleStartBatch)
	batchGroup.GET("", handlers.Batch.HandleListBatchJobs)
	batchGroup.GET("/:jobId", handlers.Batch.HandleGetBatchJob)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/ws/jobs", handlers.JobSocket.HandleWebSocket)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler
}
