// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/qubitmask/backend/internal/models"
	"github.com/qubitmask/backend/internal/qubit"
	"github.com/qubitmask/backend/internal/svg"
)

// DesignHandler handles design catalog and layout operations
type DesignHandler interface {
	HandleCreateDesign(c echo.Context) error
	HandleListDesigns(c echo.Context) error
	HandleGetDesign(c echo.Context) error
	HandleDeleteDesign(c echo.Context) error
	HandleGetDesignDocument(c echo.Context) error
	HandleGetDesignLayout(c echo.Context) error
	HandleGetDesignLayoutMsgpack(c echo.Context) error
	HandleExportDesign(c echo.Context) error
}

// FileHandler handles exported artifact operations
type FileHandler interface {
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDownloadFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
	HandleRenameFile(c echo.Context) error
}

// StyleHandler handles layer style palette operations
type StyleHandler interface {
	HandleGetStyles(c echo.Context) error
	HandleUpdateStyles(c echo.Context) error
}

// BatchHandler handles batch export job operations
type BatchHandler interface {
	HandleStartBatch(c echo.Context) error
	HandleGetBatchJob(c echo.Context) error
	HandleListBatchJobs(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// DesignCatalog defines the catalog subset used by handlers.
// This allows mocking in tests
type DesignCatalog interface {
	Put(ctx context.Context, rec *models.DesignRecord) error
	Get(ctx context.Context, id string) (*models.DesignRecord, error)
	List(ctx context.Context, limit int) ([]*models.DesignRecord, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// LayoutWorkspace hands out drawn layouts for stored designs.
type LayoutWorkspace interface {
	Document(rec *models.DesignRecord) *models.LayoutDocument
	Descriptor(rec *models.DesignRecord) *qubit.Qubit
	Invalidate(designID string)
}

// JobRunner defines the batch manager subset used by handlers and the
// job progress socket.
type JobRunner interface {
	StartJob(designIDs []string, formats []string) (*models.ExportJob, error)
	GetJob(id string) (*models.ExportJob, bool)
	ListJobs() []*models.ExportJob
}

// StylePalette holds the active layer styles shared with exporters.
type StylePalette interface {
	Current() *svg.Styles
	Update(styles *svg.Styles)
}
