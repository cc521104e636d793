// handlers_batch.go - Batch export job handlers
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/qubitmask/backend/internal/models"
	"github.com/qubitmask/backend/internal/qubit"
)

// BatchHandlerImpl implements the BatchHandler interface
type BatchHandlerImpl struct {
	jobs    JobRunner
	catalog DesignCatalog
}

// NewBatchHandler creates a new batch export handler instance
func NewBatchHandler(jobs JobRunner, catalog DesignCatalog) BatchHandler {
	return &BatchHandlerImpl{
		jobs:    jobs,
		catalog: catalog,
	}
}

// HandleStartBatch starts an async export job for many designs.
// Each designs entry is either a catalog ID or an inline design document;
// inline documents are registered in the catalog before the job starts.
func (h *BatchHandlerImpl) HandleStartBatch(c echo.Context) error {
	var req startBatchRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if len(req.Designs) == 0 {
		return NewValidationError("designs")
	}
	if len(req.Formats) == 0 {
		return NewValidationError("formats")
	}

	ids := make([]string, 0, len(req.Designs))
	for i, raw := range req.Designs {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			if id == "" {
				return NewValidationError("designs")
			}
			ids = append(ids, id)
			continue
		}

		q, err := qubit.FromJSON(raw)
		if err != nil {
			return NewDocumentError(err)
		}

		rec := &models.DesignRecord{
			ID:        uuid.New().String(),
			Name:      fmt.Sprintf("inline-%d", i+1),
			Params:    q.Params(),
			CreatedAt: time.Now(),
		}
		if err := h.catalog.Put(c.Request().Context(), rec); err != nil {
			return NewInternalError("failed to store inline design", err)
		}
		ids = append(ids, rec.ID)
	}

	job, err := h.jobs.StartJob(ids, req.Formats)
	if err != nil {
		return NewBadRequestError("invalid export request", err)
	}

	// Return the job immediately - clients track progress over the
	// websocket or by polling the job endpoint
	return c.JSON(http.StatusAccepted, job)
}

// HandleGetBatchJob returns the current state of one export job
func (h *BatchHandlerImpl) HandleGetBatchJob(c echo.Context) error {
	id := c.Param("jobId")
	if id == "" {
		return NewValidationError("jobId")
	}

	job, ok := h.jobs.GetJob(id)
	if !ok {
		return NewNotFoundError("job", id)
	}

	return c.JSON(http.StatusOK, job)
}

// HandleListBatchJobs returns all known export jobs, most recent first
func (h *BatchHandlerImpl) HandleListBatchJobs(c echo.Context) error {
	return c.JSON(http.StatusOK, h.jobs.ListJobs())
}

// Request/Response types

type startBatchRequest struct {
	Designs []json.RawMessage `json:"designs"`
	Formats []string          `json:"formats"`
}
