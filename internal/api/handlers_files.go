// handlers_files.go - Exported artifact handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qubitmask/backend/internal/models"
	"github.com/qubitmask/backend/internal/storage"
)

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	store         storage.Store
	allowDeletion bool
}

// NewFileHandler creates a new artifact file handler instance
func NewFileHandler(store storage.Store, allowDeletion bool) FileHandler {
	return &FileHandlerImpl{
		store:         store,
		allowDeletion: allowDeletion,
	}
}

// HandleGetRecentFiles returns recently exported artifacts, optionally
// filtered by format
func (h *FileHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	files, err := h.store.List(50)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}

	if format := c.QueryParam("format"); format != "" {
		if !models.ValidExportFormat(format) {
			return NewValidationError("format")
		}
		files = filterByFormat(files, format)
	}

	// Limit to 20 after filtering
	if len(files) > 20 {
		files = files[:20]
	}

	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific artifact
func (h *FileHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDownloadFile streams the artifact bytes as an attachment
func (h *FileHandlerImpl) HandleDownloadFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	path, err := h.store.GetFilePath(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.Attachment(path, info.Name)
}

// HandleDeleteFile deletes an artifact and its metadata
func (h *FileHandlerImpl) HandleDeleteFile(c echo.Context) error {
	if !h.allowDeletion {
		return NewForbiddenError("deletion is disabled by configuration")
	}

	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("file", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleRenameFile updates the display name of an artifact
func (h *FileHandlerImpl) HandleRenameFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req renameFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if req.Name == "" {
		return NewValidationError("name")
	}

	info, err := h.store.Rename(id, req.Name)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// Request/Response types

type renameFileRequest struct {
	Name string `json:"name"`
}

// Helper functions

// filterByFormat keeps only artifacts of the given format
func filterByFormat(files []*models.FileInfo, format string) []*models.FileInfo {
	var matched []*models.FileInfo
	for _, f := range files {
		if f.Format == format {
			matched = append(matched, f)
		}
	}
	return matched
}
