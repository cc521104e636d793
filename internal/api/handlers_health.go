// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	catalog DesignCatalog
	version string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(catalog DesignCatalog, version string) HealthHandler {
	return &HealthHandlerImpl{
		catalog: catalog,
		version: version,
	}
}

// HandleHealth returns server health status. The catalog count doubles as a
// database reachability probe.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}

	if h.catalog != nil {
		if n, err := h.catalog.Count(c.Request().Context()); err == nil {
			resp["designs"] = n
		} else {
			resp["status"] = "degraded"
		}
	}

	return c.JSON(http.StatusOK, resp)
}
