// handlers_styles.go - Layer style palette handlers
package api

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/qubitmask/backend/internal/svg"
)

// StyleHandlerImpl implements the StyleHandler interface
type StyleHandlerImpl struct {
	styles StylePalette
	// stylesPath, when set, receives the raw YAML of every accepted
	// palette so it survives a restart.
	stylesPath string
}

// NewStyleHandler creates a new style handler instance
func NewStyleHandler(styles StylePalette, stylesPath string) StyleHandler {
	return &StyleHandlerImpl{
		styles:     styles,
		stylesPath: stylesPath,
	}
}

// HandleGetStyles returns the active layer style palette
func (h *StyleHandlerImpl) HandleGetStyles(c echo.Context) error {
	return c.JSON(http.StatusOK, h.styles.Current())
}

// HandleUpdateStyles accepts a layer styles YAML file as base64 JSON,
// validates it by parsing, and makes it the active palette
func (h *StyleHandlerImpl) HandleUpdateStyles(c echo.Context) error {
	var req uploadStylesRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := req.validate(); err != nil {
		return err
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}

	// Parse YAML to validate before anything is replaced
	styles, err := svg.ParseStylesFromReader(bytes.NewReader(decoded))
	if err != nil {
		return NewBadRequestError("invalid layer styles YAML", err)
	}

	if h.stylesPath != "" {
		if err := os.WriteFile(h.stylesPath, decoded, 0644); err != nil {
			return NewInternalError("failed to persist styles file", err)
		}
	}

	h.styles.Update(styles)

	return c.JSON(http.StatusOK, styles)
}

// Request/Response types

type uploadStylesRequest struct {
	Name string `json:"name"`
	Data string `json:"data"` // Base64-encoded YAML content
}

func (r *uploadStylesRequest) validate() error {
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.Data == "" {
		return NewValidationError("data")
	}
	return nil
}
