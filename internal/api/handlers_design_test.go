// handlers_design_test.go - Tests for design catalog and layout handlers
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/qubitmask/backend/internal/models"
	"github.com/qubitmask/backend/internal/qubit"
	"github.com/qubitmask/backend/internal/svg"
	"github.com/qubitmask/backend/internal/testutil"
	"github.com/qubitmask/backend/internal/workspace"
)

func newTestDesignHandler(catalog DesignCatalog, store *testutil.MockStorage, allowDeletion bool) DesignHandler {
	return NewDesignHandler(catalog, workspace.NewManager(), store, svg.NewStyleStore(nil), allowDeletion)
}

func TestDesignHandler_HandleCreateDesign(t *testing.T) {
	tests := []struct {
		name        string
		designName  string
		body        string
		useValidDoc bool
		wantStatus  int
		wantErr     bool
		errCode     string
	}{
		{
			name:        "valid document",
			designName:  "transmon",
			useValidDoc: true,
			wantStatus:  http.StatusCreated,
			wantErr:     false,
		},
		{
			name:        "missing name",
			designName:  "",
			useValidDoc: true,
			wantStatus:  http.StatusBadRequest,
			wantErr:     true,
			errCode:     "VALIDATION_ERROR",
		},
		{
			name:       "empty body",
			designName: "transmon",
			body:       "",
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name:       "document missing groups",
			designName: "transmon",
			body:       `{"junction": {"width": 2.0, "height": 0.4, "offset": 0.2}}`,
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name:       "not JSON at all",
			designName: "transmon",
			body:       "not a document",
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := newMockCatalog()
			handler := newTestDesignHandler(catalog, testutil.NewMockStorage(), true)

			body := tt.body
			if tt.useValidDoc {
				body = testDocument(t)
			}

			e := echo.New()
			target := "/api/designs"
			if tt.designName != "" {
				target += "?name=" + tt.designName
			}
			req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := handler.HandleCreateDesign(c)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
					return
				}
				apiErr, ok := err.(*APIError)
				if !ok {
					t.Errorf("expected APIError, got %T", err)
					return
				}
				if apiErr.Status != tt.wantStatus {
					t.Errorf("expected status %d, got %d", tt.wantStatus, apiErr.Status)
				}
				if apiErr.Code != tt.errCode {
					t.Errorf("expected error code %s, got %s", tt.errCode, apiErr.Code)
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			var response models.DesignRecord
			if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
				t.Errorf("failed to unmarshal response: %v", err)
				return
			}
			if response.ID == "" {
				t.Error("expected non-empty ID in response")
			}
			if response.Name != tt.designName {
				t.Errorf("expected name %s, got %s", tt.designName, response.Name)
			}
			if response.Params != testParams() {
				t.Errorf("stored params do not match document: %+v", response.Params)
			}

			if n, _ := catalog.Count(c.Request().Context()); n != 1 {
				t.Errorf("expected 1 design in catalog, got %d", n)
			}
		})
	}
}

func TestDesignHandler_HandleGetDesign(t *testing.T) {
	catalog := newMockCatalog(testRecord("design-1", "transmon"))
	handler := newTestDesignHandler(catalog, testutil.NewMockStorage(), true)
	e := echo.New()

	t.Run("existing design", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/designs/:id", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("design-1")

		if err := handler.HandleGetDesign(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}

		var response models.DesignRecord
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if response.ID != "design-1" || response.Name != "transmon" {
			t.Errorf("unexpected record: %+v", response)
		}
	})

	t.Run("missing design", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/designs/:id", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("does-not-exist")

		err := handler.HandleGetDesign(c)
		apiErr, ok := err.(*APIError)
		if !ok {
			t.Fatalf("expected APIError, got %T", err)
		}
		if apiErr.Code != "NOT_FOUND" {
			t.Errorf("expected error code NOT_FOUND, got %s", apiErr.Code)
		}
	})
}

func TestDesignHandler_HandleListDesigns(t *testing.T) {
	catalog := newMockCatalog(
		testRecord("design-1", "one"),
		testRecord("design-2", "two"),
		testRecord("design-3", "three"),
	)
	handler := newTestDesignHandler(catalog, testutil.NewMockStorage(), true)
	e := echo.New()

	t.Run("all designs", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/designs", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler.HandleListDesigns(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var designs []models.DesignRecord
		if err := json.Unmarshal(rec.Body.Bytes(), &designs); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if len(designs) != 3 {
			t.Errorf("expected 3 designs, got %d", len(designs))
		}
	})

	t.Run("respects limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/designs?limit=2", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler.HandleListDesigns(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var designs []models.DesignRecord
		if err := json.Unmarshal(rec.Body.Bytes(), &designs); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if len(designs) != 2 {
			t.Errorf("expected 2 designs, got %d", len(designs))
		}
	})
}

func TestDesignHandler_HandleDeleteDesign(t *testing.T) {
	t.Run("deletes and invalidates cached layout", func(t *testing.T) {
		rec1 := testRecord("design-1", "transmon")
		catalog := newMockCatalog(rec1)
		ws := workspace.NewManager()
		handler := NewDesignHandler(catalog, ws, testutil.NewMockStorage(), svg.NewStyleStore(nil), true)

		// Draw once so the workspace holds a layout to invalidate.
		ws.Document(rec1)
		if ws.Len() != 1 {
			t.Fatalf("expected 1 cached layout, got %d", ws.Len())
		}

		e := echo.New()
		req := httptest.NewRequest(http.MethodDelete, "/api/designs/:id", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("design-1")

		if err := handler.HandleDeleteDesign(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rec.Code)
		}
		if n, _ := catalog.Count(c.Request().Context()); n != 0 {
			t.Errorf("expected empty catalog, got %d designs", n)
		}
		if ws.Len() != 0 {
			t.Errorf("expected cached layout to be invalidated, %d remain", ws.Len())
		}
	})

	t.Run("deletion disabled", func(t *testing.T) {
		catalog := newMockCatalog(testRecord("design-1", "transmon"))
		handler := newTestDesignHandler(catalog, testutil.NewMockStorage(), false)

		e := echo.New()
		req := httptest.NewRequest(http.MethodDelete, "/api/designs/:id", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("design-1")

		err := handler.HandleDeleteDesign(c)
		apiErr, ok := err.(*APIError)
		if !ok {
			t.Fatalf("expected APIError, got %T", err)
		}
		if apiErr.Code != "FORBIDDEN" {
			t.Errorf("expected error code FORBIDDEN, got %s", apiErr.Code)
		}
		if n, _ := catalog.Count(c.Request().Context()); n != 1 {
			t.Errorf("design should not have been deleted")
		}
	})

	t.Run("missing design", func(t *testing.T) {
		handler := newTestDesignHandler(newMockCatalog(), testutil.NewMockStorage(), true)

		e := echo.New()
		req := httptest.NewRequest(http.MethodDelete, "/api/designs/:id", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("does-not-exist")

		err := handler.HandleDeleteDesign(c)
		apiErr, ok := err.(*APIError)
		if !ok {
			t.Fatalf("expected APIError, got %T", err)
		}
		if apiErr.Code != "NOT_FOUND" {
			t.Errorf("expected error code NOT_FOUND, got %s", apiErr.Code)
		}
	})
}

func TestDesignHandler_HandleGetDesignDocument(t *testing.T) {
	catalog := newMockCatalog(testRecord("design-1", "transmon"))
	handler := newTestDesignHandler(catalog, testutil.NewMockStorage(), true)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/designs/:id/document", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("design-1")

	if err := handler.HandleGetDesignDocument(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}
	for _, group := range []string{"junction", "wire", "connection", "layers"} {
		if _, ok := doc[group]; !ok {
			t.Errorf("document missing group %q", group)
		}
	}
	if len(doc) != 4 {
		t.Errorf("expected exactly 4 groups, got %d", len(doc))
	}

	// The document must round-trip back through the validator.
	q, err := qubit.FromJSON(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("document failed re-validation: %v", err)
	}
	if q.Params() != testParams() {
		t.Errorf("round-tripped params do not match: %+v", q.Params())
	}
}

func TestDesignHandler_HandleGetDesignLayout(t *testing.T) {
	catalog := newMockCatalog(testRecord("design-1", "transmon"))
	handler := newTestDesignHandler(catalog, testutil.NewMockStorage(), true)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/designs/:id/layout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("design-1")

	if err := handler.HandleGetDesignLayout(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var doc models.LayoutDocument
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("failed to unmarshal layout: %v", err)
	}
	if doc.DesignID != "design-1" {
		t.Errorf("expected designId design-1, got %s", doc.DesignID)
	}
	if len(doc.Shapes) != 5 {
		t.Errorf("expected 5 shapes, got %d", len(doc.Shapes))
	}
	if len(doc.Layers) != 3 {
		t.Errorf("expected 3 layers, got %v", doc.Layers)
	}
	if doc.Bounds == nil {
		t.Error("expected bounds to be set")
	}
}

func TestDesignHandler_HandleGetDesignLayoutMsgpack(t *testing.T) {
	catalog := newMockCatalog(testRecord("design-1", "transmon"))
	handler := newTestDesignHandler(catalog, testutil.NewMockStorage(), true)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/designs/:id/layout/msgpack", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("design-1")

	if err := handler.HandleGetDesignLayoutMsgpack(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/msgpack") {
		t.Errorf("expected msgpack content type, got %s", ct)
	}

	var doc models.LayoutDocument
	if err := msgpack.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("failed to unmarshal msgpack layout: %v", err)
	}
	if len(doc.Shapes) != 5 {
		t.Errorf("expected 5 shapes, got %d", len(doc.Shapes))
	}
}

func TestDesignHandler_HandleExportDesign(t *testing.T) {
	tests := []struct {
		name       string
		designID   string
		body       string
		wantStatus int
		wantName   string
		wantErr    bool
		errCode    string
		checkData  func(t *testing.T, data []byte)
	}{
		{
			name:       "gds export",
			designID:   "design-1",
			body:       `{"format":"gds"}`,
			wantStatus: http.StatusCreated,
			wantName:   "transmon.gds",
			checkData: func(t *testing.T, data []byte) {
				if len(data) < 4 || data[0] != 0x00 || data[1] != 0x06 || data[2] != 0x00 || data[3] != 0x02 {
					t.Error("artifact does not start with a GDSII HEADER record")
				}
			},
		},
		{
			name:       "svg export",
			designID:   "design-1",
			body:       `{"format":"svg"}`,
			wantStatus: http.StatusCreated,
			wantName:   "transmon.svg",
			checkData: func(t *testing.T, data []byte) {
				if !bytes.Contains(data, []byte("<svg")) {
					t.Error("artifact is not an SVG document")
				}
			},
		},
		{
			name:       "json export",
			designID:   "design-1",
			body:       `{"format":"json"}`,
			wantStatus: http.StatusCreated,
			wantName:   "transmon.json",
			checkData: func(t *testing.T, data []byte) {
				if !bytes.Contains(data, []byte(`"junction"`)) {
					t.Error("artifact is not a design document")
				}
			},
		},
		{
			name:       "custom filename",
			designID:   "design-1",
			body:       `{"format":"gds","filename":"tapeout_v2.gds"}`,
			wantStatus: http.StatusCreated,
			wantName:   "tapeout_v2.gds",
		},
		{
			name:       "unsupported format",
			designID:   "design-1",
			body:       `{"format":"png"}`,
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name:       "missing design",
			designID:   "does-not-exist",
			body:       `{"format":"gds"}`,
			wantStatus: http.StatusNotFound,
			wantErr:    true,
			errCode:    "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := newMockCatalog(testRecord("design-1", "transmon"))
			store := testutil.NewMockStorage()
			handler := newTestDesignHandler(catalog, store, true)

			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/designs/:id/export", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("id")
			c.SetParamValues(tt.designID)

			err := handler.HandleExportDesign(c)

			if tt.wantErr {
				apiErr, ok := err.(*APIError)
				if !ok {
					t.Fatalf("expected APIError, got %T", err)
				}
				if apiErr.Status != tt.wantStatus {
					t.Errorf("expected status %d, got %d", tt.wantStatus, apiErr.Status)
				}
				if apiErr.Code != tt.errCode {
					t.Errorf("expected error code %s, got %s", tt.errCode, apiErr.Code)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			var info models.FileInfo
			if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if info.Name != tt.wantName {
				t.Errorf("expected artifact name %s, got %s", tt.wantName, info.Name)
			}
			if info.DesignID != "design-1" {
				t.Errorf("expected designId design-1, got %s", info.DesignID)
			}
			if info.Size == 0 {
				t.Error("expected non-empty artifact")
			}

			if tt.checkData != nil {
				data, err := store.GetFileData(info.ID)
				if err != nil {
					t.Fatalf("artifact not in storage: %v", err)
				}
				tt.checkData(t, data)
			}
		})
	}
}
