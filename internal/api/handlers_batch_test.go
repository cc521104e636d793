// handlers_batch_test.go - Tests for batch export job handlers
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/qubitmask/backend/internal/models"
)

func TestBatchHandler_HandleStartBatch(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantIDs int
		wantErr bool
		errCode string
	}{
		{
			name:    "design IDs",
			body:    `{"designs":["design-1","design-2"],"formats":["gds","svg"]}`,
			wantIDs: 2,
		},
		{
			name:    "no designs",
			body:    `{"designs":[],"formats":["gds"]}`,
			wantErr: true,
			errCode: "VALIDATION_ERROR",
		},
		{
			name:    "no formats",
			body:    `{"designs":["design-1"],"formats":[]}`,
			wantErr: true,
			errCode: "VALIDATION_ERROR",
		},
		{
			name:    "empty design ID",
			body:    `{"designs":[""],"formats":["gds"]}`,
			wantErr: true,
			errCode: "VALIDATION_ERROR",
		},
		{
			name:    "invalid inline document",
			body:    `{"designs":[{"junction":{}}],"formats":["gds"]}`,
			wantErr: true,
			errCode: "VALIDATION_ERROR",
		},
		{
			name:    "malformed body",
			body:    `{"designs": nope}`,
			wantErr: true,
			errCode: "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := newMockCatalog()
			runner := newMockJobRunner()
			handler := NewBatchHandler(runner, catalog)

			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/batch", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := handler.HandleStartBatch(c)

			if tt.wantErr {
				apiErr, ok := err.(*APIError)
				if !ok {
					t.Fatalf("expected APIError, got %T", err)
				}
				if apiErr.Code != tt.errCode {
					t.Errorf("expected error code %s, got %s", tt.errCode, apiErr.Code)
				}
				if runner.lastStarted() != nil {
					t.Error("no job should have been started")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusAccepted {
				t.Errorf("expected status 202, got %d", rec.Code)
			}

			var job models.ExportJob
			if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if job.ID == "" {
				t.Error("expected non-empty job ID")
			}
			if job.Status != models.JobStatusPending {
				t.Errorf("expected pending status, got %s", job.Status)
			}
			if job.DesignCount != tt.wantIDs {
				t.Errorf("expected %d designs in job, got %d", tt.wantIDs, job.DesignCount)
			}
			if got := runner.lastStarted(); len(got) != tt.wantIDs {
				t.Errorf("expected runner to receive %d design IDs, got %v", tt.wantIDs, got)
			}
		})
	}
}

func TestBatchHandler_InlineDocuments(t *testing.T) {
	catalog := newMockCatalog(testRecord("design-1", "transmon"))
	runner := newMockJobRunner()
	handler := NewBatchHandler(runner, catalog)

	doc := testDocument(t)
	body := fmt.Sprintf(`{"designs":["design-1",%s],"formats":["json"]}`, doc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/batch", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.HandleStartBatch(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected status 202, got %d", rec.Code)
	}

	// The inline document was registered as a design of its own.
	if n, _ := catalog.Count(c.Request().Context()); n != 2 {
		t.Errorf("expected 2 designs in catalog, got %d", n)
	}

	ids := runner.lastStarted()
	if len(ids) != 2 {
		t.Fatalf("expected 2 design IDs, got %v", ids)
	}
	if ids[0] != "design-1" {
		t.Errorf("expected first ID design-1, got %s", ids[0])
	}
	if ids[1] == "" || ids[1] == "design-1" {
		t.Errorf("expected generated ID for inline document, got %s", ids[1])
	}

	inline, err := catalog.Get(c.Request().Context(), ids[1])
	if err != nil {
		t.Fatalf("inline design not in catalog: %v", err)
	}
	if inline.Params != testParams() {
		t.Errorf("inline design params do not match document: %+v", inline.Params)
	}
	if inline.Name != "inline-2" {
		t.Errorf("expected generated name inline-2, got %s", inline.Name)
	}
}

func TestBatchHandler_InlineDocumentCatalogFailure(t *testing.T) {
	catalog := newMockCatalog()
	catalog.putErr = errCatalogDown
	runner := newMockJobRunner()
	handler := NewBatchHandler(runner, catalog)

	body := fmt.Sprintf(`{"designs":[%s],"formats":["json"]}`, testDocument(t))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/batch", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.HandleStartBatch(c)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != "INTERNAL_ERROR" {
		t.Errorf("expected error code INTERNAL_ERROR, got %s", apiErr.Code)
	}
}

func TestBatchHandler_HandleGetBatchJob(t *testing.T) {
	runner := newMockJobRunner()
	job, _ := runner.StartJob([]string{"design-1"}, []string{"gds"})
	handler := NewBatchHandler(runner, newMockCatalog())
	e := echo.New()

	t.Run("existing job", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/batch/:jobId", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("jobId")
		c.SetParamValues(job.ID)

		if err := handler.HandleGetBatchJob(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}

		var got models.ExportJob
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if got.ID != job.ID {
			t.Errorf("expected job %s, got %s", job.ID, got.ID)
		}
	})

	t.Run("missing job", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/batch/:jobId", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("jobId")
		c.SetParamValues("does-not-exist")

		err := handler.HandleGetBatchJob(c)
		apiErr, ok := err.(*APIError)
		if !ok {
			t.Fatalf("expected APIError, got %T", err)
		}
		if apiErr.Code != "NOT_FOUND" {
			t.Errorf("expected error code NOT_FOUND, got %s", apiErr.Code)
		}
	})
}

func TestBatchHandler_HandleListBatchJobs(t *testing.T) {
	runner := newMockJobRunner()
	runner.StartJob([]string{"design-1"}, []string{"gds"})
	runner.StartJob([]string{"design-2"}, []string{"svg"})
	handler := NewBatchHandler(runner, newMockCatalog())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/batch", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.HandleListBatchJobs(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var jobs []models.ExportJob
	if err := json.Unmarshal(rec.Body.Bytes(), &jobs); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(jobs))
	}
}
