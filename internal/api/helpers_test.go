// helpers_test.go - Shared fixtures for handler tests
package api

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/qubitmask/backend/internal/models"
	"github.com/qubitmask/backend/internal/qubit"
)

// mockCatalog implements DesignCatalog backed by a map.
type mockCatalog struct {
	mu      sync.Mutex
	designs map[string]*models.DesignRecord
	putErr  error
}

func newMockCatalog(records ...*models.DesignRecord) *mockCatalog {
	m := &mockCatalog{designs: make(map[string]*models.DesignRecord)}
	for _, rec := range records {
		m.designs[rec.ID] = rec
	}
	return m
}

func (m *mockCatalog) Put(ctx context.Context, rec *models.DesignRecord) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.designs[rec.ID] = rec
	return nil
}

func (m *mockCatalog) Get(ctx context.Context, id string) (*models.DesignRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.designs[id]
	if !ok {
		return nil, fmt.Errorf("design not found: %s", id)
	}
	return rec, nil
}

func (m *mockCatalog) List(ctx context.Context, limit int) ([]*models.DesignRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]*models.DesignRecord, 0, len(m.designs))
	for _, rec := range m.designs {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *mockCatalog) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.designs[id]; !ok {
		return fmt.Errorf("design not found: %s", id)
	}
	delete(m.designs, id)
	return nil
}

func (m *mockCatalog) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.designs), nil
}

// mockJobRunner implements JobRunner: every started job stays pending until
// the test advances it.
type mockJobRunner struct {
	mu       sync.Mutex
	jobs     map[string]*models.ExportJob
	started  [][]string // design IDs per StartJob call
	startErr error
}

func newMockJobRunner() *mockJobRunner {
	return &mockJobRunner{jobs: make(map[string]*models.ExportJob)}
}

func (m *mockJobRunner) StartJob(designIDs []string, formats []string) (*models.ExportJob, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job := models.NewExportJob(fmt.Sprintf("job-%d", len(m.jobs)+1), len(designIDs), formats)
	job.StartTime = time.Now().UnixMilli()
	m.jobs[job.ID] = job
	m.started = append(m.started, append([]string(nil), designIDs...))
	return job, nil
}

func (m *mockJobRunner) GetJob(id string) (*models.ExportJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	copied := *job
	return &copied, true
}

func (m *mockJobRunner) ListJobs() []*models.ExportJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := make([]*models.ExportJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		copied := *job
		jobs = append(jobs, &copied)
	}
	return jobs
}

func (m *mockJobRunner) lastStarted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.started) == 0 {
		return nil
	}
	return m.started[len(m.started)-1]
}

var errCatalogDown = errors.New("catalog unavailable")

func testParams() qubit.Params {
	return qubit.Params{
		JunctionWidth:    2.0,
		JunctionHeight:   0.4,
		JunctionOffset:   0.2,
		WireWidth:        0.3,
		WireHeight:       10.0,
		ConnectionRadius: 4.0,
		JunctionLayer:    2,
		ConnectionLayer:  0,
		WireLayer:        1,
	}
}

func testRecord(id, name string) *models.DesignRecord {
	return &models.DesignRecord{
		ID:        id,
		Name:      name,
		Params:    testParams(),
		CreatedAt: time.Now(),
	}
}

// testDocument returns a valid four-group design document.
func testDocument(t *testing.T) string {
	t.Helper()
	doc, err := qubit.New(testParams()).Serialize("")
	if err != nil {
		t.Fatalf("failed to build test document: %v", err)
	}
	return doc
}
