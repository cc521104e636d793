// Package batch runs asynchronous export jobs that render stored designs
// into mask artifacts.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qubitmask/backend/internal/gds"
	"github.com/qubitmask/backend/internal/models"
	"github.com/qubitmask/backend/internal/qubit"
	"github.com/qubitmask/backend/internal/svg"
)

// DesignSource resolves design IDs to stored records.
type DesignSource interface {
	Get(ctx context.Context, id string) (*models.DesignRecord, error)
}

// Drawer supplies drawn descriptors for designs.
type Drawer interface {
	Descriptor(rec *models.DesignRecord) *qubit.Qubit
}

// Store receives the generated artifacts.
type Store interface {
	SaveBytes(name, format, designID string, data []byte) (*models.FileInfo, error)
}

// StyleSource supplies the active layer styles for SVG rendering.
type StyleSource interface {
	Current() *svg.Styles
}

// Manager handles async export jobs.
type Manager struct {
	jobs    map[string]*models.ExportJob
	mu      sync.RWMutex
	designs DesignSource
	drawer  Drawer
	store   Store
	styles  StyleSource
	sem     chan struct{}
}

// NewManager creates a new export job manager. maxConcurrent bounds the
// number of jobs rendering at once.
func NewManager(designs DesignSource, drawer Drawer, store Store, styles StyleSource, maxConcurrent int) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &Manager{
		jobs:    make(map[string]*models.ExportJob),
		designs: designs,
		drawer:  drawer,
		store:   store,
		styles:  styles,
		sem:     make(chan struct{}, maxConcurrent),
	}
}

// StartJob begins async export of the given designs in the given formats.
func (m *Manager) StartJob(designIDs []string, formats []string) (*models.ExportJob, error) {
	if len(designIDs) == 0 {
		return nil, fmt.Errorf("no designs requested")
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("no formats requested")
	}
	for _, f := range formats {
		if !models.ValidExportFormat(f) {
			return nil, fmt.Errorf("unsupported format: %s", f)
		}
	}

	job := models.NewExportJob(uuid.New().String(), len(designIDs), formats)
	job.StartTime = time.Now().UnixMilli()

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	// Start async processing
	go m.processJob(job.ID, designIDs, formats)

	return m.snapshot(job), nil
}

// GetJob retrieves a snapshot of a job by ID. The copy can be marshaled
// without holding the manager lock.
func (m *Manager) GetJob(id string) (*models.ExportJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	return m.snapshotLocked(job), true
}

// ListJobs returns snapshots of all jobs, most recent first.
func (m *Manager) ListJobs() []*models.ExportJob {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*models.ExportJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		list = append(list, m.snapshotLocked(job))
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].StartTime > list[j].StartTime
	})
	return list
}

// processJob renders every requested design/format pair.
func (m *Manager) processJob(jobID string, designIDs, formats []string) {
	// Recover from panics to prevent backend crash
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[ExportJob %s] PANIC recovered: %v\n", shortID(jobID), r)
			m.markJobError(jobID, fmt.Sprintf("export panicked: %v", r))
		}
	}()

	m.sem <- struct{}{}
	defer func() { <-m.sem }()

	fmt.Printf("[ExportJob %s] Starting export of %d designs (%v)\n",
		shortID(jobID), len(designIDs), formats)

	m.updateJob(jobID, func(job *models.ExportJob) {
		job.Status = models.JobStatusRunning
		job.Stage = "loading designs"
	})

	total := len(designIDs) * len(formats)
	done := 0

	for _, designID := range designIDs {
		rec, err := m.designs.Get(context.Background(), designID)
		if err != nil {
			m.updateJob(jobID, func(job *models.ExportJob) {
				job.Errors = append(job.Errors, models.ExportError{
					DesignID: designID,
					Reason:   err.Error(),
				})
			})
			done += len(formats)
			m.updateProgress(jobID, done, total)
			continue
		}

		q := m.drawer.Descriptor(rec)

		for _, format := range formats {
			m.updateJob(jobID, func(job *models.ExportJob) {
				job.Stage = fmt.Sprintf("rendering %s for %s", format, rec.Name)
			})

			data, err := m.render(q, format)
			if err != nil {
				m.updateJob(jobID, func(job *models.ExportJob) {
					job.Errors = append(job.Errors, models.ExportError{
						DesignID: designID,
						Format:   format,
						Reason:   err.Error(),
					})
				})
				done++
				m.updateProgress(jobID, done, total)
				continue
			}

			info, err := m.store.SaveBytes(ArtifactName(rec.Name, format), format, designID, data)
			if err != nil {
				m.updateJob(jobID, func(job *models.ExportJob) {
					job.Errors = append(job.Errors, models.ExportError{
						DesignID: designID,
						Format:   format,
						Reason:   err.Error(),
					})
				})
			} else {
				m.updateJob(jobID, func(job *models.ExportJob) {
					job.Outputs = append(job.Outputs, *info)
				})
			}

			done++
			m.updateProgress(jobID, done, total)
		}
	}

	m.markJobDone(jobID)
}

// render produces the artifact bytes for one design in one format using the
// manager's active styles.
func (m *Manager) render(q *qubit.Qubit, format string) ([]byte, error) {
	var styles *svg.Styles
	if m.styles != nil {
		styles = m.styles.Current()
	}
	return Render(q, format, styles)
}

// Render produces the artifact bytes for one design in one format. A nil
// styles falls back to the built-in palette.
func Render(q *qubit.Qubit, format string, styles *svg.Styles) ([]byte, error) {
	switch format {
	case models.FormatGDS:
		var buf bytes.Buffer
		if err := gds.NewEncoder(&buf).EncodeLibrary(q.Library()); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case models.FormatSVG:
		var buf bytes.Buffer
		if err := svg.WriteCell(&buf, q.Layout(), styles); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case models.FormatJSON:
		doc, err := q.Serialize("")
		if err != nil {
			return nil, err
		}
		return []byte(doc), nil
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}

// updateJob applies a mutation to a job under the lock.
func (m *Manager) updateJob(jobID string, fn func(job *models.ExportJob)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[jobID]; ok {
		fn(job)
	}
}

func (m *Manager) updateProgress(jobID string, done, total int) {
	m.updateJob(jobID, func(job *models.ExportJob) {
		job.Progress = float64(done) / float64(total) * 100
	})
}

// markJobDone finishes a job, downgrading to error status when nothing was
// produced at all.
func (m *Manager) markJobDone(jobID string) {
	m.updateJob(jobID, func(job *models.ExportJob) {
		if len(job.Outputs) == 0 && len(job.Errors) > 0 {
			job.Status = models.JobStatusError
		} else {
			job.Status = models.JobStatusComplete
		}
		job.Progress = 100
		job.Stage = ""
		job.EndTime = time.Now().UnixMilli()
		fmt.Printf("[ExportJob %s] Finished: %d artifacts, %d errors\n",
			shortID(job.ID), len(job.Outputs), len(job.Errors))
	})
}

func (m *Manager) markJobError(jobID string, reason string) {
	m.updateJob(jobID, func(job *models.ExportJob) {
		job.Status = models.JobStatusError
		job.Errors = append(job.Errors, models.ExportError{Reason: reason})
		job.EndTime = time.Now().UnixMilli()
	})
}

// CleanupOldJobs removes finished jobs older than the specified duration.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge).UnixMilli()
	for id, job := range m.jobs {
		if job.Status == models.JobStatusComplete || job.Status == models.JobStatusError {
			if job.EndTime > 0 && job.EndTime < cutoff {
				delete(m.jobs, id)
			}
		}
	}
}

func (m *Manager) snapshot(job *models.ExportJob) *models.ExportJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(job)
}

// snapshotLocked copies a job so callers never share slices with the live
// record. Caller must hold at least a read lock.
func (m *Manager) snapshotLocked(job *models.ExportJob) *models.ExportJob {
	copied := *job
	copied.Formats = append([]string(nil), job.Formats...)
	copied.Outputs = append([]models.FileInfo(nil), job.Outputs...)
	copied.Errors = append([]models.ExportError(nil), job.Errors...)
	return &copied
}

// ArtifactName builds the stored file name for a rendered design.
func ArtifactName(designName, format string) string {
	if designName == "" {
		designName = "design"
	}
	return designName + "." + format
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
