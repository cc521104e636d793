// Package workspace caches drawn layouts so repeated viewer and export
// requests do not redraw unchanged designs.
package workspace

import (
	"fmt"
	"sync"
	"time"

	"github.com/qubitmask/backend/internal/geometry"
	"github.com/qubitmask/backend/internal/models"
	"github.com/qubitmask/backend/internal/qubit"
)

// DefaultCapacity limits cached layouts to prevent memory exhaustion
const DefaultCapacity = 256

// LayoutMaxAge is how long to keep cached layouts before cleanup
const LayoutMaxAge = 30 * time.Minute

// KeepAliveWindow is how long to keep layouts that are actively being used
const KeepAliveWindow = 5 * time.Minute

// Manager caches drawn layouts keyed by design ID.
type Manager struct {
	mu        sync.RWMutex
	layouts   map[string]*layoutState
	capacity  int
	tolerance float64
}

// layoutState holds the drawn descriptor, its viewer document and keep-alive bookkeeping.
type layoutState struct {
	params       qubit.Params
	qubit        *qubit.Qubit
	document     *models.LayoutDocument
	lastAccessed time.Time
}

// NewManager creates a layout workspace with the default capacity.
func NewManager() *Manager {
	return NewManagerWithCapacity(DefaultCapacity)
}

// NewManagerWithCapacity creates a layout workspace holding at most capacity layouts.
func NewManagerWithCapacity(capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		layouts:  make(map[string]*layoutState),
		capacity: capacity,
	}
}

// SetCircleTolerance sets the tessellation tolerance for newly drawn layouts
// and drops anything drawn with the previous tolerance.
func (m *Manager) SetCircleTolerance(tolerance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tolerance = tolerance
	m.layouts = make(map[string]*layoutState)
}

// Document returns the viewer document for a design, drawing it on first
// access. A design whose parameters changed since the last draw is redrawn.
func (m *Manager) Document(rec *models.DesignRecord) *models.LayoutDocument {
	if state := m.lookup(rec); state != nil {
		return state.document
	}
	return m.draw(rec).document
}

// Descriptor returns the drawn descriptor for a design so exporters can
// reuse its cached cells.
func (m *Manager) Descriptor(rec *models.DesignRecord) *qubit.Qubit {
	if state := m.lookup(rec); state != nil {
		return state.qubit
	}
	return m.draw(rec).qubit
}

func (m *Manager) lookup(rec *models.DesignRecord) *layoutState {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.layouts[rec.ID]
	if !ok || state.params != rec.Params {
		return nil
	}
	state.lastAccessed = time.Now()
	return state
}

func (m *Manager) draw(rec *models.DesignRecord) *layoutState {
	m.mu.RLock()
	tolerance := m.tolerance
	m.mu.RUnlock()

	q := qubit.New(rec.Params)
	if tolerance > 0 {
		q.SetCircleTolerance(tolerance)
	}
	q.Draw()

	state := &layoutState{
		params:       rec.Params,
		qubit:        q,
		document:     buildDocument(rec, q),
		lastAccessed: time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictIfNeeded()
	m.layouts[rec.ID] = state
	return state
}

// buildDocument flattens a drawn descriptor into the viewer payload.
func buildDocument(rec *models.DesignRecord, q *qubit.Qubit) *models.LayoutDocument {
	layout := q.Layout()
	polys := layout.Flatten()

	shapes := make([]models.LayoutShape, 0, len(polys))
	for _, p := range polys {
		shapes = append(shapes, models.NewLayoutShape(p))
	}

	var outline []models.LayoutShape
	for _, p := range geometry.Union(polys) {
		outline = append(outline, models.NewLayoutShape(p))
	}

	doc := &models.LayoutDocument{
		DesignID: rec.ID,
		CellName: layout.Name,
		Shapes:   shapes,
		Layers:   layout.Layers(),
		Outline:  outline,
		DrawnAt:  time.Now(),
	}
	if bounds, ok := layout.Bounds(); ok {
		doc.Bounds = &bounds
	}
	return doc
}

// Invalidate drops the cached layout for a design. Called when a design is
// replaced or deleted.
func (m *Manager) Invalidate(designID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.layouts, designID)
}

// Touch updates the keep-alive timestamp for a cached layout.
func (m *Manager) Touch(designID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.layouts[designID]
	if !ok {
		return false
	}
	state.lastAccessed = time.Now()
	return true
}

// Len returns the number of cached layouts.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.layouts)
}

// evictIfNeeded removes the least recently used layouts when at capacity.
// Caller must hold the write lock.
func (m *Manager) evictIfNeeded() {
	for len(m.layouts) >= m.capacity {
		oldestID := ""
		var oldest time.Time
		for id, state := range m.layouts {
			if oldestID == "" || state.lastAccessed.Before(oldest) {
				oldestID = id
				oldest = state.lastAccessed
			}
		}
		if oldestID == "" {
			return
		}
		delete(m.layouts, oldestID)
		fmt.Printf("[Workspace] Evicted layout %s to free memory\n", shortID(oldestID))
	}
}

// CleanupAged removes layouts older than maxAge, keeping anything accessed
// within KeepAliveWindow.
func (m *Manager) CleanupAged(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-KeepAliveWindow)

	for id, state := range m.layouts {
		if state.lastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.lastAccessed.Before(cutoff) {
			delete(m.layouts, id)
			fmt.Printf("[Workspace] Cleaned up aged layout %s (last accessed: %s ago)\n",
				shortID(id), time.Since(state.lastAccessed).Round(time.Second))
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
