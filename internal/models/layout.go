package models

import (
	"time"

	"github.com/qubitmask/backend/internal/geometry"
)

// LayoutDocument is the flattened viewer payload for one drawn design. It
// carries everything the frontend needs to render and annotate a mask
// without geometry code of its own.
type LayoutDocument struct {
	DesignID string         `json:"designId" msgpack:"designId"`
	CellName string         `json:"cellName" msgpack:"cellName"`
	Shapes   []LayoutShape  `json:"shapes" msgpack:"shapes"`
	Layers   []int          `json:"layers" msgpack:"layers"`
	Bounds   *geometry.Rect `json:"bounds,omitempty" msgpack:"bounds,omitempty"`
	// Outline is the boolean union of every shape; its length counts the
	// mask's connected regions.
	Outline []LayoutShape `json:"outline,omitempty" msgpack:"outline,omitempty"`
	DrawnAt time.Time     `json:"drawnAt" msgpack:"drawnAt"`
}

// LayoutShape is one flattened primitive.
type LayoutShape struct {
	Kind   string           `json:"kind" msgpack:"kind"`
	Layer  int              `json:"layer" msgpack:"layer"`
	Points []geometry.Point `json:"points" msgpack:"points"`
	Area   float64          `json:"area" msgpack:"area"`
}

// NewLayoutShape converts a geometry polygon into its payload form.
func NewLayoutShape(p *geometry.Polygon) LayoutShape {
	return LayoutShape{
		Kind:   string(p.Kind),
		Layer:  p.Layer,
		Points: p.Points,
		Area:   p.Area(),
	}
}
