// Package qubit builds single-junction qubit photomask layouts from a
// nine-parameter descriptor and moves them in and out of GDSII, SVG, and
// JSON design documents.
//
// A layout is one junction rectangle plus a reusable wire assembly (wire
// run with a circular connection pad) placed twice: once above the
// junction and once below it, rotated 180 degrees. All dimensions are in
// microns.
package qubit

import (
	"github.com/qubitmask/backend/internal/gds"
	"github.com/qubitmask/backend/internal/geometry"
	"github.com/qubitmask/backend/internal/svg"
)

// Cell names used in exported libraries. They are part of the output
// format: downstream tooling selects the top cell by name.
const (
	LibraryName      = "library"
	TopCellName      = "QUBIT"
	AssemblyCellName = "WIRE_CONNECTION"
)

// Params holds the nine dimensions and layer assignments that fully
// describe a qubit mask. Lengths are microns. The geometry builder accepts
// any values; physical plausibility (for example junction_offset staying
// within half the junction width) is the caller's concern.
type Params struct {
	ConnectionRadius float64 `json:"connection_radius" msgpack:"connection_radius"`
	JunctionWidth    float64 `json:"junction_width" msgpack:"junction_width"`
	JunctionHeight   float64 `json:"junction_height" msgpack:"junction_height"`
	JunctionOffset   float64 `json:"junction_offset" msgpack:"junction_offset"`
	WireWidth        float64 `json:"wire_width" msgpack:"wire_width"`
	WireHeight       float64 `json:"wire_height" msgpack:"wire_height"`
	WireLayer        int     `json:"wire_layer" msgpack:"wire_layer"`
	JunctionLayer    int     `json:"junction_layer" msgpack:"junction_layer"`
	ConnectionLayer  int     `json:"connection_layer" msgpack:"connection_layer"`
}

// Qubit couples a parameter set with its lazily drawn layout. Parameters
// never change after construction; the drawn geometry is a cache that
// Draw replaces wholesale.
type Qubit struct {
	params    Params
	tolerance float64

	library *geometry.Library
	layout  *geometry.Cell
}

// New creates a descriptor. Nothing is drawn until an exporter or
// introspection call needs geometry.
func New(params Params) *Qubit {
	return &Qubit{params: params, tolerance: geometry.DefaultCircleTolerance}
}

// Params returns a copy of the descriptor's parameters.
func (q *Qubit) Params() Params {
	return q.params
}

// SetCircleTolerance adjusts how finely connection pads are tessellated
// and discards any cached layout so the next draw picks it up.
func (q *Qubit) SetCircleTolerance(tolerance float64) {
	if tolerance <= 0 {
		tolerance = geometry.DefaultCircleTolerance
	}
	q.tolerance = tolerance
	q.library = nil
	q.layout = nil
}

// Draw builds the layout from scratch and returns the top cell. Every call
// allocates a fresh library and replaces the cached one; earlier results
// stay valid but frozen.
func (q *Qubit) Draw() *geometry.Cell {
	lib := geometry.NewLibrary(LibraryName)

	circuit := lib.NewCell(TopCellName)
	repeated := lib.NewCell(AssemblyCellName)

	// The reusable assembly: a connection pad sitting on top of the wire
	// run, both anchored at the assembly origin.
	pad := geometry.NewCircle(
		geometry.Point{X: 0, Y: q.params.WireHeight},
		q.params.ConnectionRadius, q.params.ConnectionLayer, q.tolerance)
	wire := geometry.NewRectangle(
		geometry.Point{},
		geometry.Point{X: q.params.WireWidth, Y: q.params.WireHeight}, q.params.WireLayer)
	repeated.Add(pad, wire)

	junction := geometry.NewRectangle(
		geometry.Point{},
		geometry.Point{X: q.params.JunctionWidth, Y: q.params.JunctionHeight}, q.params.JunctionLayer)
	circuit.Add(junction)

	// One assembly runs up from the junction top edge, the other runs down
	// from the bottom edge, mirrored by a half turn about its origin.
	circuit.AddReference(repeated,
		geometry.Point{X: q.params.JunctionOffset, Y: q.params.JunctionHeight}, 0)
	circuit.AddReference(repeated,
		geometry.Point{X: q.params.JunctionWidth - q.params.JunctionOffset, Y: 0}, 180)

	q.library = lib
	q.layout = circuit
	return q.layout
}

// Library returns the drawn library, drawing first if needed.
func (q *Qubit) Library() *geometry.Library {
	if q.library == nil {
		q.Draw()
	}
	return q.library
}

// Layout returns the drawn top cell, drawing first if needed.
func (q *Qubit) Layout() *geometry.Cell {
	if q.layout == nil {
		q.Draw()
	}
	return q.layout
}

// Polygons returns independent flattened copies of every primitive in the
// layout, references resolved, kind and layer tags intact.
func (q *Qubit) Polygons() []*geometry.Polygon {
	return q.Layout().Flatten()
}

// Layers returns the sorted distinct layer numbers the drawn mask uses.
func (q *Qubit) Layers() []int {
	return q.Layout().Layers()
}

// ToGDS exports the whole library, hierarchy included, as a GDSII stream.
// An empty filename falls back to "output.gds". Existing files are
// overwritten.
func (q *Qubit) ToGDS(filename string) error {
	if filename == "" {
		filename = "output.gds"
	}
	return gds.WriteFile(filename, q.Library())
}

// ToSVG exports the top cell's flattened geometry as an SVG document with
// the built-in layer palette. An empty filename falls back to
// "output.svg". Existing files are overwritten.
func (q *Qubit) ToSVG(filename string) error {
	if filename == "" {
		filename = "output.svg"
	}
	return svg.WriteFile(filename, q.Layout(), nil)
}
