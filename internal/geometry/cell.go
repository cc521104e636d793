package geometry

import "sort"

// Reference places another cell at an origin with a counterclockwise
// rotation in degrees. The referenced geometry is shared until flattening
// copies it.
type Reference struct {
	Cell     *Cell
	Origin   Point
	Rotation float64
}

// Cell is a named container of polygons and references to other cells.
type Cell struct {
	Name   string
	Shapes []*Polygon
	Refs   []*Reference
}

// Add appends polygons to the cell and returns the cell for chaining.
func (c *Cell) Add(polys ...*Polygon) *Cell {
	c.Shapes = append(c.Shapes, polys...)
	return c
}

// AddReference places target inside this cell.
func (c *Cell) AddReference(target *Cell, origin Point, rotation float64) *Reference {
	ref := &Reference{Cell: target, Origin: origin, Rotation: rotation}
	c.Refs = append(c.Refs, ref)
	return ref
}

// Flatten resolves every reference recursively and returns independent
// copies of all polygons in this cell's coordinate frame. The input cell is
// left untouched.
func (c *Cell) Flatten() []*Polygon {
	out := make([]*Polygon, 0, len(c.Shapes))
	for _, p := range c.Shapes {
		out = append(out, p.Copy())
	}
	for _, ref := range c.Refs {
		for _, p := range ref.Cell.Flatten() {
			out = append(out, p.transform(ref.Origin, ref.Rotation))
		}
	}
	return out
}

// Layers returns the sorted distinct layer numbers present in the flattened
// cell.
func (c *Cell) Layers() []int {
	seen := make(map[int]struct{})
	for _, p := range c.Flatten() {
		seen[p.Layer] = struct{}{}
	}
	layers := make([]int, 0, len(seen))
	for layer := range seen {
		layers = append(layers, layer)
	}
	sort.Ints(layers)
	return layers
}

// Bounds returns the bounding box of the flattened cell. ok is false when
// the cell contains no geometry.
func (c *Cell) Bounds() (bounds Rect, ok bool) {
	for _, p := range c.Flatten() {
		b, has := p.Bounds()
		if !has {
			continue
		}
		if !ok {
			bounds, ok = b, true
			continue
		}
		bounds = bounds.union(b)
	}
	return bounds, ok
}

// Library is an ordered, name-indexed collection of cells plus the unit
// scale its coordinates are expressed in.
type Library struct {
	Name string
	// Unit is the user unit in meters (1e-6 for microns).
	Unit float64
	// Precision is the database unit in meters (1e-9 for nanometers).
	Precision float64

	cells  []*Cell
	byName map[string]*Cell
}

// NewLibrary creates an empty library with micron user units and nanometer
// database units.
func NewLibrary(name string) *Library {
	return &Library{
		Name:      name,
		Unit:      1e-6,
		Precision: 1e-9,
		byName:    make(map[string]*Cell),
	}
}

// NewCell creates a cell, registers it under its name, and returns it.
// Registering a name twice replaces the earlier cell in place.
func (l *Library) NewCell(name string) *Cell {
	c := &Cell{Name: name}
	if prev, ok := l.byName[name]; ok {
		for i, existing := range l.cells {
			if existing == prev {
				l.cells[i] = c
			}
		}
	} else {
		l.cells = append(l.cells, c)
	}
	l.byName[name] = c
	return c
}

// Cell looks up a registered cell by name.
func (l *Library) Cell(name string) (*Cell, bool) {
	c, ok := l.byName[name]
	return c, ok
}

// Cells returns the library's cells in registration order.
func (l *Library) Cells() []*Cell {
	return l.cells
}
