// Package geometry implements the planar layout primitives the mask
// generator is built on: kind-tagged polygons, named cells, rotated cell
// references, and libraries of cells. Coordinates are in user units
// (microns by default); conversion to database units happens in the GDSII
// codec, not here.
package geometry

import "math"

// Kind classifies how a polygon was constructed. The tag survives
// flattening so consumers can tell circles from rectangles without
// reverse-engineering vertex lists.
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindPolygon   Kind = "polygon"
)

const (
	// DefaultCircleTolerance is the largest allowed sagitta (gap between a
	// chord and the true arc) for tessellated circles, in user units.
	DefaultCircleTolerance = 0.01
	// MinCircleVertices is the floor on tessellated circle vertex counts.
	MinCircleVertices = 8
)

// Point is a 2D coordinate in user units.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	Min Point `json:"min" msgpack:"min"`
	Max Point `json:"max" msgpack:"max"`
}

// Width returns the horizontal extent of the box.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent of the box.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// union grows the box to cover other.
func (r Rect) union(other Rect) Rect {
	return Rect{
		Min: Point{X: math.Min(r.Min.X, other.Min.X), Y: math.Min(r.Min.Y, other.Min.Y)},
		Max: Point{X: math.Max(r.Max.X, other.Max.X), Y: math.Max(r.Max.Y, other.Max.Y)},
	}
}

// Polygon is a closed shape on a single layer. Points run counterclockwise
// and the first vertex is not repeated at the end.
type Polygon struct {
	Points   []Point
	Layer    int
	Datatype int
	Kind     Kind
}

// NewPolygon builds a generic polygon from an explicit vertex list.
func NewPolygon(points []Point, layer int) *Polygon {
	return &Polygon{Points: points, Layer: layer, Kind: KindPolygon}
}

// NewRectangle builds an axis-aligned rectangle spanning the two corners.
// Corner order does not matter; vertices come out counterclockwise from the
// lower-left.
func NewRectangle(p1, p2 Point, layer int) *Polygon {
	minX, maxX := math.Min(p1.X, p2.X), math.Max(p1.X, p2.X)
	minY, maxY := math.Min(p1.Y, p2.Y), math.Max(p1.Y, p2.Y)
	return &Polygon{
		Points: []Point{
			{X: minX, Y: minY},
			{X: maxX, Y: minY},
			{X: maxX, Y: maxY},
			{X: minX, Y: maxY},
		},
		Layer: layer,
		Kind:  KindRectangle,
	}
}

// NewCircle approximates a circle with a regular polygon. The vertex count
// is derived from the sagitta tolerance so coarse circles stay cheap and
// large ones stay round; tolerance <= 0 selects DefaultCircleTolerance.
func NewCircle(center Point, radius float64, layer int, tolerance float64) *Polygon {
	if tolerance <= 0 {
		tolerance = DefaultCircleTolerance
	}
	n := circleVertexCount(radius, tolerance, MinCircleVertices)
	pts := make([]Point, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = Point{
			X: center.X + radius*math.Cos(a),
			Y: center.Y + radius*math.Sin(a),
		}
	}
	return &Polygon{Points: pts, Layer: layer, Kind: KindCircle}
}

// circleVertexCount picks the smallest vertex count keeping every chord
// within tolerance of the arc. A regular n-gon inscribed in a circle of
// radius r has sagitta r*(1-cos(pi/n)), so n >= pi/acos(1-tol/r).
func circleVertexCount(radius, tolerance float64, minVertices int) int {
	if minVertices < 3 {
		minVertices = 3
	}
	if radius <= tolerance {
		return minVertices
	}
	n := int(math.Ceil(math.Pi / math.Acos(1-tolerance/radius)))
	if n < minVertices {
		return minVertices
	}
	return n
}

// Copy returns an independent deep copy of the polygon.
func (p *Polygon) Copy() *Polygon {
	pts := make([]Point, len(p.Points))
	copy(pts, p.Points)
	return &Polygon{Points: pts, Layer: p.Layer, Datatype: p.Datatype, Kind: p.Kind}
}

// Area returns the enclosed area by the shoelace formula. The result is
// non-negative regardless of winding.
func (p *Polygon) Area() float64 {
	if len(p.Points) < 3 {
		return 0
	}
	sum := 0.0
	for i, pt := range p.Points {
		next := p.Points[(i+1)%len(p.Points)]
		sum += pt.X*next.Y - next.X*pt.Y
	}
	return math.Abs(sum) / 2
}

// Bounds returns the polygon's bounding box. ok is false for an empty
// vertex list.
func (p *Polygon) Bounds() (bounds Rect, ok bool) {
	if len(p.Points) == 0 {
		return Rect{}, false
	}
	bounds = Rect{Min: p.Points[0], Max: p.Points[0]}
	for _, pt := range p.Points[1:] {
		bounds.Min.X = math.Min(bounds.Min.X, pt.X)
		bounds.Min.Y = math.Min(bounds.Min.Y, pt.Y)
		bounds.Max.X = math.Max(bounds.Max.X, pt.X)
		bounds.Max.Y = math.Max(bounds.Max.Y, pt.Y)
	}
	return bounds, true
}

// transform returns a copy rotated counterclockwise about (0,0) and then
// translated by origin.
func (p *Polygon) transform(origin Point, rotation float64) *Polygon {
	sin, cos := rotationSinCos(rotation)
	pts := make([]Point, len(p.Points))
	for i, pt := range p.Points {
		pts[i] = Point{
			X: origin.X + pt.X*cos - pt.Y*sin,
			Y: origin.Y + pt.X*sin + pt.Y*cos,
		}
	}
	return &Polygon{Points: pts, Layer: p.Layer, Datatype: p.Datatype, Kind: p.Kind}
}

// rotationSinCos returns sin/cos for a rotation in degrees. Right-angle
// rotations get exact values so placements like 180 degrees do not smear
// coordinates by float noise; mask geometry relies on edges landing exactly
// where they abut.
func rotationSinCos(degrees float64) (sin, cos float64) {
	switch math.Mod(math.Mod(degrees, 360)+360, 360) {
	case 0:
		return 0, 1
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	}
	rad := degrees * math.Pi / 180
	return math.Sin(rad), math.Cos(rad)
}
