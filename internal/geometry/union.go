package geometry

import polyclip "github.com/ctessum/polyclip-go"

// Union merges polygons into their boolean OR, ignoring layers. Each
// returned polygon is one contour of the merged region, so the result
// length counts connected regions; shapes that only touch along an edge
// still merge into one contour.
func Union(polys []*Polygon) []*Polygon {
	var acc polyclip.Polygon
	for _, p := range polys {
		if len(p.Points) < 3 {
			continue
		}
		contour := make(polyclip.Contour, len(p.Points))
		for i, pt := range p.Points {
			contour[i] = polyclip.Point{X: pt.X, Y: pt.Y}
		}
		next := polyclip.Polygon{contour}
		if acc == nil {
			acc = next
			continue
		}
		acc = acc.Construct(polyclip.UNION, next)
	}

	out := make([]*Polygon, 0, len(acc))
	for _, contour := range acc {
		pts := make([]Point, len(contour))
		for i, pt := range contour {
			pts[i] = Point{X: pt.X, Y: pt.Y}
		}
		out = append(out, &Polygon{Points: pts, Kind: KindPolygon})
	}
	return out
}
