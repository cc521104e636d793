package geometry

import (
	"math"
	"testing"
)

func TestUnion(t *testing.T) {
	t.Run("disjoint shapes stay separate regions", func(t *testing.T) {
		merged := Union([]*Polygon{
			NewRectangle(Point{}, Point{X: 1, Y: 1}, 0),
			NewRectangle(Point{X: 5, Y: 5}, Point{X: 6, Y: 6}, 1),
		})
		if len(merged) != 2 {
			t.Errorf("Expected 2 regions, got %d", len(merged))
		}
	})

	t.Run("edge-touching rectangles merge", func(t *testing.T) {
		merged := Union([]*Polygon{
			NewRectangle(Point{}, Point{X: 1, Y: 1}, 0),
			NewRectangle(Point{X: 1, Y: 0}, Point{X: 2, Y: 1}, 0),
		})
		if len(merged) != 1 {
			t.Fatalf("Expected 1 region, got %d", len(merged))
		}
		if math.Abs(merged[0].Area()-2) > 1e-9 {
			t.Errorf("Expected merged area 2, got %v", merged[0].Area())
		}
	})

	t.Run("overlapping shapes merge without double counting", func(t *testing.T) {
		merged := Union([]*Polygon{
			NewRectangle(Point{}, Point{X: 2, Y: 1}, 0),
			NewRectangle(Point{X: 1, Y: 0}, Point{X: 3, Y: 1}, 0),
		})
		if len(merged) != 1 {
			t.Fatalf("Expected 1 region, got %d", len(merged))
		}
		if math.Abs(merged[0].Area()-3) > 1e-9 {
			t.Errorf("Expected merged area 3, got %v", merged[0].Area())
		}
	})

	t.Run("merges across layers", func(t *testing.T) {
		merged := Union([]*Polygon{
			NewRectangle(Point{}, Point{X: 1, Y: 1}, 0),
			NewRectangle(Point{X: 0.5, Y: 0}, Point{X: 1.5, Y: 1}, 2),
		})
		if len(merged) != 1 {
			t.Errorf("Expected layers to be ignored, got %d regions", len(merged))
		}
	})

	t.Run("circle overlapping rectangle merges", func(t *testing.T) {
		merged := Union([]*Polygon{
			NewRectangle(Point{X: 0.2, Y: 0.4}, Point{X: 0.5, Y: 10.4}, 1),
			NewCircle(Point{X: 0.2, Y: 10.4}, 4, 0, 0.01),
		})
		if len(merged) != 1 {
			t.Errorf("Expected 1 region, got %d", len(merged))
		}
	})

	t.Run("skips degenerate inputs", func(t *testing.T) {
		merged := Union([]*Polygon{
			{Points: []Point{{0, 0}, {1, 1}}},
			NewRectangle(Point{}, Point{X: 1, Y: 1}, 0),
		})
		if len(merged) != 1 {
			t.Errorf("Expected 1 region, got %d", len(merged))
		}
	})

	t.Run("empty input yields empty result", func(t *testing.T) {
		if got := Union(nil); len(got) != 0 {
			t.Errorf("Expected empty result, got %d regions", len(got))
		}
	})
}
