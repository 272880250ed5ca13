package interact

import (
	"github.com/ha1tch/imgmark/pkg/annotation"
	"github.com/ha1tch/imgmark/pkg/geom"
)

// Radii are hit-test tolerances in surface units.
type Radii struct {
	Vertex float64 // polygon vertex marker
	Handle float64 // arrow endpoint handle
	Line   float64 // distance from an arrow's shaft that still counts as a hit
}

// DefaultRadii matches pixel-sized markers.
func DefaultRadii() Radii {
	return Radii{Vertex: 4, Handle: 8, Line: 4}
}

// MarkerAt finds the draggable marker under v. Markers belong to closed
// polygons (one per vertex) and placed arrows (start and end). Later
// annotations are drawn on top and win.
func MarkerAt(items []annotation.Annotation, v geom.Vec, surface geom.Rect, r Radii) (DragTarget, bool) {
	for i := len(items) - 1; i >= 0; i-- {
		switch a := items[i].(type) {
		case annotation.Polygon:
			if !a.Closed {
				continue
			}
			for j := len(a.Points) - 1; j >= 0; j-- {
				if geom.VecDist(v, geom.ToAbsolute(a.Points[j], surface)) <= r.Vertex {
					return DragTarget{AnnotationID: a.ID, Vertex: j}, true
				}
			}
		case annotation.Arrow:
			if !a.Placed() {
				continue
			}
			if geom.VecDist(v, geom.ToAbsolute(*a.End, surface)) <= r.Handle {
				return DragTarget{AnnotationID: a.ID, Handle: annotation.HandleEnd}, true
			}
			if geom.VecDist(v, geom.ToAbsolute(a.Start, surface)) <= r.Handle {
				return DragTarget{AnnotationID: a.ID, Handle: annotation.HandleStart}, true
			}
		}
	}
	return DragTarget{}, false
}

// ShapeAt finds the committed shape whose body lies under v: the interior
// of a closed polygon or the shaft of a placed arrow.
func ShapeAt(items []annotation.Annotation, v geom.Vec, surface geom.Rect, r Radii) (annotation.ID, bool) {
	for i := len(items) - 1; i >= 0; i-- {
		switch a := items[i].(type) {
		case annotation.Polygon:
			if a.Closed && geom.PointInPolygon(v, geom.AbsoluteAll(a.Points, surface)) {
				return a.ID, true
			}
		case annotation.Arrow:
			if !a.Placed() {
				continue
			}
			start := geom.ToAbsolute(a.Start, surface)
			end := geom.ToAbsolute(*a.End, surface)
			if geom.SegmentDistance(v, start, end) <= r.Line {
				return a.ID, true
			}
		}
	}
	return 0, false
}
