// Package render maps annotations and interaction state to drawable
// primitives and rasterizes them.
package render

import (
	"fmt"

	"github.com/ha1tch/imgmark/pkg/annotation"
	"github.com/ha1tch/imgmark/pkg/geom"
	"github.com/ha1tch/imgmark/pkg/interact"
)

// PrimitiveKind identifies a drawable.
type PrimitiveKind int

const (
	PrimRegion   PrimitiveKind = iota // filled and stroked closed polygon
	PrimOutline                       // open polyline, unfilled
	PrimLine                          // straight segment
	PrimMarker                        // small circle at a vertex or handle
)

// MarkerRole distinguishes marker purposes.
type MarkerRole int

const (
	MarkerNone    MarkerRole = iota
	MarkerVertex             // draggable polygon vertex
	MarkerHandle             // draggable arrow endpoint
	MarkerClose              // first vertex of a polygon under construction
	MarkerPending            // other vertices of a polygon under construction
)

// Primitive is a single drawable in normalized coordinates.
type Primitive struct {
	Kind      PrimitiveKind
	Points    []geom.Point
	Arrowhead bool // PrimLine: draw a head at the last point
	Role      MarkerRole
	Selected  bool // highlight colour, dashed, heavier stroke
	Preview   bool // part of the shape under construction
	ID        annotation.ID
	Label     string
	Source    annotation.Kind
}

// Scene is the ordered list of primitives, back to front.
type Scene struct {
	Primitives []Primitive
}

// Project builds the scene for the committed annotations, the interaction
// state and the current selection. It has no side effects.
func Project(items []annotation.Annotation, st interact.State, selected annotation.ID, hasSelected bool) Scene {
	var sc Scene
	for _, a := range items {
		sel := hasSelected && a.AnnotationID() == selected
		switch v := a.(type) {
		case annotation.Polygon:
			sc.addPolygon(v, sel)
		case annotation.Arrow:
			sc.addArrow(v, sel)
		default:
			panic(fmt.Sprintf("render: unexpected variant %T", a))
		}
	}

	switch d := st.Drawing.(type) {
	case nil:
	case annotation.Polygon:
		sc.addPolygonPreview(d, st.Cursor)
	case annotation.Arrow:
		sc.addArrowPreview(d, st.Cursor)
	default:
		panic(fmt.Sprintf("render: unexpected variant %T", st.Drawing))
	}
	return sc
}

func (sc *Scene) add(p Primitive) {
	sc.Primitives = append(sc.Primitives, p)
}

func (sc *Scene) addPolygon(p annotation.Polygon, sel bool) {
	if !p.Closed {
		// Committed polygons are always closed; an open one is drawn
		// as an outline without markers.
		sc.add(Primitive{Kind: PrimOutline, Points: p.Points, Selected: sel, ID: p.ID, Label: p.Label, Source: annotation.KindPolygon})
		return
	}
	sc.add(Primitive{Kind: PrimRegion, Points: p.Points, Selected: sel, ID: p.ID, Label: p.Label, Source: annotation.KindPolygon})
	for _, pt := range p.Points {
		sc.add(Primitive{Kind: PrimMarker, Points: []geom.Point{pt}, Role: MarkerVertex, Selected: sel, ID: p.ID, Source: annotation.KindPolygon})
	}
}

func (sc *Scene) addArrow(a annotation.Arrow, sel bool) {
	if !a.Placed() {
		return
	}
	sc.add(Primitive{Kind: PrimLine, Points: []geom.Point{a.Start, *a.End}, Arrowhead: true, Selected: sel, ID: a.ID, Label: a.Label, Source: annotation.KindArrow})
	for _, pt := range []geom.Point{a.Start, *a.End} {
		sc.add(Primitive{Kind: PrimMarker, Points: []geom.Point{pt}, Role: MarkerHandle, Selected: sel, ID: a.ID, Source: annotation.KindArrow})
	}
}

func (sc *Scene) addPolygonPreview(p annotation.Polygon, cursor *geom.Point) {
	pts := make([]geom.Point, 0, len(p.Points)+1)
	pts = append(pts, p.Points...)
	if cursor != nil {
		pts = append(pts, *cursor)
	}
	sc.add(Primitive{Kind: PrimOutline, Points: pts, Preview: true, ID: p.ID, Source: annotation.KindPolygon})
	for i, pt := range p.Points {
		role := MarkerPending
		if i == 0 {
			role = MarkerClose
		}
		sc.add(Primitive{Kind: PrimMarker, Points: []geom.Point{pt}, Role: role, Preview: true, ID: p.ID, Source: annotation.KindPolygon})
	}
}

func (sc *Scene) addArrowPreview(a annotation.Arrow, cursor *geom.Point) {
	if cursor == nil {
		return
	}
	sc.add(Primitive{Kind: PrimLine, Points: []geom.Point{a.Start, *cursor}, Arrowhead: true, Preview: true, ID: a.ID, Source: annotation.KindArrow})
}
