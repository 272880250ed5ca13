// Package annotation provides the annotation types and the ordered store
// that holds them.
package annotation

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/ha1tch/imgmark/pkg/geom"
)

// Kind identifies an annotation variant.
type Kind string

const (
	KindPolygon Kind = "polygon"
	KindArrow   Kind = "arrow"
)

// Handle names an arrow endpoint.
type Handle string

const (
	HandleStart Handle = "start"
	HandleEnd   Handle = "end"
)

// Field names an editable text field.
type Field string

const (
	FieldLabel       Field = "label"
	FieldDescription Field = "description"
)

// MinVertices is the smallest vertex count of a closed polygon.
const MinVertices = 3

var (
	ErrNotFound       = errors.New("annotation not found")
	ErrNoVertex       = errors.New("vertex index out of range")
	ErrMinVertices    = errors.New("closed polygon needs at least 3 vertices")
	ErrTooFewVertices = errors.New("polygon needs at least 3 vertices to close")
	ErrUnknownField   = errors.New("unknown field")
)

// ID identifies an annotation for the lifetime of the process.
type ID int64

var lastID atomic.Int64

// NewID returns an ID derived from the current time in milliseconds.
// IDs never repeat and never decrease within a process.
func NewID() ID {
	now := time.Now().UnixMilli()
	for {
		prev := lastID.Load()
		next := now
		if next <= prev {
			next = prev + 1
		}
		if lastID.CompareAndSwap(prev, next) {
			return ID(next)
		}
	}
}

// Annotation is either a Polygon or an Arrow. The set of variants is
// closed; consumers switch on the concrete type.
type Annotation interface {
	AnnotationID() ID
	Kind() Kind
	sealed()
}

// Polygon is a zone outlined by an ordered list of vertices.
type Polygon struct {
	ID          ID
	Points      []geom.Point
	Closed      bool
	Label       string
	Description string
}

// Arrow is a directional segment. End is nil while the arrow is pending.
type Arrow struct {
	ID          ID
	Start       geom.Point
	End         *geom.Point
	Label       string
	Description string
}

func (p Polygon) AnnotationID() ID { return p.ID }
func (p Polygon) Kind() Kind       { return KindPolygon }
func (Polygon) sealed()            {}

func (a Arrow) AnnotationID() ID { return a.ID }
func (a Arrow) Kind() Kind       { return KindArrow }
func (Arrow) sealed()            {}

// NewPolygon starts an open polygon at p.
func NewPolygon(id ID, p geom.Point, label string) Polygon {
	return Polygon{ID: id, Points: []geom.Point{p}, Label: label}
}

// NewArrow starts a pending arrow at p.
func NewArrow(id ID, p geom.Point, label string) Arrow {
	return Arrow{ID: id, Start: p, Label: label}
}

// WithVertex returns a copy with p appended.
func (p Polygon) WithVertex(pt geom.Point) Polygon {
	pts := make([]geom.Point, len(p.Points), len(p.Points)+1)
	copy(pts, p.Points)
	p.Points = append(pts, pt)
	return p
}

// MoveVertex returns a copy with vertex i moved to pt.
func (p Polygon) MoveVertex(i int, pt geom.Point) (Polygon, error) {
	if i < 0 || i >= len(p.Points) {
		return p, ErrNoVertex
	}
	p.Points = slices.Clone(p.Points)
	p.Points[i] = pt
	return p, nil
}

// RemoveVertex returns a copy without vertex i. A closed polygon is never
// reduced below MinVertices.
func (p Polygon) RemoveVertex(i int) (Polygon, error) {
	if i < 0 || i >= len(p.Points) {
		return p, ErrNoVertex
	}
	if p.Closed && len(p.Points) <= MinVertices {
		return p, ErrMinVertices
	}
	pts := make([]geom.Point, 0, len(p.Points)-1)
	pts = append(pts, p.Points[:i]...)
	p.Points = append(pts, p.Points[i+1:]...)
	return p, nil
}

// Close returns a closed copy of the polygon.
func (p Polygon) Close() (Polygon, error) {
	if len(p.Points) < MinVertices {
		return p, ErrTooFewVertices
	}
	p.Points = slices.Clone(p.Points)
	p.Closed = true
	return p, nil
}

// Placed reports whether the arrow has both endpoints.
func (a Arrow) Placed() bool {
	return a.End != nil
}

// Finish returns a copy of the arrow ending at pt.
func (a Arrow) Finish(pt geom.Point) Arrow {
	a.End = &pt
	return a
}

// MoveHandle returns a copy with the named endpoint moved to pt.
func (a Arrow) MoveHandle(h Handle, pt geom.Point) (Arrow, error) {
	switch h {
	case HandleStart:
		a.Start = pt
	case HandleEnd:
		a.End = &pt
	default:
		return a, fmt.Errorf("unknown arrow handle %q", h)
	}
	return a, nil
}

// Text returns the label and description of a.
func Text(a Annotation) (label, description string) {
	switch v := a.(type) {
	case Polygon:
		return v.Label, v.Description
	case Arrow:
		return v.Label, v.Description
	}
	panic(fmt.Sprintf("annotation: unexpected variant %T", a))
}

// FieldValue returns the value of the named text field.
func FieldValue(a Annotation, f Field) (string, error) {
	label, desc := Text(a)
	switch f {
	case FieldLabel:
		return label, nil
	case FieldDescription:
		return desc, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, f)
}

// WithField returns a copy of a with the named text field set to value.
func WithField(a Annotation, f Field, value string) (Annotation, error) {
	if f != FieldLabel && f != FieldDescription {
		return a, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	switch v := a.(type) {
	case Polygon:
		if f == FieldLabel {
			v.Label = value
		} else {
			v.Description = value
		}
		return v, nil
	case Arrow:
		if f == FieldLabel {
			v.Label = value
		} else {
			v.Description = value
		}
		return v, nil
	}
	panic(fmt.Sprintf("annotation: unexpected variant %T", a))
}
