// Package interact turns pointer events into annotations.
//
// The Machine has three drawing states (idle, drawing a polygon, drawing an
// arrow) and an orthogonal dragging state. Shapes under construction live
// in the machine only; they reach the store when they are committed.
package interact

import (
	"errors"
	"fmt"

	"github.com/ha1tch/imgmark/internal/logging"
	"github.com/ha1tch/imgmark/pkg/annotation"
	"github.com/ha1tch/imgmark/pkg/geom"
)

// Mode selects which shape a click on empty canvas builds.
type Mode string

const (
	ModePolygon Mode = "polygon"
	ModeArrow   Mode = "arrow"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePolygon, ModeArrow:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Button is a pointer button index, numbered like DOM mouse events.
type Button int

const (
	ButtonPrimary   Button = 0
	ButtonAuxiliary Button = 1
	ButtonSecondary Button = 2
)

// CloseDistance is how near, in normalized units, a click must land to
// the first vertex to close a polygon.
const CloseDistance = 5.0

// DragTarget is the marker being dragged: a polygon vertex (Handle empty)
// or an arrow endpoint.
type DragTarget struct {
	AnnotationID annotation.ID
	Vertex       int
	Handle       annotation.Handle
}

// State is a read-only view of the machine.
type State struct {
	Mode    Mode
	Drawing annotation.Annotation // nil when idle
	Cursor  *geom.Point
	Drag    *DragTarget
}

// Effect describes what an event did.
type Effect int

const (
	EffectNone          Effect = iota // event ignored
	EffectDropped                     // surface not laid out
	EffectSuppressed                  // click swallowed after a drag
	EffectSelected                    // click landed on a committed shape
	EffectStarted                     // new shape begun
	EffectVertexAdded                 // polygon grew
	EffectCommitted                   // shape moved into the store
	EffectAbandoned                   // in-progress shape discarded
	EffectMoved                       // cursor moved
	EffectDragStarted                 // marker grabbed
	EffectDragged                     // marker moved
	EffectDragEnded                   // marker released
	EffectVertexRemoved               // vertex deleted
	EffectRefused                     // edit would break a shape invariant
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectDropped:
		return "dropped"
	case EffectSuppressed:
		return "suppressed"
	case EffectSelected:
		return "selected"
	case EffectStarted:
		return "started"
	case EffectVertexAdded:
		return "vertex added"
	case EffectCommitted:
		return "committed"
	case EffectAbandoned:
		return "abandoned"
	case EffectMoved:
		return "moved"
	case EffectDragStarted:
		return "drag started"
	case EffectDragged:
		return "dragged"
	case EffectDragEnded:
		return "drag ended"
	case EffectVertexRemoved:
		return "vertex removed"
	case EffectRefused:
		return "refused"
	}
	return fmt.Sprintf("Effect(%d)", int(e))
}

// Result reports the effect of an event and the annotation it concerned.
type Result struct {
	Effect Effect
	ID     annotation.ID
}

// Options configures a Machine.
type Options struct {
	Mode         Mode
	Radii        Radii
	PolygonLabel string
	ArrowLabel   string
	NewID        func() annotation.ID
}

// DefaultOptions returns the standard configuration.
func DefaultOptions() Options {
	return Options{
		Mode:         ModePolygon,
		Radii:        DefaultRadii(),
		PolygonLabel: "Zone",
		ArrowLabel:   "Direction",
		NewID:        annotation.NewID,
	}
}

// Machine consumes pointer events for one annotation surface.
type Machine struct {
	store   *annotation.Store
	opts    Options
	mode    Mode
	surface geom.Rect

	drawing   annotation.Annotation
	cursor    *geom.Point
	drag      *DragTarget
	skipClick bool
}

// New creates a machine that commits into store.
func New(store *annotation.Store, opts Options) *Machine {
	def := DefaultOptions()
	if opts.Mode == "" {
		opts.Mode = def.Mode
	}
	if opts.Radii == (Radii{}) {
		opts.Radii = def.Radii
	}
	if opts.NewID == nil {
		opts.NewID = def.NewID
	}
	return &Machine{store: store, opts: opts, mode: opts.Mode}
}

// State returns the current interaction state.
func (m *Machine) State() State {
	st := State{Mode: m.mode, Drawing: m.drawing}
	if m.cursor != nil {
		c := *m.cursor
		st.Cursor = &c
	}
	if m.drag != nil {
		d := *m.drag
		st.Drag = &d
	}
	return st
}

// Mode returns the active mode.
func (m *Machine) Mode() Mode {
	return m.mode
}

// Surface returns the bounds used for coordinate conversion.
func (m *Machine) Surface() geom.Rect {
	return m.surface
}

// SetSurface records the rendered bounds of the image. Committed shapes are
// stored in normalized space and need no adjustment.
func (m *Machine) SetSurface(r geom.Rect) {
	m.surface = r
}

// SetRadii replaces the hit-test tolerances.
func (m *Machine) SetRadii(r Radii) {
	m.opts.Radii = r
}

// Radii returns the hit-test tolerances.
func (m *Machine) Radii() Radii {
	return m.opts.Radii
}

// SetMode switches the shape kind. A shape under construction is discarded
// and reported as EffectAbandoned so the host can tell the user.
func (m *Machine) SetMode(mode Mode) Result {
	if mode == m.mode {
		return Result{}
	}
	m.mode = mode
	return m.abandon("mode switch")
}

// Cancel discards the shape under construction, if any.
func (m *Machine) Cancel() Result {
	return m.abandon("cancel")
}

func (m *Machine) abandon(reason string) Result {
	if m.drawing == nil {
		return Result{}
	}
	id := m.drawing.AnnotationID()
	logging.Logger().Debug("in-progress shape abandoned", "id", id, "reason", reason)
	m.drawing = nil
	return Result{Effect: EffectAbandoned, ID: id}
}

// Click handles a press and release of button at pos without a drag.
func (m *Machine) Click(pos geom.Vec, button Button) Result {
	if button != ButtonPrimary || m.skipClick {
		skipped := m.skipClick
		m.skipClick = false
		if skipped {
			return Result{Effect: EffectSuppressed}
		}
		return Result{}
	}

	p, err := geom.ToNormalized(pos, m.surface)
	if err != nil {
		logging.Logger().Debug("click dropped", "err", err)
		return Result{Effect: EffectDropped}
	}

	if m.drawing == nil {
		if id, ok := ShapeAt(m.store.All(), pos, m.surface, m.opts.Radii); ok {
			return Result{Effect: EffectSelected, ID: id}
		}
	}

	switch m.mode {
	case ModePolygon:
		return m.clickPolygon(p)
	case ModeArrow:
		return m.clickArrow(p)
	}
	return Result{}
}

func (m *Machine) clickPolygon(p geom.Point) Result {
	d, ok := m.drawing.(annotation.Polygon)
	if !ok {
		poly := annotation.NewPolygon(m.opts.NewID(), p, m.opts.PolygonLabel)
		m.drawing = poly
		return Result{Effect: EffectStarted, ID: poly.ID}
	}

	if len(d.Points) >= annotation.MinVertices && geom.Dist(p, d.Points[0]) < CloseDistance {
		closed, err := d.Close()
		if err != nil {
			return m.refuse(d.ID, err)
		}
		return m.commit(closed)
	}

	d = d.WithVertex(p)
	m.drawing = d
	return Result{Effect: EffectVertexAdded, ID: d.ID}
}

func (m *Machine) clickArrow(p geom.Point) Result {
	d, ok := m.drawing.(annotation.Arrow)
	if !ok {
		arrow := annotation.NewArrow(m.opts.NewID(), p, m.opts.ArrowLabel)
		m.drawing = arrow
		return Result{Effect: EffectStarted, ID: arrow.ID}
	}
	return m.commit(d.Finish(p))
}

func (m *Machine) commit(a annotation.Annotation) Result {
	m.store.Append(a)
	m.drawing = nil
	m.cursor = nil
	logging.Logger().Info("annotation committed", "id", a.AnnotationID(), "kind", a.Kind())
	return Result{Effect: EffectCommitted, ID: a.AnnotationID()}
}

func (m *Machine) refuse(id annotation.ID, err error) Result {
	logging.Logger().Debug("edit refused", "id", id, "err", err)
	return Result{Effect: EffectRefused, ID: id}
}

// PointerMove tracks the cursor and moves the dragged marker, if any.
func (m *Machine) PointerMove(pos geom.Vec) Result {
	p, err := geom.ToNormalized(pos, m.surface)
	if err != nil {
		return Result{Effect: EffectDropped}
	}
	m.cursor = &p

	if m.drag == nil {
		return Result{Effect: EffectMoved}
	}

	// A drag may leave the surface; the marker stays on the image edge.
	p = geom.Clamp(p)
	m.skipClick = true
	target := *m.drag
	err = m.store.UpdateByID(target.AnnotationID, func(a annotation.Annotation) (annotation.Annotation, error) {
		switch v := a.(type) {
		case annotation.Polygon:
			return v.MoveVertex(target.Vertex, p)
		case annotation.Arrow:
			return v.MoveHandle(target.Handle, p)
		}
		return a, fmt.Errorf("unexpected variant %T", a)
	})
	if err != nil {
		logging.Logger().Debug("drag update skipped", "id", target.AnnotationID, "err", err)
		return Result{Effect: EffectNone, ID: target.AnnotationID}
	}
	return Result{Effect: EffectDragged, ID: target.AnnotationID}
}

// PointerDown handles a button press. Primary on a marker starts a drag;
// secondary on a polygon vertex marker removes that vertex. Presses on
// plain canvas do nothing here; the host reports them through Click.
func (m *Machine) PointerDown(pos geom.Vec, button Button) Result {
	if m.surface.Empty() {
		return Result{Effect: EffectDropped}
	}
	target, ok := MarkerAt(m.store.All(), pos, m.surface, m.opts.Radii)
	if !ok {
		return Result{}
	}

	switch button {
	case ButtonPrimary:
		m.drag = &target
		m.skipClick = true
		return Result{Effect: EffectDragStarted, ID: target.AnnotationID}
	case ButtonSecondary:
		if target.Handle != "" {
			return Result{}
		}
		return m.removeVertex(target)
	}
	return Result{}
}

func (m *Machine) removeVertex(target DragTarget) Result {
	err := m.store.UpdateByID(target.AnnotationID, func(a annotation.Annotation) (annotation.Annotation, error) {
		p, ok := a.(annotation.Polygon)
		if !ok {
			return a, fmt.Errorf("annotation %d is a %s", a.AnnotationID(), a.Kind())
		}
		return p.RemoveVertex(target.Vertex)
	})
	switch {
	case err == nil:
		return Result{Effect: EffectVertexRemoved, ID: target.AnnotationID}
	case errors.Is(err, annotation.ErrMinVertices):
		return m.refuse(target.AnnotationID, err)
	}
	logging.Logger().Debug("vertex removal skipped", "id", target.AnnotationID, "err", err)
	return Result{}
}

// PointerUp ends any drag. It is fed every release, including those
// outside the surface. No click follows a release outside the surface, so
// suppression is disarmed there.
func (m *Machine) PointerUp(pos geom.Vec) Result {
	if !m.surface.Contains(pos) {
		m.skipClick = false
	}
	if m.drag == nil {
		return Result{}
	}
	id := m.drag.AnnotationID
	m.drag = nil
	return Result{Effect: EffectDragEnded, ID: id}
}
