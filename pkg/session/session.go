// Package session ties the annotation store, the interaction machine, the
// selection controller and the loaded image into one editing session.
//
// A Session is owned by a single goroutine. Hosts feed it pointer events
// and UI actions and read back a render.Scene.
package session

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ha1tch/imgmark/internal/logging"
	"github.com/ha1tch/imgmark/pkg/annotation"
	"github.com/ha1tch/imgmark/pkg/geom"
	"github.com/ha1tch/imgmark/pkg/imagefile"
	"github.com/ha1tch/imgmark/pkg/interact"
	"github.com/ha1tch/imgmark/pkg/render"
)

// SetLogger installs the logger used by all imgmark packages. Nil
// silences logging again.
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Session is one annotation surface with its image.
type Session struct {
	*Selection

	store   *annotation.Store
	machine *interact.Machine
	image   *imagefile.Handle
}

// New creates an empty session.
func New(opts interact.Options) *Session {
	store := annotation.NewStore()
	return &Session{
		Selection: NewSelection(store),
		store:     store,
		machine:   interact.New(store, opts),
	}
}

// Store returns the annotation store.
func (s *Session) Store() *annotation.Store { return s.store }

// Annotations returns the committed annotations in creation order.
func (s *Session) Annotations() []annotation.Annotation { return s.store.All() }

// State returns the interaction state.
func (s *Session) State() interact.State { return s.machine.State() }

// Mode returns the active drawing mode.
func (s *Session) Mode() interact.Mode { return s.machine.Mode() }

// SetMode switches the drawing mode. A shape under construction is
// abandoned.
func (s *Session) SetMode(mode interact.Mode) interact.Result {
	return s.machine.SetMode(mode)
}

// Cancel abandons the shape under construction.
func (s *Session) Cancel() interact.Result {
	return s.machine.Cancel()
}

// SetSurface records where the image is drawn.
func (s *Session) SetSurface(r geom.Rect) { s.machine.SetSurface(r) }

// Surface returns the current image bounds.
func (s *Session) Surface() geom.Rect { return s.machine.Surface() }

// SetRadii changes the marker hit-test tolerances.
func (s *Session) SetRadii(r interact.Radii) { s.machine.SetRadii(r) }

// PointerDown forwards a button press; it may start a drag or remove a vertex.
func (s *Session) PointerDown(pos geom.Vec, b interact.Button) interact.Result {
	return s.machine.PointerDown(pos, b)
}

// PointerMove forwards pointer motion, moving a dragged marker.
func (s *Session) PointerMove(pos geom.Vec) interact.Result {
	return s.machine.PointerMove(pos)
}

// PointerUp forwards a button release, ending any drag.
func (s *Session) PointerUp(pos geom.Vec) interact.Result {
	return s.machine.PointerUp(pos)
}

// Click forwards a click to the machine. A click on a shape selects it;
// a click that draws clears the selection.
func (s *Session) Click(pos geom.Vec, b interact.Button) interact.Result {
	res := s.machine.Click(pos, b)
	switch res.Effect {
	case interact.EffectSelected:
		s.Select(res.ID)
	case interact.EffectStarted, interact.EffectVertexAdded, interact.EffectCommitted:
		s.Clear()
	}
	return res
}

// Undo removes the most recently committed annotation. It reports false
// when there was nothing to remove.
func (s *Session) Undo() (annotation.Annotation, bool) {
	a, ok := s.store.RemoveLast()
	if ok {
		logging.Logger().Info("undo", "id", a.AnnotationID(), "kind", a.Kind())
	}
	return a, ok
}

// Export writes the annotations as indented JSON.
func (s *Session) Export(w io.Writer) error {
	return annotation.Export(w, s.store.All())
}

// ExportFile writes annotations.json into dir and returns its path.
func (s *Session) ExportFile(dir string) (string, error) {
	data, err := annotation.ToJSON(s.store.All())
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, annotation.ExportFilename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	logging.Logger().Info("exported", "path", path, "count", s.store.Len())
	return path, nil
}

// LoadImage opens path and makes it the session image. On failure the
// current image is kept. Annotations are normalized and survive the swap.
func (s *Session) LoadImage(path string) error {
	h, err := imagefile.Open(path)
	if err != nil {
		logging.Logger().Warn("image rejected", "path", path, "err", err)
		return err
	}
	if s.image != nil {
		s.image.Close()
	}
	s.image = h
	w, hgt := h.Size()
	logging.Logger().Info("image loaded", "path", path, "width", w, "height", hgt)
	return nil
}

// Image returns the loaded image, or nil.
func (s *Session) Image() *imagefile.Handle { return s.image }

// Scene projects the current state for drawing.
func (s *Session) Scene() render.Scene {
	id, ok := s.Selected()
	return render.Project(s.store.All(), s.machine.State(), id, ok)
}

// RenderPNG draws the committed annotations over the loaded image. Without
// an image, opts must carry a size.
func (s *Session) RenderPNG(w io.Writer, opts render.PNGOptions) error {
	id, ok := s.Selected()
	sc := render.Project(s.store.All(), interact.State{}, id, ok)
	if s.image != nil && !s.image.Closed() {
		return render.RenderPNG(s.image.Image(), sc, w, opts)
	}
	return render.RenderPNG(nil, sc, w, opts)
}

// Close releases the image and detaches the selection from the store.
func (s *Session) Close() {
	if s.image != nil {
		s.image.Close()
		s.image = nil
	}
	s.Selection.Close()
}
