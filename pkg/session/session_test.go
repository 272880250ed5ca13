package session

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ha1tch/imgmark/pkg/annotation"
	"github.com/ha1tch/imgmark/pkg/geom"
	"github.com/ha1tch/imgmark/pkg/imagefile"
	"github.com/ha1tch/imgmark/pkg/interact"
	"github.com/ha1tch/imgmark/pkg/render"
)

// newTestSession returns a session on a 100x100 surface with sequential ids.
func newTestSession(t *testing.T) *Session {
	t.Helper()
	var next annotation.ID
	opts := interact.DefaultOptions()
	opts.NewID = func() annotation.ID {
		next++
		return next
	}
	s := New(opts)
	s.SetSurface(geom.Rect{Width: 100, Height: 100})
	t.Cleanup(s.Close)
	return s
}

func clickAt(s *Session, x, y float64) interact.Result {
	return s.Click(geom.Vec{X: x, Y: y}, interact.ButtonPrimary)
}

// drawScene commits a triangle (id 1), a square (id 2) and an arrow (id 3).
func drawScene(t *testing.T, s *Session) {
	t.Helper()
	for _, c := range [][2]float64{{10, 10}, {50, 10}, {50, 50}, {10, 11}} {
		clickAt(s, c[0], c[1])
	}
	for _, c := range [][2]float64{{60, 60}, {90, 60}, {90, 90}, {60, 90}, {61, 61}} {
		clickAt(s, c[0], c[1])
	}
	s.SetMode(interact.ModeArrow)
	clickAt(s, 20, 80)
	clickAt(s, 40, 95)
	if n := s.Store().Len(); n != 3 {
		t.Fatalf("scene has %d annotations, want 3", n)
	}
	s.SetMode(interact.ModePolygon)
}

func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{200, 200, 200, 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUndoReverseOrder(t *testing.T) {
	s := newTestSession(t)
	drawScene(t, s)

	for _, want := range []annotation.ID{3, 2, 1} {
		a, ok := s.Undo()
		if !ok {
			t.Fatalf("Undo reported empty store, want id %d", want)
		}
		if a.AnnotationID() != want {
			t.Errorf("Undo removed %d, want %d", a.AnnotationID(), want)
		}
	}
	if _, ok := s.Undo(); ok {
		t.Error("Undo on empty store reported a removal")
	}
	if n := len(s.Annotations()); n != 0 {
		t.Errorf("store has %d annotations after undoing all", n)
	}
}

func TestUndoPrunesSelection(t *testing.T) {
	s := newTestSession(t)
	drawScene(t, s)

	if res := clickAt(s, 40, 20); res.Effect != interact.EffectSelected || res.ID != 1 {
		t.Fatalf("click inside triangle = %+v, want selected 1", res)
	}
	s.Expand(1)
	if err := s.BeginEdit(1, annotation.FieldLabel); err != nil {
		t.Fatal(err)
	}

	s.Undo()
	if id, ok := s.Selected(); !ok || id != 1 {
		t.Errorf("selection lost after undoing another shape: %d %v", id, ok)
	}
	s.Undo()
	s.Undo()
	if _, ok := s.Selected(); ok {
		t.Error("selection survived removal of its annotation")
	}
	if _, ok := s.Expanded(); ok {
		t.Error("expansion survived removal of its annotation")
	}
	if _, ok := s.Editing(); ok {
		t.Error("edit survived removal of its annotation")
	}
}

func TestClickSelectionAndClear(t *testing.T) {
	s := newTestSession(t)
	drawScene(t, s)

	if res := clickAt(s, 30, 87.5); res.Effect != interact.EffectSelected || res.ID != 3 {
		t.Fatalf("click on arrow shaft = %+v, want selected 3", res)
	}
	for _, p := range s.Scene().Primitives {
		if p.Selected != (p.ID == 3) {
			t.Errorf("primitive of %d selected=%v", p.ID, p.Selected)
		}
	}

	if res := clickAt(s, 80, 20); res.Effect != interact.EffectStarted {
		t.Fatalf("click on empty canvas = %v, want started", res.Effect)
	}
	if _, ok := s.Selected(); ok {
		t.Error("drawing click did not clear the selection")
	}
}

func TestModeSwitchAbandonsShape(t *testing.T) {
	s := newTestSession(t)
	clickAt(s, 10, 10)
	clickAt(s, 30, 10)

	res := s.SetMode(interact.ModeArrow)
	if res.Effect != interact.EffectAbandoned || res.ID != 1 {
		t.Errorf("SetMode = %+v, want abandoned 1", res)
	}
	if st := s.State(); st.Drawing != nil || st.Mode != interact.ModeArrow {
		t.Errorf("state after switch = %+v", st)
	}
	if s.Store().Len() != 0 {
		t.Error("abandoned shape reached the store")
	}
}

func TestEditFlow(t *testing.T) {
	s := newTestSession(t)
	drawScene(t, s)

	if err := s.BeginEdit(99, annotation.FieldLabel); !errors.Is(err, annotation.ErrNotFound) {
		t.Errorf("BeginEdit unknown id: got %v, want ErrNotFound", err)
	}

	if err := s.BeginEdit(2, annotation.FieldLabel); err != nil {
		t.Fatal(err)
	}
	if e, ok := s.Editing(); !ok || e.Draft != "Zone" {
		t.Fatalf("draft = %+v, want seeded with Zone", e)
	}
	s.ChangeEdit("Loading bay")

	if err := s.CommitEdit(2, annotation.FieldDescription); !errors.Is(err, ErrNotEditing) {
		t.Errorf("commit of other field: got %v, want ErrNotEditing", err)
	}
	if err := s.CommitEdit(2, annotation.FieldLabel); err != nil {
		t.Fatalf("CommitEdit: %v", err)
	}
	a, _ := s.Store().Get(2)
	if label, _ := annotation.Text(a); label != "Loading bay" {
		t.Errorf("label = %q, want Loading bay", label)
	}
	if _, ok := s.Editing(); ok {
		t.Error("still editing after commit")
	}

	s.BeginEdit(3, annotation.FieldDescription)
	s.ChangeEdit("towards exit")
	s.CancelEdit()
	a, _ = s.Store().Get(3)
	if _, desc := annotation.Text(a); desc != "" {
		t.Errorf("cancelled edit changed description to %q", desc)
	}
}

func TestExpandToggle(t *testing.T) {
	s := newTestSession(t)
	drawScene(t, s)

	s.Expand(1)
	s.BeginEdit(1, annotation.FieldLabel)
	s.Expand(2)
	if s.IsExpanded(1) || !s.IsExpanded(2) {
		t.Error("expanding 2 did not collapse 1")
	}
	if _, ok := s.Editing(); ok {
		t.Error("expanding did not leave edit mode")
	}
	s.Expand(2)
	if _, ok := s.Expanded(); ok {
		t.Error("second Expand did not collapse the row")
	}
}

func TestExportDeterministic(t *testing.T) {
	s := newTestSession(t)
	drawScene(t, s)

	var a, b bytes.Buffer
	if err := s.Export(&a); err != nil {
		t.Fatal(err)
	}
	if err := s.Export(&b); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("two exports of the same state differ")
	}

	path, err := s.ExportFile(t.TempDir())
	if err != nil {
		t.Fatalf("ExportFile: %v", err)
	}
	if filepath.Base(path) != annotation.ExportFilename {
		t.Errorf("export file = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, a.Bytes()) {
		t.Error("exported file differs from Export output")
	}

	items, err := annotation.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("parsed %d annotations, want 3", len(items))
	}
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t)

	txt := filepath.Join(dir, "notes.txt")
	os.WriteFile(txt, []byte("hello"), 0644)
	if err := s.LoadImage(txt); !errors.Is(err, imagefile.ErrInvalidInput) {
		t.Errorf("LoadImage(text) = %v, want ErrInvalidInput", err)
	}
	if s.Image() != nil {
		t.Error("rejected file installed an image")
	}

	if err := s.LoadImage(writeTestPNG(t, dir, "a.png", 40, 30)); err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	first := s.Image()
	if w, h := first.Size(); w != 40 || h != 30 {
		t.Errorf("size = %dx%d, want 40x30", w, h)
	}

	if err := s.LoadImage(txt); err == nil {
		t.Error("expected error for text file")
	}
	if s.Image() != first || first.Closed() {
		t.Error("failed load disturbed the current image")
	}

	if err := s.LoadImage(writeTestPNG(t, dir, "b.png", 20, 10)); err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if !first.Closed() {
		t.Error("previous image not released")
	}
	if s.Image() == first {
		t.Error("image not replaced")
	}
}

func TestRenderPNGUsesImageSize(t *testing.T) {
	s := newTestSession(t)
	drawScene(t, s)
	if err := s.LoadImage(writeTestPNG(t, t.TempDir(), "floor.png", 80, 60)); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.RenderPNG(&buf, render.DefaultPNGOptions()); err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 80 || b.Dy() != 60 {
		t.Errorf("bounds = %v, want 80x60", b)
	}
}
