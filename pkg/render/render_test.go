package render

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"testing"

	"github.com/ha1tch/imgmark/pkg/annotation"
	"github.com/ha1tch/imgmark/pkg/geom"
	"github.com/ha1tch/imgmark/pkg/interact"
)

func pt(x, y float64) geom.Point { return geom.Point{X: x, Y: y} }

func closedSquare(id annotation.ID) annotation.Polygon {
	return annotation.Polygon{
		ID:     id,
		Points: []geom.Point{pt(10, 10), pt(50, 10), pt(50, 50), pt(10, 50)},
		Closed: true,
		Label:  "Zone",
	}
}

func placedArrow(id annotation.ID) annotation.Arrow {
	end := pt(90, 90)
	return annotation.Arrow{ID: id, Start: pt(60, 60), End: &end, Label: "Direction"}
}

func count(sc Scene, kind PrimitiveKind, role MarkerRole) int {
	n := 0
	for _, p := range sc.Primitives {
		if p.Kind == kind && p.Role == role {
			n++
		}
	}
	return n
}

func TestProjectCommitted(t *testing.T) {
	items := []annotation.Annotation{closedSquare(1), placedArrow(2)}
	sc := Project(items, interact.State{}, 0, false)

	if got := count(sc, PrimRegion, MarkerNone); got != 1 {
		t.Errorf("regions = %d, want 1", got)
	}
	if got := count(sc, PrimMarker, MarkerVertex); got != 4 {
		t.Errorf("vertex markers = %d, want 4", got)
	}
	if got := count(sc, PrimLine, MarkerNone); got != 1 {
		t.Errorf("lines = %d, want 1", got)
	}
	if got := count(sc, PrimMarker, MarkerHandle); got != 2 {
		t.Errorf("handle markers = %d, want 2", got)
	}
	for _, p := range sc.Primitives {
		if p.Selected {
			t.Errorf("nothing selected but %v is highlighted", p)
		}
		if p.Kind == PrimLine && !p.Arrowhead {
			t.Error("arrow line without head")
		}
	}
}

func TestProjectSelected(t *testing.T) {
	items := []annotation.Annotation{closedSquare(1), placedArrow(2)}
	sc := Project(items, interact.State{}, 2, true)

	for _, p := range sc.Primitives {
		want := p.ID == 2
		if p.Selected != want {
			t.Errorf("primitive for %d: selected = %v, want %v", p.ID, p.Selected, want)
		}
	}
}

func TestProjectPolygonPreview(t *testing.T) {
	cursor := pt(70, 70)
	st := interact.State{
		Drawing: annotation.Polygon{ID: 5, Points: []geom.Point{pt(10, 10), pt(40, 10)}},
		Cursor:  &cursor,
	}
	sc := Project(nil, st, 0, false)

	if len(sc.Primitives) != 3 {
		t.Fatalf("primitives = %d, want 3", len(sc.Primitives))
	}
	outline := sc.Primitives[0]
	if outline.Kind != PrimOutline || !outline.Preview {
		t.Fatalf("first primitive = %+v, want preview outline", outline)
	}
	if len(outline.Points) != 3 || outline.Points[2] != cursor {
		t.Errorf("outline points = %v, want vertices plus cursor", outline.Points)
	}
	if sc.Primitives[1].Role != MarkerClose {
		t.Errorf("first vertex role = %v, want MarkerClose", sc.Primitives[1].Role)
	}
	if sc.Primitives[2].Role != MarkerPending {
		t.Errorf("second vertex role = %v, want MarkerPending", sc.Primitives[2].Role)
	}
}

func TestProjectArrowPreview(t *testing.T) {
	st := interact.State{Drawing: annotation.Arrow{ID: 7, Start: pt(20, 20)}}
	if sc := Project(nil, st, 0, false); len(sc.Primitives) != 0 {
		t.Errorf("arrow without cursor produced %d primitives", len(sc.Primitives))
	}

	cursor := pt(30, 40)
	st.Cursor = &cursor
	sc := Project(nil, st, 0, false)
	if len(sc.Primitives) != 1 {
		t.Fatalf("primitives = %d, want 1", len(sc.Primitives))
	}
	line := sc.Primitives[0]
	if line.Kind != PrimLine || !line.Preview || !line.Arrowhead {
		t.Errorf("preview = %+v", line)
	}
	if line.Points[0] != pt(20, 20) || line.Points[1] != cursor {
		t.Errorf("preview points = %v", line.Points)
	}
}

func TestRenderImage(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			base.Set(x, y, color.RGBA{0, 0, 0, 255})
		}
	}
	sc := Project([]annotation.Annotation{closedSquare(1)}, interact.State{}, 0, false)

	out, err := RenderImage(base, sc, PNGOptions{})
	if err != nil {
		t.Fatalf("RenderImage: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 100 || b.Dy() != 100 {
		t.Fatalf("bounds = %v, want 100x100", b)
	}

	inside := out.RGBAAt(15, 45)
	if inside.G <= inside.R || inside.G == 0 {
		t.Errorf("region interior %v is not tinted green", inside)
	}
	outside := out.RGBAAt(80, 20)
	if outside.R != 0 || outside.G != 0 || outside.B != 0 {
		t.Errorf("pixel outside shapes changed to %v", outside)
	}
}

func TestRenderImageMarkers(t *testing.T) {
	base := image.NewUniform(color.RGBA{0, 0, 0, 255})
	bounded := image.NewRGBA(image.Rect(0, 0, 100, 100))
	draw.Draw(bounded, bounded.Bounds(), base, image.Point{}, draw.Src)

	items := []annotation.Annotation{closedSquare(1), placedArrow(2)}

	tests := []struct {
		name     string
		selected annotation.ID
		hasSel   bool
		x, y     int
		want     func(c color.RGBA) bool
	}{
		{"vertex", 0, false, 10, 10, func(c color.RGBA) bool { return c.G > c.R && c.G > c.B }},
		{"selected vertex", 1, true, 10, 10, func(c color.RGBA) bool { return c.B > 150 && c.B > c.G && c.R < 60 }},
		{"handle", 0, false, 60, 60, func(c color.RGBA) bool { return c.R > 150 && c.G < 60 && c.B < 60 }},
		{"selected handle", 2, true, 60, 60, func(c color.RGBA) bool { return c.B > 150 && c.R < 60 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := Project(items, interact.State{}, tt.selected, tt.hasSel)
			out, err := RenderImage(bounded, sc, PNGOptions{ShowMarkers: true})
			if err != nil {
				t.Fatalf("RenderImage: %v", err)
			}
			if c := out.RGBAAt(tt.x, tt.y); !tt.want(c) {
				t.Errorf("marker pixel at (%d, %d) = %v", tt.x, tt.y, c)
			}
		})
	}
}

func TestRenderPNGEncodes(t *testing.T) {
	sc := Project([]annotation.Annotation{placedArrow(1)}, interact.State{}, 1, true)
	var buf bytes.Buffer
	if err := RenderPNG(nil, sc, &buf, PNGOptions{Width: 64, Height: 48}); err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("bounds = %v, want 64x48", b)
	}
}

func TestRenderPNGRequiresSize(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderPNG(nil, Scene{}, &buf, PNGOptions{}); err == nil {
		t.Error("expected error for zero-size canvas without base image")
	}
}

func TestGenerateSVG(t *testing.T) {
	poly := closedSquare(1)
	poly.Label = `Loading <dock> & "ramp"`
	items := []annotation.Annotation{poly, placedArrow(2)}
	opts := DefaultSVGOptions()
	opts.Width, opts.Height = 200, 100
	opts.ImageHref = "floor.png"

	svg := GenerateSVG(Project(items, interact.State{}, 2, true), opts)

	for _, want := range []string{
		`viewBox="0 0 200 100"`,
		`<image href="floor.png"`,
		`points="20.00,10.00 100.00,10.00 100.00,50.00 20.00,50.00"`,
		`marker-end="url(#arrowhead-selected)"`,
		`stroke-dasharray="5,3"`,
		`Loading &lt;dock&gt; &amp; &#34;ramp&#34;`,
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if !strings.HasSuffix(svg, "</svg>\n") {
		t.Error("SVG not terminated")
	}
}
