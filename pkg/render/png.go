// Native PNG rendering of annotation scenes over the source image.

package render

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ha1tch/imgmark/pkg/geom"
)

// PNGOptions configures PNG rendering.
type PNGOptions struct {
	Width       int  // output width; 0 = base image width
	Height      int  // output height; 0 = base image height
	FontSize    int  // label size in points
	ShowLabels  bool // draw annotation labels
	ShowMarkers bool // draw vertex and handle markers of committed shapes
}

// DefaultPNGOptions returns sensible defaults for PNG rendering.
func DefaultPNGOptions() PNGOptions {
	return PNGOptions{
		FontSize:   14,
		ShowLabels: true,
	}
}

// Colors used in rendering
var (
	colorWhite       = color.RGBA{255, 255, 255, 255}
	colorZoneFill    = color.NRGBA{40, 167, 69, 77}  // rgba(40,167,69,0.3)
	colorZoneStroke  = color.NRGBA{40, 167, 69, 204} // rgba(40,167,69,0.8)
	colorZonePreview = color.RGBA{40, 167, 69, 255}
	colorArrow       = color.RGBA{255, 0, 0, 255}
	colorSelected    = color.RGBA{0, 123, 255, 255} // #007bff
	colorCloseMarker = color.RGBA{255, 165, 0, 255} // orange
	colorLabel       = color.RGBA{33, 37, 41, 255}
)

// renderContext holds rendering parameters including scale
type renderContext struct {
	img       *image.RGBA
	surface   geom.Rect
	scale     float64 // multiplier for line thickness, arrow size, etc.
	lineWidth float64
	face      font.Face
}

func newRenderContext(img *image.RGBA, scale int, fontSize int) *renderContext {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(err) // should never happen with embedded font
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(fontSize * scale),
		DPI:     72,
		Hinting: font.HintingNone, // supersampled instead
	})
	if err != nil {
		panic(err)
	}

	b := img.Bounds()
	return &renderContext{
		img:       img,
		surface:   geom.Rect{Width: float64(b.Dx()), Height: float64(b.Dy())},
		scale:     float64(scale),
		lineWidth: float64(scale) * 2,
		face:      face,
	}
}

// RenderPNG draws sc over base and writes the result as PNG.
// base may be nil, in which case a white canvas of the requested size is used.
// Uses 2x supersampling for smoother output.
func RenderPNG(base image.Image, sc Scene, w io.Writer, opts PNGOptions) error {
	img, err := RenderImage(base, sc, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// RenderImage is RenderPNG without the encoding step.
func RenderImage(base image.Image, sc Scene, opts PNGOptions) (*image.RGBA, error) {
	width, height := opts.Width, opts.Height
	if base != nil {
		b := base.Bounds()
		if width == 0 {
			width = b.Dx()
		}
		if height == 0 {
			height = b.Dy()
		}
	}
	if width <= 0 || height <= 0 {
		return nil, errInvalidSize(width, height)
	}
	if opts.FontSize == 0 {
		opts.FontSize = 14
	}

	scale := 2
	large := image.NewRGBA(image.Rect(0, 0, width*scale, height*scale))
	if base != nil {
		draw.CatmullRom.Scale(large, large.Bounds(), base, base.Bounds(), draw.Src, nil)
	} else {
		draw.Draw(large, large.Bounds(), image.NewUniform(colorWhite), image.Point{}, draw.Src)
	}

	ctx := newRenderContext(large, scale, opts.FontSize)
	for _, p := range sc.Primitives {
		ctx.drawPrimitive(p, opts)
	}

	final := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(final, final.Bounds(), large, large.Bounds(), draw.Over, nil)
	return final, nil
}

func (ctx *renderContext) abs(pts []geom.Point) []geom.Vec {
	return geom.AbsoluteAll(pts, ctx.surface)
}

func (ctx *renderContext) drawPrimitive(p Primitive, opts PNGOptions) {
	pts := ctx.abs(p.Points)
	switch p.Kind {
	case PrimRegion:
		fillPolygon(ctx, pts, colorZoneFill)
		var stroke color.Color = colorZoneStroke
		if p.Selected {
			stroke = colorSelected
		}
		for i := range pts {
			a, b := pts[i], pts[(i+1)%len(pts)]
			ctx.strokeSegment(a, b, stroke, p.Selected)
		}
		if opts.ShowLabels && p.Label != "" {
			c := centroid(pts)
			drawTextCentered(ctx, int(c.X), int(c.Y), p.Label, colorLabel)
		}

	case PrimOutline:
		stroke := colorZonePreview
		if p.Selected {
			stroke = colorSelected
		}
		for i := 1; i < len(pts); i++ {
			ctx.strokeSegment(pts[i-1], pts[i], stroke, p.Selected)
		}

	case PrimLine:
		if len(pts) != 2 {
			return
		}
		c := colorArrow
		if p.Selected {
			c = colorSelected
		}
		ctx.strokeSegment(pts[0], pts[1], c, p.Selected)
		if p.Arrowhead {
			drawArrowhead(ctx, pts[0].X, pts[0].Y, pts[1].X, pts[1].Y, c)
		}
		if opts.ShowLabels && p.Label != "" {
			mid := geom.Vec{X: (pts[0].X + pts[1].X) / 2, Y: (pts[0].Y + pts[1].Y) / 2}
			drawTextCentered(ctx, int(mid.X), int(mid.Y-8*ctx.scale), p.Label, c)
		}

	case PrimMarker:
		if len(pts) != 1 {
			return
		}
		switch p.Role {
		case MarkerClose:
			fillCircle(ctx, pts[0].X, pts[0].Y, 4*ctx.scale, colorCloseMarker)
		case MarkerPending:
			fillCircle(ctx, pts[0].X, pts[0].Y, 4*ctx.scale, colorZonePreview)
		case MarkerVertex, MarkerHandle:
			if opts.ShowMarkers {
				var c color.Color = colorZoneStroke
				if p.Role == MarkerHandle {
					c = colorArrow
				}
				if p.Selected {
					c = colorSelected
				}
				fillCircle(ctx, pts[0].X, pts[0].Y, 3*ctx.scale, c)
			}
		}
	}
}

// strokeSegment draws a solid line, or a heavier dashed one for selected
// shapes.
func (ctx *renderContext) strokeSegment(a, b geom.Vec, c color.Color, selected bool) {
	if !selected {
		drawLine(ctx, a.X, a.Y, b.X, b.Y, c, ctx.lineWidth)
		return
	}
	drawDashedLine(ctx, a.X, a.Y, b.X, b.Y, c, ctx.lineWidth*1.5, 5*ctx.scale, 3*ctx.scale)
}

// drawLine draws a line between two points with the given thickness.
func drawLine(ctx *renderContext, x1, y1, x2, y2 float64, c color.Color, thickness float64) {
	img := ctx.img

	dx := x2 - x1
	dy := y2 - y1
	steps := math.Max(math.Abs(dx), math.Abs(dy))
	if steps < 1 {
		steps = 1
	}

	halfThick := thickness / 2

	dist := math.Sqrt(dx*dx + dy*dy)
	if dist < 1 {
		for ty := -halfThick; ty <= halfThick; ty++ {
			for tx := -halfThick; tx <= halfThick; tx++ {
				blend(img, int(x1+tx), int(y1+ty), c)
			}
		}
		return
	}

	perpX := -dy / dist
	perpY := dx / dist

	for i := 0.0; i <= steps; i++ {
		t := i / steps
		cx := x1 + dx*t
		cy := y1 + dy*t

		for offset := -halfThick; offset <= halfThick; offset += 0.5 {
			blend(img, int(cx+perpX*offset), int(cy+perpY*offset), c)
		}
	}
}

// drawDashedLine draws alternating dash and gap runs along the segment.
func drawDashedLine(ctx *renderContext, x1, y1, x2, y2 float64, c color.Color, thickness, dash, gap float64) {
	dx := x2 - x1
	dy := y2 - y1
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist < 1 {
		drawLine(ctx, x1, y1, x2, y2, c, thickness)
		return
	}
	nx := dx / dist
	ny := dy / dist

	for pos := 0.0; pos < dist; pos += dash + gap {
		end := math.Min(pos+dash, dist)
		drawLine(ctx, x1+nx*pos, y1+ny*pos, x1+nx*end, y1+ny*end, c, thickness)
	}
}

// drawArrowhead draws a filled head at (x2, y2) pointing away from (x1, y1).
func drawArrowhead(ctx *renderContext, x1, y1, x2, y2 float64, c color.Color) {
	dx := x2 - x1
	dy := y2 - y1
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist < 1 {
		return
	}

	nx := dx / dist
	ny := dy / dist

	arrowLen := 10.0 * ctx.scale
	arrowWidth := 3.5 * ctx.scale

	head := []geom.Vec{
		{X: x2, Y: y2},
		{X: x2 - nx*arrowLen + ny*arrowWidth, Y: y2 - ny*arrowLen - nx*arrowWidth},
		{X: x2 - nx*arrowLen - ny*arrowWidth, Y: y2 - ny*arrowLen + nx*arrowWidth},
	}
	fillPolygon(ctx, head, c)
}

// fillPolygon fills pts using the even-odd rule, blending c over the image.
func fillPolygon(ctx *renderContext, pts []geom.Vec, c color.Color) {
	if len(pts) < 3 {
		return
	}
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	b := ctx.img.Bounds()
	y0 := int(math.Max(math.Floor(minY), float64(b.Min.Y)))
	y1 := int(math.Min(math.Ceil(maxY), float64(b.Max.Y-1)))

	xs := make([]float64, 0, len(pts))
	for y := y0; y <= y1; y++ {
		sy := float64(y) + 0.5
		xs = xs[:0]
		j := len(pts) - 1
		for i := range pts {
			a, bb := pts[i], pts[j]
			if (a.Y > sy) != (bb.Y > sy) {
				xs = append(xs, (bb.X-a.X)*(sy-a.Y)/(bb.Y-a.Y)+a.X)
			}
			j = i
		}
		sortFloats(xs)
		for k := 0; k+1 < len(xs); k += 2 {
			for x := int(math.Ceil(xs[k] - 0.5)); float64(x)+0.5 <= xs[k+1]; x++ {
				blend(ctx.img, x, y, c)
			}
		}
	}
}

// fillCircle fills a disc centred at (cx, cy).
func fillCircle(ctx *renderContext, cx, cy, r float64, c color.Color) {
	for dy := -r; dy <= r; dy++ {
		xExtent := math.Sqrt(math.Max(0, r*r-dy*dy))
		for dx := -xExtent; dx <= xExtent; dx++ {
			blend(ctx.img, int(cx+dx), int(cy+dy), c)
		}
	}
}

// blend composites c over the pixel at (x, y).
func blend(img *image.RGBA, x, y int, c color.Color) {
	if !(image.Point{x, y}.In(img.Bounds())) {
		return
	}
	sr, sg, sb, sa := c.RGBA()
	if sa == 0xffff {
		img.Set(x, y, c)
		return
	}
	d := img.RGBAAt(x, y)
	inv := 0xffff - sa
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((sr + uint32(d.R)*0x101*inv/0xffff) >> 8),
		G: uint8((sg + uint32(d.G)*0x101*inv/0xffff) >> 8),
		B: uint8((sb + uint32(d.B)*0x101*inv/0xffff) >> 8),
		A: uint8((sa + uint32(d.A)*0x101*inv/0xffff) >> 8),
	})
}

// drawTextCentered draws text centred at the given position using Go Regular font.
func drawTextCentered(ctx *renderContext, x, y int, text string, c color.Color) {
	width := font.MeasureString(ctx.face, text).Ceil()

	// Baseline slightly below the centre so capitals look centred
	metrics := ctx.face.Metrics()
	ascent := metrics.Ascent.Ceil()
	baselineY := y + int(float64(ascent)*0.35)

	d := &font.Drawer{
		Dst:  ctx.img,
		Src:  image.NewUniform(c),
		Face: ctx.face,
		Dot:  fixed.Point26_6{X: fixed.I(x - width/2), Y: fixed.I(baselineY)},
	}
	d.DrawString(text)
}

func centroid(pts []geom.Vec) geom.Vec {
	var c geom.Vec
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(pts))
	return geom.Vec{X: c.X / n, Y: c.Y / n}
}

func sortFloats(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}
