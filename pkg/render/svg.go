package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/ha1tch/imgmark/pkg/geom"
)

// SVGOptions controls SVG rendering.
type SVGOptions struct {
	Width      int    // viewBox width in pixels
	Height     int    // viewBox height in pixels
	ImageHref  string // background image reference, omitted when empty
	FontSize   int    // label font size
	ShowLabels bool   // draw annotation labels
}

// DefaultSVGOptions returns sensible defaults.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Width:      800,
		Height:     600,
		FontSize:   14,
		ShowLabels: true,
	}
}

func errInvalidSize(w, h int) error {
	return fmt.Errorf("render: invalid size %dx%d", w, h)
}

// GenerateSVG renders sc as an SVG document. Points are emitted in pixel
// units of the requested size so the overlay scales with the image.
func GenerateSVG(sc Scene, opts SVGOptions) string {
	if opts.Width == 0 {
		opts.Width = 800
	}
	if opts.Height == 0 {
		opts.Height = 600
	}
	if opts.FontSize == 0 {
		opts.FontSize = 14
	}
	surface := geom.Rect{Width: float64(opts.Width), Height: float64(opts.Height)}

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		opts.Width, opts.Height, opts.Width, opts.Height))

	sb.WriteString(`  <defs>
    <marker id="arrowhead" markerWidth="10" markerHeight="7" refX="10" refY="3.5" orient="auto">
      <polygon points="0 0, 10 3.5, 0 7" fill="red"/>
    </marker>
    <marker id="arrowhead-selected" markerWidth="10" markerHeight="7" refX="10" refY="3.5" orient="auto">
      <polygon points="0 0, 10 3.5, 0 7" fill="#007bff"/>
    </marker>
  </defs>
`)

	if opts.ImageHref != "" {
		sb.WriteString(fmt.Sprintf(`  <image href="%s" x="0" y="0" width="%d" height="%d" preserveAspectRatio="none"/>`+"\n",
			html.EscapeString(opts.ImageHref), opts.Width, opts.Height))
	}

	for _, p := range sc.Primitives {
		pts := geom.AbsoluteAll(p.Points, surface)
		switch p.Kind {
		case PrimRegion:
			stroke, width, dash := "rgba(40, 167, 69, 0.8)", 2, ""
			if p.Selected {
				stroke, width, dash = "#007bff", 3, ` stroke-dasharray="5,3"`
			}
			sb.WriteString(fmt.Sprintf(`  <polygon points="%s" fill="rgba(40, 167, 69, 0.3)" stroke="%s" stroke-width="%d"%s/>`+"\n",
				pointList(pts), stroke, width, dash))
			if opts.ShowLabels && p.Label != "" {
				c := centroid(pts)
				writeLabel(&sb, c.X, c.Y, p.Label, opts.FontSize, "#212529")
			}

		case PrimOutline:
			stroke := "rgba(40, 167, 69, 1)"
			if p.Selected {
				stroke = "#007bff"
			}
			sb.WriteString(fmt.Sprintf(`  <polyline points="%s" fill="none" stroke="%s" stroke-width="2"/>`+"\n",
				pointList(pts), stroke))

		case PrimLine:
			if len(pts) != 2 {
				continue
			}
			stroke, width, dash, head := "red", 2, "", "arrowhead"
			if p.Selected {
				stroke, width, dash, head = "#007bff", 3, ` stroke-dasharray="5,3"`, "arrowhead-selected"
			}
			marker := ""
			if p.Arrowhead {
				marker = fmt.Sprintf(` marker-end="url(#%s)"`, head)
			}
			sb.WriteString(fmt.Sprintf(`  <line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="%d"%s%s/>`+"\n",
				pts[0].X, pts[0].Y, pts[1].X, pts[1].Y, stroke, width, dash, marker))
			if opts.ShowLabels && p.Label != "" {
				writeLabel(&sb, (pts[0].X+pts[1].X)/2, (pts[0].Y+pts[1].Y)/2-8, p.Label, opts.FontSize, stroke)
			}

		case PrimMarker:
			if len(pts) != 1 {
				continue
			}
			switch p.Role {
			case MarkerClose:
				sb.WriteString(fmt.Sprintf(`  <circle cx="%.2f" cy="%.2f" r="4" fill="orange"/>`+"\n", pts[0].X, pts[0].Y))
			case MarkerPending:
				sb.WriteString(fmt.Sprintf(`  <circle cx="%.2f" cy="%.2f" r="4" fill="rgba(40, 167, 69, 1)"/>`+"\n", pts[0].X, pts[0].Y))
			}
		}
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

func pointList(pts []geom.Vec) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = fmt.Sprintf("%.2f,%.2f", p.X, p.Y)
	}
	return strings.Join(parts, " ")
}

func writeLabel(sb *strings.Builder, x, y float64, text string, size int, fill string) {
	sb.WriteString(fmt.Sprintf(`  <text x="%.2f" y="%.2f" text-anchor="middle" dominant-baseline="middle" font-family="sans-serif" font-size="%d" fill="%s">%s</text>`+"\n",
		x, y, size, fill, html.EscapeString(text)))
}
