package main

import (
	"image"
	"image/color"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/imgmark/pkg/geom"
	"github.com/ha1tch/imgmark/pkg/imagefile"
	"github.com/ha1tch/imgmark/pkg/render"
)

// Each terminal cell shows two vertically stacked pixels using the upper
// half block, so the canvas is W x 2H pixels for W x H cells.

// Overlay colours
var (
	rgbZone     = color.RGBA{40, 167, 69, 255}
	rgbArrow    = color.RGBA{255, 0, 0, 255}
	rgbSelected = color.RGBA{0, 123, 255, 255}
	rgbClose    = color.RGBA{255, 165, 0, 255}
	rgbBlank    = color.RGBA{16, 16, 16, 255}
)

// layout places an image of imgW x imgH pixels inside a canvas of
// cellsW x cellsH cells. It returns the fitted pixel size and the surface
// rectangle in canvas pixels.
func layout(imgW, imgH, cellsW, cellsH int) (fitW, fitH int, surface geom.Rect) {
	pixW, pixH := cellsW, cellsH*2
	fitW, fitH = imagefile.FitSize(imgW, imgH, pixW, pixH)
	if fitW == 0 {
		return 0, 0, geom.Rect{}
	}
	surface = geom.Rect{
		X:      float64((pixW - fitW) / 2),
		Y:      float64((pixH - fitH) / 2),
		Width:  float64(fitW),
		Height: float64(fitH),
	}
	return fitW, fitH, surface
}

// cellToVec maps a terminal cell to the canvas pixel position at its
// centre.
func cellToVec(x, y int) geom.Vec {
	return geom.Vec{X: float64(x) + 0.5, Y: float64(y)*2 + 1}
}

// raster is the pixel buffer behind the canvas.
type raster struct {
	w, h int
	pix  []color.RGBA
}

func newRaster(w, h int) *raster {
	r := &raster{w: w, h: h, pix: make([]color.RGBA, w*h)}
	for i := range r.pix {
		r.pix[i] = rgbBlank
	}
	return r
}

func (r *raster) in(x, y int) bool {
	return x >= 0 && y >= 0 && x < r.w && y < r.h
}

func (r *raster) at(x, y int) color.RGBA {
	if !r.in(x, y) {
		return rgbBlank
	}
	return r.pix[y*r.w+x]
}

func (r *raster) set(x, y int, c color.RGBA) {
	if r.in(x, y) {
		r.pix[y*r.w+x] = c
	}
}

// mix blends c over the pixel with weight alpha in [0,1].
func (r *raster) mix(x, y int, c color.RGBA, alpha float64) {
	if !r.in(x, y) {
		return
	}
	d := r.pix[y*r.w+x]
	lerp := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a)*(1-alpha) + float64(b)*alpha))
	}
	r.pix[y*r.w+x] = color.RGBA{lerp(d.R, c.R), lerp(d.G, c.G), lerp(d.B, c.B), 255}
}

// drawImage copies img into the raster with its top-left corner at (ox, oy).
func (r *raster) drawImage(img image.Image, ox, oy int) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			c.A = 255
			r.set(ox+x-b.Min.X, oy+y-b.Min.Y, c)
		}
	}
}

// line draws a Bresenham line. With dashed set, every other run of two
// pixels is skipped.
func (r *raster) line(x0, y0, x1, y1 int, c color.RGBA, dashed bool) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for step := 0; ; step++ {
		if !dashed || (step/2)%2 == 0 {
			r.set(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// fillPolygon tints every pixel whose centre lies inside pts.
func (r *raster) fillPolygon(pts []geom.Vec, c color.RGBA, alpha float64) {
	if len(pts) < 3 {
		return
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	for y := max(0, int(minY)); y <= min(r.h-1, int(maxY)); y++ {
		for x := max(0, int(minX)); x <= min(r.w-1, int(maxX)); x++ {
			if geom.PointInPolygon(geom.Vec{X: float64(x) + 0.5, Y: float64(y) + 0.5}, pts) {
				r.mix(x, y, c, alpha)
			}
		}
	}
}

// dot draws a square marker of the given radius.
func (r *raster) dot(x, y, radius int, c color.RGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r.set(x+dx, y+dy, c)
		}
	}
}

// arrowhead draws two barbs at (x1, y1) pointing away from (x0, y0).
func (r *raster) arrowhead(x0, y0, x1, y1 float64, c color.RGBA) {
	ang := math.Atan2(y1-y0, x1-x0)
	const barb = 3.0
	for _, off := range []float64{math.Pi * 5 / 6, -math.Pi * 5 / 6} {
		bx := x1 + barb*math.Cos(ang+off)
		by := y1 + barb*math.Sin(ang+off)
		r.line(px(x1), px(y1), px(bx), px(by), c, false)
	}
}

// drawScene rasterises the overlay primitives.
func (r *raster) drawScene(sc render.Scene, surface geom.Rect) {
	for _, p := range sc.Primitives {
		pts := geom.AbsoluteAll(p.Points, surface)
		switch p.Kind {
		case render.PrimRegion:
			fill, stroke := rgbZone, rgbZone
			if p.Selected {
				stroke = rgbSelected
			}
			r.fillPolygon(pts, fill, 0.3)
			for i := range pts {
				a, b := pts[i], pts[(i+1)%len(pts)]
				r.line(px(a.X), px(a.Y), px(b.X), px(b.Y), stroke, p.Selected)
			}

		case render.PrimOutline:
			stroke := rgbZone
			if p.Selected {
				stroke = rgbSelected
			}
			for i := 1; i < len(pts); i++ {
				r.line(px(pts[i-1].X), px(pts[i-1].Y), px(pts[i].X), px(pts[i].Y), stroke, false)
			}

		case render.PrimLine:
			if len(pts) != 2 {
				continue
			}
			c := rgbArrow
			if p.Selected {
				c = rgbSelected
			}
			r.line(px(pts[0].X), px(pts[0].Y), px(pts[1].X), px(pts[1].Y), c, p.Selected)
			if p.Arrowhead {
				r.arrowhead(pts[0].X, pts[0].Y, pts[1].X, pts[1].Y, c)
			}

		case render.PrimMarker:
			if len(pts) != 1 {
				continue
			}
			x, y := px(pts[0].X), px(pts[0].Y)
			switch p.Role {
			case render.MarkerClose:
				r.dot(x, y, 1, rgbClose)
			case render.MarkerPending:
				r.dot(x, y, 0, rgbZone)
			case render.MarkerVertex, render.MarkerHandle:
				if p.Selected {
					r.dot(x, y, 0, rgbSelected)
				}
			}
		}
	}
}

// cell returns the glyph and style for terminal cell (x, y).
func (r *raster) cell(x, y int) (rune, tcell.Style) {
	top := r.at(x, y*2)
	bot := r.at(x, y*2+1)
	st := tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
		Background(tcell.NewRGBColor(int32(bot.R), int32(bot.G), int32(bot.B)))
	return '▀', st
}

// px maps a canvas coordinate to the pixel containing it.
func px(v float64) int {
	return int(math.Floor(v))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
