// Coordinate mapping between the pointer surface and the resolution
// independent annotation space, plus the small amount of plane geometry
// needed for hit-testing.

// Package geom converts between screen and normalized coordinates.
package geom

import (
	"errors"
	"math"
)

// ErrEmptySurface is returned when a conversion is requested against a
// surface that has not been laid out yet.
var ErrEmptySurface = errors.New("surface has no size")

// Scale is the extent of the normalized space on each axis.
const Scale = 100.0

// Point is a position expressed as a percentage of the rendered image
// width (X) and height (Y). Both components normally lie in [0,100].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec is a position in surface units (pixels, or terminal cells).
type Vec struct {
	X, Y float64
}

// Rect is the rendered bounds of the image surface in surface units.
type Rect struct {
	X, Y          float64 // Origin
	Width, Height float64 // Size
}

// Empty reports whether the surface cannot be used for conversion.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether v lies inside the rectangle.
func (r Rect) Contains(v Vec) bool {
	return v.X >= r.X && v.X < r.X+r.Width && v.Y >= r.Y && v.Y < r.Y+r.Height
}

// Clamp limits both components of p to [0,Scale].
func Clamp(p Point) Point {
	return Point{
		X: math.Min(math.Max(p.X, 0), Scale),
		Y: math.Min(math.Max(p.Y, 0), Scale),
	}
}

// Round2 rounds v to two decimal digits.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ToNormalized maps a surface position into normalized space.
// The result is not clamped: a pointer outside the surface yields values
// outside [0,100].
func ToNormalized(v Vec, surface Rect) (Point, error) {
	if surface.Empty() {
		return Point{}, ErrEmptySurface
	}
	return Point{
		X: Round2((v.X - surface.X) / surface.Width * Scale),
		Y: Round2((v.Y - surface.Y) / surface.Height * Scale),
	}, nil
}

// ToAbsolute maps a normalized point back into surface units.
func ToAbsolute(p Point, surface Rect) Vec {
	return Vec{
		X: surface.X + p.X/Scale*surface.Width,
		Y: surface.Y + p.Y/Scale*surface.Height,
	}
}

// Dist returns the euclidean distance between two normalized points.
func Dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// VecDist returns the euclidean distance between two surface positions.
func VecDist(a, b Vec) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// SegmentDistance returns the distance from p to the segment a-b.
func SegmentDistance(p, a, b Vec) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return VecDist(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return VecDist(p, Vec{a.X + t*dx, a.Y + t*dy})
}

// PointInPolygon reports whether p lies inside the polygon described by
// pts using the even-odd rule. Fewer than three points never contain p.
func PointInPolygon(p Vec, pts []Vec) bool {
	if len(pts) < 3 {
		return false
	}
	inside := false
	j := len(pts) - 1
	for i := range pts {
		a, b := pts[i], pts[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xCross := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// AbsoluteAll maps a slice of normalized points into surface units.
func AbsoluteAll(pts []Point, surface Rect) []Vec {
	out := make([]Vec, len(pts))
	for i, p := range pts {
		out[i] = ToAbsolute(p, surface)
	}
	return out
}
