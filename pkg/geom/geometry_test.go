package geom

import (
	"errors"
	"math"
	"testing"
)

func TestToNormalized(t *testing.T) {
	surface := Rect{X: 10, Y: 20, Width: 200, Height: 100}

	p, err := ToNormalized(Vec{110, 70}, surface)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.X != 50 || p.Y != 50 {
		t.Errorf("Expected (50, 50), got (%.2f, %.2f)", p.X, p.Y)
	}

	// Two decimals retained
	p, _ = ToNormalized(Vec{10 + 200.0/3, 20}, surface)
	if p.X != 33.33 {
		t.Errorf("Expected 33.33, got %v", p.X)
	}

	// No clamping outside the surface
	p, _ = ToNormalized(Vec{0, 0}, surface)
	if p.X != -5 || p.Y != -20 {
		t.Errorf("Expected (-5, -20), got (%.2f, %.2f)", p.X, p.Y)
	}
}

func TestToNormalizedEmptySurface(t *testing.T) {
	for _, r := range []Rect{{}, {Width: 100}, {Height: 100}, {Width: -1, Height: 10}} {
		if _, err := ToNormalized(Vec{1, 1}, r); !errors.Is(err, ErrEmptySurface) {
			t.Errorf("surface %+v: expected ErrEmptySurface, got %v", r, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	surfaces := []Rect{
		{Width: 1, Height: 1},
		{Width: 640, Height: 480},
		{X: 12.5, Y: 3, Width: 83, Height: 1999},
		{Width: 3, Height: 7},
	}
	points := []Point{{0, 0}, {100, 100}, {12.34, 56.78}, {99.99, 0.01}, {50, 33.33}}

	for _, s := range surfaces {
		for _, p := range points {
			back, err := ToNormalized(ToAbsolute(p, s), s)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(back.X-p.X) > 0.01 || math.Abs(back.Y-p.Y) > 0.01 {
				t.Errorf("surface %+v: %v round-tripped to %v", s, p, back)
			}
		}
	}
}

func TestSegmentDistance(t *testing.T) {
	a, b := Vec{0, 0}, Vec{10, 0}
	tests := []struct {
		p    Vec
		want float64
	}{
		{Vec{5, 3}, 3},
		{Vec{-4, 3}, 5},
		{Vec{13, 4}, 5},
		{Vec{10, 0}, 0},
	}
	for _, tt := range tests {
		if got := SegmentDistance(tt.p, a, b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("SegmentDistance(%v) = %.3f, want %.3f", tt.p, got, tt.want)
		}
	}

	// Degenerate segment
	if got := SegmentDistance(Vec{3, 4}, a, a); got != 5 {
		t.Errorf("degenerate segment: got %.3f, want 5", got)
	}
}

func TestPointInPolygon(t *testing.T) {
	square := []Vec{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	if !PointInPolygon(Vec{5, 5}, square) {
		t.Error("centre should be inside")
	}
	if PointInPolygon(Vec{15, 5}, square) {
		t.Error("point right of square should be outside")
	}

	// Concave "L" shape: notch at top right
	l := []Vec{{0, 0}, {5, 0}, {5, 5}, {10, 5}, {10, 10}, {0, 10}}
	if PointInPolygon(Vec{7, 2}, l) {
		t.Error("point in notch should be outside")
	}
	if !PointInPolygon(Vec{7, 7}, l) {
		t.Error("point in lower arm should be inside")
	}

	if PointInPolygon(Vec{1, 1}, square[:2]) {
		t.Error("two points never contain anything")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want Point
	}{
		{Point{X: 50, Y: 50}, Point{X: 50, Y: 50}},
		{Point{X: -3.5, Y: 120}, Point{X: 0, Y: 100}},
		{Point{X: 180, Y: -40}, Point{X: 100, Y: 0}},
		{Point{X: 0, Y: 100}, Point{X: 0, Y: 100}},
	}
	for _, tt := range tests {
		if got := Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
