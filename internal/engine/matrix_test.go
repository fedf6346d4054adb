package engine

import (
	"math"
	"testing"
)

func TestInvertRoundTrip(t *testing.T) {
	m := LocalMatrix(12, -7, 0.6, 2, 0.5)
	p := Point{3, 4}
	got := m.Invert().Apply(m.Apply(p))
	if !near(got.X, p.X) || !near(got.Y, p.Y) {
		t.Errorf("Invert(Apply(p)) = %v, want %v", got, p)
	}
	if !m.Multiply(m.Invert()).IsIdentity() {
		t.Errorf("m * m^-1 is not identity")
	}
}

func TestDecomposeLocalMatrix(t *testing.T) {
	tests := []struct {
		name string
		in   Decomposed
	}{
		{"identity", Decomposed{ScaleX: 1, ScaleY: 1}},
		{"translated", Decomposed{X: 10, Y: 20, ScaleX: 1, ScaleY: 1}},
		{"rotated", Decomposed{X: 5, Y: 5, Rotation: math.Pi / 3, ScaleX: 1, ScaleY: 1}},
		{"scaled", Decomposed{Rotation: -0.4, ScaleX: 2, ScaleY: 3}},
		{"mirrored", Decomposed{ScaleX: 1, ScaleY: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := LocalMatrix(tt.in.X, tt.in.Y, tt.in.Rotation, tt.in.ScaleX, tt.in.ScaleY).Decompose()
			if !near(d.X, tt.in.X) || !near(d.Y, tt.in.Y) || !near(d.Rotation, tt.in.Rotation) ||
				!near(d.ScaleX, tt.in.ScaleX) || !near(d.ScaleY, tt.in.ScaleY) {
				t.Errorf("Decompose() = %+v, want %+v", d, tt.in)
			}
		})
	}
}

func TestRotateAroundFixesCenter(t *testing.T) {
	c := Point{25, 25}
	m := RotateAround(c, math.Pi/2)
	if got := m.Apply(c); !near(got.X, c.X) || !near(got.Y, c.Y) {
		t.Errorf("center moved to %v", got)
	}
	if got := m.Apply(Point{0, 0}); !near(got.X, 50) || !near(got.Y, 0) {
		t.Errorf("Apply(0,0) = %v, want {50 0}", got)
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
	}
	for _, tt := range tests {
		if got := normalizeAngle(tt.in); !near(got, tt.want) {
			t.Errorf("normalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
