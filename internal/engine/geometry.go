package engine

import "math"

// Point is a 2D coordinate or vector.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(o Point) Point        { return Point{p.X + o.X, p.Y + o.Y} }
func (p Point) Sub(o Point) Point        { return Point{p.X - o.X, p.Y - o.Y} }
func (p Point) Mul(k float64) Point      { return Point{p.X * k, p.Y * k} }
func (p Point) Dist(o Point) float64     { return math.Hypot(p.X-o.X, p.Y-o.Y) }
func (p Point) IsZero() bool             { return p.X == 0 && p.Y == 0 }
func (p Point) Rotate(rad float64) Point { return Rotate(rad).Apply(p) }

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Center returns the center point of the rect.
func (r Rect) Center() Point {
	return Point{r.X + r.Width/2, r.Y + r.Height/2}
}

// Offset returns the rect translated by d.
func (r Rect) Offset(d Point) Rect {
	return Rect{X: r.X + d.X, Y: r.Y + d.Y, Width: r.Width, Height: r.Height}
}

func boundsOf(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Box is a possibly rotated rectangle: origin is the top-left corner before
// rotation, and the box rotates around it.
type Box struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

// Matrix maps box-local coordinates (0..w, 0..h) to board coordinates.
func (b Box) Matrix() Matrix2D {
	return LocalMatrix(b.X, b.Y, b.Rotation, 1, 1)
}

// Center returns the box center in board coordinates.
func (b Box) Center() Point {
	return b.Matrix().Apply(Point{b.Width / 2, b.Height / 2})
}

// Bounds returns the axis-aligned rect enclosing the box.
func (b Box) Bounds() Rect {
	return b.Matrix().TransformRect(Rect{Width: b.Width, Height: b.Height})
}

// normalizeAngle maps an angle to (-pi, pi].
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
