package engine

import "math"

// CoordinateSpace maps between board units (document coordinates) and
// surface units (screen pixels after zoom and pan). It has no side effects
// and may be called mid-session.
type CoordinateSpace struct {
	scale    float64
	minScale float64
	maxScale float64
	offset   Point
}

// NewCoordinateSpace creates a space at scale 1 with no pan. A non-positive
// minScale is raised to a small positive value so the scale can never reach 0.
func NewCoordinateSpace(minScale, maxScale float64) *CoordinateSpace {
	if minScale <= 0 {
		minScale = 0.01
	}
	if maxScale < minScale {
		maxScale = minScale
	}
	c := &CoordinateSpace{minScale: minScale, maxScale: maxScale}
	c.SetScale(1)
	return c
}

// Scale returns the current zoom factor.
func (c *CoordinateSpace) Scale() float64 { return c.scale }

// Offset returns the current pan offset in surface units.
func (c *CoordinateSpace) Offset() Point { return c.offset }

// SetScale sets the zoom factor clamped to [min, max] and returns the value
// actually applied.
func (c *CoordinateSpace) SetScale(s float64) float64 {
	if math.IsNaN(s) {
		s = c.minScale
	}
	c.scale = math.Min(math.Max(s, c.minScale), c.maxScale)
	return c.scale
}

// SetOffset sets the pan offset in surface units.
func (c *CoordinateSpace) SetOffset(p Point) { c.offset = p }

// Pan moves the view by a surface-unit delta.
func (c *CoordinateSpace) Pan(d Point) { c.offset = c.offset.Add(d) }

// ZoomAt multiplies the scale by factor keeping the board point under the
// surface point fixed on screen.
func (c *CoordinateSpace) ZoomAt(factor float64, surface Point) {
	anchor := c.PointToBoard(surface)
	c.SetScale(c.scale * factor)
	c.offset = Point{surface.X - anchor.X*c.scale, surface.Y - anchor.Y*c.scale}
}

// ToSurface converts a board-unit length or delta to surface units.
func (c *CoordinateSpace) ToSurface(board float64) float64 { return board * c.scale }

// ToBoard converts a surface-unit length or delta to board units.
func (c *CoordinateSpace) ToBoard(surface float64) float64 { return surface / c.scale }

// PointToSurface converts a board point to a surface point.
func (c *CoordinateSpace) PointToSurface(p Point) Point {
	return Point{p.X*c.scale + c.offset.X, p.Y*c.scale + c.offset.Y}
}

// PointToBoard converts a surface point to a board point.
func (c *CoordinateSpace) PointToBoard(p Point) Point {
	return Point{(p.X - c.offset.X) / c.scale, (p.Y - c.offset.Y) / c.scale}
}
