package engine

import (
	"math"
	"sort"
)

// SourceGrid tags a snap candidate or guide derived from the background grid.
const SourceGrid = "grid"

const sourceSelf = "self"

type Orientation string

const (
	Vertical   Orientation = "vertical"   // a line of constant x
	Horizontal Orientation = "horizontal" // a line of constant y
)

// Guide is a line drawn while an attraction is active.
type Guide struct {
	Orientation Orientation `json:"orientation"`
	Position    float64     `json:"position"`
	Source      string      `json:"source"`
}

// SnapCandidate is one scalar edge or center coordinate on an axis, tagged
// with where it came from: the moving group, the grid, or a sibling id.
type SnapCandidate struct {
	Value  float64
	Source string
}

// SnapTarget is a sibling that moving nodes can attract to.
type SnapTarget struct {
	ID     string
	Bounds Rect
}

// SnapEngine computes attracted positions. It never mutates the scene; the
// caller applies the returned coordinates.
type SnapEngine struct {
	coords   *CoordinateSpace
	settings *Settings
	guides   []Guide
}

// NewSnapEngine creates a snap engine using the grid size, tolerance and
// board bounds from settings.
func NewSnapEngine(coords *CoordinateSpace, settings *Settings) *SnapEngine {
	return &SnapEngine{coords: coords, settings: settings}
}

// Guides returns the guide lines produced by the last call.
func (e *SnapEngine) Guides() []Guide {
	out := make([]Guide, len(e.guides))
	copy(out, e.guides)
	return out
}

// ClearGuides drops all guide lines.
func (e *SnapEngine) ClearGuides() { e.guides = nil }

// gridTolerance is the grid fallback tolerance in board units.
func (e *SnapEngine) gridTolerance() float64 {
	return e.coords.ToBoard(e.settings.SnapTolerancePx)
}

// Move attracts a moving box to sibling edges and centers, falling back to
// the grid per axis. It returns the adjusted top-left corner and whether any
// attraction happened.
func (e *SnapEngine) Move(proposed Rect, targets []SnapTarget) (Point, bool) {
	e.guides = nil
	pos := Point{proposed.X, proposed.Y}

	dx, okX := e.attractAxis(proposed, targets, Vertical)
	dy, okY := e.attractAxis(proposed, targets, Horizontal)
	pos.X += dx
	pos.Y += dy
	return pos, okX || okY
}

// edges returns near edge, center and far edge of r along the axis measured
// by lines of the given orientation.
func edges(r Rect, o Orientation) [3]float64 {
	if o == Vertical {
		return [3]float64{r.X, r.X + r.Width/2, r.X + r.Width}
	}
	return [3]float64{r.Y, r.Y + r.Height/2, r.Y + r.Height}
}

func (e *SnapEngine) attractAxis(moving Rect, targets []SnapTarget, o Orientation) (float64, bool) {
	if shift, ok := e.attractSiblings(moving, targets, o); ok {
		return shift, true
	}
	return e.attractGrid(moving, o)
}

func (e *SnapEngine) attractSiblings(moving Rect, targets []SnapTarget, o Orientation) (float64, bool) {
	cands := make([]SnapCandidate, 0, 3*(len(targets)+1))
	for _, v := range edges(moving, o) {
		cands = append(cands, SnapCandidate{Value: v, Source: sourceSelf})
	}
	for _, t := range targets {
		for _, v := range edges(t.Bounds, o) {
			cands = append(cands, SnapCandidate{Value: v, Source: t.ID})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Value < cands[j].Value })

	limit := e.settings.GridSize / 2
	best := math.Inf(1)
	var shift float64
	var guide Guide
	for i := 0; i+1 < len(cands); i++ {
		a, b := cands[i], cands[i+1]
		if (a.Source == sourceSelf) == (b.Source == sourceSelf) {
			continue
		}
		self, other := a, b
		if b.Source == sourceSelf {
			self, other = b, a
		}
		gap := math.Abs(other.Value - self.Value)
		if gap < limit && gap < best {
			best = gap
			shift = other.Value - self.Value
			guide = Guide{Orientation: o, Position: other.Value, Source: other.Source}
		}
	}
	if math.IsInf(best, 1) {
		return 0, false
	}
	e.guides = append(e.guides, guide)
	return shift, true
}

// attractGrid tries the near edge, then the far edge against the nearest
// grid line, then the board bounds, and stops at the first within tolerance.
func (e *SnapEngine) attractGrid(moving Rect, o Orientation) (float64, bool) {
	tol := e.gridTolerance()
	ed := edges(moving, o)
	near, far := ed[0], ed[2]

	for _, v := range []float64{near, far} {
		if g, ok := e.nearestGridLine(v, tol); ok {
			e.guides = append(e.guides, Guide{Orientation: o, Position: g, Source: SourceGrid})
			return g - v, true
		}
	}

	extent := e.settings.BoardWidth
	if o == Horizontal {
		extent = e.settings.BoardHeight
	}
	if extent > 0 {
		if math.Abs(near) <= tol {
			e.guides = append(e.guides, Guide{Orientation: o, Position: 0, Source: SourceGrid})
			return -near, true
		}
		if math.Abs(extent-far) <= tol {
			e.guides = append(e.guides, Guide{Orientation: o, Position: extent, Source: SourceGrid})
			return extent - far, true
		}
	}
	return 0, false
}

func (e *SnapEngine) nearestGridLine(v, tol float64) (float64, bool) {
	size := e.settings.GridSize
	if size <= 0 {
		return 0, false
	}
	g := math.Round(v/size) * size
	if math.Abs(g-v) <= tol {
		return g, true
	}
	return 0, false
}

// SnapPoint clamps each coordinate of an anchor position to the nearest grid
// line when within tolerance. Axes are independent.
func (e *SnapEngine) SnapPoint(p Point) (Point, bool) {
	e.guides = nil
	tol := e.gridTolerance()
	attracted := false
	if g, ok := e.nearestGridLine(p.X, tol); ok {
		p.X = g
		attracted = true
		e.guides = append(e.guides, Guide{Orientation: Vertical, Position: g, Source: SourceGrid})
	}
	if g, ok := e.nearestGridLine(p.Y, tol); ok {
		p.Y = g
		attracted = true
		e.guides = append(e.guides, Guide{Orientation: Horizontal, Position: g, Source: SourceGrid})
	}
	return p, attracted
}
