package engine

import "strings"

// Anchor names the handle a transform session is driven by.
type Anchor string

const (
	AnchorNone         Anchor = "none"
	AnchorTopLeft      Anchor = "top-left"
	AnchorTopCenter    Anchor = "top-center"
	AnchorTopRight     Anchor = "top-right"
	AnchorMiddleLeft   Anchor = "middle-left"
	AnchorMiddleRight  Anchor = "middle-right"
	AnchorBottomLeft   Anchor = "bottom-left"
	AnchorBottomCenter Anchor = "bottom-center"
	AnchorBottomRight  Anchor = "bottom-right"
	AnchorRotate       Anchor = "rotate"
)

// ResizeAnchors lists the eight resize handles clockwise from top-left.
var ResizeAnchors = []Anchor{
	AnchorTopLeft, AnchorTopCenter, AnchorTopRight, AnchorMiddleRight,
	AnchorBottomRight, AnchorBottomCenter, AnchorBottomLeft, AnchorMiddleLeft,
}

func (a Anchor) isLeft() bool   { return strings.HasSuffix(string(a), "-left") }
func (a Anchor) isRight() bool  { return strings.HasSuffix(string(a), "-right") }
func (a Anchor) isTop() bool    { return strings.HasPrefix(string(a), "top-") }
func (a Anchor) isBottom() bool { return strings.HasPrefix(string(a), "bottom-") }

// IsResize reports whether a is one of the eight resize handles.
func (a Anchor) IsResize() bool {
	return a.isLeft() || a.isRight() || a.isTop() || a.isBottom()
}

// IsCorner reports whether a moves both a horizontal and a vertical edge.
func (a Anchor) IsCorner() bool {
	return (a.isLeft() || a.isRight()) && (a.isTop() || a.isBottom())
}

func (a Anchor) flipX() Anchor {
	switch {
	case a.isLeft():
		return Anchor(strings.TrimSuffix(string(a), "-left") + "-right")
	case a.isRight():
		return Anchor(strings.TrimSuffix(string(a), "-right") + "-left")
	}
	return a
}

func (a Anchor) flipY() Anchor {
	switch {
	case a.isTop():
		return Anchor("bottom-" + strings.TrimPrefix(string(a), "top-"))
	case a.isBottom():
		return Anchor("top-" + strings.TrimPrefix(string(a), "bottom-"))
	}
	return a
}

// handleLocal returns where the handle for a sits in box-local coordinates
// for a w x h box with the given padding and rotate-handle offset.
func handleLocal(a Anchor, w, h, pad, rotateOffset float64) Point {
	if a == AnchorRotate {
		return Point{w / 2, -pad - rotateOffset}
	}
	p := Point{w / 2, h / 2}
	switch {
	case a.isLeft():
		p.X = -pad
	case a.isRight():
		p.X = w + pad
	}
	switch {
	case a.isTop():
		p.Y = -pad
	case a.isBottom():
		p.Y = h + pad
	}
	return p
}

// Handle is a resize or rotate handle position in board units.
type Handle struct {
	Anchor   Anchor `json:"anchor"`
	Position Point  `json:"position"`
}
