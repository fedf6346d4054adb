package engine

import (
	"errors"
	"log/slog"
	"math"
)

var (
	ErrSessionActive  = errors.New("transform session already active")
	ErrEmptySelection = errors.New("nothing selected")
)

// minBoxSize is the smallest width or height a resize may produce.
const minBoxSize = 1.0

// SessionState is the phase of the transform state machine.
type SessionState int

const (
	StateIdle SessionState = iota
	StateMoving
	StateResizing
	StateRotating
)

func (s SessionState) String() string {
	switch s {
	case StateMoving:
		return "moving"
	case StateResizing:
		return "resizing"
	case StateRotating:
		return "rotating"
	default:
		return "idle"
	}
}

// Modifiers are the keyboard modifiers held during a pointer event.
type Modifiers struct {
	Shift bool `json:"shift"`
	Alt   bool `json:"alt"`
	Ctrl  bool `json:"ctrl"`
}

// TransformSession drives one pointer operation over the selection: a move,
// a resize through one of the eight anchors, or a rotation. All pointer
// positions are board units.
type TransformSession struct {
	selection *SelectionSet
	snap      *SnapEngine
	coords    *CoordinateSpace
	settings  *Settings

	state        SessionState
	anchor       Anchor
	startPointer Point
	startBounds  Rect
	startBox     Box
	box          Box
	dragOffset   Point
	changed      bool
}

// NewTransformSession creates an idle session.
func NewTransformSession(sel *SelectionSet, snap *SnapEngine, coords *CoordinateSpace, settings *Settings) *TransformSession {
	return &TransformSession{selection: sel, snap: snap, coords: coords, settings: settings}
}

func (t *TransformSession) State() SessionState { return t.state }
func (t *TransformSession) Anchor() Anchor      { return t.anchor }
func (t *TransformSession) Active() bool        { return t.state != StateIdle }

// Box returns the current transform frame.
func (t *TransformSession) Box() Box { return t.box }

// Begin starts a session. AnchorNone moves, AnchorRotate rotates, any other
// anchor resizes.
func (t *TransformSession) Begin(anchor Anchor, pointer Point) error {
	if t.Active() {
		return ErrSessionActive
	}
	if t.selection.IsEmpty() {
		return ErrEmptySelection
	}

	t.selection.captureStart()
	t.anchor = anchor
	t.startPointer = pointer
	t.startBounds = t.selection.Bounds()
	t.box = t.selection.Box()
	t.startBox = t.box
	t.changed = false

	switch {
	case anchor == AnchorNone:
		t.state = StateMoving
	case anchor == AnchorRotate:
		t.state = StateRotating
		t.dragOffset = pointer.Sub(t.handlePosition(anchor))
	case anchor.IsResize():
		t.state = StateResizing
		t.dragOffset = pointer.Sub(t.handlePosition(anchor))
	default:
		return errors.New("unknown anchor " + string(anchor))
	}
	slog.Debug("transform session begin", "state", t.state, "anchor", anchor, "nodes", t.selection.Len())
	return nil
}

// Update applies one pointer-move. It reports whether the geometry changed;
// degenerate frames leave the previous geometry in place.
func (t *TransformSession) Update(pointer Point, mods Modifiers) bool {
	var ok bool
	switch t.state {
	case StateMoving:
		ok = t.move(pointer)
	case StateResizing:
		ok = t.resize(pointer, mods)
	case StateRotating:
		ok = t.rotate(pointer)
	}
	if ok {
		t.changed = true
	}
	return ok
}

// End returns to Idle and reports whether any frame changed the geometry.
func (t *TransformSession) End() bool {
	changed := t.changed
	slog.Debug("transform session end", "state", t.state, "changed", changed)
	t.reset()
	return changed
}

// Cancel restores every member to its session-start geometry and returns to
// Idle.
func (t *TransformSession) Cancel() {
	if !t.Active() {
		return
	}
	t.selection.restoreStart()
	t.reset()
}

func (t *TransformSession) reset() {
	t.state = StateIdle
	t.anchor = ""
	t.startPointer = Point{}
	t.startBounds = Rect{}
	t.startBox = Box{}
	t.box = Box{}
	t.dragOffset = Point{}
	t.changed = false
	t.snap.ClearGuides()
}

// Frame returns the box handles are laid out on: the session frame while
// active, otherwise the selection's current frame.
func (t *TransformSession) Frame() Box {
	if t.Active() {
		return t.box
	}
	return t.selection.Box()
}

func (t *TransformSession) handlePosition(a Anchor) Point {
	return t.handlesOn(t.Frame(), a)
}

func (t *TransformSession) handlesOn(box Box, a Anchor) Point {
	pad := t.settings.Padding
	off := t.coords.ToBoard(t.settings.RotateOffsetPx)
	return box.Matrix().Apply(handleLocal(a, box.Width, box.Height, pad, off))
}

// Handles returns the handle positions, or nil with nothing selected.
func (t *TransformSession) Handles() []Handle {
	if t.selection.IsEmpty() {
		return nil
	}
	box := t.Frame()
	out := make([]Handle, 0, len(ResizeAnchors)+1)
	for _, a := range ResizeAnchors {
		out = append(out, Handle{Anchor: a, Position: t.handlesOn(box, a)})
	}
	return append(out, Handle{Anchor: AnchorRotate, Position: t.handlesOn(box, AnchorRotate)})
}

// HandleAt returns the handle within radius board units of p, or AnchorNone.
func (t *TransformSession) HandleAt(p Point, radius float64) Anchor {
	best, hit := radius, AnchorNone
	for _, h := range t.Handles() {
		if d := h.Position.Dist(p); d <= best {
			best, hit = d, h.Anchor
		}
	}
	return hit
}

func (t *TransformSession) move(pointer Point) bool {
	delta := pointer.Sub(t.startPointer)
	if delta.IsZero() {
		t.snap.ClearGuides()
		for _, n := range t.selection.members {
			n.X, n.Y = n.shadow.sessionStart.X, n.shadow.sessionStart.Y
		}
		t.changed = false
		return false
	}

	var targets []SnapTarget
	for _, s := range t.selection.siblingsOutside() {
		if r := s.ClientRect(); !r.IsEmpty() {
			targets = append(targets, SnapTarget{ID: s.ID, Bounds: r})
		}
	}
	pos, _ := t.snap.Move(t.startBounds.Offset(delta), targets)
	corrected := Point{pos.X - t.startBounds.X, pos.Y - t.startBounds.Y}

	for _, n := range t.selection.members {
		d := toParentDelta(n, corrected)
		n.X = n.shadow.sessionStart.X + d.X
		n.Y = n.shadow.sessionStart.Y + d.Y
	}
	return true
}

// toParentDelta converts a board-space delta into the node's parent space.
func toParentDelta(n *SceneNode, d Point) Point {
	parent := n.ParentTransform()
	if parent.IsIdentity() {
		return d
	}
	return parent.Invert().ApplyVector(d)
}

func (t *TransformSession) keepRatio(mods Modifiers) bool {
	return (t.settings.KeepRatio || mods.Shift) != t.settings.KeepRatioInverted
}

func (t *TransformSession) resize(pointer Point, mods Modifiers) bool {
	box := t.box
	w, h := box.Width, box.Height
	if w <= 0 || h <= 0 {
		return false
	}
	pad := t.settings.Padding
	a := t.anchor

	handle, _ := t.snap.SnapPoint(pointer.Sub(t.dragOffset))
	p := box.Matrix().Invert().Apply(handle)

	left, top, right, bottom := 0.0, 0.0, w, h
	switch {
	case a.isLeft():
		left = p.X + pad
	case a.isRight():
		right = p.X - pad
	}
	switch {
	case a.isTop():
		top = p.Y + pad
	case a.isBottom():
		bottom = p.Y - pad
	}

	centered := t.settings.CenteredScaling || mods.Alt
	if t.keepRatio(mods) && a.IsCorner() {
		fixed, ref := Point{0, 0}, Point{w, h}
		if centered {
			fixed, ref = Point{w / 2, h / 2}, Point{w / 2, h / 2}
		} else {
			if a.isLeft() {
				fixed.X = w
			}
			if a.isTop() {
				fixed.Y = h
			}
		}
		corner := Point{right, bottom}
		if a.isLeft() {
			corner.X = left
		}
		if a.isTop() {
			corner.Y = top
		}
		d := corner.Sub(fixed)
		k := math.Hypot(d.X, d.Y) / math.Hypot(ref.X, ref.Y)
		corner = Point{fixed.X + ratioSign(d.X, a.isLeft())*ref.X*k, fixed.Y + ratioSign(d.Y, a.isTop())*ref.Y*k}
		if a.isLeft() {
			left = corner.X
		} else {
			right = corner.X
		}
		if a.isTop() {
			top = corner.Y
		} else {
			bottom = corner.Y
		}
	}

	if centered {
		switch {
		case a.isLeft():
			right = w - left
		case a.isRight():
			left = w - right
		}
		switch {
		case a.isTop():
			bottom = h - top
		case a.isBottom():
			top = h - bottom
		}
	}

	flipX, flipY := right < left, bottom < top
	if flipX {
		left, right = right, left
	}
	if flipY {
		top, bottom = bottom, top
	}
	newW, newH := right-left, bottom-top
	if newW < minBoxSize || newH < minBoxSize {
		return false
	}

	// Crossing the opposite edge swaps the anchor. The handle now sits on
	// the other side of the padding, so shift the drag offset by the same
	// amount to keep the pointer on the visual corner.
	var shift Point
	if flipX {
		if a.isRight() {
			shift.X = 2 * pad
		} else {
			shift.X = -2 * pad
		}
		t.anchor = t.anchor.flipX()
	}
	if flipY {
		if a.isBottom() {
			shift.Y = 2 * pad
		} else {
			shift.Y = -2 * pad
		}
		t.anchor = t.anchor.flipY()
	}
	if !shift.IsZero() {
		t.dragOffset = t.dragOffset.Add(box.Matrix().ApplyVector(shift))
	}

	next := Box{Width: newW, Height: newH, Rotation: box.Rotation}
	origin := box.Matrix().Apply(Point{left, top})
	next.X, next.Y = origin.X, origin.Y

	// Each frame maps the session-start frame onto next so rounding does not
	// build up across pointer moves.
	start := t.startBox
	m := next.Matrix().Multiply(Scale(newW/start.Width, newH/start.Height)).Multiply(start.Matrix().Invert())
	t.applyFromStart(m)
	if n := t.soleLeaf(); n != nil {
		g := n.shadow.sessionStart
		n.Width = g.Width * newW / start.Width
		n.Height = g.Height * newH / start.Height
	}
	t.box = next
	return true
}

// ratioSign keeps the dragged corner on the side the pointer is on; a zero
// offset falls back to the anchor's natural side.
func ratioSign(d float64, nearSide bool) float64 {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	case nearSide:
		return -1
	default:
		return 1
	}
}

func (t *TransformSession) rotate(pointer Point) bool {
	handle := pointer.Sub(t.dragOffset)
	center := t.box.Center()
	target := math.Atan2(handle.Y-center.Y, handle.X-center.X) + math.Pi/2
	target = t.snapRotation(target)

	if normalizeAngle(target-t.box.Rotation) == 0 {
		return false
	}
	start := t.startBox
	g := RotateAround(center, normalizeAngle(target-start.Rotation))
	t.applyFromStart(g)

	origin := g.Apply(Point{start.X, start.Y})
	t.box.X, t.box.Y = origin.X, origin.Y
	t.box.Rotation = target
	return true
}

// snapRotation moves an absolute angle to the nearest configured snap angle
// within tolerance.
func (t *TransformSession) snapRotation(angle float64) float64 {
	best := math.Inf(1)
	snapped := angle
	for _, s := range t.settings.RotationSnaps {
		d := math.Abs(normalizeAngle(angle - s))
		if d < t.settings.RotationSnapTolerance && d < best {
			best = d
			snapped = s
		}
	}
	return normalizeAngle(snapped)
}

// applyFromStart puts every member back to its session-start geometry,
// applies the board-space transform m and re-derives the local transform:
// parent^-1 * m * parent * local.
func (t *TransformSession) applyFromStart(m Matrix2D) {
	t.selection.restoreStart()
	for _, n := range t.selection.members {
		parent := n.ParentTransform()
		local := parent.Invert().Multiply(m).Multiply(parent).Multiply(n.LocalTransform())
		n.SetLocalTransform(local.Decompose())
	}
}

// soleLeaf returns the only member when the selection is a single leaf, whose
// frame is the session box itself.
func (t *TransformSession) soleLeaf() *SceneNode {
	if len(t.selection.members) != 1 || t.selection.members[0].IsContainer() {
		return nil
	}
	return t.selection.members[0]
}
