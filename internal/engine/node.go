package engine

import (
	"errors"
	"fmt"
	"maps"
	"math"

	"github.com/wiredraw/wiredraw/internal/document"
)

var (
	ErrNodeNotFound     = errors.New("node not found")
	ErrInvalidAttribute = errors.New("invalid attribute")
)

// Node capabilities shared by every node type. Node types differ only in
// data (Type, Attrs), never in behavior.
type (
	Transformable interface {
		LocalTransform() Matrix2D
		SetLocalTransform(d Decomposed)
	}
	Selectable interface {
		IsSelected() bool
	}
	Serializable interface {
		Record() document.NodeRecord
	}
)

var (
	_ Transformable = (*SceneNode)(nil)
	_ Selectable    = (*SceneNode)(nil)
	_ Serializable  = (*SceneNode)(nil)
)

// SceneNode is one placed symbol, image, group or the root layer. Position is
// in board units relative to the parent. ZIndex equals the node's index in
// its parent's children.
type SceneNode struct {
	ID        string
	Type      document.NodeType
	X         float64
	Y         float64
	Width     float64
	Height    float64
	Rotation  float64 // radians
	ScaleX    float64
	ScaleY    float64
	ZIndex    int
	Opacity   float64
	Listening bool
	Attrs     map[string]string

	// Content is the resolved asset payload of image nodes. It is loaded at
	// restore time and never serialized; nil means the asset was unavailable.
	Content []byte

	parent   *SceneNode
	children []*SceneNode
	shadow   *selectionShadow
}

// NewNode creates a detached node with unit scale, full opacity and
// listening enabled.
func NewNode(id string, typ document.NodeType) *SceneNode {
	return &SceneNode{
		ID:        id,
		Type:      typ,
		ScaleX:    1,
		ScaleY:    1,
		Opacity:   1,
		Listening: true,
		Attrs:     map[string]string{},
	}
}

// Parent returns the parent node, or nil for the root or a detached node.
func (n *SceneNode) Parent() *SceneNode { return n.parent }

// Children returns the children in z-order (back to front).
func (n *SceneNode) Children() []*SceneNode {
	out := make([]*SceneNode, len(n.children))
	copy(out, n.children)
	return out
}

// IsSelected reports whether the node currently carries selection shadow state.
func (n *SceneNode) IsSelected() bool { return n.shadow != nil }

// Position returns the parent-relative position.
func (n *SceneNode) Position() Point { return Point{n.X, n.Y} }

// IsContainer reports whether the node type holds children.
func (n *SceneNode) IsContainer() bool {
	return n.Type == document.NodeTypeGroup || n.Type == document.NodeTypeLayer
}

// LocalTransform returns the parent-relative transform.
func (n *SceneNode) LocalTransform() Matrix2D {
	return LocalMatrix(n.X, n.Y, n.Rotation, n.ScaleX, n.ScaleY)
}

// SetLocalTransform applies a decomposed transform. Leaf nodes fold the scale
// into their size so that a resize changes width/height rather than scale.
func (n *SceneNode) SetLocalTransform(d Decomposed) {
	n.X, n.Y, n.Rotation = d.X, d.Y, d.Rotation
	if n.IsContainer() {
		n.ScaleX, n.ScaleY = d.ScaleX, d.ScaleY
		return
	}
	n.Width *= unitScale(d.ScaleX)
	n.Height *= unitScale(d.ScaleY)
	n.ScaleX, n.ScaleY = sign(d.ScaleX), sign(d.ScaleY)
}

// unitScale returns |s|, treating values within rounding error of 1 as
// exactly 1 so rotations do not erode sizes.
func unitScale(s float64) float64 {
	s = math.Abs(s)
	if math.Abs(s-1) < 1e-9 {
		return 1
	}
	return s
}

// AbsoluteTransform returns the board-space transform of the node.
func (n *SceneNode) AbsoluteTransform() Matrix2D {
	m := n.LocalTransform()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalTransform().Multiply(m)
	}
	return m
}

// ParentTransform returns the board-space transform of the node's parent.
func (n *SceneNode) ParentTransform() Matrix2D {
	if n.parent == nil {
		return Identity()
	}
	return n.parent.AbsoluteTransform()
}

// ClientRect returns the axis-aligned board-space bounds of the node and its
// descendants.
func (n *SceneNode) ClientRect() Rect {
	return n.clientRect(n.ParentTransform())
}

func (n *SceneNode) clientRect(parentAbs Matrix2D) Rect {
	abs := parentAbs.Multiply(n.LocalTransform())
	var r Rect
	if n.Width > 0 && n.Height > 0 {
		r = abs.TransformRect(Rect{Width: n.Width, Height: n.Height})
	}
	for _, c := range n.children {
		r = r.Union(c.clientRect(abs))
	}
	return r
}

// AttributeKind names a settable node attribute.
type AttributeKind int

const (
	AttrX AttributeKind = iota
	AttrY
	AttrWidth
	AttrHeight
	AttrRotation
	AttrScaleX
	AttrScaleY
	AttrOpacity
	AttrListening
	AttrZIndex
)

var attributeNames = map[string]AttributeKind{
	"x":         AttrX,
	"y":         AttrY,
	"width":     AttrWidth,
	"height":    AttrHeight,
	"rotation":  AttrRotation,
	"scaleX":    AttrScaleX,
	"scaleY":    AttrScaleY,
	"opacity":   AttrOpacity,
	"listening": AttrListening,
	"zIndex":    AttrZIndex,
}

// ParseAttributeKind maps a wire name ("x", "scaleX", ...) to its kind.
func ParseAttributeKind(name string) (AttributeKind, error) {
	k, ok := attributeNames[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown attribute %q", ErrInvalidAttribute, name)
	}
	return k, nil
}

func (k AttributeKind) String() string {
	for name, kind := range attributeNames {
		if kind == k {
			return name
		}
	}
	return fmt.Sprintf("AttributeKind(%d)", int(k))
}

// SetAttribute validates and applies one attribute. Listening treats any
// non-zero value as true. ZIndex must go through SceneGraph.SetZIndex since
// it touches siblings.
func (n *SceneNode) SetAttribute(kind AttributeKind, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s must be finite", ErrInvalidAttribute, kind)
	}

	switch kind {
	case AttrX:
		n.X = value
	case AttrY:
		n.Y = value
	case AttrWidth:
		if value < 0 {
			return fmt.Errorf("%w: width must not be negative", ErrInvalidAttribute)
		}
		n.Width = value
	case AttrHeight:
		if value < 0 {
			return fmt.Errorf("%w: height must not be negative", ErrInvalidAttribute)
		}
		n.Height = value
	case AttrRotation:
		n.Rotation = value
	case AttrScaleX:
		if value == 0 {
			return fmt.Errorf("%w: scaleX must not be zero", ErrInvalidAttribute)
		}
		n.ScaleX = value
	case AttrScaleY:
		if value == 0 {
			return fmt.Errorf("%w: scaleY must not be zero", ErrInvalidAttribute)
		}
		n.ScaleY = value
	case AttrOpacity:
		n.Opacity = math.Min(math.Max(value, 0), 1)
	case AttrListening:
		n.Listening = value != 0
	case AttrZIndex:
		return fmt.Errorf("%w: zIndex is set through the scene graph", ErrInvalidAttribute)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidAttribute, kind)
	}
	return nil
}

// Record returns the persisted form of the node and its subtree. Selected
// nodes report their pre-selection opacity, z-index and listening state.
func (n *SceneNode) Record() document.NodeRecord {
	rec := document.NodeRecord{
		ID:        n.ID,
		Type:      n.Type,
		X:         n.X,
		Y:         n.Y,
		Width:     n.Width,
		Height:    n.Height,
		Rotation:  n.Rotation,
		ScaleX:    n.ScaleX,
		ScaleY:    n.ScaleY,
		ZIndex:    n.ZIndex,
		Opacity:   n.Opacity,
		Listening: n.Listening,
	}
	if n.shadow != nil {
		rec.Opacity = n.shadow.savedOpacity
		rec.ZIndex = n.shadow.savedZIndex
		rec.Listening = true
	}
	if len(n.Attrs) > 0 {
		rec.Attrs = maps.Clone(n.Attrs)
	}

	ordered := logicalOrder(n.children)
	for i, c := range ordered {
		child := c.Record()
		child.ZIndex = i
		rec.Children = append(rec.Children, child)
	}
	return rec
}

// nodeFromRecord builds a detached subtree from its persisted form. Children
// are attached in zIndex order and renumbered densely.
func nodeFromRecord(rec document.NodeRecord) *SceneNode {
	n := &SceneNode{
		ID:        rec.ID,
		Type:      rec.Type,
		X:         rec.X,
		Y:         rec.Y,
		Width:     rec.Width,
		Height:    rec.Height,
		Rotation:  rec.Rotation,
		ScaleX:    nonZero(rec.ScaleX),
		ScaleY:    nonZero(rec.ScaleY),
		ZIndex:    rec.ZIndex,
		Opacity:   rec.Opacity,
		Listening: rec.Listening,
		Attrs:     maps.Clone(rec.Attrs),
	}
	if n.Attrs == nil {
		n.Attrs = map[string]string{}
	}
	for _, cr := range rec.Children {
		c := nodeFromRecord(cr)
		c.parent = n
		n.children = append(n.children, c)
	}
	sortByZ(n.children)
	renumber(n.children)
	return n
}

// walk visits n and its descendants depth-first in z-order.
func (n *SceneNode) walk(fn func(*SceneNode)) {
	fn(n)
	for _, c := range n.children {
		c.walk(fn)
	}
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
