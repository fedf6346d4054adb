package engine

import (
	"cmp"
	"math"
	"slices"
)

// selectionDim is the opacity factor applied to selected nodes.
const selectionDim = 0.8

// selectionShadow is the transient state a node carries while selected.
type selectionShadow struct {
	savedOpacity float64
	savedZIndex  int
	sessionStart geometry
}

// geometry is the subset of node attributes a transform session changes.
type geometry struct {
	X, Y, Width, Height, Rotation, ScaleX, ScaleY float64
}

func geometryOf(n *SceneNode) geometry {
	return geometry{n.X, n.Y, n.Width, n.Height, n.Rotation, n.ScaleX, n.ScaleY}
}

func (g geometry) applyTo(n *SceneNode) {
	n.X, n.Y, n.Width, n.Height = g.X, g.Y, g.Width, g.Height
	n.Rotation, n.ScaleX, n.ScaleY = g.Rotation, g.ScaleX, g.ScaleY
}

// SelectionSet tracks the selected nodes and the state needed to restore
// them when the selection ends. A node has shadow state exactly while it is a
// member.
type SelectionSet struct {
	graph   *SceneGraph
	signals *Signals
	members []*SceneNode
}

// NewSelectionSet creates an empty selection over graph.
func NewSelectionSet(graph *SceneGraph, signals *Signals) *SelectionSet {
	return &SelectionSet{graph: graph, signals: signals}
}

// Select replaces the selection. Each node is raised to the top of its
// siblings, stops listening for pointer events and is dimmed. An empty list
// is the same as Clear.
func (s *SelectionSet) Select(nodes []*SceneNode) {
	s.clear()

	for _, n := range nodes {
		if n == nil || n == s.graph.root || n.shadow != nil {
			continue
		}
		if cur, ok := s.graph.Node(n.ID); !ok || cur != n {
			continue
		}
		n.shadow = &selectionShadow{
			savedOpacity: n.Opacity,
			savedZIndex:  n.ZIndex,
			sessionStart: geometryOf(n),
		}
		s.members = append(s.members, n)
	}

	// Raise only after every saved index is taken so each records its
	// position in the unselected order. Lower members go up first so the
	// selection keeps its own stacking.
	raised := slices.Clone(s.members)
	slices.SortStableFunc(raised, func(a, b *SceneNode) int {
		return cmp.Compare(a.shadow.savedZIndex, b.shadow.savedZIndex)
	})
	for _, n := range raised {
		s.graph.SetZIndex(n, len(n.parent.children)-1)
		n.Listening = false
		n.Opacity *= selectionDim
	}

	s.notify()
}

// Clear restores every member's z-index, opacity and listening flag and
// empties the selection.
func (s *SelectionSet) Clear() {
	if len(s.members) == 0 {
		return
	}
	s.clear()
	s.notify()
}

func (s *SelectionSet) clear() {
	if len(s.members) == 0 {
		return
	}

	// Restore z-order per sibling set before shadows go away: members return
	// to their saved index in ascending order, the rest keep their relative
	// order.
	done := make(map[*SceneNode]bool)
	for _, n := range s.members {
		p := n.parent
		if p == nil || done[p] {
			continue
		}
		done[p] = true
		s.graph.reorder(p, logicalOrder(p.children))
	}

	for _, n := range s.members {
		if n.shadow == nil {
			continue
		}
		n.Opacity = n.shadow.savedOpacity
		n.Listening = true
		n.shadow = nil
	}
	s.members = nil
}

func (s *SelectionSet) notify() {
	s.signals.selectionChanged(s.IDs())
	s.signals.requestRedraw()
}

// Nodes returns the members in selection order.
func (s *SelectionSet) Nodes() []*SceneNode {
	out := make([]*SceneNode, len(s.members))
	copy(out, s.members)
	return out
}

// IDs returns the member ids in selection order.
func (s *SelectionSet) IDs() []string {
	ids := make([]string, len(s.members))
	for i, n := range s.members {
		ids[i] = n.ID
	}
	return ids
}

// Len returns the number of members.
func (s *SelectionSet) Len() int { return len(s.members) }

// IsEmpty reports whether nothing is selected.
func (s *SelectionSet) IsEmpty() bool { return len(s.members) == 0 }

// Contains reports whether n is selected.
func (s *SelectionSet) Contains(n *SceneNode) bool {
	return n != nil && n.shadow != nil
}

// Bounds returns the union of the members' board-space bounds.
func (s *SelectionSet) Bounds() Rect {
	var r Rect
	for _, n := range s.members {
		r = r.Union(n.ClientRect())
	}
	return r
}

// Box returns the transform frame of the selection: a single leaf node keeps
// its own rotation, anything else uses the axis-aligned bounds.
func (s *SelectionSet) Box() Box {
	if len(s.members) == 1 && !s.members[0].IsContainer() {
		n := s.members[0]
		abs := n.AbsoluteTransform().Decompose()
		return Box{
			X:        abs.X,
			Y:        abs.Y,
			Width:    n.Width * math.Abs(abs.ScaleX),
			Height:   n.Height * math.Abs(abs.ScaleY),
			Rotation: abs.Rotation,
		}
	}
	b := s.Bounds()
	return Box{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

// captureStart records each member's geometry at the start of a session.
func (s *SelectionSet) captureStart() {
	for _, n := range s.members {
		n.shadow.sessionStart = geometryOf(n)
	}
}

// restoreStart puts every member back to its session-start geometry.
func (s *SelectionSet) restoreStart() {
	for _, n := range s.members {
		n.shadow.sessionStart.applyTo(n)
	}
}

// siblingsOutside returns the non-selected siblings of the selection's first
// member, which are the attraction targets for a move.
func (s *SelectionSet) siblingsOutside() []*SceneNode {
	if len(s.members) == 0 || s.members[0].parent == nil {
		return nil
	}
	var out []*SceneNode
	for _, c := range s.members[0].parent.children {
		if c.shadow == nil {
			out = append(out, c)
		}
	}
	return out
}
