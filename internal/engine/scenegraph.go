package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/wiredraw/wiredraw/internal/document"
)

// SceneGraph owns every node of the board. The registry maps ids to nodes
// and is updated on every attach and detach, so lookups and hit-testing never
// see detached nodes.
type SceneGraph struct {
	Board    document.Board
	root     *SceneNode
	registry map[string]*SceneNode
}

// NewSceneGraph creates a graph holding an empty root layer.
func NewSceneGraph(rootID string, board document.Board) *SceneGraph {
	sg := &SceneGraph{
		Board:    board,
		registry: make(map[string]*SceneNode),
	}
	sg.setRoot(NewNode(rootID, document.NodeTypeLayer))
	return sg
}

func (sg *SceneGraph) setRoot(root *SceneNode) {
	sg.root = root
	sg.registry = make(map[string]*SceneNode)
	root.walk(func(n *SceneNode) { sg.registry[n.ID] = n })
}

// Root returns the root layer.
func (sg *SceneGraph) Root() *SceneNode { return sg.root }

// Node looks up a node by id.
func (sg *SceneGraph) Node(id string) (*SceneNode, bool) {
	n, ok := sg.registry[id]
	return n, ok
}

// Len returns the number of nodes below the root.
func (sg *SceneGraph) Len() int { return len(sg.registry) - 1 }

// Add attaches a detached subtree as the front-most child of parent.
func (sg *SceneGraph) Add(parent, node *SceneNode) error {
	if _, ok := sg.registry[parent.ID]; !ok {
		return fmt.Errorf("add to %s: %w", parent.ID, ErrNodeNotFound)
	}
	if !parent.IsContainer() {
		return fmt.Errorf("add to %s: parent is a %s", parent.ID, parent.Type)
	}
	var dup string
	node.walk(func(n *SceneNode) {
		if _, exists := sg.registry[n.ID]; exists && dup == "" {
			dup = n.ID
		}
	})
	if dup != "" {
		return fmt.Errorf("add %s: duplicate id %s", node.ID, dup)
	}

	node.parent = parent
	parent.children = append(parent.children, node)
	renumber(parent.children)
	node.walk(func(n *SceneNode) { sg.registry[n.ID] = n })
	return nil
}

// Remove detaches a node and its subtree. Siblings are renumbered densely.
func (sg *SceneGraph) Remove(node *SceneNode) error {
	if node == sg.root {
		return fmt.Errorf("remove %s: cannot remove root", node.ID)
	}
	if _, ok := sg.registry[node.ID]; !ok {
		return fmt.Errorf("remove %s: %w", node.ID, ErrNodeNotFound)
	}
	parent := node.parent
	for i, c := range parent.children {
		if c == node {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			break
		}
	}
	renumber(parent.children)
	node.parent = nil
	node.walk(func(n *SceneNode) {
		delete(sg.registry, n.ID)
		n.shadow = nil
	})
	return nil
}

// Clear removes every node below the root.
func (sg *SceneGraph) Clear() {
	for _, c := range sg.root.Children() {
		_ = sg.Remove(c)
	}
}

// SetZIndex moves a node to position z among its siblings (clamped) and
// renumbers the siblings.
func (sg *SceneGraph) SetZIndex(node *SceneNode, z int) {
	parent := node.parent
	if parent == nil {
		return
	}
	siblings := parent.children
	z = max(0, min(z, len(siblings)-1))
	from := node.ZIndex
	if from == z || siblings[from] != node {
		from = indexOf(siblings, node)
	}
	if from == z {
		return
	}
	siblings = append(siblings[:from], siblings[from+1:]...)
	siblings = append(siblings[:z], append([]*SceneNode{node}, siblings[z:]...)...)
	parent.children = siblings
	renumber(parent.children)
}

// reorder replaces a parent's child order. ordered must be a permutation of
// the current children.
func (sg *SceneGraph) reorder(parent *SceneNode, ordered []*SceneNode) {
	parent.children = ordered
	renumber(parent.children)
}

// Siblings returns the other children of node's parent in z-order.
func (sg *SceneGraph) Siblings(node *SceneNode) []*SceneNode {
	if node.parent == nil {
		return nil
	}
	out := make([]*SceneNode, 0, len(node.parent.children))
	for _, c := range node.parent.children {
		if c != node {
			out = append(out, c)
		}
	}
	return out
}

// TopLevel returns the ancestor of node that is a direct child of the root,
// which is the unit the user selects.
func (sg *SceneGraph) TopLevel(node *SceneNode) *SceneNode {
	for node != nil && node.parent != nil && node.parent != sg.root {
		node = node.parent
	}
	if node == sg.root {
		return nil
	}
	return node
}

// HitTest returns the front-most listening node whose bounds contain the
// board point p, or nil.
func (sg *SceneGraph) HitTest(p Point) *SceneNode {
	return hitTestNode(sg.root, Identity(), p)
}

func hitTestNode(node *SceneNode, parentAbs Matrix2D, p Point) *SceneNode {
	if !node.Listening {
		return nil
	}
	abs := parentAbs.Multiply(node.LocalTransform())

	for i := len(node.children) - 1; i >= 0; i-- {
		if hit := hitTestNode(node.children[i], abs, p); hit != nil {
			return hit
		}
	}

	if node.IsContainer() || node.Width <= 0 || node.Height <= 0 {
		return nil
	}
	local := abs.Invert().Apply(p)
	if (Rect{Width: node.Width, Height: node.Height}).Contains(local) {
		return node
	}
	return nil
}

// Clone deep-copies a subtree with fresh ids from newID. The copy is
// detached and carries no selection state.
func (sg *SceneGraph) Clone(node *SceneNode, newID func(document.NodeType) string) *SceneNode {
	rec := node.Record()
	var reID func(r *document.NodeRecord)
	reID = func(r *document.NodeRecord) {
		r.ID = newID(r.Type)
		for i := range r.Children {
			reID(&r.Children[i])
		}
	}
	reID(&rec)
	c := nodeFromRecord(rec)
	copyContent(node, c)
	return c
}

func copyContent(src, dst *SceneNode) {
	dst.Content = src.Content
	for i := range src.children {
		if i < len(dst.children) {
			copyContent(src.children[i], dst.children[i])
		}
	}
}

// Serialize returns the persisted document. Selection state is folded back
// into each node's logical values.
func (sg *SceneGraph) Serialize() *document.Document {
	return &document.Document{
		Version: document.CurrentVersion,
		Board:   sg.Board,
		Root:    sg.root.Record(),
	}
}

// Snapshot serializes the document to JSON.
func (sg *SceneGraph) Snapshot() ([]byte, error) {
	return document.Encode(sg.Serialize())
}

// Restore replaces the whole graph with doc. Image content is rehydrated
// through resolver; a node whose asset fails to load is kept without content
// so the rest of the document still loads.
func (sg *SceneGraph) Restore(ctx context.Context, doc *document.Document, resolver AssetResolver) error {
	if err := document.Validate(doc); err != nil {
		return err
	}
	root := nodeFromRecord(doc.Root)
	rehydrate(ctx, root, resolver)
	sg.Board = doc.Board
	sg.setRoot(root)
	return nil
}

// rehydrate loads asset content for image nodes in the subtree.
func rehydrate(ctx context.Context, root *SceneNode, resolver AssetResolver) {
	if resolver == nil {
		return
	}
	root.walk(func(n *SceneNode) {
		if n.Type != document.NodeTypeImage || n.Content != nil {
			return
		}
		src := n.Attrs[document.AttrSource]
		if src == "" {
			return
		}
		content, err := resolver.Resolve(ctx, src)
		if err != nil {
			slog.Warn("skip image content", "node", n.ID, "src", src, "error", err)
			return
		}
		n.Content = content
	})
}

// CheckDenseZOrder verifies that every sibling set is numbered 0..n-1 in
// slice order.
func (sg *SceneGraph) CheckDenseZOrder() error {
	var err error
	sg.root.walk(func(n *SceneNode) {
		for i, c := range n.children {
			if c.ZIndex != i && err == nil {
				err = fmt.Errorf("node %s: zIndex %d at position %d", c.ID, c.ZIndex, i)
			}
		}
	})
	return err
}

func renumber(nodes []*SceneNode) {
	for i, n := range nodes {
		n.ZIndex = i
	}
}

func sortByZ(nodes []*SceneNode) {
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].ZIndex < nodes[j].ZIndex })
}

func indexOf(nodes []*SceneNode, node *SceneNode) int {
	for i, n := range nodes {
		if n == node {
			return i
		}
	}
	return -1
}

// logicalOrder returns siblings in the order they would have with no
// selection active: selected nodes go back to their saved z-index and the
// others fill the remaining slots in their current relative order.
func logicalOrder(nodes []*SceneNode) []*SceneNode {
	out := make([]*SceneNode, len(nodes))
	var selected, rest []*SceneNode
	for _, n := range nodes {
		if n.shadow != nil {
			selected = append(selected, n)
		} else {
			rest = append(rest, n)
		}
	}
	if len(selected) == 0 {
		copy(out, nodes)
		return out
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].shadow.savedZIndex < selected[j].shadow.savedZIndex
	})
	for _, s := range selected {
		idx := max(0, min(s.shadow.savedZIndex, len(out)-1))
		for out[idx] != nil {
			idx = (idx + 1) % len(out)
		}
		out[idx] = s
	}
	i := 0
	for slot := range out {
		if out[slot] == nil {
			out[slot] = rest[i]
			i++
		}
	}
	return out
}
