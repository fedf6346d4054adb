package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/wiredraw/wiredraw/internal/document"
	"github.com/wiredraw/wiredraw/internal/typeid"
)

var ErrClipboardEmpty = errors.New("clipboard is empty")

// NewNodeID generates an id for a node of the given type.
func NewNodeID(typ document.NodeType) string {
	switch typ {
	case document.NodeTypeGroup:
		return typeid.NewGroupID()
	case document.NodeTypeLayer:
		return typeid.NewLayerID()
	default:
		return typeid.NewNodeID()
	}
}

type clipEntry struct {
	node     *SceneNode // detached copy at copy time
	parentID string
}

// ClipboardTool duplicates nodes. Each paste of the same buffer lands one
// grid cell further along the diagonal than the previous one.
type ClipboardTool struct {
	graph  *SceneGraph
	newID  func(document.NodeType) string
	buffer []clipEntry
	repeat int
}

// NewClipboardTool creates an empty clipboard. A nil newID uses NewNodeID.
func NewClipboardTool(graph *SceneGraph, newID func(document.NodeType) string) *ClipboardTool {
	if newID == nil {
		newID = NewNodeID
	}
	return &ClipboardTool{graph: graph, newID: newID}
}

// CopyStart snapshots nodes into the buffer and resets the repeat counter.
// Selection state is not copied. Returns the number of buffered nodes.
func (c *ClipboardTool) CopyStart(nodes []*SceneNode) int {
	c.buffer = c.buffer[:0]
	for _, n := range nodes {
		if n == nil || n.parent == nil {
			continue
		}
		keep := func(document.NodeType) string { return "" }
		cp := c.graph.Clone(n, keep)
		cp.ID = n.ID
		c.buffer = append(c.buffer, clipEntry{node: cp, parentID: n.parent.ID})
	}
	c.repeat = 1
	return len(c.buffer)
}

// Len returns the number of buffered nodes.
func (c *ClipboardTool) Len() int { return len(c.buffer) }

// Repeat returns the multiplier the next paste will use.
func (c *ClipboardTool) Repeat() int { return c.repeat }

// CopyEnd pastes fresh clones of the buffer offset by gridSize*repeat on both
// axes into their original parents (the root if that parent is gone), then
// advances the repeat counter. Image content missing from the buffer is
// loaded through resolver.
func (c *ClipboardTool) CopyEnd(ctx context.Context, gridSize float64, resolver AssetResolver) ([]*SceneNode, error) {
	if len(c.buffer) == 0 {
		return nil, ErrClipboardEmpty
	}

	offset := Point{gridSize, gridSize}.Mul(float64(c.repeat))
	pasted := make([]*SceneNode, 0, len(c.buffer))
	for _, e := range c.buffer {
		parent, ok := c.graph.Node(e.parentID)
		if !ok || !parent.IsContainer() {
			parent = c.graph.Root()
		}

		clone := c.graph.Clone(e.node, c.newID)
		d := offset
		if abs := parent.AbsoluteTransform(); !abs.IsIdentity() {
			d = abs.Invert().ApplyVector(offset)
		}
		clone.X += d.X
		clone.Y += d.Y
		rehydrate(ctx, clone, resolver)

		if err := c.graph.Add(parent, clone); err != nil {
			return pasted, fmt.Errorf("paste %s: %w", e.node.ID, err)
		}
		pasted = append(pasted, clone)
	}
	c.repeat++
	return pasted, nil
}
