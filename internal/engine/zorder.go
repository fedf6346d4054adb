package engine

import (
	"fmt"
	"sort"
)

// ZOrderOp is a stacking change applied to a set of nodes.
type ZOrderOp string

const (
	ZOrderUp     ZOrderOp = "up"
	ZOrderDown   ZOrderOp = "down"
	ZOrderTop    ZOrderOp = "top"
	ZOrderBottom ZOrderOp = "bottom"
)

// ParseZOrderOp validates an op name.
func ParseZOrderOp(s string) (ZOrderOp, error) {
	switch op := ZOrderOp(s); op {
	case ZOrderUp, ZOrderDown, ZOrderTop, ZOrderBottom:
		return op, nil
	}
	return "", fmt.Errorf("unknown z-order op %q", s)
}

// ZOrderManager moves nodes forward or backward among their siblings. Moved
// nodes keep their order relative to each other and every sibling set stays
// densely numbered.
type ZOrderManager struct {
	graph *SceneGraph
}

func NewZOrderManager(graph *SceneGraph) *ZOrderManager {
	return &ZOrderManager{graph: graph}
}

func (z *ZOrderManager) Up(nodes []*SceneNode) bool     { return z.Apply(ZOrderUp, nodes) }
func (z *ZOrderManager) Down(nodes []*SceneNode) bool   { return z.Apply(ZOrderDown, nodes) }
func (z *ZOrderManager) Top(nodes []*SceneNode) bool    { return z.Apply(ZOrderTop, nodes) }
func (z *ZOrderManager) Bottom(nodes []*SceneNode) bool { return z.Apply(ZOrderBottom, nodes) }

// Apply runs op over nodes, handling each sibling set separately, and
// reports whether any order changed.
func (z *ZOrderManager) Apply(op ZOrderOp, nodes []*SceneNode) bool {
	moving := make(map[*SceneNode]bool, len(nodes))
	var parents []*SceneNode
	for _, n := range nodes {
		if n == nil || n.parent == nil || moving[n] {
			continue
		}
		moving[n] = true
		if indexOf(parents, n.parent) < 0 {
			parents = append(parents, n.parent)
		}
	}

	changed := false
	for _, p := range parents {
		if z.applySiblings(op, p, moving) {
			changed = true
		}
	}
	return changed
}

type stackEntry struct {
	node    *SceneNode
	origZ   int
	desired float64
}

// applySiblings stamps a desired z on every child of parent, sorts by it and
// renumbers. Unmoved nodes keep their index as desired value; moved nodes
// land half a slot past the next unmoved neighbour, or far beyond the ends
// for top and bottom.
func (z *ZOrderManager) applySiblings(op ZOrderOp, parent *SceneNode, moving map[*SceneNode]bool) bool {
	siblings := parent.children
	n := len(siblings)
	entries := make([]stackEntry, n)
	for i, c := range siblings {
		entries[i] = stackEntry{node: c, origZ: i, desired: float64(i)}
		if !moving[c] {
			continue
		}
		switch op {
		case ZOrderUp:
			for j := i + 1; j < n; j++ {
				if !moving[siblings[j]] {
					entries[i].desired = float64(j) + 0.5
					break
				}
			}
		case ZOrderDown:
			for j := i - 1; j >= 0; j-- {
				if !moving[siblings[j]] {
					entries[i].desired = float64(j) - 0.5
					break
				}
			}
		case ZOrderTop:
			entries[i].desired = float64(i + 2*n)
		case ZOrderBottom:
			entries[i].desired = float64(i - 2*n)
		}
	}

	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].desired != entries[b].desired {
			return entries[a].desired < entries[b].desired
		}
		return entries[a].origZ < entries[b].origZ
	})

	changed := false
	ordered := make([]*SceneNode, n)
	for i, e := range entries {
		ordered[i] = e.node
		if e.origZ != i {
			changed = true
		}
	}
	if changed {
		z.graph.reorder(parent, ordered)
	}
	return changed
}
