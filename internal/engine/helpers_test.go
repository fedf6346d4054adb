package engine

import (
	"math"
	"testing"

	"github.com/wiredraw/wiredraw/internal/document"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

// testSettings returns default settings with a grid coarse enough that
// nothing in a small test scene snaps by accident.
func testSettings() *Settings {
	s := DefaultSettings()
	s.GridSize = 100
	return &s
}

type fixture struct {
	graph     *SceneGraph
	signals   *Signals
	coords    *CoordinateSpace
	settings  *Settings
	selection *SelectionSet
	snap      *SnapEngine
	session   *TransformSession
}

func newFixture(t *testing.T, settings *Settings) *fixture {
	t.Helper()
	if settings == nil {
		settings = testSettings()
	}
	f := &fixture{
		graph:    NewSceneGraph("layer_root", document.Board{Width: 1280, Height: 720, GridSize: settings.GridSize}),
		signals:  &Signals{},
		coords:   NewCoordinateSpace(settings.ZoomMin, settings.ZoomMax),
		settings: settings,
	}
	f.selection = NewSelectionSet(f.graph, f.signals)
	f.snap = NewSnapEngine(f.coords, f.settings)
	f.session = NewTransformSession(f.selection, f.snap, f.coords, f.settings)
	return f
}

// leaf adds a symbol node under parent (the root when nil).
func (f *fixture) leaf(t *testing.T, parent *SceneNode, id string, x, y, w, h float64) *SceneNode {
	t.Helper()
	if parent == nil {
		parent = f.graph.Root()
	}
	n := NewNode(id, document.NodeTypeSymbol)
	n.X, n.Y, n.Width, n.Height = x, y, w, h
	if err := f.graph.Add(parent, n); err != nil {
		t.Fatalf("Add(%s) error = %v", id, err)
	}
	return n
}

func (f *fixture) group(t *testing.T, id string, x, y float64) *SceneNode {
	t.Helper()
	n := NewNode(id, document.NodeTypeGroup)
	n.X, n.Y = x, y
	if err := f.graph.Add(f.graph.Root(), n); err != nil {
		t.Fatalf("Add(%s) error = %v", id, err)
	}
	return n
}

func childIDs(n *SceneNode) []string {
	var ids []string
	for _, c := range n.children {
		ids = append(ids, c.ID)
	}
	return ids
}
