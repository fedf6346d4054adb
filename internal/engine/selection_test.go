package engine

import (
	"bytes"
	"slices"
	"testing"
)

type visualState struct {
	opacity   float64
	zIndex    int
	listening bool
}

func TestSelectClearRoundTrip(t *testing.T) {
	sequences := []struct {
		name  string
		steps [][]string // each step is one Select call; nil means Clear
	}{
		{"single", [][]string{{"b"}}},
		{"multi", [][]string{{"a", "c"}}},
		{"reselect", [][]string{{"d"}, {"a", "b"}, {"c"}}},
		{"clear between", [][]string{{"a"}, nil, {"b", "d"}}},
		{"whole set", [][]string{{"d", "c", "b", "a"}}},
		{"empty list", [][]string{{"b"}, {}}},
	}

	for _, seq := range sequences {
		t.Run(seq.name, func(t *testing.T) {
			f := newFixture(t, nil)
			nodes := map[string]*SceneNode{}
			for i, id := range []string{"a", "b", "c", "d"} {
				n := f.leaf(t, nil, id, float64(i*20), 0, 10, 10)
				n.Opacity = 0.4 + 0.1*float64(i)
				nodes[id] = n
			}
			before := map[string]visualState{}
			for id, n := range nodes {
				before[id] = visualState{n.Opacity, n.ZIndex, n.Listening}
			}

			for _, step := range seq.steps {
				if step == nil {
					f.selection.Clear()
					continue
				}
				var sel []*SceneNode
				for _, id := range step {
					sel = append(sel, nodes[id])
				}
				f.selection.Select(sel)
			}
			f.selection.Clear()

			for id, n := range nodes {
				got := visualState{n.Opacity, n.ZIndex, n.Listening}
				if got != before[id] {
					t.Errorf("%s: state = %+v, want %+v", id, got, before[id])
				}
				if n.IsSelected() {
					t.Errorf("%s still carries selection state", id)
				}
			}
			if err := f.graph.CheckDenseZOrder(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestSelectRaisesAndDims(t *testing.T) {
	f := newFixture(t, nil)
	a := f.leaf(t, nil, "a", 0, 0, 10, 10)
	f.leaf(t, nil, "b", 0, 0, 10, 10)
	c := f.leaf(t, nil, "c", 0, 0, 10, 10)
	f.leaf(t, nil, "d", 0, 0, 10, 10)

	f.selection.Select([]*SceneNode{a, c})

	if got := childIDs(f.graph.Root()); !slices.Equal(got, []string{"b", "d", "a", "c"}) {
		t.Errorf("order = %v, want [b d a c]", got)
	}
	if a.Listening || c.Listening {
		t.Errorf("selected nodes still listening")
	}
	if !near(a.Opacity, 0.8) {
		t.Errorf("a.Opacity = %v, want 0.8", a.Opacity)
	}
	if got := f.selection.IDs(); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("IDs() = %v", got)
	}
}

func TestSelectKeepsRelativeStacking(t *testing.T) {
	f := newFixture(t, nil)
	a := f.leaf(t, nil, "a", 0, 0, 10, 10)
	f.leaf(t, nil, "b", 0, 0, 10, 10)
	c := f.leaf(t, nil, "c", 0, 0, 10, 10)
	f.leaf(t, nil, "d", 0, 0, 10, 10)

	f.selection.Select([]*SceneNode{c, a})

	if got := childIDs(f.graph.Root()); !slices.Equal(got, []string{"b", "d", "a", "c"}) {
		t.Errorf("order = %v, want [b d a c]", got)
	}
	if a.ZIndex >= c.ZIndex {
		t.Errorf("a.ZIndex = %d, c.ZIndex = %d, want a below c", a.ZIndex, c.ZIndex)
	}
	if got := f.selection.IDs(); !slices.Equal(got, []string{"c", "a"}) {
		t.Errorf("IDs() = %v, want selection order [c a]", got)
	}
}

func TestSelectSkipsRootAndUnknown(t *testing.T) {
	f := newFixture(t, nil)
	a := f.leaf(t, nil, "a", 0, 0, 10, 10)
	detached := NewNode("x", "symbol")

	f.selection.Select([]*SceneNode{f.graph.Root(), nil, detached, a, a})
	if got := f.selection.IDs(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("IDs() = %v, want [a]", got)
	}
}

func TestSelectionNeverSerialized(t *testing.T) {
	f := newFixture(t, nil)
	a := f.leaf(t, nil, "a", 0, 0, 10, 10)
	b := f.leaf(t, nil, "b", 20, 0, 10, 10)
	f.leaf(t, nil, "c", 40, 0, 10, 10)
	a.Opacity = 0.6

	want, err := f.graph.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	f.selection.Select([]*SceneNode{a, b})
	got, err := f.graph.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("snapshot changed by selection\n got %s\nwant %s", got, want)
	}
}

func TestSelectionSignals(t *testing.T) {
	f := newFixture(t, nil)
	a := f.leaf(t, nil, "a", 0, 0, 10, 10)

	var kinds []SignalKind
	f.signals.Subscribe(func(s Signal) { kinds = append(kinds, s.Kind) })

	f.selection.Select([]*SceneNode{a})
	f.selection.Clear()
	f.selection.Clear() // already empty, no signal

	want := []SignalKind{
		SignalSelectionChanged, SignalRequestRedraw,
		SignalSelectionChanged, SignalRequestRedraw,
	}
	if !slices.Equal(kinds, want) {
		t.Errorf("signals = %v, want %v", kinds, want)
	}
}

func TestSelectionBox(t *testing.T) {
	f := newFixture(t, nil)
	a := f.leaf(t, nil, "a", 10, 10, 20, 20)
	a.Rotation = 0.5
	b := f.leaf(t, nil, "b", 100, 100, 10, 10)

	f.selection.Select([]*SceneNode{a})
	box := f.selection.Box()
	if !near(box.Rotation, 0.5) || !near(box.Width, 20) || !near(box.X, 10) {
		t.Errorf("single Box() = %+v, want the node's own frame", box)
	}

	f.selection.Select([]*SceneNode{a, b})
	box = f.selection.Box()
	if box.Rotation != 0 {
		t.Errorf("multi Box().Rotation = %v, want 0", box.Rotation)
	}
	if b := f.selection.Bounds(); box.Width != b.Width || box.Height != b.Height {
		t.Errorf("multi Box() = %+v, want bounds %+v", box, b)
	}
}
