package engine

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/wiredraw/wiredraw/internal/document"
)

func newTestEditor(t *testing.T) *Editor {
	t.Helper()
	return NewEditor(*testSettings(), nil)
}

func insertSymbol(t *testing.T, e *Editor, id string, x, y, w, h float64) *SceneNode {
	t.Helper()
	n, err := e.Insert(context.Background(), document.NodeRecord{
		ID: id, Type: document.NodeTypeSymbol, X: x, Y: y, Width: w, Height: h, ScaleX: 1, ScaleY: 1,
	}, "")
	if err != nil {
		t.Fatalf("Insert(%s) error = %v", id, err)
	}
	return n
}

func TestEditorResizeScenario(t *testing.T) {
	e := newTestEditor(t)
	n := insertSymbol(t, e, "n", 0, 0, 50, 50)
	before := e.HistoryState()

	e.PointerDown(&PointerEvent{X: 50, Y: 50})
	if e.Session().State() != StateResizing || e.Session().Anchor() != AnchorBottomRight {
		t.Fatalf("session = %s/%s, want resizing bottom-right", e.Session().State(), e.Session().Anchor())
	}
	e.PointerMove(&PointerEvent{X: 55, Y: 55})
	e.PointerUp(&PointerEvent{X: 55, Y: 55})

	if n.Width != 55 || n.Height != 55 || n.X != 0 || n.Y != 0 {
		t.Errorf("node = %+v, want 55x55 at origin", geometryOf(n))
	}
	after := e.HistoryState()
	if after.Length != before.Length+1 {
		t.Errorf("history length = %d, want %d", after.Length, before.Length+1)
	}
	if after.Cursor != after.Length-1 {
		t.Errorf("cursor = %d, want %d", after.Cursor, after.Length-1)
	}
}

func TestEditorResizeManyFramesIsExact(t *testing.T) {
	e := newTestEditor(t)
	n := insertSymbol(t, e, "n", 0, 0, 50, 50)

	e.PointerDown(&PointerEvent{X: 50, Y: 50})
	for _, p := range []float64{51, 53.3, 57.7, 61.1, 58.9, 52.2} {
		e.PointerMove(&PointerEvent{X: p, Y: p})
	}
	e.PointerMove(&PointerEvent{X: 55, Y: 55})
	e.PointerUp(&PointerEvent{X: 55, Y: 55})

	if n.Width != 55 || n.Height != 55 || n.X != 0 || n.Y != 0 {
		t.Errorf("node = %+v, want exactly 55x55 at origin", geometryOf(n))
	}
}

func TestEditorClickWithoutMoveRecordsNothing(t *testing.T) {
	e := newTestEditor(t)
	insertSymbol(t, e, "n", 100, 100, 50, 50)
	e.ClearSelection()
	before := e.HistoryState()

	e.PointerDown(&PointerEvent{X: 120, Y: 120})
	e.PointerUp(&PointerEvent{X: 120, Y: 120})

	if got := e.SelectedIDs(); !slices.Equal(got, []string{"n"}) {
		t.Errorf("selection = %v, want [n]", got)
	}
	if e.HistoryState() != before {
		t.Errorf("history = %+v, want %+v", e.HistoryState(), before)
	}
}

func TestEditorBackgroundClickClears(t *testing.T) {
	e := newTestEditor(t)
	insertSymbol(t, e, "n", 100, 100, 50, 50)
	if len(e.SelectedIDs()) != 1 {
		t.Fatalf("insert did not select")
	}

	ev := &PointerEvent{X: 900, Y: 600}
	e.PointerDown(ev)
	if !ev.Consumed {
		t.Errorf("background click not consumed")
	}
	if len(e.SelectedIDs()) != 0 {
		t.Errorf("selection = %v, want empty", e.SelectedIDs())
	}
}

func TestEditorShiftClickExtendsSelection(t *testing.T) {
	e := newTestEditor(t)
	insertSymbol(t, e, "a", 0, 0, 50, 50)
	insertSymbol(t, e, "b", 300, 300, 50, 50)
	if err := e.Select([]string{"a"}); err != nil {
		t.Fatal(err)
	}

	e.PointerDown(&PointerEvent{X: 320, Y: 320, Modifiers: Modifiers{Shift: true}})
	e.PointerUp(&PointerEvent{X: 320, Y: 320})

	got := e.SelectedIDs()
	slices.Sort(got)
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("selection = %v, want [a b]", got)
	}
}

func TestEditorDragAndUndoRedo(t *testing.T) {
	e := newTestEditor(t)
	n := insertSymbol(t, e, "n", 10, 10, 50, 50)
	insertSymbol(t, e, "m", 300, 300, 50, 50)
	e.ClearSelection()

	beforeMove, _ := e.Snapshot()

	e.PointerDown(&PointerEvent{X: 20, Y: 20})
	e.PointerMove(&PointerEvent{X: 47, Y: 38})
	e.PointerUp(&PointerEvent{X: 47, Y: 38})
	if n.X != 37 || n.Y != 28 {
		t.Fatalf("n = %v, want {37 28}", n.Position())
	}
	afterMove, _ := e.Snapshot()

	if !e.Undo(context.Background()) {
		t.Fatal("Undo() = false")
	}
	if len(e.SelectedIDs()) != 0 {
		t.Errorf("selection survived undo: %v", e.SelectedIDs())
	}
	if got, _ := e.Snapshot(); !bytes.Equal(got, beforeMove) {
		t.Errorf("undo state\n got %s\nwant %s", got, beforeMove)
	}
	restored, ok := e.Node("n")
	if !ok || restored.X != 10 {
		t.Errorf("restored n = %+v", restored)
	}

	if !e.Redo(context.Background()) {
		t.Fatal("Redo() = false")
	}
	if got, _ := e.Snapshot(); !bytes.Equal(got, afterMove) {
		t.Errorf("redo state\n got %s\nwant %s", got, afterMove)
	}
	if e.Redo(context.Background()) {
		t.Errorf("Redo() at tail = true")
	}
}

func TestEditorUndoPastStart(t *testing.T) {
	e := newTestEditor(t)
	if e.Undo(context.Background()) {
		t.Errorf("Undo() on a fresh editor = true")
	}
	insertSymbol(t, e, "n", 0, 0, 10, 10)
	if !e.Undo(context.Background()) {
		t.Fatal("Undo() = false")
	}
	if e.Graph().Len() != 0 {
		t.Errorf("Len() = %d after undoing the insert", e.Graph().Len())
	}
	if e.Undo(context.Background()) {
		t.Errorf("Undo() at cursor 0 = true")
	}
}

func TestEditorRecordAfterUndoTruncates(t *testing.T) {
	e := newTestEditor(t)
	insertSymbol(t, e, "a", 0, 0, 10, 10)
	insertSymbol(t, e, "b", 100, 0, 10, 10)
	e.Undo(context.Background())
	insertSymbol(t, e, "c", 200, 0, 10, 10)

	st := e.HistoryState()
	if st.Length != 3 || st.CanRedo {
		t.Errorf("state = %+v, want length 3 without redo", st)
	}
	if _, ok := e.Node("b"); ok {
		t.Errorf("b came back")
	}
}

func TestEditorPasteOffset(t *testing.T) {
	settings := DefaultSettings()
	e := NewEditor(settings, nil)
	insertSymbol(t, e, "n", 40, 60, 10, 10)

	if got := e.Copy(); got != 1 {
		t.Fatalf("Copy() = %d", got)
	}
	for i := 1; i <= 3; i++ {
		pasted, err := e.Paste(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		want := Point{40 + float64(i)*20, 60 + float64(i)*20}
		if got := pasted[0].Position(); got != want {
			t.Errorf("paste %d at %v, want %v", i, got, want)
		}
		if sel := e.SelectedIDs(); len(sel) != 1 || sel[0] != pasted[0].ID {
			t.Errorf("paste %d: selection = %v", i, sel)
		}
	}
	if st := e.HistoryState(); st.Length != 5 {
		t.Errorf("history length = %d, want 5", st.Length)
	}
}

func TestEditorZOrderOnSelection(t *testing.T) {
	e := newTestEditor(t)
	insertSymbol(t, e, "a", 0, 0, 10, 10)
	insertSymbol(t, e, "b", 0, 0, 10, 10)
	insertSymbol(t, e, "c", 0, 0, 10, 10)
	if err := e.Select([]string{"a"}); err != nil {
		t.Fatal(err)
	}

	if err := e.ZOrder(ZOrderUp); err != nil {
		t.Fatal(err)
	}
	doc := e.Document()
	var got []string
	for _, c := range doc.Root.Children {
		got = append(got, c.ID)
	}
	if !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Errorf("order = %v, want [b a c]", got)
	}
	if !slices.Equal(e.SelectedIDs(), []string{"a"}) {
		t.Errorf("selection = %v, want [a]", e.SelectedIDs())
	}

	e.ClearSelection()
	if err := e.Graph().CheckDenseZOrder(); err != nil {
		t.Error(err)
	}
	if err := e.ZOrder(ZOrderTop); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("ZOrder() on empty selection error = %v", err)
	}
	if err := e.ZOrder(ZOrderBottom, "c"); err != nil {
		t.Fatal(err)
	}
	if n, _ := e.Node("c"); n.ZIndex != 0 {
		t.Errorf("c.ZIndex = %d, want 0", n.ZIndex)
	}
}

func TestEditorSetAttribute(t *testing.T) {
	e := newTestEditor(t)
	n := insertSymbol(t, e, "n", 0, 0, 10, 10)
	before := e.HistoryState().Length

	if err := e.SetAttribute("n", AttrOpacity, 0.5); err != nil {
		t.Fatal(err)
	}
	// Still selected, so dimmed on screen but 0.5 in the document.
	if !near(n.Opacity, 0.4) {
		t.Errorf("on-screen opacity = %v, want 0.4", n.Opacity)
	}
	if got := e.Document().Root.Children[0].Opacity; got != 0.5 {
		t.Errorf("document opacity = %v, want 0.5", got)
	}
	if e.HistoryState().Length != before+1 {
		t.Errorf("SetAttribute did not commit")
	}

	if err := e.SetAttribute("ghost", AttrX, 1); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("unknown id error = %v", err)
	}
	if err := e.SetAttribute("n", AttrWidth, -3); !errors.Is(err, ErrInvalidAttribute) {
		t.Errorf("negative width error = %v", err)
	}
}

func TestEditorDeleteAndClear(t *testing.T) {
	e := newTestEditor(t)
	insertSymbol(t, e, "a", 0, 0, 10, 10)
	insertSymbol(t, e, "b", 20, 0, 10, 10)

	if err := e.Delete(); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Node("b"); ok {
		t.Errorf("b still present after Delete")
	}
	if err := e.Delete(); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("Delete() with nothing selected error = %v", err)
	}

	e.ClearBoard()
	if e.Graph().Len() != 0 {
		t.Errorf("Len() = %d after ClearBoard", e.Graph().Len())
	}
	e.Undo(context.Background())
	if _, ok := e.Node("a"); !ok {
		t.Errorf("undo of ClearBoard did not bring a back")
	}
}

func TestEditorCancelSession(t *testing.T) {
	e := newTestEditor(t)
	n := insertSymbol(t, e, "n", 10, 10, 50, 50)
	before := e.HistoryState()

	e.PointerDown(&PointerEvent{X: 30, Y: 30})
	e.PointerMove(&PointerEvent{X: 80, Y: 90})
	if !e.CancelSession() {
		t.Fatal("CancelSession() = false")
	}
	if n.X != 10 || n.Y != 10 {
		t.Errorf("n = %v, want {10 10}", n.Position())
	}
	if e.HistoryState() != before {
		t.Errorf("cancel recorded history")
	}
	if e.CancelSession() {
		t.Errorf("second CancelSession() = true")
	}
}

func TestEditorLostPointerUp(t *testing.T) {
	e := newTestEditor(t)
	n := insertSymbol(t, e, "n", 10, 10, 50, 50)
	before := e.HistoryState().Length

	e.PointerDown(&PointerEvent{X: 30, Y: 30})
	e.PointerMove(&PointerEvent{X: 40, Y: 30})
	// No up: the next down settles the open move.
	e.PointerDown(&PointerEvent{X: 900, Y: 600})

	if n.X != 20 {
		t.Errorf("n.X = %v, want 20", n.X)
	}
	if e.HistoryState().Length != before+1 {
		t.Errorf("open move was not committed")
	}
}

func TestEditorZoomAffectsInput(t *testing.T) {
	e := newTestEditor(t)
	n := insertSymbol(t, e, "n", 100, 100, 50, 50)
	e.ClearSelection()

	if got := e.Zoom(2, Point{}); got != 2 {
		t.Fatalf("Zoom() = %v", got)
	}
	e.Pan(-50, 0)
	// Board (110, 110) is surface (170, 220).
	if id := e.HitTest(170, 220); id != "n" {
		t.Errorf("HitTest() = %q, want n", id)
	}
	e.PointerDown(&PointerEvent{X: 170, Y: 220})
	e.PointerMove(&PointerEvent{X: 190, Y: 220})
	e.PointerUp(&PointerEvent{X: 190, Y: 220})
	if n.X != 110 {
		t.Errorf("n.X = %v, want 110 (20 surface px at zoom 2)", n.X)
	}
}

func TestEditorSignals(t *testing.T) {
	e := newTestEditor(t)
	var history []HistoryState
	var selections [][]string
	e.Subscribe(func(s Signal) {
		switch s.Kind {
		case SignalHistoryChanged:
			history = append(history, *s.History)
		case SignalSelectionChanged:
			selections = append(selections, s.Selection)
		}
	})

	insertSymbol(t, e, "n", 0, 0, 10, 10)
	e.Undo(context.Background())

	if len(history) != 2 || history[0].Cursor != 1 || history[1].Cursor != 0 {
		t.Errorf("history signals = %+v", history)
	}
	if len(selections) == 0 || !slices.Equal(selections[0], []string{"n"}) {
		t.Errorf("selection signals = %v", selections)
	}
	if last := selections[len(selections)-1]; len(last) != 0 {
		t.Errorf("last selection signal = %v, want empty after undo", last)
	}
}

func TestEditorLoadDocument(t *testing.T) {
	e := NewEditor(DefaultSettings(), nil)
	doc := document.NewSampleDocument()
	if err := e.LoadDocument(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	if e.Graph().Len() != doc.Count() {
		t.Errorf("Len() = %d, want %d", e.Graph().Len(), doc.Count())
	}
	if st := e.HistoryState(); st.Length != 1 || st.CanUndo {
		t.Errorf("history after load = %+v", st)
	}
	if e.Settings().GridSize != doc.Board.GridSize {
		t.Errorf("grid = %v, want %v", e.Settings().GridSize, doc.Board.GridSize)
	}

	bad := document.NewEmptyDocument("", 10, 10, 10)
	if err := e.LoadDocument(context.Background(), bad); !errors.Is(err, document.ErrInvalidDocument) {
		t.Errorf("LoadDocument(bad) error = %v", err)
	}
}

func TestEditorInsertValidation(t *testing.T) {
	e := newTestEditor(t)
	ctx := context.Background()

	if _, err := e.Insert(ctx, document.NodeRecord{Type: document.NodeTypeLayer}, ""); !errors.Is(err, document.ErrInvalidDocument) {
		t.Errorf("insert layer error = %v", err)
	}
	if _, err := e.Insert(ctx, document.NodeRecord{Type: document.NodeTypeSymbol}, "ghost"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("insert into unknown parent error = %v", err)
	}

	n, err := e.Insert(ctx, document.NodeRecord{Type: document.NodeTypeSymbol, Width: 5, Height: 5}, "")
	if err != nil {
		t.Fatal(err)
	}
	if n.ID == "" || n.ScaleX != 1 {
		t.Errorf("inserted node = %+v", n)
	}
	if got := e.Document().Root.Children[0].Opacity; got != 1 {
		t.Errorf("opacity = %v, want default 1", got)
	}
}

func TestEditorInsertRejectsInvalidSubtree(t *testing.T) {
	group := func(children ...document.NodeRecord) document.NodeRecord {
		return document.NodeRecord{Type: document.NodeTypeGroup, ScaleX: 1, ScaleY: 1, Children: children}
	}
	tests := []struct {
		name string
		rec  document.NodeRecord
	}{
		{"unknown child type", group(document.NodeRecord{ID: "c", Type: "bogus", Width: 10, Height: 10})},
		{"negative child size", group(document.NodeRecord{ID: "c", Type: document.NodeTypeSymbol, Width: -5, Height: 10})},
		{"duplicate child ids", group(
			document.NodeRecord{ID: "c", Type: document.NodeTypeSymbol},
			document.NodeRecord{ID: "c", Type: document.NodeTypeSymbol},
		)},
		{"child id already on board", group(document.NodeRecord{ID: "n", Type: document.NodeTypeSymbol})},
		{"top-level id already on board", document.NodeRecord{ID: "n", Type: document.NodeTypeSymbol}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEditor(t)
			ctx := context.Background()
			insertSymbol(t, e, "n", 0, 0, 10, 10)
			before := e.HistoryState()
			snapBefore, _ := e.Snapshot()

			if _, err := e.Insert(ctx, tt.rec, ""); !errors.Is(err, document.ErrInvalidDocument) {
				t.Fatalf("Insert() error = %v, want ErrInvalidDocument", err)
			}
			if e.HistoryState() != before {
				t.Errorf("history = %+v, want %+v", e.HistoryState(), before)
			}
			snap, _ := e.Snapshot()
			if !bytes.Equal(snap, snapBefore) {
				t.Errorf("board changed after rejected insert")
			}
			if _, err := document.Decode(snap); err != nil {
				t.Errorf("snapshot no longer decodes: %v", err)
			}

			if !e.Undo(ctx) || !e.Redo(ctx) {
				t.Fatalf("undo/redo failed")
			}
			if _, ok := e.Node("n"); !ok || len(e.Graph().Root().Children()) != 1 {
				t.Errorf("board after undo/redo lost node n")
			}
		})
	}
}

func TestEditorUndoCorruptSnapshotKeepsCursor(t *testing.T) {
	e := newTestEditor(t)
	ctx := context.Background()
	insertSymbol(t, e, "a", 0, 0, 10, 10)
	insertSymbol(t, e, "b", 20, 0, 10, 10)
	e.history.snapshots[1] = []byte(`{"root":{"id":"x","type":"layer","children":[{"id":"c","type":"bogus"}]}}`)
	before := e.HistoryState()

	var histories int
	e.Subscribe(func(s Signal) {
		if s.Kind == SignalHistoryChanged {
			histories++
		}
	})

	if e.Undo(ctx) {
		t.Fatal("Undo() onto a corrupt snapshot = true")
	}
	if e.HistoryState() != before {
		t.Errorf("history = %+v, want %+v", e.HistoryState(), before)
	}
	if histories != 0 {
		t.Errorf("history signal fired %d times", histories)
	}
	for _, id := range []string{"a", "b"} {
		if _, ok := e.Node(id); !ok {
			t.Errorf("node %s missing after failed undo", id)
		}
	}
	if got := e.SelectedIDs(); !slices.Equal(got, []string{"b"}) {
		t.Errorf("selection = %v, want [b]", got)
	}
	if e.Redo(ctx) {
		t.Error("Redo() at the newest snapshot = true")
	}
}
