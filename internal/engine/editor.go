package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/wiredraw/wiredraw/internal/document"
	"github.com/wiredraw/wiredraw/internal/typeid"
)

// Editor is the editing engine that owns the scene graph and all editing
// state. It processes commands from the host and returns query results. An
// Editor is not safe for concurrent use; hosts drive it from one goroutine.
type Editor struct {
	settings Settings
	resolver AssetResolver

	graph     *SceneGraph
	coords    *CoordinateSpace
	signals   *Signals
	selection *SelectionSet
	snap      *SnapEngine
	session   *TransformSession
	zorder    *ZOrderManager
	history   *HistoryStack
	clipboard *ClipboardTool
}

// NewEditor creates an editor holding an empty board sized from settings.
// resolver may be nil when the documents carry no image nodes.
func NewEditor(settings Settings, resolver AssetResolver) *Editor {
	e := &Editor{
		settings: settings,
		resolver: resolver,
		signals:  &Signals{},
	}
	e.graph = NewSceneGraph(typeid.NewLayerID(), document.Board{
		Width:    settings.BoardWidth,
		Height:   settings.BoardHeight,
		GridSize: settings.GridSize,
	})
	e.coords = NewCoordinateSpace(settings.ZoomMin, settings.ZoomMax)
	e.selection = NewSelectionSet(e.graph, e.signals)
	e.snap = NewSnapEngine(e.coords, &e.settings)
	e.session = NewTransformSession(e.selection, e.snap, e.coords, &e.settings)
	e.zorder = NewZOrderManager(e.graph)
	e.history = NewHistoryStack(settings.HistoryLimit)
	e.clipboard = NewClipboardTool(e.graph, nil)

	snap, err := e.graph.Snapshot()
	if err != nil {
		slog.Error("snapshot empty board", "error", err)
	}
	e.history.Reset(snap)
	return e
}

// Subscribe registers a listener for selection, history and redraw signals.
func (e *Editor) Subscribe(l Listener) { e.signals.Subscribe(l) }

func (e *Editor) Settings() Settings         { return e.settings }
func (e *Editor) Graph() *SceneGraph         { return e.graph }
func (e *Editor) Coords() *CoordinateSpace   { return e.coords }
func (e *Editor) Session() *TransformSession { return e.session }
func (e *Editor) Guides() []Guide            { return e.snap.Guides() }
func (e *Editor) HistoryState() HistoryState { return e.history.State() }
func (e *Editor) SelectedIDs() []string      { return e.selection.IDs() }
func (e *Editor) Selection() []*SceneNode    { return e.selection.Nodes() }

// Node looks up a node by id.
func (e *Editor) Node(id string) (*SceneNode, bool) { return e.graph.Node(id) }

// --- Document ---

// LoadDocument replaces the board with doc and starts a fresh history.
func (e *Editor) LoadDocument(ctx context.Context, doc *document.Document) error {
	e.session.Cancel()
	e.selection.Clear()
	if err := e.graph.Restore(ctx, doc, e.resolver); err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc.Board.GridSize > 0 {
		e.settings.GridSize = doc.Board.GridSize
	}
	if doc.Board.Width > 0 && doc.Board.Height > 0 {
		e.settings.BoardWidth, e.settings.BoardHeight = doc.Board.Width, doc.Board.Height
	}

	snap, err := e.graph.Snapshot()
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	e.history.Reset(snap)
	e.signals.historyChanged(e.history.State())
	e.signals.requestRedraw()
	slog.Debug("document loaded", "nodes", e.graph.Len())
	return nil
}

// Document returns the persisted form of the board. Selection state is
// never included.
func (e *Editor) Document() *document.Document { return e.graph.Serialize() }

// Snapshot returns the board as JSON.
func (e *Editor) Snapshot() ([]byte, error) { return e.graph.Snapshot() }

// --- Direct edits ---

// Insert attaches a new node built from rec under parentID (the root when
// empty), selects it and commits. Missing ids are generated; a zero opacity
// is read as unset.
func (e *Editor) Insert(ctx context.Context, rec document.NodeRecord, parentID string) (*SceneNode, error) {
	switch rec.Type {
	case document.NodeTypeGroup, document.NodeTypeSymbol, document.NodeTypeImage:
	default:
		return nil, fmt.Errorf("insert: %w: cannot insert node of type %q", document.ErrInvalidDocument, rec.Type)
	}

	parent := e.graph.Root()
	if parentID != "" {
		p, ok := e.graph.Node(parentID)
		if !ok {
			return nil, fmt.Errorf("insert into %s: %w", parentID, ErrNodeNotFound)
		}
		parent = p
	}

	fillRecord(&rec)
	inUse := func(id string) bool {
		_, ok := e.graph.Node(id)
		return ok
	}
	if err := document.ValidateSubtree(&rec, inUse); err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}
	node := nodeFromRecord(rec)
	rehydrate(ctx, node, e.resolver)

	e.session.Cancel()
	e.selection.Clear()
	if err := e.graph.Add(parent, node); err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}
	e.selection.Select([]*SceneNode{node})
	e.commit()
	return node, nil
}

func fillRecord(rec *document.NodeRecord) {
	if rec.ID == "" {
		rec.ID = NewNodeID(rec.Type)
	}
	if rec.Opacity == 0 {
		rec.Opacity = 1
	}
	rec.Listening = true
	for i := range rec.Children {
		fillRecord(&rec.Children[i])
	}
}

// Delete removes the selected nodes and commits.
func (e *Editor) Delete() error {
	nodes := e.selection.Nodes()
	if len(nodes) == 0 {
		return ErrEmptySelection
	}
	e.session.Cancel()
	e.selection.Clear()
	for _, n := range nodes {
		if err := e.graph.Remove(n); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
	}
	e.commit()
	return nil
}

// ClearBoard removes every node and commits.
func (e *Editor) ClearBoard() {
	e.session.Cancel()
	e.selection.Clear()
	e.graph.Clear()
	e.commit()
}

// SetAttribute sets one attribute of a node and commits.
func (e *Editor) SetAttribute(id string, kind AttributeKind, value float64) error {
	n, ok := e.graph.Node(id)
	if !ok {
		return fmt.Errorf("set %s on %s: %w", kind, id, ErrNodeNotFound)
	}
	if n == e.graph.Root() {
		return fmt.Errorf("set %s on %s: %w: root layer is fixed", kind, id, ErrInvalidAttribute)
	}

	var err error
	e.withSelectionCleared(func() {
		if kind == AttrZIndex {
			if math.IsNaN(value) || math.IsInf(value, 0) {
				err = fmt.Errorf("%w: zIndex must be finite", ErrInvalidAttribute)
				return
			}
			e.graph.SetZIndex(n, int(value))
			return
		}
		err = n.SetAttribute(kind, value)
	})
	if err != nil {
		return fmt.Errorf("set %s on %s: %w", kind, id, err)
	}
	e.commit()
	return nil
}

// withSelectionCleared runs fn with the selection's shadow state folded back
// into the nodes, then selects the same nodes again.
func (e *Editor) withSelectionCleared(fn func()) {
	e.session.Cancel()
	prev := e.selection.Nodes()
	if len(prev) == 0 {
		fn()
		return
	}
	e.selection.clear()
	fn()
	e.selection.Select(prev)
}

// --- Selection ---

// Select replaces the selection with the nodes named by ids. An empty list
// clears the selection.
func (e *Editor) Select(ids []string) error {
	nodes := make([]*SceneNode, 0, len(ids))
	for _, id := range ids {
		n, ok := e.graph.Node(id)
		if !ok {
			return fmt.Errorf("select %s: %w", id, ErrNodeNotFound)
		}
		nodes = append(nodes, n)
	}
	e.session.Cancel()
	e.selection.Select(nodes)
	return nil
}

// ClearSelection empties the selection.
func (e *Editor) ClearSelection() {
	e.session.Cancel()
	e.selection.Clear()
}

// --- Input ---

// PointerDown offers a pointer-down event to the handler chain.
func (e *Editor) PointerDown(ev *PointerEvent) {
	ev.Phase = PointerDown
	e.dispatch(ev)
}

// PointerMove feeds the active transform session.
func (e *Editor) PointerMove(ev *PointerEvent) {
	ev.Phase = PointerMove
	e.dispatch(ev)
}

// PointerUp ends the active transform session and commits if anything moved.
func (e *Editor) PointerUp(ev *PointerEvent) {
	ev.Phase = PointerUp
	e.dispatch(ev)
}

// CancelSession abandons the active transform session, restoring every
// selected node to where it was at pointer-down. Nothing is committed.
func (e *Editor) CancelSession() bool {
	if !e.session.Active() {
		return false
	}
	e.session.Cancel()
	e.signals.requestRedraw()
	return true
}

// --- View ---

// Zoom multiplies the zoom factor around a surface point and returns the
// resulting scale.
func (e *Editor) Zoom(factor float64, at Point) float64 {
	e.coords.ZoomAt(factor, at)
	e.signals.requestRedraw()
	return e.coords.Scale()
}

// Pan moves the view by a surface-unit delta.
func (e *Editor) Pan(dx, dy float64) {
	e.coords.Pan(Point{dx, dy})
	e.signals.requestRedraw()
}

// --- Z-order ---

// ZOrder applies op to the nodes named by ids, or to the selection when ids
// is empty, and commits.
func (e *Editor) ZOrder(op ZOrderOp, ids ...string) error {
	var nodes []*SceneNode
	if len(ids) == 0 {
		nodes = e.selection.Nodes()
	}
	for _, id := range ids {
		n, ok := e.graph.Node(id)
		if !ok {
			return fmt.Errorf("z-order %s: %w", id, ErrNodeNotFound)
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 0 {
		return ErrEmptySelection
	}

	e.withSelectionCleared(func() {
		e.zorder.Apply(op, nodes)
	})
	e.commit()
	return nil
}

// --- Clipboard ---

// Copy buffers the selection and returns how many nodes were copied.
func (e *Editor) Copy() int {
	return e.clipboard.CopyStart(e.selection.Nodes())
}

// Paste inserts the clipboard buffer one grid step further than the last
// paste, selects the copies and commits.
func (e *Editor) Paste(ctx context.Context) ([]*SceneNode, error) {
	e.session.Cancel()
	e.selection.Clear()
	pasted, err := e.clipboard.CopyEnd(ctx, e.settings.GridSize, e.resolver)
	if len(pasted) > 0 {
		e.selection.Select(pasted)
		e.commit()
	}
	return pasted, err
}

// --- History ---

// Undo restores the previous snapshot. It reports false at the oldest one or
// when that snapshot cannot be restored, leaving the cursor in place.
func (e *Editor) Undo(ctx context.Context) bool { return e.step(ctx, -1) }

// Redo restores the next snapshot. It reports false at the newest one or
// when that snapshot cannot be restored.
func (e *Editor) Redo(ctx context.Context) bool { return e.step(ctx, 1) }

// step restores the snapshot delta steps from the cursor and moves the
// cursor only once the board matches it.
func (e *Editor) step(ctx context.Context, delta int) bool {
	e.session.Cancel()
	snap, ok := e.history.Peek(delta)
	if !ok {
		return false
	}
	if err := e.restore(ctx, snap); err != nil {
		slog.Error("restore snapshot", "cursor", e.history.Cursor(), "delta", delta, "error", err)
		return false
	}
	e.history.Move(delta)
	e.signals.historyChanged(e.history.State())
	e.signals.requestRedraw()
	return true
}

// restore replaces the board with snap. The board is untouched when snap
// does not decode or validate.
func (e *Editor) restore(ctx context.Context, snap []byte) error {
	doc, err := document.Decode(snap)
	if err != nil {
		return err
	}
	e.selection.Clear()
	return e.graph.Restore(ctx, doc, e.resolver)
}

// commit records the current board after a mutation.
func (e *Editor) commit() {
	snap, err := e.graph.Snapshot()
	if err != nil {
		slog.Error("snapshot board", "error", err)
		return
	}
	if e.history.Record(snap) {
		e.signals.historyChanged(e.history.State())
	}
	e.signals.requestRedraw()
}

// --- Render ---

// Render returns the draw commands for the board and its overlays.
func (e *Editor) Render() []DrawCommand {
	view := Translate(e.coords.Offset().X, e.coords.Offset().Y).Multiply(Scale(e.coords.Scale(), e.coords.Scale()))
	overlay := Overlay{
		Guides:     e.snap.Guides(),
		PixelSize:  e.coords.ToBoard(1),
		HandleSize: e.coords.ToBoard(e.settings.AnchorSizePx),
	}
	if !e.selection.IsEmpty() {
		frame := e.session.Frame()
		overlay.Frame = &frame
		overlay.Handles = e.session.Handles()
	}
	return CompileDrawCommands(e.graph, view, overlay)
}

// RenderJSON returns Render serialized as JSON.
func (e *Editor) RenderJSON() string {
	result, _ := DrawCommandsToJSON(e.Render())
	return result
}

// HitTest returns the id of the selectable node under a surface point, or
// an empty string.
func (e *Editor) HitTest(x, y float64) string {
	n := e.graph.TopLevel(e.graph.HitTest(e.coords.PointToBoard(Point{x, y})))
	if n == nil {
		return ""
	}
	return n.ID
}

// SelectionBounds returns the board-space bounds of the selection; the zero
// Rect when nothing is selected.
func (e *Editor) SelectionBounds() Rect { return e.selection.Bounds() }
