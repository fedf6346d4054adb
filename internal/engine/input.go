package engine

import "log/slog"

// PointerPhase is the kind of pointer event.
type PointerPhase string

const (
	PointerDown PointerPhase = "down"
	PointerMove PointerPhase = "move"
	PointerUp   PointerPhase = "up"
)

// PointerEvent is one pointer event in surface units. Handlers set Consumed
// to stop the event from reaching the rest of the chain.
type PointerEvent struct {
	Phase PointerPhase `json:"phase"`
	X     float64      `json:"x"`
	Y     float64      `json:"y"`
	Modifiers
	Consumed bool `json:"-"`

	board Point
}

// Board returns the event position in board units once dispatched.
func (ev *PointerEvent) Board() Point { return ev.board }

// pointerHandler is one link in the pointer-down chain.
type pointerHandler func(e *Editor, ev *PointerEvent)

// downChain is the fixed order pointer-down events are offered in: resize
// and rotate handles, the current selection, the scene, then the background.
var downChain = []pointerHandler{
	handleAnchors,
	handleSelection,
	handleScene,
	handleBackground,
}

func (e *Editor) dispatch(ev *PointerEvent) {
	ev.board = e.coords.PointToBoard(Point{ev.X, ev.Y})

	switch ev.Phase {
	case PointerDown:
		if e.session.Active() {
			// The matching up was lost; settle the open session first.
			e.endSession()
		}
		for _, h := range downChain {
			h(e, ev)
			if ev.Consumed {
				return
			}
		}
	case PointerMove:
		if !e.session.Active() {
			return
		}
		if e.session.Update(ev.board, ev.Modifiers) {
			e.signals.requestRedraw()
		}
		ev.Consumed = true
	case PointerUp:
		if !e.session.Active() {
			return
		}
		e.endSession()
		ev.Consumed = true
	}
}

func (e *Editor) endSession() {
	if e.session.End() {
		e.commit()
		return
	}
	e.signals.requestRedraw()
}

func handleAnchors(e *Editor, ev *PointerEvent) {
	if e.selection.IsEmpty() {
		return
	}
	radius := e.coords.ToBoard(e.settings.AnchorSizePx)
	a := e.session.HandleAt(ev.board, radius)
	if a == AnchorNone {
		return
	}
	e.begin(a, ev)
}

func handleSelection(e *Editor, ev *PointerEvent) {
	if e.selection.IsEmpty() {
		return
	}
	box := e.selection.Box()
	local := box.Matrix().Invert().Apply(ev.board)
	if !(Rect{Width: box.Width, Height: box.Height}).Contains(local) {
		return
	}
	e.begin(AnchorNone, ev)
}

func handleScene(e *Editor, ev *PointerEvent) {
	hit := e.graph.TopLevel(e.graph.HitTest(ev.board))
	if hit == nil {
		return
	}
	nodes := []*SceneNode{hit}
	if ev.Shift {
		nodes = append(e.selection.Nodes(), hit)
	}
	e.selection.Select(nodes)
	e.begin(AnchorNone, ev)
}

func handleBackground(e *Editor, ev *PointerEvent) {
	e.selection.Clear()
	ev.Consumed = true
}

func (e *Editor) begin(a Anchor, ev *PointerEvent) {
	if err := e.session.Begin(a, ev.board); err != nil {
		slog.Debug("transform session not started", "anchor", a, "error", err)
		return
	}
	ev.Consumed = true
	e.signals.requestRedraw()
}
