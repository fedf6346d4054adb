package engine

// SignalKind identifies a notification sent to the host UI.
type SignalKind string

const (
	SignalSelectionChanged SignalKind = "selection-changed"
	SignalHistoryChanged   SignalKind = "history-changed"
	SignalRequestRedraw    SignalKind = "request-redraw"
)

// Signal is one notification. Selection is set for selection-changed,
// History for history-changed.
type Signal struct {
	Kind      SignalKind    `json:"kind"`
	Selection []string      `json:"selection,omitempty"`
	History   *HistoryState `json:"history,omitempty"`
}

// Listener receives signals synchronously on the engine's goroutine.
type Listener func(Signal)

// Signals fans notifications out to listeners.
type Signals struct {
	listeners []Listener
}

// Subscribe registers a listener.
func (s *Signals) Subscribe(l Listener) {
	s.listeners = append(s.listeners, l)
}

func (s *Signals) emit(sig Signal) {
	if s == nil {
		return
	}
	for _, l := range s.listeners {
		l(sig)
	}
}

func (s *Signals) selectionChanged(ids []string) {
	s.emit(Signal{Kind: SignalSelectionChanged, Selection: ids})
}

func (s *Signals) historyChanged(state HistoryState) {
	s.emit(Signal{Kind: SignalHistoryChanged, History: &state})
}

func (s *Signals) requestRedraw() {
	s.emit(Signal{Kind: SignalRequestRedraw})
}
