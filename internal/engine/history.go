package engine

import "bytes"

// HistoryState is the stack length and cursor reported to the host.
type HistoryState struct {
	Length  int  `json:"length"`
	Cursor  int  `json:"cursor"`
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

// HistoryStack is a linear list of whole-document snapshots with a cursor.
// The cursor always points at the snapshot matching the on-screen state.
type HistoryStack struct {
	snapshots [][]byte
	cursor    int
	limit     int
}

// NewHistoryStack creates an empty stack keeping at most limit snapshots. A
// limit of zero or less keeps everything.
func NewHistoryStack(limit int) *HistoryStack {
	return &HistoryStack{cursor: -1, limit: limit}
}

// Reset drops every snapshot and starts over from snapshot.
func (h *HistoryStack) Reset(snapshot []byte) {
	h.snapshots = [][]byte{snapshot}
	h.cursor = 0
}

// Record pushes a snapshot after the cursor, discarding any redo tail. It is
// a no-op when snapshot equals the current one. Returns whether it pushed.
func (h *HistoryStack) Record(snapshot []byte) bool {
	if cur := h.Current(); cur != nil && bytes.Equal(cur, snapshot) {
		return false
	}

	h.snapshots = append(h.snapshots[:h.cursor+1], snapshot)
	h.cursor = len(h.snapshots) - 1

	if h.limit > 0 && len(h.snapshots) > h.limit {
		drop := len(h.snapshots) - h.limit
		h.snapshots = append([][]byte(nil), h.snapshots[drop:]...)
		h.cursor -= drop
	}
	return true
}

// Peek returns the snapshot delta steps from the cursor without moving it.
// It returns false when that position is outside the stack.
func (h *HistoryStack) Peek(delta int) ([]byte, bool) {
	i := h.cursor + delta
	if h.cursor < 0 || i < 0 || i >= len(h.snapshots) {
		return nil, false
	}
	return h.snapshots[i], true
}

// Move shifts the cursor by delta, clamped to the stack.
func (h *HistoryStack) Move(delta int) {
	if len(h.snapshots) == 0 {
		return
	}
	h.cursor = max(0, min(h.cursor+delta, len(h.snapshots)-1))
}

// Current returns the snapshot at the cursor, or nil for an empty stack.
func (h *HistoryStack) Current() []byte {
	if h.cursor < 0 || h.cursor >= len(h.snapshots) {
		return nil
	}
	return h.snapshots[h.cursor]
}

func (h *HistoryStack) CanUndo() bool { return h.cursor > 0 }
func (h *HistoryStack) CanRedo() bool { return h.cursor >= 0 && h.cursor < len(h.snapshots)-1 }
func (h *HistoryStack) Len() int      { return len(h.snapshots) }
func (h *HistoryStack) Cursor() int   { return h.cursor }

// State returns the host-facing view of the stack.
func (h *HistoryStack) State() HistoryState {
	return HistoryState{
		Length:  len(h.snapshots),
		Cursor:  h.cursor,
		CanUndo: h.CanUndo(),
		CanRedo: h.CanRedo(),
	}
}
