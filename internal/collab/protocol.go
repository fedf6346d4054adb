package collab

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wiredraw/wiredraw/internal/document"
	"github.com/wiredraw/wiredraw/internal/engine"
)

type Message struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync
	TypeDocSync = "doc.sync"

	// Client commands
	TypeInputPointer = "input.pointer"
	TypeEditSelect   = "edit.select"
	TypeEditInsert   = "edit.insert"
	TypeEditDelete   = "edit.delete"
	TypeEditAttr     = "edit.attr"
	TypeEditZOrder   = "edit.zorder"
	TypeEditCopy     = "edit.copy"
	TypeEditPaste    = "edit.paste"
	TypeEditUndo     = "edit.undo"
	TypeEditRedo     = "edit.redo"
	TypeEditCancel   = "edit.cancel"
	TypeEditClear    = "edit.clear"
	TypeViewZoom     = "view.zoom"
	TypeViewPan      = "view.pan"

	// Engine signals
	TypeSignalSelection = "signal.selection"
	TypeSignalHistory   = "signal.history"
	TypeSignalRedraw    = "signal.redraw"
)

// --- Command payloads ---

type PointerPayload struct {
	Phase engine.PointerPhase `json:"phase"`
	X     float64             `json:"x"`
	Y     float64             `json:"y"`
	Shift bool                `json:"shift"`
	Alt   bool                `json:"alt"`
	Ctrl  bool                `json:"ctrl"`
}

type SelectPayload struct {
	IDs []string `json:"ids"`
}

type InsertPayload struct {
	Node     document.NodeRecord `json:"node"`
	ParentID string              `json:"parentId,omitempty"`
}

type AttrPayload struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
}

type ZOrderPayload struct {
	Op  string   `json:"op"`
	IDs []string `json:"ids,omitempty"`
}

type ZoomPayload struct {
	Factor float64 `json:"factor"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type PanPayload struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// --- Server payloads ---

type WelcomePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

type DocSyncPayload struct {
	Document json.RawMessage     `json:"document"`
	History  engine.HistoryState `json:"history"`
}

type SelectionPayload struct {
	IDs    []string    `json:"ids"`
	Bounds engine.Rect `json:"bounds"`
}

type RedrawPayload struct {
	Commands []engine.DrawCommand `json:"commands"`
	Scale    float64              `json:"scale"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"` // type of the rejected message
}

// newMessage builds a server message.
func newMessage(typ string, payload interface{}) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("null")
	}
	return &Message{Type: typ, Payload: data}
}

var ErrInvalidMessage = errors.New("invalid message")

// parseClientMessage decodes a frame sent by a client. Server-only types are
// refused so a client cannot forge signals for the others.
func parseClientMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	switch {
	case msg.Type == "":
		return nil, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	case strings.HasPrefix(msg.Type, "signal."),
		msg.Type == TypeWelcome, msg.Type == TypeDocSync, msg.Type == TypeError,
		msg.Type == TypePresenceState, msg.Type == TypePresenceJoin, msg.Type == TypePresenceLeave:
		return nil, fmt.Errorf("%w: %s is server-only", ErrInvalidMessage, msg.Type)
	}
	return &msg, nil
}
