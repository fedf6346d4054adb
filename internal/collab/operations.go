package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wiredraw/wiredraw/internal/engine"
)

var ErrUnknownCommand = errors.New("unknown command")

// apply runs one client command against the room's editor. It is only called
// on the room goroutine.
func (r *Room) apply(ctx context.Context, sender *Client, msg *Message) error {
	e := r.editor

	switch msg.Type {
	case TypeInputPointer:
		var p PointerPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		ev := &engine.PointerEvent{
			X: p.X, Y: p.Y,
			Modifiers: engine.Modifiers{Shift: p.Shift, Alt: p.Alt, Ctrl: p.Ctrl},
		}
		switch p.Phase {
		case engine.PointerDown:
			e.PointerDown(ev)
		case engine.PointerMove:
			e.PointerMove(ev)
		case engine.PointerUp:
			e.PointerUp(ev)
		default:
			return fmt.Errorf("unknown pointer phase %q", p.Phase)
		}
		return nil

	case TypeEditSelect:
		var p SelectPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return e.Select(p.IDs)

	case TypeEditInsert:
		var p InsertPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		_, err := e.Insert(ctx, p.Node, p.ParentID)
		return err

	case TypeEditDelete:
		return e.Delete()

	case TypeEditClear:
		e.ClearBoard()
		return nil

	case TypeEditAttr:
		var p AttrPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		kind, err := engine.ParseAttributeKind(p.Kind)
		if err != nil {
			return err
		}
		return e.SetAttribute(p.ID, kind, p.Value)

	case TypeEditZOrder:
		var p ZOrderPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		op, err := engine.ParseZOrderOp(p.Op)
		if err != nil {
			return err
		}
		return e.ZOrder(op, p.IDs...)

	case TypeEditCopy:
		e.Copy()
		return nil

	case TypeEditPaste:
		_, err := e.Paste(ctx)
		return err

	case TypeEditUndo:
		e.Undo(ctx)
		return nil

	case TypeEditRedo:
		e.Redo(ctx)
		return nil

	case TypeEditCancel:
		e.CancelSession()
		return nil

	case TypeViewZoom:
		var p ZoomPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		if p.Factor <= 0 {
			return fmt.Errorf("zoom factor must be positive, got %v", p.Factor)
		}
		e.Zoom(p.Factor, engine.Point{X: p.X, Y: p.Y})
		return nil

	case TypeViewPan:
		var p PanPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		e.Pan(p.DX, p.DY)
		return nil

	case TypePresenceUpdate:
		r.updatePresence(sender, msg)
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, msg.Type)
	}
}

func decode(msg *Message, v interface{}) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%s: %w", msg.Type, err)
	}
	return nil
}
