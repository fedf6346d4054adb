package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 256 * 1024 // inserted nodes may carry inline markup
	sendBuffer = 256
)

// Client is one websocket connection to a project room. The room owns send:
// it is the only writer and closes it when the client leaves or the room
// shuts down.
type Client struct {
	hub  *Hub
	room *Room // set by Hub.Register
	conn *websocket.Conn
	send chan []byte
	seq  int64

	UserID      string
	DisplayName string
	ProjectID   string
	ClientID    string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, displayName, projectID, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		UserID:      userID,
		DisplayName: displayName,
		ProjectID:   projectID,
		ClientID:    clientID,
	}
}

// Serve pumps messages between the connection and the room until either
// side goes away. The client must be registered first.
func (c *Client) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	written := make(chan struct{})
	go func() {
		defer close(written)
		c.writeLoop(ctx)
		// Unblocks the reader when the room drops us.
		cancel()
	}()

	c.readLoop(ctx)
	c.hub.Unregister(c)
	cancel()
	<-written
	c.conn.Close(websocket.StatusNormalClosure, "")
}

func (c *Client) readLoop(ctx context.Context) {
	room := c.room
	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					slog.Debug("read error", "error", err, "user", c.UserID)
				}
			}
			return
		}

		msg, err := parseClientMessage(data)
		if err != nil {
			slog.Warn("invalid message", "error", err, "user", c.UserID)
			continue
		}
		c.seq++
		msg.Seq = c.seq
		msg.UserID = c.UserID
		msg.ClientID = c.ClientID
		msg.ProjectID = c.ProjectID

		room.submit(event{kind: eventMessage, client: c, msg: msg})
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "user", c.UserID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Send queues msg without blocking. A client that falls behind loses
// messages; the next redraw carries the full board again.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "user", c.UserID, "type", msg.Type)
	}
}
