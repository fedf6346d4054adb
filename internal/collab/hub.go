package collab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wiredraw/wiredraw/internal/document"
	"github.com/wiredraw/wiredraw/internal/engine"
)

var ErrHubStopped = errors.New("hub stopped")

const saveTimeout = 10 * time.Second

// Loader returns the stored document of a project.
type Loader func(ctx context.Context, projectID string) (*document.Document, error)

// Saver stores a serialized document as the project's next snapshot.
type Saver func(ctx context.Context, projectID string, doc []byte) error

type HubConfig struct {
	Load         Loader
	Save         Saver
	Settings     engine.Settings
	Resolver     engine.AssetResolver
	SaveInterval time.Duration // zero saves only when a room closes
}

// Hub maps projects to rooms. A room lives while it has clients; the next
// room for the same project waits until the previous one has saved.
type Hub struct {
	cfg    HubConfig
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	rooms   map[string]*Room
	closing map[string]*Room
	stopped bool
}

func NewHub(cfg HubConfig) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		rooms:   make(map[string]*Room),
		closing: make(map[string]*Room),
	}
}

// Register attaches a client to its project's room, opening the room if
// needed.
func (h *Hub) Register(client *Client) error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return ErrHubStopped
	}
	room, ok := h.rooms[client.ProjectID]
	if !ok {
		room = newRoom(h, client.ProjectID, h.closing[client.ProjectID])
		h.rooms[client.ProjectID] = room
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			room.run(h.ctx)
			h.roomDone(room)
		}()
	}
	room.members++
	client.room = room
	h.mu.Unlock()

	room.submit(event{kind: eventJoin, client: client})
	return nil
}

// Unregister detaches a client. The last client out closes the room.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	room := client.room
	if room == nil {
		h.mu.Unlock()
		return
	}
	client.room = nil
	room.members--
	last := room.members == 0 && h.rooms[room.projectID] == room
	if last {
		delete(h.rooms, room.projectID)
		h.closing[room.projectID] = room
	}
	h.mu.Unlock()

	room.submit(event{kind: eventLeave, client: client})
	if last {
		room.stop()
	}
}

func (h *Hub) roomDone(room *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing[room.projectID] == room {
		delete(h.closing, room.projectID)
	}
}

// RoomCount returns the number of open rooms.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Stop closes every room, saving documents with unsaved changes, and waits
// for the rooms to finish.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.stopped = true
	rooms := make([]*Room, 0, len(h.rooms))
	for id, r := range h.rooms {
		rooms = append(rooms, r)
		h.closing[id] = r
		delete(h.rooms, id)
	}
	h.mu.Unlock()

	for _, r := range rooms {
		r.stop()
	}
	h.wg.Wait()
	h.cancel()
	slog.Info("hub stopped", "rooms", len(rooms))
}

// --- Room ---

type eventKind int

const (
	eventJoin eventKind = iota
	eventLeave
	eventMessage
)

type event struct {
	kind   eventKind
	client *Client
	msg    *Message
}

// Room owns one project's editor. Everything that touches the editor or the
// client set runs on the room goroutine.
type Room struct {
	projectID string
	hub       *Hub
	prev      *Room
	members   int // guarded by hub.mu

	events   chan event
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}

	editor   *engine.Editor
	clients  map[string]*Client
	presence *PresenceManager
	loadErr  error
	dirty    bool
	redraw   bool
}

func newRoom(h *Hub, projectID string, prev *Room) *Room {
	return &Room{
		projectID: projectID,
		hub:       h,
		prev:      prev,
		events:    make(chan event, 256),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
	}
}

func (r *Room) submit(ev event) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

func (r *Room) stop() {
	r.quitOnce.Do(func() { close(r.quit) })
}

func (r *Room) run(ctx context.Context) {
	defer close(r.done)

	if r.prev != nil {
		<-r.prev.done
	}
	r.load(ctx)

	var tick <-chan time.Time
	if iv := r.hub.cfg.SaveInterval; iv > 0 {
		ticker := time.NewTicker(iv)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case ev := <-r.events:
			r.handle(ctx, ev)
		case <-tick:
			r.save()
		case <-r.quit:
			r.drain(ctx)
			r.save()
			for id, c := range r.clients {
				close(c.send)
				delete(r.clients, id)
			}
			slog.Info("room closed", "project", r.projectID)
			return
		}
	}
}

// drain handles the events queued before the room was stopped.
func (r *Room) drain(ctx context.Context) {
	for {
		select {
		case ev := <-r.events:
			r.handle(ctx, ev)
		default:
			return
		}
	}
}

func (r *Room) load(ctx context.Context) {
	r.editor = engine.NewEditor(r.hub.cfg.Settings, r.hub.cfg.Resolver)
	r.editor.Subscribe(r.onSignal)

	if r.hub.cfg.Load == nil {
		return
	}
	doc, err := r.hub.cfg.Load(ctx, r.projectID)
	if err == nil {
		err = r.editor.LoadDocument(ctx, doc)
	}
	if err != nil {
		r.loadErr = fmt.Errorf("load project %s: %w", r.projectID, err)
		slog.Error("load room document", "project", r.projectID, "error", err)
	}
	r.dirty = false
	r.redraw = false
	slog.Info("room opened", "project", r.projectID, "nodes", r.editor.Graph().Len())
}

func (r *Room) save() {
	if !r.dirty || r.loadErr != nil || r.hub.cfg.Save == nil {
		return
	}
	data, err := r.editor.Snapshot()
	if err != nil {
		slog.Error("snapshot room document", "project", r.projectID, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := r.hub.cfg.Save(ctx, r.projectID, data); err != nil {
		slog.Error("save room document", "project", r.projectID, "error", err)
		return
	}
	r.dirty = false
	slog.Debug("room document saved", "project", r.projectID, "bytes", len(data))
}

func (r *Room) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case eventJoin:
		r.join(ev.client)
	case eventLeave:
		r.leave(ev.client)
	case eventMessage:
		if _, ok := r.clients[ev.client.ClientID]; !ok {
			return
		}
		if err := r.apply(ctx, ev.client, ev.msg); err != nil {
			slog.Debug("command rejected", "type", ev.msg.Type, "user", ev.client.UserID, "error", err)
			ev.client.Send(newMessage(TypeError, ErrorPayload{Message: err.Error(), Ref: ev.msg.Type}))
		}
	}
	r.flushRedraw()
}

func (r *Room) join(c *Client) {
	if r.loadErr != nil {
		c.Send(newMessage(TypeError, ErrorPayload{Message: "project could not be loaded"}))
		close(c.send)
		return
	}
	r.clients[c.ClientID] = c

	c.Send(newMessage(TypeWelcome, WelcomePayload{ClientID: c.ClientID, UserID: c.UserID}))
	if data, err := r.editor.Snapshot(); err == nil {
		c.Send(newMessage(TypeDocSync, DocSyncPayload{Document: data, History: r.editor.HistoryState()}))
	}
	c.Send(r.selectionMessage(r.editor.SelectedIDs()))
	if msg := r.presence.StateMessage(); msg != nil {
		c.Send(msg)
	}
	c.Send(r.redrawMessage())

	join := newMessage(TypePresenceJoin, PresenceJoinPayload{UserID: c.UserID, DisplayName: c.DisplayName})
	join.UserID = c.UserID
	r.broadcast(join, c.ClientID)

	slog.Info("client joined", "user", c.UserID, "project", r.projectID)
}

func (r *Room) leave(c *Client) {
	if _, ok := r.clients[c.ClientID]; !ok {
		return
	}
	delete(r.clients, c.ClientID)
	close(c.send)
	r.presence.Remove(c.UserID)

	leave := newMessage(TypePresenceLeave, PresenceLeavePayload{UserID: c.UserID})
	leave.UserID = c.UserID
	r.broadcast(leave, "")

	slog.Info("client left", "user", c.UserID, "project", r.projectID)
}

func (r *Room) onSignal(s engine.Signal) {
	switch s.Kind {
	case engine.SignalSelectionChanged:
		r.broadcast(r.selectionMessage(s.Selection), "")
	case engine.SignalHistoryChanged:
		r.dirty = true
		r.broadcast(newMessage(TypeSignalHistory, s.History), "")
	case engine.SignalRequestRedraw:
		r.redraw = true
	}
}

func (r *Room) selectionMessage(ids []string) *Message {
	return newMessage(TypeSignalSelection, SelectionPayload{IDs: ids, Bounds: r.editor.SelectionBounds()})
}

func (r *Room) updatePresence(sender *Client, msg *Message) {
	var p PresencePayload
	if err := decode(msg, &p); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}
	p.DisplayName = sender.DisplayName
	r.presence.Update(sender.UserID, &p)

	out := newMessage(TypePresenceUpdate, p)
	out.UserID = sender.UserID
	r.broadcast(out, sender.ClientID)
}

// flushRedraw sends one redraw for all redraw requests raised while handling
// an event.
func (r *Room) flushRedraw() {
	if !r.redraw {
		return
	}
	r.redraw = false
	r.broadcast(r.redrawMessage(), "")
}

func (r *Room) redrawMessage() *Message {
	return newMessage(TypeSignalRedraw, RedrawPayload{
		Commands: r.editor.Render(),
		Scale:    r.editor.Coords().Scale(),
	})
}

func (r *Room) broadcast(msg *Message, excludeClientID string) {
	for id, c := range r.clients {
		if id != excludeClientID {
			c.Send(msg)
		}
	}
}
