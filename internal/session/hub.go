package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/memeshare/memeshare/backend-go/internal/engine"
	"github.com/memeshare/memeshare/backend-go/internal/typeid"
)

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // sessionID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	loader      engine.Loader
	opts        engine.Options
	loadTimeout time.Duration
}

// NewHub creates a hub whose rooms load backgrounds with loader and build
// their engines from opts.
func NewHub(loader engine.Loader, opts engine.Options, loadTimeout time.Duration) *Hub {
	if loadTimeout <= 0 {
		loadTimeout = 15 * time.Second
	}
	return &Hub{
		rooms:       make(map[string]*Room),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		loader:      loader,
		opts:        opts,
		loadTimeout: loadTimeout,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Stop ends Run. Connected clients are not closed.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Rooms counts the live sessions.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) room(sessionID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[sessionID]
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok {
		room = NewRoom(client.SessionID, engine.New(h.opts))
		h.rooms[client.SessionID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()
	room.presence.Join(client.ClientID, client.DisplayName)

	client.Send(newMessage(TypeWelcome, room.id, WelcomePayload{
		SessionID:    room.id,
		ClientID:     client.ClientID,
		FramePayload: room.Frame(),
	}))

	client.Send(room.presence.StateMessage(room.id))

	joinMsg := newMessage(TypePresenceJoin, room.id, PresenceJoinPayload{
		ClientID:    client.ClientID,
		DisplayName: client.DisplayName,
	})
	h.broadcastToRoom(room.id, joinMsg, client.ClientID)

	slog.Info("client joined", "client", client.ClientID, "session", room.id)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	close(client.send)
	room.presence.Remove(client.ClientID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.SessionID)
	}
	h.mu.Unlock()

	leaveMsg := newMessage(TypePresenceLeave, client.SessionID, PresenceLeavePayload{ClientID: client.ClientID})
	h.broadcastToRoom(client.SessionID, leaveMsg, "")

	slog.Info("client left", "client", client.ClientID, "session", client.SessionID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	room := h.room(sender.SessionID)
	if room == nil {
		return
	}

	switch msg.Type {
	case TypeSessionLoad:
		h.handleLoad(room, sender, msg)
	case TypeActionSubmit:
		h.handleAction(room, sender, msg)
	case TypePointerDown, TypePointerMove, TypePointerUp, TypePointerDblClick:
		h.handlePointer(room, sender, msg)
	case TypeHistoryUndo, TypeHistoryRedo:
		h.handleHistory(room, msg)
	case TypeExportRequest:
		h.handleExport(room, sender, msg)
	case TypePresenceUpdate:
		h.handlePresenceUpdate(room, sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", sender.ClientID)
		sender.Send(newMessage(TypeError, room.id, ErrorPayload{Message: "unknown message type: " + msg.Type}))
	}
}

func (h *Hub) handleLoad(room *Room, sender *Client, msg *Message) {
	var p LoadPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil || p.ImageURL == "" {
		sender.Send(newMessage(TypeError, room.id, ErrorPayload{Message: "session.load requires imageUrl"}))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.loadTimeout)
	defer cancel()

	_, err := room.Load(ctx, h.loader, p.ImageURL)
	if errors.Is(err, engine.ErrStaleLoad) {
		return
	}
	if err != nil {
		slog.Warn("session image load failed", "session", room.id, "error", err)
	}
	h.broadcastToRoom(room.id, newMessage(TypeSessionStatus, room.id, room.Status()), "")
	if err == nil {
		h.broadcastFrame(room)
	}
}

func (h *Hub) handleAction(room *Room, sender *Client, msg *Message) {
	var p ActionPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		h.nack(room, sender, msg.Seq, "invalid action payload")
		return
	}

	seq, err := room.Apply(func(e *engine.Engine) error { return e.Dispatch(p.Action) })
	if err != nil {
		h.nack(room, sender, msg.Seq, err.Error())
		return
	}

	e := room.Engine()
	sender.Send(newMessage(TypeActionAck, room.id, AckPayload{
		Seq:       msg.Seq,
		ServerSeq: seq,
		CanUndo:   e.CanUndo(),
		CanRedo:   e.CanRedo(),
	}))
	h.broadcastFrame(room)
}

func (h *Hub) nack(room *Room, sender *Client, seq int64, reason string) {
	sender.Send(newMessage(TypeActionNack, room.id, NackPayload{Seq: seq, Reason: reason}))
}

func (h *Hub) handlePointer(room *Room, sender *Client, msg *Message) {
	var p PointerPayload
	if msg.Type != TypePointerUp {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			slog.Warn("invalid pointer payload", "error", err, "client", sender.ClientID)
			return
		}
	}

	before := room.Engine().Frames()
	_, err := room.Apply(func(e *engine.Engine) error {
		switch msg.Type {
		case TypePointerDown:
			e.PointerDown(p.ClientX, p.ClientY, p.Rect)
		case TypePointerMove:
			e.PointerMove(p.ClientX, p.ClientY, p.Rect)
		case TypePointerUp:
			e.PointerUp()
		case TypePointerDblClick:
			_, err := e.DoubleClick(p.ClientX, p.ClientY, p.Rect)
			return err
		}
		return nil
	})
	if err != nil {
		sender.Send(newMessage(TypeError, room.id, ErrorPayload{Message: err.Error()}))
		return
	}
	if room.Engine().Frames() != before {
		h.broadcastFrame(room)
	}
}

func (h *Hub) handleHistory(room *Room, msg *Message) {
	changed := false
	room.Apply(func(e *engine.Engine) error {
		if msg.Type == TypeHistoryUndo {
			changed = e.Undo()
		} else {
			changed = e.Redo()
		}
		return nil
	})
	if changed {
		h.broadcastFrame(room)
	}
}

func (h *Hub) handleExport(room *Room, sender *Client, msg *Message) {
	var p ExportRequestPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			sender.Send(newMessage(TypeError, room.id, ErrorPayload{Message: "invalid export payload"}))
			return
		}
	}

	uri, err := room.Engine().Export(p.Quality)
	if err != nil {
		sender.Send(newMessage(TypeError, room.id, ErrorPayload{Message: err.Error()}))
		return
	}
	result := ExportResultPayload{ID: typeid.NewExportID(), DataURI: uri}
	slog.Info("session export", "session", room.id, "id", result.ID, "bytes", len(uri))
	sender.Send(newMessage(TypeExportResult, room.id, result))
}

func (h *Hub) handlePresenceUpdate(room *Room, sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	updated, changed := room.presence.Update(sender.ClientID, presence.Cursor)
	if !changed {
		return
	}

	outMsg := newMessage(TypePresenceUpdate, room.id, updated)
	outMsg.ClientID = sender.ClientID
	h.broadcastToRoom(room.id, outMsg, sender.ClientID)
}

func (h *Hub) broadcastFrame(room *Room) {
	h.broadcastToRoom(room.id, newMessage(TypeFrame, room.id, room.Frame()), "")
}

func (h *Hub) broadcastToRoom(sessionID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	// Send never blocks; the read lock keeps removeClient from closing a
	// channel mid-send.
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			c.Send(msg)
		}
	}
}
