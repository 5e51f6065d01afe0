package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/memeshare/memeshare/backend-go/internal/engine"
)

// Room is one live editing session: a single authoritative engine shared by
// every connected client.
type Room struct {
	id       string
	engine   *engine.Engine
	clients  map[string]*Client // clientID -> client
	presence *PresenceManager

	mu        sync.Mutex // serializes edits so serverSeq matches apply order
	serverSeq int64
}

func NewRoom(id string, e *engine.Engine) *Room {
	return &Room{
		id:       id,
		engine:   e,
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
	}
}

// Engine returns the room's engine.
func (r *Room) Engine() *engine.Engine { return r.engine }

// Apply runs fn against the engine and, when it succeeds, advances the
// server sequence. It returns the sequence the edit was assigned.
func (r *Room) Apply(fn func(*engine.Engine) error) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := fn(r.engine); err != nil {
		return r.serverSeq, err
	}
	r.serverSeq++
	return r.serverSeq, nil
}

// Load fetches the room's background image. Edits are not held up while the
// image downloads; the engine drops the result if a newer load superseded it.
func (r *Room) Load(ctx context.Context, l engine.Loader, url string) (int64, error) {
	err := r.engine.Load(ctx, l, url)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		r.serverSeq++
	}
	return r.serverSeq, err
}

// Frame snapshots the engine for broadcast.
func (r *Room) Frame() FramePayload {
	r.mu.Lock()
	seq := r.serverSeq
	r.mu.Unlock()

	e := r.engine
	return FramePayload{
		ServerSeq: seq,
		Status:    e.Status(),
		Commands:  json.RawMessage(e.Render()),
		State:     e.State(),
		Selection: e.Selection(),
		CanUndo:   e.CanUndo(),
		CanRedo:   e.CanRedo(),
	}
}

// Status reports the background image status.
func (r *Room) Status() StatusPayload {
	w, h := r.engine.Size()
	p := StatusPayload{Status: r.engine.Status(), Width: w, Height: h}
	if err := r.engine.LoadError(); err != nil {
		p.Error = err.Error()
	}
	return p
}
