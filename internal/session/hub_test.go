package session

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/memeshare/memeshare/backend-go/internal/document"
	"github.com/memeshare/memeshare/backend-go/internal/engine"
)

type stubLoader struct{}

func (stubLoader) Load(_ context.Context, url string) (image.Image, error) {
	if strings.Contains(url, "broken") {
		return nil, errors.New("not an image")
	}
	return image.NewRGBA(image.Rect(0, 0, 800, 600)), nil
}

func newTestHub() *Hub {
	return NewHub(stubLoader{}, engine.Options{}, 0)
}

func join(h *Hub, sessionID, clientID string) *Client {
	c := NewClient(h, nil, sessionID, clientID, "tester "+clientID)
	h.addClient(c)
	return c
}

// drain returns every message queued for c, followed by the pending frame.
func drain(t *testing.T, c *Client) []Message {
	t.Helper()
	var out []Message
	decode := func(data []byte) {
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		out = append(out, m)
	}
	for {
		select {
		case data := <-c.send:
			decode(data)
		default:
			if f := c.takeFrame(); f != nil {
				decode(f)
			}
			return out
		}
	}
}

func find(msgs []Message, typ string) (Message, bool) {
	for _, m := range msgs {
		if m.Type == typ {
			return m, true
		}
	}
	return Message{}, false
}

func send(h *Hub, c *Client, typ string, seq int64, payload any) {
	data, _ := json.Marshal(payload)
	h.handleMessage(c, &Message{Type: typ, SessionID: c.SessionID, ClientID: c.ClientID, Seq: seq, Payload: data})
}

func TestJoinAndLeave(t *testing.T) {
	h := newTestHub()
	a := join(h, "sess_a", "c1")

	msgs := drain(t, a)
	welcome, ok := find(msgs, TypeWelcome)
	if !ok {
		t.Fatalf("no welcome in %+v", msgs)
	}
	var w WelcomePayload
	json.Unmarshal(welcome.Payload, &w)
	if w.ClientID != "c1" || w.Status != engine.StatusIdle {
		t.Errorf("welcome = %+v", w)
	}

	b := join(h, "sess_a", "c2")
	drain(t, b)
	if _, ok := find(drain(t, a), TypePresenceJoin); !ok {
		t.Error("first client not told about the join")
	}
	if h.Rooms() != 1 {
		t.Errorf("rooms = %d, want 1", h.Rooms())
	}

	h.removeClient(b)
	if _, ok := find(drain(t, a), TypePresenceLeave); !ok {
		t.Error("leave not broadcast")
	}
	h.removeClient(a)
	if h.Rooms() != 0 {
		t.Errorf("rooms = %d after everyone left", h.Rooms())
	}
}

func loadRoom(t *testing.T, h *Hub, c *Client) {
	t.Helper()
	send(h, c, TypeSessionLoad, 0, LoadPayload{ImageURL: "/assets/drake.png"})
	msgs := drain(t, c)
	status, ok := find(msgs, TypeSessionStatus)
	if !ok {
		t.Fatalf("no status in %+v", msgs)
	}
	var s StatusPayload
	json.Unmarshal(status.Payload, &s)
	if s.Status != engine.StatusReady || s.Width != 800 {
		t.Fatalf("status = %+v", s)
	}
}

func TestActionBroadcastsFrame(t *testing.T) {
	h := newTestHub()
	a := join(h, "sess_a", "c1")
	b := join(h, "sess_a", "c2")
	loadRoom(t, h, a)
	drain(t, b)

	send(h, a, TypeActionSubmit, 7, ActionPayload{Action: engine.Action{
		Kind:     engine.ActionAdd,
		Category: document.CategoryText,
		Props:    map[string]any{"text": "HELLO"},
	}})

	ack, ok := find(drain(t, a), TypeActionAck)
	if !ok {
		t.Fatal("sender got no ack")
	}
	var p AckPayload
	json.Unmarshal(ack.Payload, &p)
	if p.Seq != 7 || !p.CanUndo || p.ServerSeq != 2 {
		t.Errorf("ack = %+v", p)
	}

	frame, ok := find(drain(t, b), TypeFrame)
	if !ok {
		t.Fatal("other client got no frame")
	}
	var f FramePayload
	json.Unmarshal(frame.Payload, &f)
	if n := f.State.Count(document.CategoryText); n != 1 {
		t.Errorf("frame state has %d texts", n)
	}
	if !strings.Contains(string(f.Commands), "HELLO") {
		t.Errorf("frame commands do not draw the caption: %s", f.Commands)
	}
}

func TestFramesCoalesce(t *testing.T) {
	h := newTestHub()
	a := join(h, "sess_a", "c1")
	loadRoom(t, h, a)

	for i := 0; i < 3; i++ {
		send(h, a, TypeActionSubmit, int64(i), ActionPayload{Action: engine.Action{
			Kind:     engine.ActionAdd,
			Category: document.CategoryText,
			Props:    map[string]any{"text": "HI"},
		}})
	}

	var frames []Message
	for _, m := range drain(t, a) {
		if m.Type == TypeFrame {
			frames = append(frames, m)
		}
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	var f FramePayload
	json.Unmarshal(frames[0].Payload, &f)
	if n := f.State.Count(document.CategoryText); n != 3 {
		t.Errorf("pending frame has %d texts, want the latest state with 3", n)
	}
}

func TestActionNack(t *testing.T) {
	h := newTestHub()
	a := join(h, "sess_a", "c1")
	loadRoom(t, h, a)

	send(h, a, TypeActionSubmit, 3, ActionPayload{Action: engine.Action{Kind: "explode"}})
	nack, ok := find(drain(t, a), TypeActionNack)
	if !ok {
		t.Fatal("no nack")
	}
	var p NackPayload
	json.Unmarshal(nack.Payload, &p)
	if p.Seq != 3 || p.Reason == "" {
		t.Errorf("nack = %+v", p)
	}
}

func TestPointerAndHistory(t *testing.T) {
	h := newTestHub()
	a := join(h, "sess_a", "c1")
	loadRoom(t, h, a)
	rect := engine.ClientRect{Width: 800, Height: 600}

	send(h, a, TypePointerDblClick, 0, PointerPayload{ClientX: 100, ClientY: 100, Rect: rect})
	send(h, a, TypePointerDown, 0, PointerPayload{ClientX: 100, ClientY: 100, Rect: rect})
	send(h, a, TypePointerMove, 0, PointerPayload{ClientX: 300, ClientY: 200, Rect: rect})
	send(h, a, TypePointerUp, 0, nil)
	drain(t, a)

	e := h.room("sess_a").Engine()
	txt := e.State().Of(document.CategoryText)[0].Text
	if txt.X != 300 || txt.Y != 200 {
		t.Fatalf("dragged text at (%v, %v)", txt.X, txt.Y)
	}

	send(h, a, TypeHistoryUndo, 0, nil)
	if _, ok := find(drain(t, a), TypeFrame); !ok {
		t.Error("undo did not broadcast a frame")
	}
	if txt := e.State().Of(document.CategoryText)[0].Text; txt.X != 100 {
		t.Errorf("undo left text at x=%v", txt.X)
	}
	send(h, a, TypeHistoryRedo, 0, nil)
	if txt := e.State().Of(document.CategoryText)[0].Text; txt.X != 300 {
		t.Errorf("redo left text at x=%v", txt.X)
	}
}

func TestExportRequest(t *testing.T) {
	h := newTestHub()
	a := join(h, "sess_a", "c1")

	send(h, a, TypeExportRequest, 0, ExportRequestPayload{Quality: 0.5})
	if _, ok := find(drain(t, a), TypeError); !ok {
		t.Error("export before load should report an error")
	}

	loadRoom(t, h, a)
	send(h, a, TypeExportRequest, 0, ExportRequestPayload{Quality: 0.5})
	msg, ok := find(drain(t, a), TypeExportResult)
	if !ok {
		t.Fatal("no export result")
	}
	var p ExportResultPayload
	json.Unmarshal(msg.Payload, &p)
	if !strings.HasPrefix(p.DataURI, engine.DataURIPrefix) || !strings.HasPrefix(p.ID, "exp_") {
		t.Errorf("result = %.60s / %s", p.DataURI, p.ID)
	}
}

func TestLoadFailureBroadcastsStatus(t *testing.T) {
	h := newTestHub()
	a := join(h, "sess_a", "c1")
	drain(t, a)

	send(h, a, TypeSessionLoad, 0, LoadPayload{ImageURL: "/assets/broken.png"})
	msg, ok := find(drain(t, a), TypeSessionStatus)
	if !ok {
		t.Fatal("no status")
	}
	var s StatusPayload
	json.Unmarshal(msg.Payload, &s)
	if s.Status != engine.StatusLoadFailed || s.Error == "" {
		t.Errorf("status = %+v", s)
	}
}

func TestPresenceUpdate(t *testing.T) {
	h := newTestHub()
	a := join(h, "sess_a", "c1")
	b := join(h, "sess_a", "c2")
	drain(t, a)
	drain(t, b)

	send(h, a, TypePresenceUpdate, 0, PresencePayload{Cursor: &CursorPos{X: 5, Y: 6}})
	if _, ok := find(drain(t, a), TypePresenceUpdate); ok {
		t.Error("presence echoed to sender")
	}
	msg, ok := find(drain(t, b), TypePresenceUpdate)
	if !ok {
		t.Fatal("presence not broadcast")
	}
	var p PresencePayload
	json.Unmarshal(msg.Payload, &p)
	if msg.ClientID != "c1" || p.DisplayName != "tester c1" || p.Cursor.X != 5 {
		t.Errorf("presence = %+v from %s", p, msg.ClientID)
	}

	send(h, a, TypePresenceUpdate, 0, PresencePayload{Cursor: &CursorPos{X: 5, Y: 6}})
	if _, ok := find(drain(t, b), TypePresenceUpdate); ok {
		t.Error("unchanged cursor rebroadcast")
	}

	c := join(h, "sess_a", "c3")
	state, ok := find(drain(t, c), TypePresenceState)
	if !ok {
		t.Fatal("late joiner got no presence state")
	}
	var ps PresenceStatePayload
	json.Unmarshal(state.Payload, &ps)
	if p := ps.Presences["c1"]; p.Cursor == nil || p.Cursor.Y != 6 {
		t.Errorf("presence state = %+v", ps.Presences)
	}
	if p := ps.Presences["c2"]; p.DisplayName != "tester c2" || p.Cursor != nil {
		t.Errorf("idle peer missing from presence state: %+v", ps.Presences)
	}
}

func TestUnknownMessage(t *testing.T) {
	h := newTestHub()
	a := join(h, "sess_a", "c1")
	drain(t, a)
	send(h, a, "op.submit", 0, nil)
	if _, ok := find(drain(t, a), TypeError); !ok {
		t.Error("unknown type not answered with an error")
	}
}

func TestRunStops(t *testing.T) {
	h := newTestHub()
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	h.Register(NewClient(h, nil, "sess_a", "c1", "tester"))
	h.Stop()
	h.Stop()
	<-done
}
