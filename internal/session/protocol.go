package session

import (
	"encoding/json"
	"log/slog"

	"github.com/memeshare/memeshare/backend-go/internal/document"
	"github.com/memeshare/memeshare/backend-go/internal/engine"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

const (
	// Connection
	TypeWelcome = "welcome"
	TypeError   = "error"

	// Background image
	TypeSessionLoad   = "session.load"
	TypeSessionStatus = "session.status"

	// Editing
	TypeActionSubmit = "action.submit"
	TypeActionAck    = "action.ack"
	TypeActionNack   = "action.nack"
	TypeFrame        = "frame"

	// Pointer input, in the sender's client coordinates
	TypePointerDown     = "pointer.down"
	TypePointerMove     = "pointer.move"
	TypePointerUp       = "pointer.up"
	TypePointerDblClick = "pointer.dblclick"

	TypeHistoryUndo = "history.undo"
	TypeHistoryRedo = "history.redo"

	TypeExportRequest = "export.request"
	TypeExportResult  = "export.result"

	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
)

type WelcomePayload struct {
	SessionID string `json:"sessionId"`
	ClientID  string `json:"clientId"`
	FramePayload
}

type LoadPayload struct {
	ImageURL string `json:"imageUrl"`
}

type StatusPayload struct {
	Status engine.Status `json:"status"`
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Error  string        `json:"error,omitempty"`
}

type ActionPayload struct {
	Action engine.Action `json:"action"`
}

type AckPayload struct {
	Seq       int64 `json:"seq"`
	ServerSeq int64 `json:"serverSeq"`
	CanUndo   bool  `json:"canUndo"`
	CanRedo   bool  `json:"canRedo"`
}

type NackPayload struct {
	Seq    int64  `json:"seq"`
	Reason string `json:"reason"`
}

// FramePayload carries the room's latest repaint and the state it shows.
type FramePayload struct {
	ServerSeq int64              `json:"serverSeq"`
	Status    engine.Status      `json:"status"`
	Commands  json.RawMessage    `json:"commands"`
	State     document.State     `json:"state"`
	Selection document.Selection `json:"selection"`
	CanUndo   bool               `json:"canUndo"`
	CanRedo   bool               `json:"canRedo"`
}

type PointerPayload struct {
	ClientX float64           `json:"clientX"`
	ClientY float64           `json:"clientY"`
	Rect    engine.ClientRect `json:"rect"`
}

type ExportRequestPayload struct {
	Quality float64 `json:"quality"`
}

type ExportResultPayload struct {
	ID      string `json:"id"`
	DataURI string `json:"dataUri"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

// CursorPos is in canvas pixels.
type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	ClientID    string `json:"clientId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// newMessage marshals payload into a message of type typ.
func newMessage(typ, sessionID string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal payload", "type", typ, "error", err)
		data = []byte("null")
	}
	return &Message{Type: typ, SessionID: sessionID, Payload: data}
}
