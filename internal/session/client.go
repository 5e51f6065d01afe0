package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 64 * 1024
)

// Client is one websocket connection to a room. Frames do not queue: a
// client that falls behind during a drag only receives the latest one.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	SessionID   string
	ClientID    string
	DisplayName string

	frameMu sync.Mutex
	frame   []byte
	frameCh chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, sessionID, clientID, displayName string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		frameCh:     make(chan struct{}, 1),
		SessionID:   sessionID,
		ClientID:    clientID,
		DisplayName: displayName,
	}
}

func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "client", c.ClientID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "client", c.ClientID)
			continue
		}

		msg.ClientID = c.ClientID
		msg.SessionID = c.SessionID

		c.hub.handleMessage(c, &msg)
	}
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "client", c.ClientID)
				return
			}

		case <-c.frameCh:
			frame := c.takeFrame()
			if frame == nil {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "client", c.ClientID)
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

// Send queues msg for the write pump without blocking. Frames replace any
// frame still pending.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	if msg.Type == TypeFrame {
		c.frameMu.Lock()
		c.frame = data
		c.frameMu.Unlock()
		select {
		case c.frameCh <- struct{}{}:
		default:
		}
		return
	}

	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "client", c.ClientID, "type", msg.Type)
	}
}

// takeFrame returns the pending frame, if any, and clears it.
func (c *Client) takeFrame() []byte {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	f := c.frame
	c.frame = nil
	return f
}
