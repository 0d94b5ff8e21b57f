// Package ws implements the realtime websocket channel for event notifications.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
)

const (
	// EventWebhook is the message type of every event notification
	EventWebhook = "webhook_event"

	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

// Request is a message sent by a client to join or leave a room
type Request struct {
	Type       string `json:"type"`
	ProjectKey string `json:"projectKey"`
	HookKey    string `json:"hookKey,omitempty"`
}

// Room returns the room addressed by the request: project:hook, or project alone
func (r Request) Room() string {
	if r.HookKey != "" {
		return r.ProjectKey + ":" + r.HookKey
	}
	return r.ProjectKey
}

// Message is the envelope of every message sent to clients
type Message struct {
	Type    string          `json:"type"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type client struct {
	send chan []byte
}

/* Hub keeps the room membership of every connection
 * Delivery is best effort: a client whose buffer is full misses the message
 * instead of slowing down the router
 */
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*client]struct{}
	conns  map[*client]map[string]struct{}
	logger zerolog.Logger

	accept websocket.AcceptOptions
}

// NewHub creates an empty hub. allowedOrigins are the browser origins that may connect
// (e.g. https://dashboard.example.com); without any, origins are not checked.
func NewHub(logger zerolog.Logger, allowedOrigins ...string) *Hub {
	h := &Hub{
		rooms:  make(map[string]map[*client]struct{}),
		conns:  make(map[*client]map[string]struct{}),
		logger: logger,
	}
	if len(allowedOrigins) > 0 {
		h.accept.OriginPatterns = allowedOrigins
	} else {
		h.accept.InsecureSkipVerify = true
	}
	return h
}

// ServeHTTP upgrades the connection and serves it until the client leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	opts := h.accept
	conn, err := websocket.Accept(w, r, &opts)
	if err != nil {
		h.logger.Warn().Err(err).Str("origin", r.Header.Get("Origin")).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &client{send: make(chan []byte, sendBuffer)}
	h.add(c)
	defer h.remove(c)

	go h.writeLoop(ctx, cancel, conn, c)

	for {
		var req Request
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				h.logger.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
		h.handle(c, req)
	}
}

func (h *Hub) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *client) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			writeCtx, done := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, data)
			done()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) handle(c *client, req Request) {
	if req.ProjectKey == "" {
		h.reply(c, Message{Type: "error", Error: "projectKey is required"})
		return
	}

	room := req.Room()
	switch req.Type {
	case "subscribe":
		h.join(c, room)
		h.reply(c, Message{Type: "subscribed", Room: room})
	case "unsubscribe":
		h.leave(c, room)
		h.reply(c, Message{Type: "unsubscribed", Room: room})
	default:
		h.reply(c, Message{Type: "error", Error: "unknown message type: " + req.Type})
	}
}

// Broadcast sends payload to every client in room. It never blocks on a slow client.
func (h *Hub) Broadcast(_ context.Context, room string, payload []byte) error {
	data, err := json.Marshal(Message{Type: EventWebhook, Room: room, Payload: payload})
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn().Str("room", room).Msg("websocket client too slow, dropping notification")
		}
	}
	return nil
}

// ConnectionCount returns the number of connected clients
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Subscribers returns the number of clients in room
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) reply(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = make(map[string]struct{})
}

func (h *Hub) join(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	h.conns[c][room] = struct{}{}
}

func (h *Hub) leave(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *client, room string) {
	delete(h.rooms[room], c)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
	if rooms, ok := h.conns[c]; ok {
		delete(rooms, room)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.conns[c] {
		h.leaveLocked(c, room)
	}
	delete(h.conns, c)
}
