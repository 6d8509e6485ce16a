package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// Websocket message types. Every message is an envelope {type, payload}.
const (
	// Client to server.
	MsgStart = "start"
	MsgFrame = "frame"
	MsgStop  = "stop"
	// Server to client.
	MsgState = "state"
	MsgEvent = "event"
	MsgError = "error"
)

const (
	writeWait       = 2 * time.Second
	maxMessageBytes = 64 << 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Envelope is a websocket message as received.
type Envelope struct {
	Type    string              `json:"type"`
	Payload jsoniter.RawMessage `json:"payload,omitempty"`
}

type outgoing struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

func encode(kind string, payload interface{}) ([]byte, error) {
	return json.Marshal(outgoing{Type: kind, Payload: payload})
}

// Hub broadcasts native mode state to every /api/live client. New clients
// receive the most recent state straight away.
type Hub struct {
	clients map[*websocket.Conn]bool
	last    []byte
	log     logrus.FieldLogger
	mu      sync.Mutex
}

// NewHub creates an empty Hub.
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		log:     log,
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	h.mu.Lock()
	h.clients[conn] = true
	if h.last != nil {
		h.write(conn, h.last)
	}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish sends one message to every client. State messages are kept for
// clients that connect later.
func (h *Hub) Publish(kind string, payload interface{}) {
	msg, err := encode(kind, payload)
	if err != nil {
		h.log.WithError(err).Error("failed to encode live message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if kind == MsgState {
		h.last = msg
	}
	for conn := range h.clients {
		if err := h.write(conn, msg); err != nil {
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// write must be called with mu held.
func (h *Hub) write(conn *websocket.Conn, msg []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, msg)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		delete(h.clients, conn)
	}
}
