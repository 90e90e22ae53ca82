package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 64
)

// Event is the envelope pushed to /v1/events subscribers.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Hub fans service events out to websocket subscribers. It implements
// service.EventEmitter.
type Hub struct {
	mu      sync.Mutex
	clients map[*eventClient]struct{}
	closed  bool
	log     *zap.Logger
}

type eventClient struct {
	send chan []byte
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{clients: make(map[*eventClient]struct{}), log: log}
}

// Emit never blocks: a subscriber whose buffer is full misses the event.
func (h *Hub) Emit(_ context.Context, event string, data any) {
	msg, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		h.log.Warn("encode event", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("event dropped for slow subscriber", zap.String("event", event))
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register() (*eventClient, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &eventClient{send: make(chan []byte, clientSendSize)}
	h.clients[c] = struct{}{}
	return c, true
}

func (h *Hub) unregister(c *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return h.allowOrigin(r.Header.Get("Origin"))
		},
	}
}

// EventStream handles GET /v1/events
func (h *Handler) EventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("events upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	client, ok := h.hub.register()
	if !ok {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		return
	}

	// Subscribers only listen; the read loop just notices the close.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-client.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				conn.SetReadDeadline(time.Now().Add(writeWait))
				<-readDone
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.hub.unregister(client)
				conn.Close()
				<-readDone
				return
			}
		case <-readDone:
			h.hub.unregister(client)
			return
		}
	}
}
