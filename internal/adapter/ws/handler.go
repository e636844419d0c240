// Package ws implements the WebSocket adapter that streams orchestrator
// events to connected observers.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// Message is the envelope for every frame the hub sends.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type client struct {
	ws     *websocket.Conn
	cancel context.CancelFunc
}

// Hub tracks connected observers and fans orchestrator events out to them.
// Observers only receive; inbound frames are drained and discarded.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		log:     slog.Default(),
		clients: make(map[*client]struct{}),
	}
}

// HandleWS upgrades the request and registers the connection with the hub.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin checks happen in the CORS middleware
	})
	if err != nil {
		h.log.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &client{ws: ws, cancel: cancel}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.log.Info("observer connected", "remote", r.RemoteAddr)
	go h.drain(ctx, c)
}

// drain consumes inbound frames until the peer goes away, then deregisters.
func (h *Hub) drain(ctx context.Context, c *client) {
	defer func() {
		h.remove(c)
		_ = c.ws.Close(websocket.StatusNormalClosure, "")
	}()
	for {
		if _, _, err := c.ws.Read(ctx); err != nil {
			return
		}
	}
}

// Broadcast sends msg to every connected observer. Clients whose write
// fails are dropped.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("websocket marshal failed", "error", err)
		return
	}

	var stale []*client
	h.mu.RLock()
	for c := range h.clients {
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.remove(c)
	}
}

// ConnectionCount returns the number of connected observers.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		c.cancel()
		delete(h.clients, c)
		h.log.Info("observer disconnected")
	}
}
