// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/deskqa/ingestion/internal/jobstatus"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many updates a client may fall behind before the
	// hub drops it.
	sendBuffer = 32
)

// client wraps a websocket connection. A single writer goroutine drains
// send, so a slow peer never blocks the broadcaster.
type client struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan []byte, sendBuffer)}
}

// enqueue queues msg without blocking. It reports false when the client
// is closed or its buffer is full.
func (c *client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close stops the writer; it is safe to call more than once.
func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump sends queued messages until send is closed or a write fails,
// then closes the connection, which also ends the reader.
func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			slog.Debug("websocket write failed", "error", err)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// Hub fans job status updates out to connected dashboards.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]struct{}
	maxClients int
}

// NewHub creates a hub accepting up to maxClients connections.
func NewHub(maxClients int) *Hub {
	if maxClients <= 0 {
		maxClients = 50
	}
	return &Hub{clients: make(map[*client]struct{}), maxClients: maxClients}
}

// register adds conn and starts its writer with first queued ahead of any
// broadcast. When the hub is full it closes conn and returns nil.
func (h *Hub) register(conn *websocket.Conn, first []byte) *client {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) >= h.maxClients {
		slog.Warn("websocket connection limit reached", "max", h.maxClients)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return nil
	}
	c := newClient(conn)
	if first != nil {
		c.enqueue(first)
	}
	h.clients[c] = struct{}{}
	go c.writePump()
	return c
}

func (h *Hub) unregister(c *client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Broadcast queues msg for every client and drops clients that have
// fallen too far behind. It never waits on the network.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(msg) {
			slog.Debug("websocket client too slow, dropping")
			h.unregister(c)
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.close()
	}
}

// StatusListener returns a jobstatus.Listener that broadcasts each update.
func (h *Hub) StatusListener() jobstatus.Listener {
	return func(s jobstatus.Status) {
		msg, err := json.Marshal(statusEvent{Type: "status", Status: &s})
		if err != nil {
			return
		}
		h.Broadcast(msg)
	}
}

type statusEvent struct {
	Type     string                      `json:"type"`
	Status   *jobstatus.Status           `json:"status,omitempty"`
	Snapshot map[string]jobstatus.Status `json:"snapshot,omitempty"`
}
