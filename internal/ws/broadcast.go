// Package ws mirrors a running session to remote displays over WebSocket.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sadopc/strikesense/internal/timer"
)

const sendBuffer = 64

// StateSource supplies the snapshot sent to newly connected clients.
type StateSource interface {
	Snapshot() timer.Snapshot
}

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			return
		}
	}
}

// Broadcaster is a timer.Listener that fans every engine event out to the
// connected clients. A client whose buffer is full is disconnected rather
// than allowed to hold up the engine.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]bool
	source  StateSource
	logger  *slog.Logger
}

func NewBroadcaster(source StateSource, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		clients: make(map[*client]bool),
		source:  source,
		logger:  logger,
	}
}

// SetSource swaps the engine snapshots are taken from and pushes a fresh
// snapshot to every client.
func (b *Broadcaster) SetSource(source StateSource) {
	b.mu.Lock()
	b.source = source
	b.mu.Unlock()
	b.BroadcastSnapshot()
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := &client{conn: conn, b: b, send: make(chan []byte, sendBuffer)}

	b.mu.RLock()
	source := b.source
	b.mu.RUnlock()
	if source != nil {
		if data, err := json.Marshal(snapshotMessage(source.Snapshot())); err == nil {
			c.send <- data
		}
	}

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	go c.writePump()
	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) HandleEvent(e timer.Event) error {
	b.broadcast(eventMessage(e))
	return nil
}

func (b *Broadcaster) BroadcastSnapshot() {
	b.mu.RLock()
	source := b.source
	b.mu.RUnlock()
	if source == nil {
		return
	}
	b.broadcast(snapshotMessage(source.Snapshot()))
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("broadcast marshal failed", "type", msg.Type, "err", err)
		return
	}

	// Sends happen under the read lock so RemoveClient cannot close a
	// channel mid-send.
	var slow []*client
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		b.logger.Warn("ws client too slow, disconnecting", "remote", c.remote())
		b.RemoveClient(c)
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	for c := range b.clients {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
}

func (c *client) remote() string {
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}
