package web

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer = 16
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// Hub fans status frames out to websocket clients. A client that cannot keep
// up is disconnected rather than allowed to block the control loop.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{logger: logger, clients: make(map[*client]struct{})}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		c.conn.Close()
		close(c.send)
		return
	}
	h.clients[c] = struct{}{}
	h.logger.Info("ws client connected", "remote_addr", c.remoteAddr, "clients", len(h.clients))
}

// remove drops c. The caller must hold h.mu.
func (h *Hub) remove(c *client, reason string) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	c.conn.Close()
	h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", len(h.clients))
}

// Broadcast queues msg for every client without blocking.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.remove(c, "slow_client")
		}
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client. Later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.remove(c, "shutdown")
	}
}

type client struct {
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
}

func newClient(conn *websocket.Conn, remoteAddr string) *client {
	return &client{conn: conn, send: make(chan []byte, sendBuffer), remoteAddr: remoteAddr}
}

// writePump exits on write error or when the hub closes send.
func (c *client) writePump(logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					logger.Debug("ws write failed", "remote_addr", c.remoteAddr, "error", err)
				}
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames and unregisters the client on error.
func (c *client) readPump(h *Hub, logger *slog.Logger) {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				logger.Debug("ws client closed", "remote_addr", c.remoteAddr, "code", ce.Code)
			}
			h.mu.Lock()
			h.remove(c, "read_error")
			h.mu.Unlock()
			return
		}
	}
}
