package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/manobala/peer-chat/internal/config"
	"github.com/manobala/peer-chat/pkg/log"
)

// Transports a client can be attached to.
const (
	TransportWebSocket = "websocket"
	TransportPolling   = "polling"
)

var (
	ErrClientClosed      = errors.New("connection closed")
	ErrTransportUpgraded = errors.New("connection upgraded to websocket")
	ErrDrainInProgress   = errors.New("another poll is in progress")
)

// Client is one logical connection. It starts on either transport; a
// polling client can later be attached to a websocket without changing
// its ID, so its memberships survive the upgrade.
type Client struct {
	ID     string
	UserID string
	Hub    *Hub
	send   chan []byte
	config config.WebSocketConfig

	mu        sync.Mutex
	conn      *websocket.Conn
	transport string
	closed    bool
	draining  bool
	lastSeen  time.Time
	upgraded  chan struct{}
}

func NewClient(id, userID string, hub *Hub, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	c := newClient(id, userID, hub, cfg, TransportWebSocket)
	c.conn = conn
	return c
}

// NewPollingClient creates a client served by the long-polling transport.
func NewPollingClient(id, userID string, hub *Hub, cfg config.WebSocketConfig) *Client {
	return newClient(id, userID, hub, cfg, TransportPolling)
}

func newClient(id, userID string, hub *Hub, cfg config.WebSocketConfig, transport string) *Client {
	size := cfg.SendBufferSize
	if size <= 0 {
		size = 256
	}
	return &Client{
		ID:        id,
		UserID:    userID,
		Hub:       hub,
		send:      make(chan []byte, size),
		config:    cfg,
		transport: transport,
		lastSeen:  time.Now(),
		upgraded:  make(chan struct{}),
	}
}

// Transport returns the transport currently serving the client.
func (c *Client) Transport() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport
}

// SendMessage queues message for this client only. A full buffer drops it.
func (c *Client) SendMessage(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	c.enqueue(data)
	return nil
}

// enqueue reports false when the buffer is full or the client is closed.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// AttachWebSocket moves a polling client onto conn. Pending and future
// events are written by the websocket pumps from then on.
func (c *Client) AttachWebSocket(conn *websocket.Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	if c.transport != TransportPolling {
		return ErrTransportUpgraded
	}
	c.conn = conn
	c.transport = TransportWebSocket
	close(c.upgraded)
	return nil
}

func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.Hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Debug().Err(err).Str(log.FieldConnectionID, c.ID).Msg("websocket read error")
			}
			break
		}

		handler(c, message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Drain waits up to wait for the first queued event of a polling client,
// then returns it with whatever else is queued, at most max events.
func (c *Client) Drain(ctx context.Context, wait time.Duration, max int) ([][]byte, error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return nil, ErrClientClosed
	case c.transport != TransportPolling:
		c.mu.Unlock()
		return nil, ErrTransportUpgraded
	case c.draining:
		c.mu.Unlock()
		return nil, ErrDrainInProgress
	}
	c.draining = true
	c.lastSeen = time.Now()
	upgraded := c.upgraded
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.draining = false
		c.lastSeen = time.Now()
		c.mu.Unlock()
	}()

	if max <= 0 {
		max = 64
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	var out [][]byte
	select {
	case data, ok := <-c.send:
		if !ok {
			return nil, ErrClientClosed
		}
		out = append(out, data)
	case <-timer.C:
		return out, nil
	case <-upgraded:
		return out, nil
	case <-ctx.Done():
		return out, nil
	}

	for len(out) < max {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out, nil
			}
			out = append(out, data)
		default:
			return out, nil
		}
	}
	return out, nil
}

// idleSince reports whether a polling client has gone without a drain
// since before deadline.
func (c *Client) idleSince(deadline time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport == TransportPolling && !c.draining && c.lastSeen.Before(deadline)
}
