package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/manobala/peer-chat/internal/config"
	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/internal/membership"
	"github.com/manobala/peer-chat/internal/metrics"
	"github.com/manobala/peer-chat/pkg/log"
)

var ErrHubStopped = errors.New("hub stopped")

// State is the lifecycle state of a connection as seen by the hub.
type State string

const (
	StateConnected    State = "connected"
	StateInChannel    State = "in_channel"
	StateDisconnected State = "disconnected"
)

// Hub owns client registration and fan-out. A single goroutine (Run)
// serves the broadcast queue, so every client receives the events of a
// channel in the order they were queued.
type Hub struct {
	clients    map[string]*Client
	tracker    *membership.Tracker
	unregister chan *Client
	broadcast  chan *ChannelMessage
	mu         sync.RWMutex
	config     config.WebSocketConfig
	pollIdle   time.Duration
	done       chan struct{}
	stopped    sync.Once
	stopping   bool
}

type ChannelMessage struct {
	Channel domain.ChannelID
	Message []byte
	Exclude string // Connection ID to exclude
}

func NewHub(cfg config.WebSocketConfig, pollCfg config.PollConfig, tracker *membership.Tracker) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		tracker:    tracker,
		unregister: make(chan *Client),
		broadcast:  make(chan *ChannelMessage, 256),
		config:     cfg,
		pollIdle:   pollCfg.IdleTimeout,
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	reapEvery := h.pollIdle / 2
	if reapEvery <= 0 {
		reapEvery = 30 * time.Second
	}
	reaper := time.NewTicker(reapEvery)
	defer reaper.Stop()

	for {
		select {
		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.fanOut(msg)

		case now := <-reaper.C:
			h.reapIdle(now)

		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

func (h *Hub) fanOut(msg *ChannelMessage) {
	metrics.BroadcastsTotal.WithLabelValues(string(msg.Channel.Kind)).Inc()

	var slow []*Client
	h.mu.RLock()
	for _, connID := range h.tracker.MembersOf(msg.Channel) {
		if connID == msg.Exclude {
			continue
		}
		client, ok := h.clients[connID]
		if !ok {
			continue
		}
		if !client.enqueue(msg.Message) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// A client that cannot keep up reconnects and refetches history.
	for _, client := range slow {
		metrics.SlowClientsDropped.Inc()
		l := log.L()
		l.Warn().Str(log.FieldConnectionID, client.ID).Msg("dropping slow client")
		h.remove(client)
	}
}

// remove purges memberships under the same lock Join takes, so a join
// racing with teardown either lands before the purge or is refused.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.ID]
	if !ok || current != client {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.ID)
	left := h.tracker.Purge(client.ID)
	h.mu.Unlock()

	client.close()
	metrics.ConnectionsActive.WithLabelValues(client.Transport()).Dec()

	l := log.L()
	l.Debug().
		Str(log.FieldConnectionID, client.ID).
		Int("channels_left", len(left)).
		Msg("client unregistered")
}

func (h *Hub) reapIdle(now time.Time) {
	if h.pollIdle <= 0 {
		return
	}
	deadline := now.Add(-h.pollIdle)

	var idle []*Client
	h.mu.RLock()
	for _, client := range h.clients {
		if client.idleSince(deadline) {
			idle = append(idle, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range idle {
		l := log.L()
		l.Debug().Str(log.FieldConnectionID, client.ID).Msg("reaping idle polling client")
		h.remove(client)
	}
}

func (h *Hub) shutdown() {
	h.stopped.Do(func() { close(h.done) })

	h.mu.Lock()
	h.stopping = true
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.remove(client)
	}
}

// Register makes client visible to Lookup and Join before it returns.
func (h *Hub) Register(client *Client) error {
	h.mu.Lock()
	if h.stopping {
		h.mu.Unlock()
		return ErrHubStopped
	}
	h.clients[client.ID] = client
	h.mu.Unlock()

	metrics.ConnectionsActive.WithLabelValues(client.Transport()).Inc()
	l := log.L()
	l.Debug().Str(log.FieldConnectionID, client.ID).Str(log.FieldTransport, client.Transport()).Msg("client registered")
	return nil
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for every member of ch except the exclude
// connection. Delivery to an individual member is best effort.
func (h *Hub) Broadcast(ch domain.ChannelID, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- &ChannelMessage{Channel: ch, Message: data, Exclude: exclude}:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Join adds a registered client to ch. It fails with ErrClientClosed once
// the hub has torn the client down, so no membership outlives its
// connection.
func (h *Hub) Join(client *Client, ch domain.ChannelID) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.clients[client.ID]; !ok || current != client {
		return false, ErrClientClosed
	}
	return h.tracker.Join(client.ID, ch), nil
}

// Upgrade attaches a websocket to a registered polling client.
func (h *Hub) Upgrade(client *Client, conn *websocket.Conn) error {
	if err := client.AttachWebSocket(conn); err != nil {
		return err
	}
	metrics.TransportUpgrades.Inc()
	metrics.ConnectionsActive.WithLabelValues(TransportPolling).Dec()
	metrics.ConnectionsActive.WithLabelValues(TransportWebSocket).Inc()
	return nil
}

// Lookup returns a registered client.
func (h *Hub) Lookup(connID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[connID]
	return client, ok
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StateOf reports the lifecycle state of a connection.
func (h *Hub) StateOf(connID string) State {
	if _, ok := h.Lookup(connID); !ok {
		return StateDisconnected
	}
	if len(h.tracker.ChannelsOf(connID)) > 0 {
		return StateInChannel
	}
	return StateConnected
}
