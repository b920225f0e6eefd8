// Package opsstream fans out telemetry events to WebSocket dashboard
// clients in real time. Each process (pod) runs one Hub.
//
// This is the same connection-manager / channel-subscription shape as
// the teacher's pkg/events.ConnectionManager, with the Postgres
// LISTEN/NOTIFY cross-pod bridge removed: telemetry events originate
// in-process (pkg/telemetry.MemorySink.Record), so there is no
// database row-change source to bridge from, and no catchup query to
// run — a newly connected client simply starts receiving events from
// the moment it subscribes.
package opsstream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/bankx/agent-fabric/pkg/telemetry"
)

// AllChannel is the channel every connection is implicitly subscribed to
// until it narrows its subscription with a "subscribe" message.
const AllChannel = "all"

// Hub manages WebSocket connections and their channel subscriptions.
type Hub struct {
	connections map[string]*connection
	mu          sync.RWMutex

	channels  map[string]map[string]bool
	channelMu sync.RWMutex

	writeTimeout time.Duration
	logger       *slog.Logger
}

type connection struct {
	id            string
	conn          *websocket.Conn
	subscriptions map[string]bool
	ctx           context.Context
	cancel        context.CancelFunc
}

// clientMessage is the JSON structure for client to server messages.
type clientMessage struct {
	Action  string `json:"action"`            // "subscribe", "unsubscribe", "ping"
	Channel string `json:"channel,omitempty"` // e.g. "agent:payment", "category:agent_decision"
}

// NewHub creates an empty Hub.
func NewHub(writeTimeout time.Duration) *Hub {
	return &Hub{
		connections:  make(map[string]*connection),
		channels:     make(map[string]map[string]bool),
		writeTimeout: writeTimeout,
		logger:       slog.Default().With("component", "opsstream_hub"),
	}
}

// Run subscribes to sink and broadcasts every recorded event until ctx is
// cancelled. Events are broadcast both on AllChannel and on a
// per-category channel ("category:<category>") so dashboard clients can
// narrow their view.
func (h *Hub) Run(ctx context.Context, sink *telemetry.MemorySink) {
	ch, unsubscribe := sink.Subscribe(256)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-ch:
			if !ok {
				return
			}
			h.broadcastRecord(rec)
		}
	}
}

// broadcastRecord accepts the unexported telemetry.recordedEvent shape by
// structural field access (Category, Event are exported fields).
func (h *Hub) broadcastRecord(rec struct {
	Category telemetry.Category
	Event    any
}) {
	payload, err := json.Marshal(map[string]any{
		"type":     "telemetry.event",
		"category": rec.Category,
		"event":    rec.Event,
	})
	if err != nil {
		h.logger.Warn("failed to marshal telemetry event for broadcast", "error", err)
		return
	}
	h.Broadcast(AllChannel, payload)
	h.Broadcast("category:"+string(rec.Category), payload)
}

// HandleConnection manages a single WebSocket connection's lifecycle.
// Blocks until the connection closes; called from the HTTP WebSocket
// upgrade handler in its own goroutine.
func (h *Hub) HandleConnection(parentCtx context.Context, conn *websocket.Conn) {
	id := uuid.New().String()
	ctx, cancel := context.WithCancel(parentCtx)

	c := &connection{
		id:            id,
		conn:          conn,
		subscriptions: map[string]bool{AllChannel: true},
		ctx:           ctx,
		cancel:        cancel,
	}

	h.register(c)
	h.subscribe(c, AllChannel)
	defer h.unregister(c)

	h.sendJSON(c, map[string]string{"type": "connection.established", "connection_id": id})

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Warn("invalid opsstream client message", "connection_id", id, "error", err)
			continue
		}
		h.handleClientMessage(c, &msg)
	}
}

func (h *Hub) handleClientMessage(c *connection, msg *clientMessage) {
	switch msg.Action {
	case "subscribe":
		if msg.Channel == "" {
			return
		}
		h.subscribe(c, msg.Channel)
		h.sendJSON(c, map[string]string{"type": "subscription.confirmed", "channel": msg.Channel})
	case "unsubscribe":
		if msg.Channel == "" {
			return
		}
		h.unsubscribe(c, msg.Channel)
	case "ping":
		h.sendJSON(c, map[string]string{"type": "pong"})
	}
}

// Broadcast sends payload to every connection subscribed to channel.
func (h *Hub) Broadcast(channel string, payload []byte) {
	h.channelMu.RLock()
	ids, exists := h.channels[channel]
	if !exists {
		h.channelMu.RUnlock()
		return
	}
	idList := make([]string, 0, len(ids))
	for id := range ids {
		idList = append(idList, id)
	}
	h.channelMu.RUnlock()

	h.mu.RLock()
	conns := make([]*connection, 0, len(idList))
	for _, id := range idList {
		if c, ok := h.connections[id]; ok {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := h.sendRaw(c, payload); err != nil {
			h.logger.Warn("failed to send opsstream message", "connection_id", c.id, "error", err)
		}
	}
}

// ActiveConnections returns the number of currently connected clients.
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) subscribe(c *connection, channel string) {
	h.channelMu.Lock()
	if _, exists := h.channels[channel]; !exists {
		h.channels[channel] = make(map[string]bool)
	}
	h.channels[channel][c.id] = true
	h.channelMu.Unlock()
	c.subscriptions[channel] = true
}

func (h *Hub) unsubscribe(c *connection, channel string) {
	h.channelMu.Lock()
	if subs, exists := h.channels[channel]; exists {
		delete(subs, c.id)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
	h.channelMu.Unlock()
	delete(c.subscriptions, channel)
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c.id] = c
}

func (h *Hub) unregister(c *connection) {
	for ch := range c.subscriptions {
		h.unsubscribe(c, ch)
	}
	h.mu.Lock()
	delete(h.connections, c.id)
	h.mu.Unlock()

	c.cancel()
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Hub) sendJSON(c *connection, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("failed to marshal opsstream message", "connection_id", c.id, "error", err)
		return
	}
	if err := h.sendRaw(c, data); err != nil {
		h.logger.Warn("failed to send opsstream message", "connection_id", c.id, "error", err)
	}
}

func (h *Hub) sendRaw(c *connection, data []byte) error {
	writeCtx, cancel := context.WithTimeout(c.ctx, h.writeTimeout)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageText, data)
}
