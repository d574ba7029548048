package devtools

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// EventType discriminates hub messages.
type EventType string

const (
	EventInit   EventType = "INIT"
	EventAction EventType = "ACTION"
)

// Event is the message sent to inspector clients.
type Event struct {
	Type   EventType       `json:"type"`
	Seq    uint64          `json:"seq"`
	Store  string          `json:"store"`
	Action string          `json:"action"`
	State  json.RawMessage `json:"state"`
	Time   time.Time       `json:"time"`
}

// HubConfig configures a Hub.
type HubConfig struct {
	// History is how many past events a new client receives. Default: 100.
	History int

	// ClientBuffer is the per-client queue length. Events for a client whose
	// queue is full are dropped. Default: 64.
	ClientBuffer int

	// WriteTimeout bounds each WebSocket write. Default: 5s.
	WriteTimeout time.Duration

	// CheckOrigin is passed to the upgrader. Default: allow all origins.
	CheckOrigin func(r *http.Request) bool

	Logger *slog.Logger
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is an Inspector that broadcasts events to WebSocket clients. Send
// never blocks: it encodes the event once and enqueues it per client.
type Hub struct {
	cfg      HubConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	history [][]byte

	seq     atomic.Uint64
	dropped atomic.Uint64
}

// Compile-time interface check.
var _ Inspector = (*Hub)(nil)

// NewHub creates a Hub.
func NewHub(cfg HubConfig) *Hub {
	if cfg.History <= 0 {
		cfg.History = 100
	}
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.CheckOrigin == nil {
		cfg.CheckOrigin = func(*http.Request) bool { return true }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		logger:  cfg.Logger.With("component", "devtools.hub"),
		clients: make(map[*hubClient]struct{}),
	}
}

// Init implements Inspector.
func (h *Hub) Init(name string, state any) {
	h.publish(EventInit, name, ActionInit, state)
}

// Send implements Inspector.
func (h *Hub) Send(name, action string, state any) {
	h.publish(EventAction, name, action, state)
}

func (h *Hub) publish(typ EventType, name, action string, state any) {
	raw, err := json.Marshal(state)
	if err != nil {
		h.logger.Debug("encode state", "error", err)
		return
	}
	data, err := json.Marshal(Event{
		Type:   typ,
		Seq:    h.seq.Add(1),
		Store:  name,
		Action: action,
		State:  raw,
		Time:   time.Now().UTC(),
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	h.history = append(h.history, data)
	if over := len(h.history) - h.cfg.History; over > 0 {
		h.history = append(h.history[:0:0], h.history[over:]...)
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropped.Add(1)
		}
	}
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams events until the client goes
// away. Messages from the client are read and discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", "error", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, h.cfg.ClientBuffer+h.cfg.History)}

	h.mu.Lock()
	for _, msg := range h.history {
		c.send <- msg
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
}

func (h *Hub) writeLoop(c *hubClient) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("write failed", "error", err)
			// Closing unblocks the reader in ServeHTTP, which then closes
			// c.send and ends the drain below.
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

// Close disconnects every client. The hub stays usable: later events are
// still recorded and new clients may connect.
func (h *Hub) Close() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.conn.Close()
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many client deliveries were dropped because a queue
// was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// History returns a copy of the retained events, oldest first.
func (h *Hub) History() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Event, 0, len(h.history))
	for _, raw := range h.history {
		var ev Event
		if json.Unmarshal(raw, &ev) == nil {
			out = append(out, ev)
		}
	}
	return out
}
