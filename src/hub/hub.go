package hub

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/platefeed/realtime/config"
	"github.com/platefeed/realtime/src/auth"
	"github.com/platefeed/realtime/src/types"
)

// MessageBridge publishes messages to other server instances.
// Defined here to avoid circular imports with the bridge package.
type MessageBridge interface {
	Publish(channel string, env types.Envelope) error
	Available() bool
}

// Hub owns all live connections and their channel subscriptions. All
// registry mutations flow through the Run loop or the hub's own mutex;
// domain code only ever sees the public subscribe/publish contract.
type Hub struct {
	cfg      *config.SocketConfig
	verifier auth.Verifier

	clients  map[string]*Client
	channels map[string]map[string]bool // channel -> set of clientIDs

	register   chan *Client
	unregister chan *Client
	incoming   chan types.Envelope
	broadcast  chan broadcastMsg
	localCast  chan broadcastMsg // messages from bridge, no re-publish

	handlers  map[string]types.Handler
	onConnect []func(string)
	onDisconn []func(string)

	bridge MessageBridge
	mu     sync.RWMutex
	logger zerolog.Logger
	done   chan struct{}
}

type broadcastMsg struct {
	channel string
	env     types.Envelope
}

// New creates a new Hub instance. The verifier may be nil, in which case
// every handshake attempt fails closed.
func New(cfg *config.SocketConfig, verifier auth.Verifier, logger zerolog.Logger) *Hub {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Hub{
		cfg:        cfg,
		verifier:   verifier,
		clients:    make(map[string]*Client),
		channels:   make(map[string]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		incoming:   make(chan types.Envelope, 256),
		broadcast:  make(chan broadcastMsg, 256),
		localCast:  make(chan broadcastMsg, 256),
		handlers:   make(map[string]types.Handler),
		logger:     logger.With().Str("component", "hub").Logger(),
		done:       make(chan struct{}),
	}
}

// SetBridge attaches a cross-instance message bridge to the hub.
// When set, published messages are also forwarded to other instances.
func (h *Hub) SetBridge(b MessageBridge) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bridge = b
}

// BroadcastToLocal delivers a message from the bridge to local subscribers
// only. It does not re-publish to the bridge, preventing infinite loops.
func (h *Hub) BroadcastToLocal(channel string, env types.Envelope) {
	h.localCast <- broadcastMsg{channel: channel, env: env}
}

// Run starts the hub event loop, including the heartbeat ticker.
// Call in a goroutine.
func (h *Hub) Run() {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case env := <-h.incoming:
			h.dispatch(env)
		case bm := <-h.broadcast:
			h.publishToBridge(bm.channel, bm.env)
			h.broadcastToChannel(bm.channel, bm.env)
		case bm := <-h.localCast:
			h.broadcastToChannel(bm.channel, bm.env)
		case <-ticker.C:
			h.checkLiveness()
		case <-h.done:
			return
		}
	}
}

// Stop halts the hub event loop and the heartbeat ticker with it.
func (h *Hub) Stop() {
	close(h.done)
}

// Register queues a client for registration.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister queues a client for removal.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Inject feeds an envelope into the dispatch pipeline as if it had arrived
// on the wire. Used by the transport layer for connection-time credentials.
func (h *Hub) Inject(env types.Envelope) {
	h.incoming <- env
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if len(h.clients) >= h.cfg.MaxConnections {
		h.mu.Unlock()
		h.logger.Warn().Str("client_id", c.ID).Msg("connection limit reached, rejecting")
		c.Close()
		return
	}
	h.clients[c.ID] = c
	h.subscribeLocked(types.PublicChannel, c.ID)
	h.mu.Unlock()

	h.logger.Info().Str("client_id", c.ID).Msg("client registered")

	h.sendToClient(c, types.Envelope{
		Type:      types.TypeEstablished,
		Data:      map[string]any{"connectionId": c.ID},
		Timestamp: time.Now().UnixMilli(),
	})

	for _, cb := range h.onConnect {
		cb(c.ID)
	}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)

	// Remove from all channel subscriptions.
	for ch, subs := range h.channels {
		delete(subs, c.ID)
		if len(subs) == 0 {
			delete(h.channels, ch)
		}
	}
	h.mu.Unlock()

	c.Close()
	h.logger.Info().Str("client_id", c.ID).Msg("client unregistered")

	for _, cb := range h.onDisconn {
		cb(c.ID)
	}
}
