package hub

import (
	"sync"
	"time"

	"github.com/platefeed/realtime/src/types"
)

// Client wraps a WebSocket connection and manages message flow. The hub is
// the only long-lived owner; publishers see transient filtered views.
type Client struct {
	ID           string
	conn         types.Conn
	hub          *Hub
	Send         chan types.Envelope
	connectedAt  time.Time
	mu           sync.RWMutex
	identity     *types.Identity
	channels     map[string]bool
	lastActivity time.Time
	closed       bool
}

// NewClient creates a new WebSocket client wrapper. The connection starts
// anonymous; the handshake attaches an identity later.
func NewClient(id string, conn types.Conn, h *Hub) *Client {
	now := time.Now()
	return &Client{
		ID:           id,
		conn:         conn,
		hub:          h,
		Send:         make(chan types.Envelope, 256),
		connectedAt:  now,
		channels:     map[string]bool{types.PublicChannel: true},
		lastActivity: now,
	}
}

// Identity returns the attached identity, or nil before the handshake.
func (c *Client) Identity() *types.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return nil
	}
	id := *c.identity
	return &id
}

// SetIdentity attaches or replaces the connection's identity.
func (c *Client) SetIdentity(identity types.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = &identity
}

// Authenticated reports whether the handshake has completed.
func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity != nil
}

// Touch records inbound activity for heartbeat accounting.
func (c *Client) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivity = time.Now()
}

// LastActivity returns the time of the most recent inbound traffic or pong.
func (c *Client) LastActivity() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActivity
}

// Info returns metadata about this client.
func (c *Client) Info() types.ClientInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	channels := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		channels = append(channels, ch)
	}
	info := types.ClientInfo{
		ID:          c.ID,
		ConnectedAt: c.connectedAt,
		Channels:    channels,
	}
	if c.identity != nil {
		info.UserID = c.identity.UserID
		info.Roles = c.identity.Roles
	}
	return info
}

// AddChannel adds a channel subscription.
func (c *Client) AddChannel(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[channel] = true
}

// RemoveChannel removes a channel subscription.
func (c *Client) RemoveChannel(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, channel)
}

// Subscribed reports whether the client is subscribed to a channel.
func (c *Client) Subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channels[channel]
}

// ReadPump reads envelopes from the WebSocket and routes them to the hub.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		var env types.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		c.Touch()
		env.ClientID = c.ID
		if env.Timestamp == 0 {
			env.Timestamp = time.Now().UnixMilli()
		}
		c.hub.incoming <- env
	}
}

// WritePump writes envelopes from the send channel to the WebSocket. It is
// the connection's only writer of data frames; Close ends the loop by closing
// the send channel, so anything already queued is flushed first.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for env := range c.Send {
		if err := c.conn.WriteJSON(env); err != nil {
			return
		}
	}
}

// Ping sends a transport-level liveness probe.
func (c *Client) Ping() error {
	return c.conn.Ping()
}

// trySend queues an envelope for the write pump without blocking. Returns
// false when the buffer is full or the client is already closed; holding the
// lock here is what keeps the enqueue from racing Close.
func (c *Client) trySend(env types.Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- env:
		return true
	default:
		return false
	}
}

// Close signals the client to stop its pumps.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}
