package hub

import (
	"time"

	"github.com/platefeed/realtime/src/types"
)

// Publish sends an envelope to all subscribers of a channel.
func (h *Hub) Publish(channel string, env types.Envelope) {
	h.broadcast <- broadcastMsg{channel: channel, env: env}
}

// Subscribe adds a client to a channel and acknowledges the subscription.
// Idempotent: subscribing twice leaves the client subscribed exactly once.
func (h *Hub) Subscribe(channel, clientID string) bool {
	h.mu.Lock()
	client, ok := h.clients[clientID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	h.subscribeLocked(channel, clientID)
	h.mu.Unlock()

	h.sendToClient(client, types.Envelope{
		Type:      types.TypeSubscribed,
		Data:      map[string]any{"channel": channel},
		Timestamp: time.Now().UnixMilli(),
	})
	return true
}

// Unsubscribe removes a client from a channel and acknowledges the removal.
// Idempotent: unsubscribing from a channel the client never joined still acks.
func (h *Hub) Unsubscribe(channel, clientID string) bool {
	h.mu.Lock()
	client, ok := h.clients[clientID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	if subs, ok := h.channels[channel]; ok {
		delete(subs, clientID)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
	client.RemoveChannel(channel)
	h.mu.Unlock()

	h.sendToClient(client, types.Envelope{
		Type:      types.TypeUnsubscribed,
		Data:      map[string]any{"channel": channel},
		Timestamp: time.Now().UnixMilli(),
	})
	return true
}

// subscribeLocked records a subscription without acknowledgement. Used for
// the implicit public and user channels. Caller holds h.mu.
func (h *Hub) subscribeLocked(channel, clientID string) {
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[string]bool)
	}
	h.channels[channel][clientID] = true
	if c, ok := h.clients[clientID]; ok {
		c.AddChannel(channel)
	}
}

// SendToClient sends an envelope directly to a specific client.
func (h *Hub) SendToClient(clientID string, env types.Envelope) bool {
	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return h.sendToClient(client, env)
}

// Broadcast fans an envelope out to every connection, optionally filtered by
// a predicate over the connection's identity. Anonymous connections see a nil
// identity. Not channel-scoped; used for global announcements.
func (h *Hub) Broadcast(env types.Envelope, predicate func(*types.Identity) bool) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if predicate != nil && !predicate(c.Identity()) {
			continue
		}
		h.sendToClient(c, env)
	}
}

// broadcastToChannel delivers an envelope to every current subscriber of a
// channel, in registry-iteration order. Send failures are swallowed; a dead
// connection is left for the heartbeat monitor to reap.
func (h *Hub) broadcastToChannel(channel string, env types.Envelope) {
	h.mu.RLock()
	subs, ok := h.channels[channel]
	if !ok {
		h.mu.RUnlock()
		return
	}
	// Copy subscriber IDs to avoid holding lock during sends.
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.mu.RLock()
		client, exists := h.clients[id]
		h.mu.RUnlock()
		if !exists {
			continue
		}
		h.sendToClient(client, env)
	}
}

// sendToClient queues an envelope on the client's send channel without
// blocking. A full buffer or an already-closed client means the message is
// dropped, never a stall or a panic; callers may race the hub loop's
// removeClient.
func (h *Hub) sendToClient(c *Client, env types.Envelope) bool {
	if env.Timestamp == 0 {
		env.Timestamp = time.Now().UnixMilli()
	}
	if !c.trySend(env) {
		h.logger.Warn().Str("client_id", c.ID).Msg("send buffer full or client closed, dropping")
		return false
	}
	return true
}

// publishToBridge forwards a message to the bridge if one is attached.
func (h *Hub) publishToBridge(channel string, env types.Envelope) {
	h.mu.RLock()
	b := h.bridge
	h.mu.RUnlock()

	if b == nil || !b.Available() {
		return
	}
	if err := b.Publish(channel, env); err != nil {
		h.logger.Error().Err(err).Msg("bridge publish failed")
	}
}
