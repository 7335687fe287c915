package hub

import (
	"github.com/platefeed/realtime/src/types"
)

// OnConnection registers a callback for new connections.
func (h *Hub) OnConnection(cb func(string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConnect = append(h.onConnect, cb)
}

// OnDisconnection registers a callback for disconnections.
func (h *Hub) OnDisconnection(cb func(string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDisconn = append(h.onDisconn, cb)
}

// ConnectedClients returns a list of connected client IDs.
func (h *Hub) ConnectedClients() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// ClientInfo returns info for a connected client, or nil.
func (h *Hub) ClientInfo(clientID string) *types.ClientInfo {
	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	info := client.Info()
	return &info
}

// IsUserConnected reports whether any live connection carries the user's
// identity. Domain publishers use this to decide on out-of-band fallback.
func (h *Hub) IsUserConnected(userID string) bool {
	return len(h.ConnectionsForUser(userID)) > 0
}

// ConnectionsForUser returns the IDs of all connections authenticated as the
// given user. One user may hold several (phone plus web, say).
func (h *Hub) ConnectionsForUser(userID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var ids []string
	for id, c := range h.clients {
		if identity := c.Identity(); identity != nil && identity.UserID == userID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Channels returns channel names with their subscriber counts.
func (h *Hub) Channels() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make(map[string]int, len(h.channels))
	for ch, subs := range h.channels {
		result[ch] = len(subs)
	}
	return result
}

// ChannelSubscribers returns the IDs subscribed to a channel.
func (h *Hub) ChannelSubscribers(channel string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := h.channels[channel]
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	return ids
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
