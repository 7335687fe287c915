package hub

import (
	"time"

	"github.com/platefeed/realtime/src/types"
)

// handleAuthenticate validates the bearer credential from an
// auth:authenticate envelope and promotes the connection from anonymous to
// identified. The same routine serves both credential paths: the in-band
// first message and the connection-time query parameter (injected by the
// transport layer as a synthetic envelope).
//
// Verification fails closed: an invalid or expired credential gets an
// authentication_failed envelope and the transport is forcibly closed. A
// re-handshake on an already identified connection re-validates without
// dropping existing channel subscriptions.
func (h *Hub) handleAuthenticate(client *Client, env types.Envelope) {
	token, _ := env.Data["token"].(string)

	if h.verifier == nil {
		h.failHandshake(client, "authentication is not configured", env.RequestID)
		return
	}

	identity, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.Warn().Err(err).Str("client_id", client.ID).Msg("handshake failed")
		h.failHandshake(client, err.Error(), env.RequestID)
		return
	}

	client.SetIdentity(identity)

	// Per-user fan-out works without explicit client action.
	h.mu.Lock()
	h.subscribeLocked(types.UserChannel(identity.UserID), client.ID)
	h.mu.Unlock()

	h.logger.Info().
		Str("client_id", client.ID).
		Str("user_id", identity.UserID).
		Msg("client authenticated")

	h.sendToClient(client, types.Envelope{
		Type:      types.TypeAuthenticated,
		Data:      map[string]any{"userId": identity.UserID, "roles": identity.Roles},
		RequestID: env.RequestID,
		Timestamp: time.Now().UnixMilli(),
	})
}

// failHandshake queues the fatal error envelope and tears the connection
// down. Handshake failure is the one error that terminates a connection. The
// error frame goes through the send channel like every other frame so the
// write pump stays the transport's only writer; Close leaves the channel
// drainable, so the frame is flushed before the pump closes the socket.
func (h *Hub) failHandshake(client *Client, message, requestID string) {
	h.sendToClient(client, types.ErrorEnvelope(types.CodeAuthFailed, message, requestID))
	h.removeClient(client)
}
