package hub

import (
	"fmt"

	"github.com/platefeed/realtime/src/types"
)

// RegisterHandler registers a handler for an envelope type. All registered
// types are gated behind authentication; only the handshake type is exempt.
func (h *Hub) RegisterHandler(eventType string, handler types.Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[eventType] = handler
}

// dispatch routes one inbound envelope. Runs on the hub loop; handler
// invocations are scheduled independently so a slow handler cannot stall
// fan-out or liveness checks.
func (h *Hub) dispatch(env types.Envelope) {
	h.mu.RLock()
	client, ok := h.clients[env.ClientID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	if err := env.Validate(); err != nil {
		h.sendToClient(client, types.ErrorEnvelope(types.CodeInternal, err.Error(), env.RequestID))
		return
	}

	// The handshake is the only type an anonymous connection may send.
	if env.Type == types.TypeAuthenticate {
		h.handleAuthenticate(client, env)
		return
	}
	if !client.Authenticated() {
		h.sendToClient(client, types.ErrorEnvelope(types.CodeAuthRequired, "authenticate before sending events", env.RequestID))
		return
	}

	switch env.Type {
	case types.TypeSubscribe:
		h.handleSubscribe(client, env)
		return
	case types.TypeUnsubscribe:
		h.handleUnsubscribe(client, env)
		return
	}

	h.mu.RLock()
	handler, ok := h.handlers[env.Type]
	h.mu.RUnlock()
	if !ok {
		h.logger.Debug().Str("type", env.Type).Msg("no handler")
		h.sendToClient(client, types.ErrorEnvelope(types.CodeUnknownEvent, fmt.Sprintf("no handler for %q", env.Type), env.RequestID))
		return
	}

	go h.invoke(client, handler, env)
}

// invoke runs one handler, converting an error or panic into a handler_error
// envelope on the originating connection. Failures never reach other
// connections or the registry.
func (h *Hub) invoke(client *Client, handler types.Handler, env types.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Str("type", env.Type).Interface("panic", r).Msg("handler panicked")
			h.sendToClient(client, types.ErrorEnvelope(types.CodeHandlerError, fmt.Sprintf("%v", r), env.RequestID))
		}
	}()

	if err := handler(client.ID, env); err != nil {
		h.logger.Error().Err(err).Str("type", env.Type).Msg("handler error")
		h.sendToClient(client, types.ErrorEnvelope(types.CodeHandlerError, err.Error(), env.RequestID))
	}
}

func (h *Hub) handleSubscribe(client *Client, env types.Envelope) {
	channel, _ := env.Data["channel"].(string)
	if channel == "" {
		h.sendToClient(client, types.ErrorEnvelope(types.CodeInternal, "channel is required", env.RequestID))
		return
	}
	h.Subscribe(channel, client.ID)
}

func (h *Hub) handleUnsubscribe(client *Client, env types.Envelope) {
	channel, _ := env.Data["channel"].(string)
	if channel == "" {
		h.sendToClient(client, types.ErrorEnvelope(types.CodeInternal, "channel is required", env.RequestID))
		return
	}
	h.Unsubscribe(channel, client.ID)
}
