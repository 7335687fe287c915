package service

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/platefeed/realtime/src/hub"
	"github.com/platefeed/realtime/src/types"
)

// Service provides the high-level pub/sub API consumed by domain code.
// Publishers never touch the registry directly; everything goes through
// this contract.
type Service struct {
	hub    *hub.Hub
	logger zerolog.Logger
}

// New creates a new realtime service backed by the given hub.
func New(h *hub.Hub, logger zerolog.Logger) *Service {
	return &Service{hub: h, logger: logger.With().Str("component", "realtime-service").Logger()}
}

// Hub returns the underlying hub.
func (s *Service) Hub() *hub.Hub { return s.hub }

// RegisterHandler registers a handler for an inbound envelope type.
func (s *Service) RegisterHandler(eventType string, handler types.Handler) {
	s.hub.RegisterHandler(eventType, handler)
	s.logger.Debug().Str("type", eventType).Msg("handler registered")
}

// Publish fans an envelope of the given type out to a channel's subscribers.
// Non-map data is wrapped as {"value": data}.
func (s *Service) Publish(channel, eventType string, data any) error {
	s.hub.Publish(channel, envelope(eventType, data))
	return nil
}

// PublishEnvelope fans a fully formed envelope out to a channel.
func (s *Service) PublishEnvelope(channel string, env types.Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}
	s.hub.Publish(channel, env)
	return nil
}

// Broadcast sends to every connection, optionally filtered by identity.
func (s *Service) Broadcast(eventType string, data any, predicate func(*types.Identity) bool) {
	s.hub.Broadcast(envelope(eventType, data), predicate)
}

// Subscribe adds a client to a channel.
func (s *Service) Subscribe(channel, clientID string) error {
	if ok := s.hub.Subscribe(channel, clientID); !ok {
		return fmt.Errorf("client %s not found", clientID)
	}
	s.logger.Debug().
		Str("client_id", clientID).
		Str("channel", channel).
		Msg("subscribed")
	return nil
}

// Unsubscribe removes a client from a channel.
func (s *Service) Unsubscribe(channel, clientID string) error {
	if ok := s.hub.Unsubscribe(channel, clientID); !ok {
		return fmt.Errorf("client %s not found", clientID)
	}
	s.logger.Debug().
		Str("client_id", clientID).
		Str("channel", channel).
		Msg("unsubscribed")
	return nil
}

// OnConnection registers a callback for new connections.
func (s *Service) OnConnection(cb func(clientID string)) {
	s.hub.OnConnection(cb)
}

// OnDisconnection registers a callback for disconnections.
func (s *Service) OnDisconnection(cb func(clientID string)) {
	s.hub.OnDisconnection(cb)
}

// IsUserConnected reports whether the user has at least one live connection.
func (s *Service) IsUserConnected(userID string) bool {
	return s.hub.IsUserConnected(userID)
}

// NotifyUser sends an envelope to the user's identity-scoped channel.
func (s *Service) NotifyUser(userID, eventType string, data any) error {
	return s.Publish(types.UserChannel(userID), eventType, data)
}

// SendToClient sends an envelope directly to a specific connection.
func (s *Service) SendToClient(clientID, eventType string, data any) error {
	if ok := s.hub.SendToClient(clientID, envelope(eventType, data)); !ok {
		return fmt.Errorf("client %s not found or buffer full", clientID)
	}
	return nil
}

// GetConnectedClients returns IDs of all connected clients.
func (s *Service) GetConnectedClients() []string {
	return s.hub.ConnectedClients()
}

// GetChannels returns active channels with subscriber counts.
func (s *Service) GetChannels() map[string]int {
	return s.hub.Channels()
}

// GetClientInfo returns info for a connected client, or error.
func (s *Service) GetClientInfo(clientID string) (*types.ClientInfo, error) {
	info := s.hub.ClientInfo(clientID)
	if info == nil {
		return nil, fmt.Errorf("client %s not found", clientID)
	}
	return info, nil
}

func envelope(eventType string, data any) types.Envelope {
	dataMap, ok := data.(map[string]any)
	if !ok {
		dataMap = map[string]any{"value": data}
	}
	return types.Envelope{
		Type:      eventType,
		Data:      dataMap,
		Timestamp: time.Now().UnixMilli(),
	}
}
