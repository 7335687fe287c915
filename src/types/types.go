package types

import (
	"encoding/json"
	"errors"
	"time"
)

// Reserved envelope types exchanged between client and server.
const (
	TypeAuthenticate  = "auth:authenticate"
	TypeAuthenticated = "auth:authenticated"
	TypeEstablished   = "connection:established"
	TypeSubscribe     = "channel:subscribe"
	TypeUnsubscribe   = "channel:unsubscribe"
	TypeSubscribed    = "channel:subscribed"
	TypeUnsubscribed  = "channel:unsubscribed"
	TypeError         = "error"
)

// Machine-readable error codes carried in error envelopes.
const (
	CodeAuthRequired = "authentication_required"
	CodeAuthFailed   = "authentication_failed"
	CodeUnknownEvent = "unknown_event"
	CodeHandlerError = "handler_error"
	CodeInternal     = "internal_error"
)

// PublicChannel is the implicit channel every connection joins on accept.
const PublicChannel = "public"

// ErrEmptyType is returned when an envelope arrives without a type.
var ErrEmptyType = errors.New("envelope type must not be empty")

// Envelope is the wire message unit. Timestamp is unix milliseconds.
type Envelope struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	Timestamp int64          `json:"timestamp"`

	// ClientID is the originating connection, stamped by the server on
	// inbound traffic. Never serialized to the wire.
	ClientID string `json:"-"`
}

// Validate checks the envelope shape before dispatch.
func (e Envelope) Validate() error {
	if e.Type == "" {
		return ErrEmptyType
	}
	return nil
}

// Encode marshals the envelope, stamping the timestamp if unset.
func (e Envelope) Encode() ([]byte, error) {
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}
	return json.Marshal(e)
}

// DecodeEnvelope unmarshals and validates a wire frame.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, err
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// ErrorEnvelope builds an in-band error reply. requestID may be empty.
func ErrorEnvelope(code, message, requestID string) Envelope {
	return Envelope{
		Type:      TypeError,
		Data:      map[string]any{"code": code, "message": message},
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// UserChannel returns the identity-scoped channel for per-user fan-out.
func UserChannel(userID string) string { return "user:" + userID }

// OrderChannel returns the channel carrying one order's status and location.
func OrderChannel(orderID string) string { return "order:" + orderID }

// Identity is attached to a connection by a successful handshake.
type Identity struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles,omitempty"`
}

// HasRole reports whether the identity carries the given role.
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Handler handles inbound envelopes of a registered type.
type Handler func(clientID string, env Envelope) error

// ClientInfo holds metadata about a connected client.
type ClientInfo struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Roles       []string  `json:"roles,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
	Channels    []string  `json:"channels"`
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Ping() error
	Close() error
}
