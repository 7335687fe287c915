package client

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/platefeed/realtime/src/types"
)

const (
	defaultBackoffBase = 1 * time.Second
	defaultBackoffMax  = 30 * time.Second
	defaultQueueLimit  = 256
)

// Status is the connection manager's lifecycle state.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	// StatusClosed is terminal: the application called Disconnect.
	StatusClosed
	// StatusGaveUp is terminal: MaxAttempts reconnects failed in a row.
	StatusGaveUp
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusClosed:
		return "closed"
	case StatusGaveUp:
		return "gave_up"
	}
	return "unknown"
}

// Options configures a connection Manager.
type Options struct {
	// URL is the WebSocket endpoint, e.g. "ws://host:8090/ws".
	URL string

	// Token is the bearer credential sent as the handshake message right
	// after each connect. Empty means connect anonymously.
	Token string

	// BackoffBase and BackoffMax bound the reconnect delay
	// min(base<<attempt, max). Defaults: 1s and 30s.
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// MaxAttempts caps consecutive failed reconnects before the manager
	// gives up. 0 retries forever.
	MaxAttempts int

	// QueueLimit bounds the outbound queue accumulated while disconnected.
	// 0 means the default (256); negative means unbounded. When full the
	// oldest envelope is dropped.
	QueueLimit int

	// OnEnvelope receives every inbound envelope. Optional.
	OnEnvelope func(types.Envelope)

	// Dialer overrides the transport, for tests. Optional.
	Dialer Dialer

	Logger zerolog.Logger
}

func (o *Options) withDefaults() {
	if o.BackoffBase <= 0 {
		o.BackoffBase = defaultBackoffBase
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = defaultBackoffMax
	}
	if o.QueueLimit == 0 {
		o.QueueLimit = defaultQueueLimit
	}
	if o.Dialer == nil {
		o.Dialer = wsDialer{}
	}
}

// BackoffDelay returns the reconnect delay for the given attempt:
// min(base<<attempt, max).
func BackoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Guard the shift; past 62 bits the doubling has long hit the cap.
	if attempt > 62 {
		return max
	}
	delay := base << uint(attempt)
	if delay <= 0 || delay > max {
		return max
	}
	return delay
}
