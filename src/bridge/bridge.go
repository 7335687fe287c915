package bridge

import "github.com/platefeed/realtime/src/types"

// Bridge defines the interface for cross-instance message broadcasting.
// Implementations relay messages between multiple server instances. The
// in-process engine stays the single-node building block; a bridge is an
// explicitly optional extension.
type Bridge interface {
	// Publish sends a channel-scoped envelope to all other instances.
	Publish(channel string, env types.Envelope) error

	// Start begins listening for messages from other instances.
	Start() error

	// Stop shuts down the bridge connection.
	Stop() error

	// Available reports whether the bridge is connected and operational.
	Available() bool
}

// BroadcastTarget is implemented by the Hub to receive messages from the bridge.
type BroadcastTarget interface {
	BroadcastToLocal(channel string, env types.Envelope)
}
