package notify

import (
	"github.com/rs/zerolog"
)

// Presence is the slice of the realtime service the notifier needs.
type Presence interface {
	IsUserConnected(userID string) bool
	NotifyUser(userID, eventType string, data any) error
}

// Fallback delivers a notification out-of-band (email, push) when the user
// has no live connection. The actual delivery channel is outside the core.
type Fallback func(userID string, notification Notification) error

// Notification is one user-facing message.
type Notification struct {
	Title string         `json:"title"`
	Body  string         `json:"body,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// Notifier delivers notifications over the realtime channel when the user is
// connected, falling back to an out-of-band channel otherwise.
type Notifier struct {
	presence Presence
	fallback Fallback
	logger   zerolog.Logger
}

// New creates a notifier. fallback may be nil, in which case offline
// notifications are dropped with a log line.
func New(presence Presence, fallback Fallback, logger zerolog.Logger) *Notifier {
	return &Notifier{
		presence: presence,
		fallback: fallback,
		logger:   logger.With().Str("component", "notifier").Logger(),
	}
}

// Notify delivers one notification to the user, choosing the realtime channel
// or the fallback based on presence.
func (n *Notifier) Notify(userID string, notification Notification) error {
	if n.presence.IsUserConnected(userID) {
		n.logger.Debug().Str("user_id", userID).Msg("delivering via realtime channel")
		return n.presence.NotifyUser(userID, "notification", map[string]any{
			"title": notification.Title,
			"body":  notification.Body,
			"meta":  notification.Meta,
		})
	}

	if n.fallback == nil {
		n.logger.Warn().Str("user_id", userID).Msg("user offline and no fallback configured, dropping")
		return nil
	}
	n.logger.Debug().Str("user_id", userID).Msg("user offline, using fallback delivery")
	return n.fallback(userID, notification)
}
