package notify

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPresence struct {
	online   map[string]bool
	notified []string
	lastData map[string]any
}

func (m *mockPresence) IsUserConnected(userID string) bool { return m.online[userID] }

func (m *mockPresence) NotifyUser(userID, eventType string, data any) error {
	m.notified = append(m.notified, userID)
	m.lastData, _ = data.(map[string]any)
	return nil
}

func TestNotifyConnectedUserUsesRealtime(t *testing.T) {
	presence := &mockPresence{online: map[string]bool{"alice": true}}
	fallbackCalled := false
	n := New(presence, func(string, Notification) error {
		fallbackCalled = true
		return nil
	}, zerolog.Nop())

	err := n.Notify("alice", Notification{Title: "order ready", Body: "pick it up"})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice"}, presence.notified)
	assert.Equal(t, "order ready", presence.lastData["title"])
	assert.False(t, fallbackCalled, "fallback must not fire for a connected user")
}

func TestNotifyOfflineUserUsesFallback(t *testing.T) {
	presence := &mockPresence{online: map[string]bool{}}
	var fellBack []string
	n := New(presence, func(userID string, notification Notification) error {
		fellBack = append(fellBack, userID)
		return nil
	}, zerolog.Nop())

	require.NoError(t, n.Notify("bob", Notification{Title: "order ready"}))

	assert.Empty(t, presence.notified)
	assert.Equal(t, []string{"bob"}, fellBack)
}

func TestNotifyOfflineWithoutFallbackDrops(t *testing.T) {
	presence := &mockPresence{online: map[string]bool{}}
	n := New(presence, nil, zerolog.Nop())

	assert.NoError(t, n.Notify("bob", Notification{Title: "x"}))
	assert.Empty(t, presence.notified)
}

func TestNotifyFallbackErrorSurfaces(t *testing.T) {
	presence := &mockPresence{online: map[string]bool{}}
	n := New(presence, func(string, Notification) error {
		return errors.New("smtp down")
	}, zerolog.Nop())

	assert.Error(t, n.Notify("bob", Notification{Title: "x"}))
}
