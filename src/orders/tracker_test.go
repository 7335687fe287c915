package orders

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	channel   string
	eventType string
	data      map[string]any
}

type mockPublisher struct {
	calls []published
}

func (m *mockPublisher) Publish(channel, eventType string, data any) error {
	dataMap, _ := data.(map[string]any)
	m.calls = append(m.calls, published{channel: channel, eventType: eventType, data: dataMap})
	return nil
}

func TestUpdateStatusPublishesToOrderChannel(t *testing.T) {
	pub := &mockPublisher{}
	tracker := NewTracker(pub, 0, zerolog.Nop())

	require.NoError(t, tracker.UpdateStatus("42", "preparing", "kitchen backlog"))

	require.Len(t, pub.calls, 1)
	assert.Equal(t, "order:42", pub.calls[0].channel)
	assert.Equal(t, "order:status", pub.calls[0].eventType)
	assert.Equal(t, "preparing", pub.calls[0].data["status"])
	assert.Equal(t, "kitchen backlog", pub.calls[0].data["note"])
}

func TestUpdateLocationPublishesAndRecords(t *testing.T) {
	pub := &mockPublisher{}
	tracker := NewTracker(pub, 0, zerolog.Nop())

	require.NoError(t, tracker.UpdateLocation("42", 40.71, -74.0))
	require.NoError(t, tracker.UpdateLocation("42", 40.72, -74.01))

	require.Len(t, pub.calls, 2)
	assert.Equal(t, "order:42", pub.calls[0].channel)
	assert.Equal(t, "order:location", pub.calls[0].eventType)
	assert.Equal(t, 40.71, pub.calls[0].data["lat"])

	history := tracker.History("42")
	require.Len(t, history, 2)
	assert.Equal(t, 40.71, history[0].Lat)
	assert.Equal(t, 40.72, history[1].Lat)
}

func TestPositionHistoryBounded(t *testing.T) {
	pub := &mockPublisher{}
	tracker := NewTracker(pub, 3, zerolog.Nop())

	for i := 0; i < 10; i++ {
		require.NoError(t, tracker.UpdateLocation("42", float64(i), 0))
	}

	history := tracker.History("42")
	require.Len(t, history, 3)
	// Oldest samples dropped, newest retained in order.
	assert.Equal(t, 7.0, history[0].Lat)
	assert.Equal(t, 9.0, history[2].Lat)
}

func TestHistoryIsolatedPerOrder(t *testing.T) {
	pub := &mockPublisher{}
	tracker := NewTracker(pub, 0, zerolog.Nop())

	require.NoError(t, tracker.UpdateLocation("42", 1, 1))
	require.NoError(t, tracker.UpdateLocation("43", 2, 2))

	assert.Len(t, tracker.History("42"), 1)
	assert.Len(t, tracker.History("43"), 1)
	assert.Empty(t, tracker.History("44"))
}

func TestCompleteReleasesHistory(t *testing.T) {
	pub := &mockPublisher{}
	tracker := NewTracker(pub, 0, zerolog.Nop())

	require.NoError(t, tracker.UpdateLocation("42", 1, 1))
	require.NoError(t, tracker.Complete("42"))

	assert.Empty(t, tracker.History("42"))
	last := pub.calls[len(pub.calls)-1]
	assert.Equal(t, "order:status", last.eventType)
	assert.Equal(t, "delivered", last.data["status"])
}
