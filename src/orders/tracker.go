package orders

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/platefeed/realtime/src/types"
)

const defaultHistoryLimit = 64

// Publisher is the slice of the realtime service the tracker needs.
type Publisher interface {
	Publish(channel, eventType string, data any) error
}

// Position is one courier location sample for an order.
type Position struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	RecordedAt int64   `json:"recorded_at"`
}

// Tracker publishes order status and courier location to per-order channels.
// It is a thin rider on the pub/sub engine; order persistence lives in the
// platform's storage layer, not here. A bounded per-order position history is
// kept for late subscribers asking where the courier just was.
type Tracker struct {
	publisher    Publisher
	historyLimit int
	logger       zerolog.Logger

	mu        sync.RWMutex
	positions map[string][]Position
}

// NewTracker creates an order tracker. historyLimit <= 0 uses the default.
func NewTracker(publisher Publisher, historyLimit int, logger zerolog.Logger) *Tracker {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Tracker{
		publisher:    publisher,
		historyLimit: historyLimit,
		logger:       logger.With().Str("component", "order-tracker").Logger(),
		positions:    make(map[string][]Position),
	}
}

// UpdateStatus broadcasts a status change to the order's channel.
func (t *Tracker) UpdateStatus(orderID, status, note string) error {
	data := map[string]any{"orderId": orderID, "status": status}
	if note != "" {
		data["note"] = note
	}
	t.logger.Debug().Str("order_id", orderID).Str("status", status).Msg("order status update")
	return t.publisher.Publish(types.OrderChannel(orderID), "order:status", data)
}

// UpdateLocation records a courier position and broadcasts it to the order's
// channel. History is capped; the oldest sample falls off.
func (t *Tracker) UpdateLocation(orderID string, lat, lng float64) error {
	pos := Position{Lat: lat, Lng: lng, RecordedAt: time.Now().UnixMilli()}

	t.mu.Lock()
	history := append(t.positions[orderID], pos)
	if len(history) > t.historyLimit {
		history = history[len(history)-t.historyLimit:]
	}
	t.positions[orderID] = history
	t.mu.Unlock()

	return t.publisher.Publish(types.OrderChannel(orderID), "order:location", map[string]any{
		"orderId": orderID,
		"lat":     lat,
		"lng":     lng,
	})
}

// History returns the retained position samples for an order, oldest first.
func (t *Tracker) History(orderID string) []Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	history := t.positions[orderID]
	cp := make([]Position, len(history))
	copy(cp, history)
	return cp
}

// Complete broadcasts the terminal status and releases the order's history.
func (t *Tracker) Complete(orderID string) error {
	t.mu.Lock()
	delete(t.positions, orderID)
	t.mu.Unlock()
	return t.UpdateStatus(orderID, "delivered", "")
}
