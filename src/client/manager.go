package client

import (
	"errors"
	"sync"
	"time"

	"github.com/platefeed/realtime/src/types"
)

// ErrClosed is returned by Send after an explicit Disconnect.
var ErrClosed = errors.New("connection manager closed")

// Manager maintains one logical connection to the realtime server. It
// reconnects with bounded exponential backoff, queues outbound envelopes in
// FIFO order while disconnected, and re-authenticates when the credential
// changes. Reconnection is automatic and silent; calling code observes
// Status and LastError rather than catching transport failures.
type Manager struct {
	opts Options

	mu        sync.Mutex
	conn      types.Conn
	status    Status
	attempt   int
	queue     []types.Envelope
	token     string
	lastErr   error
	shouldRun bool
	done      chan struct{}
	wake      chan struct{}
	wg        sync.WaitGroup
}

// NewManager creates a connection manager. Call Connect to start it.
func NewManager(opts Options) *Manager {
	opts.withDefaults()
	return &Manager{
		opts:   opts,
		status: StatusDisconnected,
		token:  opts.Token,
		wake:   make(chan struct{}, 1),
	}
}

// Connect starts the connection loop. Safe to call once; subsequent calls
// while running are no-ops.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.shouldRun || m.status == StatusClosed {
		m.mu.Unlock()
		return
	}
	m.shouldRun = true
	m.status = StatusConnecting
	m.done = make(chan struct{})
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run()
}

// Disconnect tears the connection down and stops all reconnect scheduling.
// Terminal: the manager cannot be restarted afterwards.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.status == StatusClosed {
		m.mu.Unlock()
		return
	}
	m.shouldRun = false
	m.status = StatusClosed
	if m.done != nil {
		close(m.done)
	}
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	m.wg.Wait()
}

// Send transmits the envelope immediately when connected; otherwise it is
// appended to the outbound queue and flushed, in order, on reconnect.
func (m *Manager) Send(env types.Envelope) error {
	if env.Timestamp == 0 {
		env.Timestamp = time.Now().UnixMilli()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.status {
	case StatusClosed:
		return ErrClosed
	case StatusConnected:
		if err := m.conn.WriteJSON(env); err != nil {
			// The read loop will notice the dead transport; keep the
			// envelope so it survives the reconnect.
			m.lastErr = err
			m.enqueueLocked(env)
			return nil
		}
		return nil
	default:
		m.enqueueLocked(env)
		return nil
	}
}

// SetToken installs a new credential. While connected the handshake is
// re-sent on the live transport; while disconnected the next (or an
// immediate) reconnect attempt will use it.
func (m *Manager) SetToken(token string) {
	m.mu.Lock()
	m.token = token
	if m.status == StatusConnected && m.conn != nil {
		// Writes stay serialized under the same lock as Send.
		if err := m.conn.WriteJSON(handshakeEnvelope(token)); err != nil {
			m.lastErr = err
			m.opts.Logger.Warn().Err(err).Msg("re-handshake write failed")
		}
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	// Not connected: nudge the loop so the new credential is tried now.
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsConnected reports whether a live transport is attached.
func (m *Manager) IsConnected() bool {
	return m.Status() == StatusConnected
}

// LastError returns the most recent transport or dial error.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// QueueLen returns the number of envelopes waiting for a reconnect.
func (m *Manager) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Attempt returns the current reconnect attempt counter.
func (m *Manager) Attempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

func (m *Manager) run() {
	defer m.wg.Done()

	for {
		m.mu.Lock()
		if !m.shouldRun {
			m.mu.Unlock()
			return
		}
		m.status = StatusConnecting
		url := m.opts.URL
		m.mu.Unlock()

		conn, err := m.opts.Dialer.Dial(url)
		if err != nil {
			m.mu.Lock()
			m.lastErr = err
			m.mu.Unlock()
			m.opts.Logger.Warn().Err(err).Int("attempt", m.Attempt()).Msg("dial failed")
			if !m.waitBackoff() {
				return
			}
			continue
		}

		if !m.onConnected(conn) {
			// Disconnected while the dial was in flight.
			conn.Close()
			return
		}
		m.readLoop(conn)

		m.mu.Lock()
		if m.conn == conn {
			m.conn = nil
		}
		running := m.shouldRun
		if running {
			m.status = StatusDisconnected
		}
		m.mu.Unlock()
		conn.Close()

		if !running {
			return
		}
		m.opts.Logger.Info().Msg("connection lost, scheduling reconnect")
		if !m.waitBackoff() {
			return
		}
	}
}

// onConnected attaches the transport, resets the attempt counter, sends the
// handshake if a credential is known, and flushes the outbound queue in FIFO
// order before any newly originated message can interleave. Returns false if
// the manager was disconnected while the dial was in flight.
func (m *Manager) onConnected(conn types.Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.shouldRun {
		return false
	}
	m.conn = conn
	m.status = StatusConnected
	m.attempt = 0

	if m.token != "" {
		if err := conn.WriteJSON(handshakeEnvelope(m.token)); err != nil {
			m.lastErr = err
			return true
		}
	}

	for len(m.queue) > 0 {
		env := m.queue[0]
		if err := conn.WriteJSON(env); err != nil {
			m.lastErr = err
			return true
		}
		m.queue = m.queue[1:]
	}
	return true
}

func (m *Manager) readLoop(conn types.Conn) {
	for {
		var env types.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			m.mu.Lock()
			if m.shouldRun {
				m.lastErr = err
			}
			m.mu.Unlock()
			return
		}
		if m.opts.OnEnvelope != nil {
			m.opts.OnEnvelope(env)
		}
	}
}

// waitBackoff sleeps for the current attempt's delay, then increments the
// counter. Returns false when the manager should stop: explicit disconnect,
// or the attempt budget is exhausted (terminal GaveUp). A credential change
// while waiting skips the remaining delay.
func (m *Manager) waitBackoff() bool {
	m.mu.Lock()
	if !m.shouldRun {
		m.mu.Unlock()
		return false
	}
	attempt := m.attempt
	m.attempt++
	if m.opts.MaxAttempts > 0 && m.attempt > m.opts.MaxAttempts {
		m.status = StatusGaveUp
		m.shouldRun = false
		m.mu.Unlock()
		m.opts.Logger.Error().Int("attempts", attempt).Msg("reconnect attempts exhausted, giving up")
		return false
	}
	done := m.done
	m.mu.Unlock()

	delay := BackoffDelay(attempt, m.opts.BackoffBase, m.opts.BackoffMax)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-m.wake:
		return true
	case <-done:
		return false
	}
}

// enqueueLocked appends to the outbound queue, dropping the oldest envelope
// when the bound is hit. Caller holds m.mu.
func (m *Manager) enqueueLocked(env types.Envelope) {
	if m.opts.QueueLimit > 0 && len(m.queue) >= m.opts.QueueLimit {
		m.opts.Logger.Warn().Int("limit", m.opts.QueueLimit).Msg("outbound queue full, dropping oldest")
		m.queue = m.queue[1:]
	}
	m.queue = append(m.queue, env)
}

func handshakeEnvelope(token string) types.Envelope {
	return types.Envelope{
		Type:      types.TypeAuthenticate,
		Data:      map[string]any{"token": token},
		Timestamp: time.Now().UnixMilli(),
	}
}
