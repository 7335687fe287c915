package hub

import "time"

// checkLiveness runs one heartbeat sweep: connections idle past the timeout
// are forcibly removed; everyone else gets a transport-level ping. A pong (or
// any inbound frame) refreshes the activity clock via Client.Touch. This is
// the only place a connection is removed purely on the basis of time.
func (h *Hub) checkLiveness() {
	h.mu.RLock()
	candidates := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		candidates = append(candidates, c)
	}
	h.mu.RUnlock()

	now := time.Now()
	for _, c := range candidates {
		if now.Sub(c.LastActivity()) > h.cfg.IdleTimeout {
			h.logger.Warn().
				Str("client_id", c.ID).
				Time("last_activity", c.LastActivity()).
				Msg("heartbeat timeout, evicting")
			h.removeClient(c)
			continue
		}
		// Ping errors are left alone; a dead transport shows up as idleness
		// on the next sweep.
		if err := c.Ping(); err != nil {
			h.logger.Debug().Err(err).Str("client_id", c.ID).Msg("ping failed")
		}
	}
}
