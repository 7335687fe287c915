package config

import (
	"os"
	"strconv"
	"time"
)

// SocketConfig holds WebSocket server configuration.
type SocketConfig struct {
	Addr            string        // listen address for the realtime server
	MaxConnections  int           // upper bound on concurrent connections
	PingInterval    time.Duration // liveness probe cadence
	IdleTimeout     time.Duration // inactivity threshold before eviction
	WriteTimeout    time.Duration // per-frame write deadline
	ReadBufferSize  int
	WriteBufferSize int
	AuthSecret      string // shared secret for handshake token verification
}

// DefaultConfig returns the default WebSocket configuration.
func DefaultConfig() *SocketConfig {
	return &SocketConfig{
		Addr:            ":8090",
		MaxConnections:  1000,
		PingInterval:    25 * time.Second,
		IdleTimeout:     30 * time.Second,
		WriteTimeout:    10 * time.Second,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// FromEnv loads configuration from environment variables, falling back to
// defaults for any missing values.
func FromEnv() *SocketConfig {
	cfg := DefaultConfig()

	if addr := os.Getenv("REALTIME_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if v := os.Getenv("REALTIME_MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConnections = n
		}
	}
	if v := os.Getenv("REALTIME_PING_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PingInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("REALTIME_IDLE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.IdleTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("REALTIME_WRITE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WriteTimeout = time.Duration(n) * time.Second
		}
	}
	if secret := os.Getenv("REALTIME_AUTH_SECRET"); secret != "" {
		cfg.AuthSecret = secret
	}
	return cfg
}
