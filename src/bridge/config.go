package bridge

import (
	"os"
	"strconv"
)

// RedisConfig holds connection settings for the Redis pub/sub bridge.
type RedisConfig struct {
	Enabled  bool   // bridge is off unless explicitly enabled
	Addr     string // Redis address, default "localhost:6379"
	Password string // Redis password, default ""
	DB       int    // Redis database number, default 0
	Prefix   string // channel prefix, default "platefeed:rt:"
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:   "localhost:6379",
		Prefix: "platefeed:rt:",
	}
}

// RedisConfigFromEnv loads Redis configuration from environment variables.
// Setting REALTIME_BRIDGE_ADDR enables the bridge; everything else falls
// back to defaults.
func RedisConfigFromEnv() *RedisConfig {
	cfg := DefaultRedisConfig()

	if addr := os.Getenv("REALTIME_BRIDGE_ADDR"); addr != "" {
		cfg.Enabled = true
		cfg.Addr = addr
	}
	if pw := os.Getenv("REALTIME_BRIDGE_PASSWORD"); pw != "" {
		cfg.Password = pw
	}
	if dbStr := os.Getenv("REALTIME_BRIDGE_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			cfg.DB = db
		}
	}
	if prefix := os.Getenv("REALTIME_BRIDGE_PREFIX"); prefix != "" {
		cfg.Prefix = prefix
	}
	return cfg
}
