package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/platefeed/realtime/config"
	"github.com/platefeed/realtime/src/auth"
	"github.com/platefeed/realtime/src/server"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg := config.FromEnv()
	if cfg.AuthSecret == "" {
		logger.Fatal().Msg("REALTIME_AUTH_SECRET is required")
	}

	verifier, err := auth.NewHMACVerifier(cfg.AuthSecret, 2*time.Second)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid auth configuration")
	}

	srv := server.New(cfg, verifier, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		if err := srv.Stop(); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("server error")
		}
	}
}
