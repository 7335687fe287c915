package server

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/platefeed/realtime/config"
	"github.com/platefeed/realtime/src/auth"
	"github.com/platefeed/realtime/src/bridge"
	"github.com/platefeed/realtime/src/hub"
	"github.com/platefeed/realtime/src/service"
)

// Server bundles the hub, the service facade, the optional bridge, and the
// HTTP surface into one runnable realtime endpoint.
type Server struct {
	cfg     *config.SocketConfig
	hub     *hub.Hub
	service *service.Service
	bridge  bridge.Bridge
	app     *fiber.App
	srv     *fasthttp.Server
	logger  zerolog.Logger
}

// New wires a server instance. Nothing is shared globally: multiple servers
// can coexist in one process, which the tests rely on.
func New(cfg *config.SocketConfig, verifier auth.Verifier, logger zerolog.Logger) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	h := hub.New(cfg, verifier, logger)
	s := &Server{
		cfg:     cfg,
		hub:     h,
		service: service.New(h, logger),
		app:     fiber.New(),
		logger:  logger.With().Str("component", "realtime-server").Logger(),
	}
	s.registerRoutes(s.app)
	s.srv = &fasthttp.Server{
		Handler:         s.handler(),
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CloseOnShutdown: true,
	}
	return s
}

// Service exposes the high-level API for in-process domain publishers.
func (s *Server) Service() *service.Service { return s.service }

// Hub exposes the underlying hub, mainly for tests.
func (s *Server) Hub() *hub.Hub { return s.hub }

// Start launches the hub loop, attempts the bridge, and begins serving.
// Blocks until the listener stops.
func (s *Server) Start() error {
	go s.hub.Run()
	s.initBridge()

	s.logger.Info().Str("addr", s.cfg.Addr).Msg("realtime server listening")
	return s.srv.ListenAndServe(s.cfg.Addr)
}

// Stop shuts the listener, the bridge, and the hub down, in that order.
func (s *Server) Stop() error {
	err := s.srv.Shutdown()
	if s.bridge != nil {
		if berr := s.bridge.Stop(); berr != nil {
			s.logger.Error().Err(berr).Msg("bridge stop error")
		}
		s.bridge = nil
	}
	s.hub.Stop()
	return err
}

// initBridge tries to start the Redis pub/sub bridge when configured.
// The hub runs standalone if the bridge is disabled or Redis is unreachable.
func (s *Server) initBridge() {
	cfg := bridge.RedisConfigFromEnv()
	if !cfg.Enabled {
		return
	}
	rb := bridge.NewRedisBridge(cfg, s.hub, s.logger)
	if err := rb.Start(); err != nil {
		s.logger.Warn().Err(err).Msg("redis bridge unavailable, running standalone")
		return
	}
	s.bridge = rb
	s.hub.SetBridge(rb)
	s.logger.Info().Str("redis_addr", cfg.Addr).Msg("redis bridge connected")
}

// handler serves /ws upgrades on the raw fasthttp path and everything else
// through the fiber app. Fiber v3 does not expose *fasthttp.RequestCtx, so
// the WebSocket handler is registered at the server level.
func (s *Server) handler() fasthttp.RequestHandler {
	appHandler := s.app.Handler()
	wsHandler := s.websocketHandler()
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == "/ws" {
			wsHandler(ctx)
			return
		}
		appHandler(ctx)
	}
}
