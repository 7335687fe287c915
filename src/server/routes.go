package server

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/platefeed/realtime/src/hub"
	"github.com/platefeed/realtime/src/types"
)

var upgrader = websocket.FastHTTPUpgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// registerRoutes registers the REST surface via fiber: info, presence, and
// the admin operations used by out-of-process domain publishers.
func (s *Server) registerRoutes(app fiber.Router) {
	app.Get("/ws/info", s.handleInfo)
	app.Get("/ws/clients", s.handleClients)
	app.Get("/ws/channels", s.handleChannels)
	app.Get("/ws/presence/:userID", s.handlePresence)
	app.Post("/ws/publish", s.handlePublish)
}

func (s *Server) handleInfo(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"websocket": true,
		"endpoint":  "/ws",
		"clients":   s.hub.ClientCount(),
		"channels":  len(s.hub.Channels()),
	})
}

func (s *Server) handleClients(c fiber.Ctx) error {
	ids := s.hub.ConnectedClients()
	infos := make([]types.ClientInfo, 0, len(ids))
	for _, id := range ids {
		if info := s.hub.ClientInfo(id); info != nil {
			infos = append(infos, *info)
		}
	}
	return c.JSON(fiber.Map{"clients": infos, "count": len(infos)})
}

func (s *Server) handleChannels(c fiber.Ctx) error {
	channels := s.hub.Channels()
	result := make([]fiber.Map, 0, len(channels))
	for name, count := range channels {
		result = append(result, fiber.Map{"channel": name, "subscribers": count})
	}
	return c.JSON(fiber.Map{"channels": result, "count": len(result)})
}

func (s *Server) handlePresence(c fiber.Ctx) error {
	userID := c.Params("userID")
	connections := s.hub.ConnectionsForUser(userID)
	return c.JSON(fiber.Map{
		"userId":      userID,
		"connected":   len(connections) > 0,
		"connections": connections,
	})
}

func (s *Server) handlePublish(c fiber.Ctx) error {
	var req struct {
		Channel string         `json:"channel"`
		Type    string         `json:"type"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if req.Channel == "" || req.Type == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "channel and type are required"})
	}
	if err := s.service.Publish(req.Channel, req.Type, req.Data); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"published": true, "channel": req.Channel})
}

// websocketHandler returns the raw fasthttp handler for WebSocket upgrades.
// A bearer credential supplied as the token query parameter is injected as a
// synthetic handshake envelope, converging with the in-band path.
func (s *Server) websocketHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		upgrade := string(ctx.Request.Header.Peek("Upgrade"))
		if !strings.EqualFold(upgrade, "websocket") {
			ctx.SetStatusCode(fasthttp.StatusUpgradeRequired)
			ctx.SetBodyString(`{"error":"upgrade_required","message":"WebSocket upgrade required"}`)
			return
		}

		clientID := uuid.New().String()
		token := string(ctx.QueryArgs().Peek("token"))
		h := s.hub

		err := upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
			client := hub.NewClient(clientID, &fasthttpConn{conn: conn, writeTimeout: s.cfg.WriteTimeout}, h)
			conn.SetPongHandler(func(string) error {
				client.Touch()
				return nil
			})
			h.Register(client)
			if token != "" {
				h.Inject(types.Envelope{
					Type:     types.TypeAuthenticate,
					Data:     map[string]any{"token": token},
					ClientID: clientID,
				})
			}
			go client.WritePump()
			client.ReadPump()
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("websocket upgrade failed")
		}
	}
}

// fasthttpConn wraps fasthttp/websocket.Conn to satisfy types.Conn.
type fasthttpConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (f *fasthttpConn) WriteJSON(v any) error { return f.conn.WriteJSON(v) }
func (f *fasthttpConn) ReadJSON(v any) error  { return f.conn.ReadJSON(v) }
func (f *fasthttpConn) Close() error          { return f.conn.Close() }

func (f *fasthttpConn) Ping() error {
	return f.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(f.writeTimeout))
}
