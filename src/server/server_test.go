package server

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/platefeed/realtime/config"
	"github.com/platefeed/realtime/src/types"
)

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (types.Identity, error) {
	return types.Identity{UserID: "u-1"}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	return New(cfg, stubVerifier{}, zerolog.Nop())
}

func request(method, uri string, body string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBodyString(body)
		ctx.Request.Header.SetContentType("application/json")
	}
	return ctx
}

func TestWebsocketPathRequiresUpgrade(t *testing.T) {
	s := newTestServer(t)
	handler := s.handler()

	ctx := request(fasthttp.MethodGet, "/ws", "")
	handler(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusUpgradeRequired {
		t.Errorf("expected 426 for plain GET /ws, got %d", ctx.Response.StatusCode())
	}
	if !strings.Contains(string(ctx.Response.Body()), "upgrade_required") {
		t.Errorf("expected upgrade_required error body, got %s", ctx.Response.Body())
	}
}

func TestInfoRoute(t *testing.T) {
	s := newTestServer(t)
	handler := s.handler()

	ctx := request(fasthttp.MethodGet, "/ws/info", "")
	handler(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("expected 200, got %d", ctx.Response.StatusCode())
	}
	body := string(ctx.Response.Body())
	if !strings.Contains(body, `"websocket":true`) || !strings.Contains(body, `"endpoint":"/ws"`) {
		t.Errorf("unexpected info body: %s", body)
	}
}

func TestPresenceRouteUnknownUser(t *testing.T) {
	s := newTestServer(t)
	handler := s.handler()

	ctx := request(fasthttp.MethodGet, "/ws/presence/nobody", "")
	handler(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("expected 200, got %d", ctx.Response.StatusCode())
	}
	body := string(ctx.Response.Body())
	if !strings.Contains(body, `"connected":false`) {
		t.Errorf("expected connected:false for unknown user, got %s", body)
	}
}

func TestPublishRouteValidation(t *testing.T) {
	s := newTestServer(t)
	handler := s.handler()

	ctx := request(fasthttp.MethodPost, "/ws/publish", `{"data":{"x":1}}`)
	handler(ctx)
	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Errorf("expected 400 for missing channel/type, got %d", ctx.Response.StatusCode())
	}

	ctx = request(fasthttp.MethodPost, "/ws/publish", `{not json`)
	handler(ctx)
	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", ctx.Response.StatusCode())
	}
}

func TestPublishRouteAcceptsValidRequest(t *testing.T) {
	s := newTestServer(t)
	go s.hub.Run()
	t.Cleanup(s.hub.Stop)
	handler := s.handler()

	ctx := request(fasthttp.MethodPost, "/ws/publish", `{"channel":"order:42","type":"order:status","data":{"status":"preparing"}}`)
	handler(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	if !strings.Contains(string(ctx.Response.Body()), `"published":true`) {
		t.Errorf("unexpected publish response: %s", ctx.Response.Body())
	}
}
