package client

import (
	"time"

	"github.com/fasthttp/websocket"

	"github.com/platefeed/realtime/src/types"
)

// Dialer opens one transport connection. Implemented by the real WebSocket
// dialer and by test fakes.
type Dialer interface {
	Dial(url string) (types.Conn, error)
}

// wsDialer dials a real WebSocket endpoint.
type wsDialer struct{}

func (wsDialer) Dial(url string) (types.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

// wsConn adapts fasthttp/websocket.Conn to types.Conn.
type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) WriteJSON(v any) error { return w.conn.WriteJSON(v) }
func (w *wsConn) ReadJSON(v any) error  { return w.conn.ReadJSON(v) }
func (w *wsConn) Close() error          { return w.conn.Close() }

func (w *wsConn) Ping() error {
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}
