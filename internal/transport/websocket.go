package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// closeGracePeriod bounds how long Close waits to write the close frame.
const closeGracePeriod = time.Second

// WebSocketDialer implements Dialer over gorilla/websocket.
type WebSocketDialer struct {
	dialer *websocket.Dialer
	header http.Header
}

// NewWebSocketDialer creates a dialer with the given handshake timeout. A
// zero timeout uses gorilla's default.
func NewWebSocketDialer(handshakeTimeout time.Duration, header http.Header) *WebSocketDialer {
	d := *websocket.DefaultDialer
	if handshakeTimeout > 0 {
		d.HandshakeTimeout = handshakeTimeout
	}
	d.ReadBufferSize = 1024
	d.WriteBufferSize = 1024
	return &WebSocketDialer{dialer: &d, header: header}
}

// Dial opens a WebSocket connection to url.
func (wd *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := wd.dialer.DialContext(ctx, url, wd.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %s)", url, err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newWebSocketConn(conn), nil
}

// webSocketConn adapts *websocket.Conn to Conn.
type webSocketConn struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

func newWebSocketConn(conn *websocket.Conn) *webSocketConn {
	return &webSocketConn{conn: conn}
}

func (c *webSocketConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *webSocketConn) ReadMessage() ([]byte, error) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType == websocket.TextMessage || msgType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// Close sends a normal-closure frame and closes the socket. Only the first
// call has an effect.
func (c *webSocketConn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// IsNormalClose reports whether err is the peer closing the socket cleanly.
func IsNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// Ensure webSocketConn satisfies the interface at compile time.
var (
	_ Conn   = (*webSocketConn)(nil)
	_ Dialer = (*WebSocketDialer)(nil)
)
