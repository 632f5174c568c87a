package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type (
	// Dialer opens a Conn to the event stream
	Dialer interface {
		Dial(ctx context.Context, url string) (Conn, error)
	}

	// Conn is one live event stream connection. Send, Ping and Close are
	// only called from the client's event loop; Receive is called from a
	// dedicated read goroutine
	Conn interface {
		Send(data []byte) error
		Receive() ([]byte, error)
		Ping() error
		Close(code int, reason string) error
	}

	// CloseError reports the close code a connection ended with
	CloseError struct {
		Reason string
		Code   int
	}

	// WebSocketDialer dials the event stream with gorilla/websocket
	WebSocketDialer struct {
		dialer *websocket.Dialer
		header http.Header
	}

	wsConn struct {
		conn *websocket.Conn
	}
)

const (
	CloseNormal   = websocket.CloseNormalClosure
	CloseAbnormal = websocket.CloseAbnormalClosure

	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	maxMessageSize   = 64 * 1024
	wsBufferSize     = 1024
)

var ErrHandshake = errors.New("websocket handshake failed")

var _ Dialer = (*WebSocketDialer)(nil)

// NewWebSocketDialer creates a Dialer that sends the given headers with the
// upgrade request
func NewWebSocketDialer(header http.Header) *WebSocketDialer {
	return &WebSocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			ReadBufferSize:   wsBufferSize,
			WriteBufferSize:  wsBufferSize,
		},
		header: header,
	}
}

func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, d.header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%w: HTTP %d: %w",
				ErrHandshake, resp.StatusCode, err)
		}
		return nil, err
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &wsConn{conn: conn}, nil
}

func (c *wsConn) Send(data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Receive() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			return nil, &CloseError{Code: ce.Code, Reason: ce.Text}
		}
		return nil, err
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	return data, nil
}

func (c *wsConn) Ping() error {
	return c.conn.WriteControl(
		websocket.PingMessage, nil, time.Now().Add(writeWait),
	)
}

func (c *wsConn) Close(code int, reason string) error {
	if code == CloseAbnormal {
		return c.conn.Close()
	}
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait),
	)
	return c.conn.Close()
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("connection closed (code %d)", e.Code)
	}
	return fmt.Sprintf("connection closed (code %d): %s", e.Code, e.Reason)
}

// closeCode extracts the close code from a read error. Errors that carry no
// close frame count as abnormal closure
func closeCode(err error) int {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CloseAbnormal
}
