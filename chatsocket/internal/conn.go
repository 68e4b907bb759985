package internal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// readLimit bounds a single frame; message:new carries sender and
// conversation objects but never attachments.
const readLimit = 1 << 20

// Conn wraps websocket.Conn with timeouts.
type Conn struct {
	ws           *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Dial opens the websocket, presenting token as a bearer credential.
func Dial(ctx context.Context, url, token string, readTimeout, writeTimeout time.Duration) (*Conn, error) {
	var opts *websocket.DialOptions
	if token != "" {
		opts = &websocket.DialOptions{
			HTTPHeader: http.Header{"Authorization": []string{"Bearer " + token}},
		}
	}
	ws, resp, err := websocket.Dial(ctx, url, opts)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, &HandshakeRejected{Status: resp.StatusCode, Err: err}
		}
		return nil, err
	}
	ws.SetReadLimit(readLimit)
	return &Conn{ws: ws, readTimeout: readTimeout, writeTimeout: writeTimeout}, nil
}

// HandshakeRejected reports an upgrade refused for credential reasons.
type HandshakeRejected struct {
	Status int
	Err    error
}

func (e *HandshakeRejected) Error() string { return "handshake rejected: " + e.Err.Error() }
func (e *HandshakeRejected) Unwrap() error { return e.Err }

func (c *Conn) Read(ctx context.Context, v any) error {
	if c.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.readTimeout)
		defer cancel()
	}
	return wsjson.Read(ctx, c.ws, v)
}

func (c *Conn) Write(ctx context.Context, v any) error {
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, c.ws, v)
}

func (c *Conn) Close(code websocket.StatusCode, reason string) error {
	return c.ws.Close(code, reason)
}

// CloseNow drops the connection without the closing handshake.
func (c *Conn) CloseNow() error {
	return c.ws.CloseNow()
}

// Classify maps a read error to a disconnect reason tag: "server" when the
// peer closed the socket deliberately, "close" when the connection vanished,
// "error" for anything else.
func Classify(err error) string {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusPolicyViolation:
		return "server"
	case websocket.StatusGoingAway, websocket.StatusAbnormalClosure:
		return "close"
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return "close"
	}
	return "error"
}
