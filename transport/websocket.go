package transport

import (
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/momentics/wasync-go/api"
	"github.com/momentics/wasync-go/protocol"
)

// WebSocket is the WebSocket transport: complete frames in,
// text/binary frames out. Framing and the RFC6455 handshake are delegated
// to gorilla/websocket rather than hand-rolled, per DESIGN.md.
type WebSocket struct {
	base

	req    *protocol.Request
	dialer *websocket.Dialer

	writeMu sync.Mutex
	conn    *websocket.Conn
}

// NewWebSocket constructs the transport; it does not dial until Open.
func NewWebSocket(req *protocol.Request, pipeline *Pipeline) *WebSocket {
	return &WebSocket{
		base:   newBase(api.TransportWebSocket, pipeline),
		req:    req,
		dialer: websocket.DefaultDialer,
	}
}

// Open dials and upgrades the connection, then starts the read loop. The
// transport remains in INIT until the read loop observes the first frame
// (the in-band Atmosphere handshake), matching the common state machine's
// "on-first-bytes" transition uniformly across transports.
func (t *WebSocket) Open() error {
	raw, err := toWSURL(t.req.URI)
	if err != nil {
		return errors.Wrap(err, "websocket: invalid url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(err, "websocket: invalid url")
	}
	u.RawQuery = encodeQuery(t.req)
	conn, _, err := t.dialer.Dial(u.String(), t.req.HTTPHeader())
	if err != nil {
		werr := errors.Wrap(err, "websocket: dial failed")
		t.recordPreOpenFailure(werr)
		return werr
	}
	t.writeMu.Lock()
	t.conn = conn
	t.writeMu.Unlock()

	t.closeFn = conn.Close
	go t.readLoop(conn)
	return nil
}

func toWSURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}

func (t *WebSocket) readLoop(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if isNormalClose(err) {
				t.close()
				t.pipeline.Deliver(api.EventClose, nil)
				return
			}
			t.Error(errors.Wrap(err, "websocket: read failed"))
			return
		}
		t.markOpen()
		switch msgType {
		case websocket.TextMessage:
			t.pipeline.Deliver(api.EventMessage, string(data))
		case websocket.BinaryMessage:
			t.pipeline.Deliver(api.EventMessage, data)
		}
	}
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		strings.Contains(err.Error(), "use of closed network connection")
}

// SendText implements WebSocketSender.
func (t *WebSocket) SendText(s string) error {
	return t.send(websocket.TextMessage, []byte(s))
}

// SendBinary implements WebSocketSender.
func (t *WebSocket) SendBinary(b []byte) error {
	return t.send(websocket.BinaryMessage, b)
}

func (t *WebSocket) send(msgType int, data []byte) error {
	t.writeMu.Lock()
	conn := t.conn
	t.writeMu.Unlock()
	if conn == nil {
		return errors.New("websocket: not connected")
	}
	if err := conn.WriteMessage(msgType, data); err != nil {
		return errors.Wrap(err, "websocket: write failed")
	}
	return nil
}

// Close implements api.Transport; idempotent.
func (t *WebSocket) Close() error {
	return t.close()
}
