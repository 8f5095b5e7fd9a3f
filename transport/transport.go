package transport

import (
	"context"

	"github.com/momentics/wasync-go/api"
	"github.com/momentics/wasync-go/future"
	"github.com/momentics/wasync-go/protocol"
)

// Transport is the full contract client.Socket programs against: the
// common lifecycle from api.Transport plus the future-injection and
// upcall operations every transport must support.
type Transport interface {
	api.Transport
	SetFuture(f *future.Future)
	SetConnectedFuture(f *future.Future)
	OnThrowable(err error)
	ErrorHandled() bool
	MarkErrorHandled()
}

// WebSocketSender is implemented only by the WebSocket transport.
// client.Socket.write type-asserts for this to choose the WebSocket send
// path.
type WebSocketSender interface {
	SendText(s string) error
	SendBinary(b []byte) error
}

// HTTPSender is implemented by the three HTTP-based transports (streaming,
// SSE, long-polling): "Writes go over a separate HTTP POST".
// It executes the POST built from req/payload and returns the response
// body; feeding a non-empty body through the decoder pipeline as a
// synthetic MESSAGE event is left to the caller (client.Socket.write).
type HTTPSender interface {
	SendHTTP(ctx context.Context, req *protocol.Request, payload api.Payload) ([]byte, error)
}

// New constructs the transport named by name, wiring it to req and the
// shared pipeline. Used by client.Socket.Open to pick among the four
// negotiated transports.
func New(name api.TransportName, req *protocol.Request, pipeline *Pipeline) (Transport, error) {
	switch name {
	case api.TransportWebSocket:
		return NewWebSocket(req, pipeline), nil
	case api.TransportStreaming:
		return NewStreaming(req, pipeline), nil
	case api.TransportSSE:
		return NewSSE(req, pipeline), nil
	case api.TransportLongPoll:
		return NewLongPoll(req, pipeline), nil
	default:
		return nil, api.ErrUnknownTransport
	}
}
