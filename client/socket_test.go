package client

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wasync-go/api"
	"github.com/momentics/wasync-go/fake"
	"github.com/momentics/wasync-go/future"
	"github.com/momentics/wasync-go/internal/dispatch"
	"github.com/momentics/wasync-go/protocol"
	"github.com/momentics/wasync-go/transport"
)

func newTestSocket(t *testing.T, req *protocol.Request) (*Socket, *fake.Transport) {
	t.Helper()
	if req == nil {
		var err error
		req, err = protocol.NewRequestBuilder("http://example.test/atmosphere").
			EnableProtocol(false).
			Transport(api.TransportWebSocket).
			Build()
		require.NoError(t, err)
	}

	s := &Socket{
		req:             req,
		rootFuture:      future.New(),
		connectedFuture: future.New(),
		decoders:        dispatch.NewDecoderChain(req.Decoders),
		functions:       dispatch.NewRegistry(req.Resolver),
	}
	s.pipeline = &transport.Pipeline{Decoders: s.decoders, Functions: s.functions}
	s.rootFuture.Bind(s.fire, s.Close)

	tr := fake.NewTransport(api.TransportWebSocket)
	tr.Pipeline = s.pipeline
	tr.SetFuture(s.rootFuture)
	tr.SetConnectedFuture(s.connectedFuture)
	require.NoError(t, tr.Open())
	s.tr = tr
	return s, tr
}

func TestSocket_FireSendsTextOverWebSocket(t *testing.T) {
	s, tr := newTestSocket(t, nil)

	f, err := s.Fire("hello")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, []string{"hello"}, tr.SentText())
}

func TestSocket_FireSendsBinaryOverWebSocket(t *testing.T) {
	s, tr := newTestSocket(t, nil)

	_, err := s.Fire([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{1, 2, 3}}, tr.SentBinary())
}

func TestSocket_WriteOnClosedTransportFails(t *testing.T) {
	s, tr := newTestSocket(t, nil)
	require.NoError(t, tr.Close())

	_, err := s.write(s.req, "too late")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Socket Status")
	assert.Empty(t, tr.SentText())
}

func TestSocket_NoEncoderForUnsupportedType(t *testing.T) {
	s, _ := newTestSocket(t, nil)

	_, err := s.write(s.req, 12345)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrNoEncoder)
}

func TestSocket_OnRegistersDispatchedCallback(t *testing.T) {
	s, tr := newTestSocket(t, nil)
	var got string
	var mu sync.Mutex
	require.NoError(t, s.On("message", func(v string) {
		mu.Lock()
		defer mu.Unlock()
		got = v
	}))

	tr.Deliver(api.EventMessage, "inbound")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "inbound", got)
}

func TestSocket_StatusReflectsTransport(t *testing.T) {
	s, tr := newTestSocket(t, nil)
	assert.Equal(t, api.StatusOpen, s.Status())
	require.NoError(t, tr.Close())
	assert.Equal(t, api.StatusClose, s.Status())
}

func TestSocket_CloseIsIdempotent(t *testing.T) {
	s, _ := newTestSocket(t, nil)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

// httpOnlyTransport exercises the HTTP write path: it
// deliberately does not implement transport.WebSocketSender.
type httpOnlyTransport struct {
	mu     sync.Mutex
	status api.Status
	body   []byte
	err    error
}

func (h *httpOnlyTransport) Name() api.TransportName { return api.TransportLongPoll }
func (h *httpOnlyTransport) Status() api.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}
func (h *httpOnlyTransport) Open() error { h.status = api.StatusOpen; return nil }
func (h *httpOnlyTransport) Error(error) {}
func (h *httpOnlyTransport) ErrorHandled() bool                          { return false }
func (h *httpOnlyTransport) Close() error                                { return nil }
func (h *httpOnlyTransport) SetFuture(*future.Future)                    {}
func (h *httpOnlyTransport) SetConnectedFuture(*future.Future)           {}
func (h *httpOnlyTransport) OnThrowable(error)                           {}
func (h *httpOnlyTransport) MarkErrorHandled()                           {}
func (h *httpOnlyTransport) SendHTTP(_ context.Context, _ *protocol.Request, p api.Payload) ([]byte, error) {
	if h.err != nil {
		return nil, h.err
	}
	return h.body, nil
}

func TestSocket_WriteOverHTTPDeliversResponseBodyAsMessage(t *testing.T) {
	req, err := protocol.NewRequestBuilder("http://example.test/atmosphere").
		EnableProtocol(false).
		Transport(api.TransportLongPoll).
		Build()
	require.NoError(t, err)

	s := &Socket{
		req:             req,
		rootFuture:      future.New(),
		connectedFuture: future.New(),
		decoders:        dispatch.NewDecoderChain(req.Decoders),
		functions:       dispatch.NewRegistry(req.Resolver),
	}
	s.pipeline = &transport.Pipeline{Decoders: s.decoders, Functions: s.functions}
	s.rootFuture.Bind(s.fire, s.Close)

	tr := &httpOnlyTransport{status: api.StatusOpen, body: []byte("echo:hi")}
	s.tr = tr

	var got string
	require.NoError(t, s.On("message", func(v string) { got = v }))

	_, err = s.write(req, "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", got)
}
