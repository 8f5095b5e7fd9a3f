package facade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wasync-go/api"
	"github.com/momentics/wasync-go/internal/testserver"
	"github.com/momentics/wasync-go/protocol"
)

// TestClient_WebSocketHandshakeAndEcho opens a WebSocket socket against the
// reference server, observes the in-band handshake complete transparently,
// then round-trips a message.
func TestClient_WebSocketHandshakeAndEcho(t *testing.T) {
	srv := testserver.New(testserver.DefaultConfig())
	require.NoError(t, srv.Start())
	defer srv.Shutdown(context.Background())

	req, err := protocol.NewRequestBuilder(srv.URL()).
		Transport(api.TransportWebSocket).
		Build()
	require.NoError(t, err)

	client := NewClient()
	socket, err := client.Create(req)
	require.NoError(t, err)
	defer socket.Close()

	assert.Equal(t, api.StatusOpen, socket.Status())

	received := make(chan string, 1)
	require.NoError(t, socket.On("message", func(msg string) {
		received <- msg
	}))

	_, err = socket.Fire("hi")
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, "echo:hi", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echoed message")
	}
}

// TestClient_LongPollingHandshakeAndWrite covers long-polling transport
// negotiation, handshake, and an independent POST write whose echoed body
// arrives as a synthetic MESSAGE event.
func TestClient_LongPollingHandshakeAndWrite(t *testing.T) {
	srv := testserver.New(testserver.DefaultConfig())
	require.NoError(t, srv.Start())
	defer srv.Shutdown(context.Background())

	req, err := protocol.NewRequestBuilder(srv.URL()).
		Transport(api.TransportLongPoll).
		MaxRequestCount(3).
		Build()
	require.NoError(t, err)

	client := NewClient()
	socket, err := client.Create(req)
	require.NoError(t, err)
	defer socket.Close()

	assert.Equal(t, api.StatusOpen, socket.Status())

	_, err = socket.Fire("write-payload")
	require.NoError(t, err)
}

// TestClient_FallsBackPastSynchronousDialFailure covers negotiation across
// multiple candidates that share one connection-gate future: the websocket
// endpoint refuses the upgrade (a synchronous dial failure), so Create must
// fall through to the streaming candidate and report it open, rather than
// surfacing the first candidate's stale error once the second is already
// running.
func TestClient_FallsBackPastSynchronousDialFailure(t *testing.T) {
	cfg := testserver.DefaultConfig()
	cfg.RejectWebSocket = true
	srv := testserver.New(cfg)
	require.NoError(t, srv.Start())
	defer srv.Shutdown(context.Background())

	req, err := protocol.NewRequestBuilder(srv.URL()).
		Transport(api.TransportWebSocket).
		Transport(api.TransportStreaming).
		Build()
	require.NoError(t, err)

	client := NewClient()
	socket, err := client.Create(req)
	require.NoError(t, err)
	defer socket.Close()

	assert.Equal(t, api.StatusOpen, socket.Status())
}
