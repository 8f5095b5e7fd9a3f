package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wasync-go/api"
	"github.com/momentics/wasync-go/internal/dispatch"
)

func buildProtocolRequest(t *testing.T, trackLength bool) *Request {
	t.Helper()
	b := NewRequestBuilder("http://example.test/atmosphere").
		Transport(api.TransportWebSocket).
		TrackMessageLength(trackLength)
	req, err := b.Build()
	require.NoError(t, err)
	return req
}

func TestHandshakeDecoder_ParsesAndInstallsPadding(t *testing.T) {
	req := buildProtocolRequest(t, false)
	chain := dispatch.NewDecoderChain(req.Decoders)

	result, aborted := chain.Run(api.EventMessage, "abc-123|X")
	assert.True(t, aborted)
	assert.Nil(t, result)
	assert.Equal(t, "abc-123", req.Query.Get(trackingIDQueryParam))

	// Both handshake decoders removed, padding decoder installed.
	assert.Equal(t, 1, chain.Len())
}

func TestHandshakeDecoder_WithMessageLengthTracking(t *testing.T) {
	req := buildProtocolRequest(t, true)
	chain := dispatch.NewDecoderChain(req.Decoders)

	// 3 decoders up front: size, string-handshake, binary-handshake.
	require.Equal(t, 3, chain.Len())

	handshake := "abc-123|X"
	framed := "9|" + handshake // len("abc-123|X") == 9
	_, aborted := chain.Run(api.EventMessage, framed)
	assert.True(t, aborted)
	assert.Equal(t, "abc-123", req.Query.Get(trackingIDQueryParam))
	// message-size decoder survives; the handshake pair is removed, padding installed.
	assert.Equal(t, 2, chain.Len())
}

func TestHandshakeDecoder_MalformedPassesThroughAndDoesNotPanic(t *testing.T) {
	req := buildProtocolRequest(t, false)
	chain := dispatch.NewDecoderChain(req.Decoders)

	result, aborted := chain.Run(api.EventMessage, "")
	assert.False(t, aborted)
	assert.Equal(t, "", result)
}

func TestHandshakeDecoder_FollowedByPaddingStripsSubsequentMessage(t *testing.T) {
	req := buildProtocolRequest(t, false)
	req.PaddingSize = 8
	// rebuild with the smaller padding size baked into the decoder pair.
	req.Decoders = nil
	strDecoder, binDecoder := NewProtocolDecoderPair(req)
	req.Decoders = []api.Decoder{strDecoder, binDecoder}
	chain := dispatch.NewDecoderChain(req.Decoders)

	_, aborted := chain.Run(api.EventMessage, "abc-123|X")
	require.True(t, aborted)

	pad := strings.Repeat("X", 8)
	result, aborted2 := chain.Run(api.EventMessage, pad+"payload")
	assert.False(t, aborted2)
	assert.Equal(t, "payload", result)
}
