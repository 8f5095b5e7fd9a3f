package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wasync-go/api"
)

func TestPaddingAndHeartbeatDecoder_StripsFullRun(t *testing.T) {
	d := NewPaddingAndHeartbeatDecoder(8, 'X')
	pad := strings.Repeat("X", 8)

	out, err := d.Decode(api.EventMessage, pad+"hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestPaddingAndHeartbeatDecoder_FullyPaddingMessageAborts(t *testing.T) {
	d := NewPaddingAndHeartbeatDecoder(4, 'X')
	out, err := d.Decode(api.EventMessage, "XXXX")
	require.NoError(t, err)
	assert.True(t, api.IsAbort(out))
}

func TestPaddingAndHeartbeatDecoder_PartialRunNotStripped(t *testing.T) {
	d := NewPaddingAndHeartbeatDecoder(8, 'X')
	// Only 7 heartbeat chars followed by other content: not a full run.
	in := strings.Repeat("X", 7) + "Yhello"
	out, err := d.Decode(api.EventMessage, in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestPaddingAndHeartbeatDecoder_BinaryPayload(t *testing.T) {
	d := NewPaddingAndHeartbeatDecoder(3, 'X')
	out, err := d.Decode(api.EventMessage, []byte("XXXdata"))
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), out)
}

func TestPaddingAndHeartbeatDecoder_IgnoresNonMessageEvents(t *testing.T) {
	d := NewPaddingAndHeartbeatDecoder(4, 'X')
	out, err := d.Decode(api.EventOpen, "XXXXhello")
	require.NoError(t, err)
	assert.Equal(t, "XXXXhello", out)
}
