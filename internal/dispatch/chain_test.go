package dispatch

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wasync-go/api"
)

type upcaseDecoder struct{}

func (upcaseDecoder) InputType() reflect.Type { return reflect.TypeOf("") }
func (upcaseDecoder) Decode(_ api.Event, payload interface{}) (interface{}, error) {
	s := payload.(string)
	out := make([]byte, len(s))
	for i := range s {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 32
		}
		out[i] = c
	}
	return string(out), nil
}

type abortDecoder struct{}

func (abortDecoder) InputType() reflect.Type { return nil }
func (abortDecoder) Decode(_ api.Event, _ interface{}) (interface{}, error) {
	return api.Abort, nil
}

type binaryOnlyDecoder struct{ called bool }

func (d *binaryOnlyDecoder) InputType() reflect.Type { return reflect.TypeOf([]byte(nil)) }
func (d *binaryOnlyDecoder) Decode(_ api.Event, payload interface{}) (interface{}, error) {
	d.called = true
	return payload, nil
}

func TestDecoderChain_RunAppliesTypeFilteredDecoders(t *testing.T) {
	chain := NewDecoderChain([]api.Decoder{upcaseDecoder{}})
	result, aborted := chain.Run(api.EventMessage, "hello")
	assert.False(t, aborted)
	assert.Equal(t, "HELLO", result)
}

func TestDecoderChain_SkipsTypeMismatchedDecoder(t *testing.T) {
	bin := &binaryOnlyDecoder{}
	chain := NewDecoderChain([]api.Decoder{bin})
	result, aborted := chain.Run(api.EventMessage, "a string, not []byte")
	assert.False(t, aborted)
	assert.False(t, bin.called)
	assert.Equal(t, "a string, not []byte", result)
}

func TestDecoderChain_AbortStopsChainAndSuppressesDispatch(t *testing.T) {
	trailing := &binaryOnlyDecoder{}
	chain := NewDecoderChain([]api.Decoder{abortDecoder{}, trailing})
	result, aborted := chain.Run(api.EventMessage, []byte("x"))
	assert.True(t, aborted)
	assert.Nil(t, result)
	assert.False(t, trailing.called, "decoders after an abort must not run")
}

type selfRemovingDecoder struct {
	ran bool
}

func (d *selfRemovingDecoder) InputType() reflect.Type { return nil }
func (d *selfRemovingDecoder) Decode(_ api.Event, payload interface{}) (interface{}, error) {
	d.ran = true
	return payload, nil
}
func (d *selfRemovingDecoder) MutateChain(chain api.Chain) {
	chain.RemoveSelf()
}

func TestDecoderChain_SelfRemovalDuringTraversal(t *testing.T) {
	self := &selfRemovingDecoder{}
	second := &binaryOnlyDecoder{}
	chain := NewDecoderChain([]api.Decoder{self, second})

	result, aborted := chain.Run(api.EventMessage, []byte("payload"))
	require.False(t, aborted)
	assert.True(t, second.called, "decoder following a self-removed one must still run")
	assert.Equal(t, []byte("payload"), result)

	// The removed decoder no longer participates in subsequent runs.
	assert.Equal(t, 1, chain.Len())
	self.ran = false
	chain.Run(api.EventMessage, []byte("again"))
	assert.False(t, self.ran)
}

func TestDecoderChain_IndexOfAndRemove(t *testing.T) {
	a, b := &binaryOnlyDecoder{}, &binaryOnlyDecoder{}
	chain := NewDecoderChain([]api.Decoder{a, b})
	assert.Equal(t, 0, chain.IndexOf(a))
	assert.Equal(t, 1, chain.IndexOf(b))

	chain.Remove(a)
	assert.Equal(t, 1, chain.Len())
	assert.Equal(t, 0, chain.IndexOf(b))
	assert.Equal(t, -1, chain.IndexOf(a))
}
