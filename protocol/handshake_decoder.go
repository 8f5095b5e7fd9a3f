package protocol

import (
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/momentics/wasync-go/api"
	log "github.com/sirupsen/logrus"
)

// DefaultHeartbeatChar is the heartbeat character assumed when the
// handshake omits one.
const DefaultHeartbeatChar byte = 'X'

const trackingIDQueryParam = "X-Atmosphere-tracking-id"

// handshakeState is shared by the string and binary protocol decoders. The
// received flag is a compare-and-swap latch enforcing at-most-once
// handshake processing under concurrent first-message delivery.
type handshakeState struct {
	received    atomic.Bool
	request     *Request
	paddingSize int
	delimiter   string
}

func newHandshakeState(req *Request) *handshakeState {
	delim := req.TrackMessageLengthDelimiter
	if delim == "" {
		delim = "|"
	}
	paddingSize := req.PaddingSize
	if paddingSize == 0 {
		paddingSize = 4098
	}
	return &handshakeState{request: req, paddingSize: paddingSize, delimiter: delim}
}

// parseHandshake splits s on the configured delimiter into
// [tracking-uuid, optional heartbeat-char].
func parseHandshake(s, delim string) (uuid string, heartbeat byte, ok bool) {
	parts := strings.Split(s, delim)
	if len(parts) == 0 || parts[0] == "" {
		return "", 0, false
	}
	uuid = parts[0]
	heartbeat = DefaultHeartbeatChar
	if len(parts) > 1 && len(parts[1]) > 0 {
		heartbeat = parts[1][0]
	}
	return uuid, heartbeat, true
}

// stringDecoderType/binaryDecoderType are the reflect.Type values used as
// InputType() so the pipeline walk (internal/dispatch) only offers this
// decoder messages of the matching framing.
var (
	stringDecoderType = reflect.TypeOf("")
	binaryDecoderType = reflect.TypeOf([]byte(nil))
)

// StringProtocolDecoder fires for transports that deliver text frames
// (WebSocket text frames, SSE, HTTP streaming/long-polling bodies).
type StringProtocolDecoder struct {
	state        *handshakeState
	sibling      api.Decoder
	doRemove     bool
	installAfter api.Decoder
}

// BinaryProtocolDecoder fires for transports that deliver binary frames
// (WebSocket binary frames).
type BinaryProtocolDecoder struct {
	state        *handshakeState
	sibling      api.Decoder
	doRemove     bool
	installAfter api.Decoder
}

// NewProtocolDecoderPair builds the cooperating string/binary decoders that
// the request builder prepends at position 0 when protocol is enabled.
// Each knows about the other so whichever fires can remove both from the
// live chain.
func NewProtocolDecoderPair(req *Request) (*StringProtocolDecoder, *BinaryProtocolDecoder) {
	state := newHandshakeState(req)
	s := &StringProtocolDecoder{state: state}
	b := &BinaryProtocolDecoder{state: state}
	s.sibling, b.sibling = b, s
	return s, b
}

func (d *StringProtocolDecoder) InputType() reflect.Type { return stringDecoderType }

func (d *StringProtocolDecoder) Decode(event api.Event, payload interface{}) (interface{}, error) {
	text, _ := payload.(string)
	out, abort := d.state.handle(event, text, d)
	return out, abort
}

func (d *StringProtocolDecoder) MutateChain(chain api.Chain) {
	mutateChainForHandshake(chain, d.doRemove, d, d.sibling, d.installAfter)
}

func (d *BinaryProtocolDecoder) InputType() reflect.Type { return binaryDecoderType }

func (d *BinaryProtocolDecoder) Decode(event api.Event, payload interface{}) (interface{}, error) {
	raw, _ := payload.([]byte)
	out, abort := d.state.handle(event, string(raw), d)
	return out, abort
}

func (d *BinaryProtocolDecoder) MutateChain(chain api.Chain) {
	mutateChainForHandshake(chain, d.doRemove, d, d.sibling, d.installAfter)
}

// handle is the shared decode logic for both decoders.
// selfRef lets it stash the padding decoder to install and the doRemove
// flag back onto whichever of the two concrete decoder structs fired.
func (s *handshakeState) handle(event api.Event, text string, selfRef interface{}) (interface{}, error) {
	if event != api.EventMessage {
		return text, nil
	}
	if !s.received.CompareAndSwap(false, true) {
		// Already handled (or already attempted and failed) — not retried.
		return text, nil
	}

	uuid, heartbeat, ok := parseHandshake(text, s.delimiter)
	if !ok {
		log.WithField("payload", truncate(text, 64)).Warn("atmosphere protocol: handshake parse failed, passing message through")
		return text, nil
	}

	s.request.Query.Set(trackingIDQueryParam, uuid)
	padding := NewPaddingAndHeartbeatDecoder(s.paddingSize, heartbeat)

	switch d := selfRef.(type) {
	case *StringProtocolDecoder:
		d.doRemove = true
		d.installAfter = padding
	case *BinaryProtocolDecoder:
		d.doRemove = true
		d.installAfter = padding
	}
	return api.Abort, nil
}

// mutateChainForHandshake installs the padding decoder immediately after
// both handshake decoders, then removes both of them. The
// insertion point is computed from the live positions of self/sibling
// rather than a hardcoded index, since an enabled TrackMessageSizeDecoder
// may have pushed both handshake decoders one slot further out.
func mutateChainForHandshake(chain api.Chain, doRemove bool, self, sibling, padding api.Decoder) {
	if !doRemove {
		return
	}
	i1, i2 := chain.IndexOf(self), chain.IndexOf(sibling)
	after := i1
	if i2 > after {
		after = i2
	}
	chain.InsertAt(after+1, padding)
	chain.RemoveSelf()
	chain.Remove(sibling)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
