package protocol

import (
	"reflect"

	"github.com/momentics/wasync-go/api"
)

// PaddingAndHeartbeatDecoder strips a leading run of exactly paddingSize
// bytes of heartbeatChar.
// Installed by the protocol handshake decoders once the handshake is
// consumed.
type PaddingAndHeartbeatDecoder struct {
	paddingSize int
	heartbeat   byte
}

// NewPaddingAndHeartbeatDecoder constructs the decoder. paddingSize<=0 falls
// back to the documented default of 4098.
func NewPaddingAndHeartbeatDecoder(paddingSize int, heartbeat byte) *PaddingAndHeartbeatDecoder {
	if paddingSize <= 0 {
		paddingSize = 4098
	}
	return &PaddingAndHeartbeatDecoder{paddingSize: paddingSize, heartbeat: heartbeat}
}

// InputType returns nil: this decoder accepts both string and []byte
// payloads, since it may be installed ahead of either a string-framed or
// binary-framed transport.
func (d *PaddingAndHeartbeatDecoder) InputType() reflect.Type { return nil }

func (d *PaddingAndHeartbeatDecoder) Decode(event api.Event, payload interface{}) (interface{}, error) {
	if event != api.EventMessage {
		return payload, nil
	}
	switch v := payload.(type) {
	case string:
		remainder, stripped := stripPadding([]byte(v), d.paddingSize, d.heartbeat)
		if stripped && len(remainder) == 0 {
			return api.Abort, nil
		}
		return string(remainder), nil
	case []byte:
		remainder, stripped := stripPadding(v, d.paddingSize, d.heartbeat)
		if stripped && len(remainder) == 0 {
			return api.Abort, nil
		}
		return remainder, nil
	default:
		return payload, nil
	}
}

// stripPadding removes exactly paddingSize leading bytes equal to heartbeat,
// and no more, only when the full run is present (property 7: "strips
// exactly paddingSize bytes of heartbeat char and no more").
func stripPadding(b []byte, paddingSize int, heartbeat byte) (remainder []byte, stripped bool) {
	if len(b) < paddingSize {
		return b, false
	}
	for i := 0; i < paddingSize; i++ {
		if b[i] != heartbeat {
			return b, false
		}
	}
	return b[paddingSize:], true
}
