package protocol

import (
	"reflect"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/momentics/wasync-go/api"
)

// TrackMessageSizeDecoder strips the "<length><delim>" prefix Atmosphere
// adds to every message when X-Atmosphere-TrackMessageSize is enabled.
// It runs ahead of the protocol handshake decoders, so for
// the very first message the remainder it passes along is the handshake
// string itself, not an application message.
type TrackMessageSizeDecoder struct {
	delimiter      string
	enableProtocol bool
}

// NewTrackMessageSizeDecoder constructs the decoder for the given
// delimiter (default "|") and protocol flag.
func NewTrackMessageSizeDecoder(delimiter string, enableProtocol bool) *TrackMessageSizeDecoder {
	if delimiter == "" {
		delimiter = "|"
	}
	return &TrackMessageSizeDecoder{delimiter: delimiter, enableProtocol: enableProtocol}
}

// InputType accepts both string and []byte; see PaddingAndHeartbeatDecoder
// for the same rationale.
func (d *TrackMessageSizeDecoder) InputType() reflect.Type { return nil }

func (d *TrackMessageSizeDecoder) Decode(event api.Event, payload interface{}) (interface{}, error) {
	if event != api.EventMessage {
		return payload, nil
	}
	switch v := payload.(type) {
	case string:
		remainder, ok := d.strip(v)
		if !ok {
			return v, nil
		}
		return remainder, nil
	case []byte:
		remainder, ok := d.strip(string(v))
		if !ok {
			return v, nil
		}
		return []byte(remainder), nil
	default:
		return payload, nil
	}
}

func (d *TrackMessageSizeDecoder) strip(s string) (string, bool) {
	idx := strings.Index(s, d.delimiter)
	if idx < 0 {
		return s, false
	}
	length, err := strconv.Atoi(s[:idx])
	if err != nil {
		log.WithField("prefix", s[:idx]).Warn("atmosphere protocol: malformed message-length prefix, passing message through")
		return s, false
	}
	remainder := s[idx+len(d.delimiter):]
	if length >= 0 && len(remainder) != length {
		log.WithField("declared", length).WithField("actual", len(remainder)).Debug("atmosphere protocol: message-length mismatch")
	}
	return remainder, true
}
