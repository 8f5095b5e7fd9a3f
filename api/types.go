package api

// Event names a point in the transport lifecycle that the decoder pipeline
// and function dispatch key off of.
type Event string

const (
	EventOpen    Event = "open"
	EventMessage Event = "message"
	EventClose   Event = "close"
	EventError   Event = "error"
	EventReopen  Event = "reopened"
)

// Status is the Socket/Transport lifecycle state.
type Status int

const (
	StatusInit Status = iota
	StatusOpen
	StatusReopened
	StatusClose
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "INIT"
	case StatusOpen:
		return "OPEN"
	case StatusReopened:
		return "REOPENED"
	case StatusClose:
		return "CLOSE"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// TransportName is the lowercase wire token sent as X-Atmosphere-Transport.
type TransportName string

const (
	TransportWebSocket TransportName = "websocket"
	TransportStreaming TransportName = "streaming"
	TransportSSE       TransportName = "sse"
	TransportLongPoll  TransportName = "long-polling"
)

// CacheType mirrors AtmosphereRequest.cacheType.
type CacheType int

const (
	NoBroadcastCache CacheType = iota
	HeaderBroadcastCache
	UUIDBroadcasterCache
	SessionBroadcastCache
)

func (c CacheType) String() string {
	switch c {
	case NoBroadcastCache:
		return "NO_BROADCAST_CACHE"
	case HeaderBroadcastCache:
		return "HEADER_BROADCAST_CACHE"
	case UUIDBroadcasterCache:
		return "UUID_BROADCASTER_CACHE"
	case SessionBroadcastCache:
		return "SESSION_BROADCAST_CACHE"
	default:
		return "UNKNOWN"
	}
}

// PayloadKind tags the outbound representation an encoder produced: a
// Go-native tagged variant over {text, binary, byte-stream, char-stream}
// standing in for runtime-type dispatch on the wrapped value.
type PayloadKind int

const (
	KindText PayloadKind = iota
	KindBinary
	KindByteStream
	KindCharStream
)

// ByteStream tags an io.Reader as a byte-oriented stream; drained in full
// and sent as a binary frame/body.
type ByteStream struct {
	Reader interface {
		Read(p []byte) (int, error)
	}
}

// CharStream tags an io.Reader as a character-oriented stream (Java's
// Reader); drained in full and sent as a text frame/body.
type CharStream struct {
	Reader interface {
		Read(p []byte) (int, error)
	}
}

// Payload is the terminal representation produced by the encoder chain and
// consumed by transport.Send. Exactly one of Text/Bytes/Stream is valid,
// selected by Kind.
type Payload struct {
	Kind   PayloadKind
	Text   string
	Bytes  []byte
	Stream interface {
		Read(p []byte) (int, error)
	}
}

// abortType is the sentinel type for Decoder.Decode's ABORT return. A
// decoder signals ABORT by returning (Abort, nil) from Decode.
type abortType struct{}

// Abort is the distinguished sentinel value a Decoder returns to terminate
// the chain and suppress dispatch for the current message.
var Abort = abortType{}

// IsAbort reports whether v is the Abort sentinel.
func IsAbort(v interface{}) bool {
	_, ok := v.(abortType)
	return ok
}
