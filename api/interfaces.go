package api

import "reflect"

// Decoder transforms one pipeline stage's payload into the next. InputType
// declares the type this decoder accepts; Decode is only invoked when the
// current payload is assignable to InputType. Decode may return
// the Abort sentinel to terminate the chain for the current message.
type Decoder interface {
	InputType() reflect.Type
	Decode(event Event, payload interface{}) (interface{}, error)
}

// Encoder is the write-path symmetric counterpart of Decoder.
type Encoder interface {
	InputType() reflect.Type
	Encode(payload interface{}) (interface{}, error)
}

// ChainMutator is implemented by decoders that need to add or remove
// members of their own chain while being invoked — used by the protocol
// handshake decoders to remove themselves once consumed. The chain passed
// in is the live, shared DecoderChain from internal/dispatch. The encoder
// walk (dispatch.RunEncoders) does not call MutateChain.
type ChainMutator interface {
	MutateChain(chain Chain)
}

// Chain is the minimal surface internal/dispatch exposes to a ChainMutator,
// letting a decoder remove or insert members without depending on the
// concrete chain implementation.
type Chain interface {
	RemoveSelf()
	InsertAt(index int, d Decoder)
	Remove(d Decoder)
	IndexOf(d Decoder) int
}

// FunctionResolver extends matching beyond event-name/type-assignability
//: given a wrapper's match-key and the resolved
// payload, report whether the wrapper should fire.
type FunctionResolver interface {
	Resolve(matchKey string, payload interface{}) bool
}

// Logger is a narrow structured-logging surface, satisfied directly by
// *logrus.Logger. The library's own components log through the logrus
// package-level logger rather than through this interface.
type Logger interface {
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Transport is the common contract every wire transport implements.
// Specializations add transport-specific send methods.
type Transport interface {
	Name() TransportName
	Status() Status
	Open() error
	Error(err error)
	ErrorHandled() bool
	Close() error
}
