// Package protocol implements the Atmosphere Protocol framing layer: the
// immutable Request/AtmosphereRequest data model, the builder that
// injects the handshake query parameters and decoders, and the
// handshake/padding/message-size decoders themselves.
package protocol

import (
	"net/http"
	"time"

	"github.com/momentics/wasync-go/api"
)

// MultiMap is an ordered, multi-valued string map preserving insertion
// order and original key casing, used for both headers and query
// parameters.
type MultiMap struct {
	keys   []string
	values map[string][]string
}

// NewMultiMap returns an empty MultiMap.
func NewMultiMap() *MultiMap {
	return &MultiMap{values: make(map[string][]string)}
}

// Add appends value under key, preserving any existing values.
func (m *MultiMap) Add(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = append(m.values[key], value)
}

// Set replaces all values under key with a single value.
func (m *MultiMap) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = []string{value}
}

// Get returns the first value for key, or "" if absent.
func (m *MultiMap) Get(key string) string {
	if vs := m.values[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Values returns all values for key in insertion order.
func (m *MultiMap) Values(key string) []string {
	return append([]string(nil), m.values[key]...)
}

// Has reports whether key has at least one value.
func (m *MultiMap) Has(key string) bool {
	return len(m.values[key]) > 0
}

// Keys returns all keys in first-insertion order.
func (m *MultiMap) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Clone returns a deep copy.
func (m *MultiMap) Clone() *MultiMap {
	c := NewMultiMap()
	for _, k := range m.keys {
		c.keys = append(c.keys, k)
		c.values[k] = append([]string(nil), m.values[k]...)
	}
	return c
}

// Request is the immutable request descriptor handed to Socket.Open and
// shared read-only by the transport for the life of the socket.
// Construct via RequestBuilder/AtmosphereRequestBuilder; never mutate after
// Build() except for the tracking-id query parameter, which the handshake
// decoder rewrites exactly once.
type Request struct {
	URI     string
	Method  string
	Headers *MultiMap
	Query   *MultiMap

	Transports []api.TransportName
	Decoders   []api.Decoder
	Encoders   []api.Encoder
	Resolver   api.FunctionResolver

	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	ReadTimeout    time.Duration

	MaxRequestCount int
	Binary          bool

	// Atmosphere-specific fields (AtmosphereRequest specialization).
	CacheType                   api.CacheType
	TrackMessageLength          bool
	TrackMessageLengthDelimiter string
	PaddingSize                 int
	HeartbeatChar               byte
	EnableProtocol              bool
}

// HTTPHeader renders Headers as an http.Header, used by transports building
// real net/http requests.
func (r *Request) HTTPHeader() http.Header {
	h := make(http.Header)
	for _, k := range r.Headers.Keys() {
		for _, v := range r.Headers.Values(k) {
			h.Add(k, v)
		}
	}
	return h
}
