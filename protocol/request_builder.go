package protocol

import (
	"time"

	"github.com/momentics/wasync-go/api"
)

// FrameworkVersion is reported via X-Atmosphere-Framework on every request.
const FrameworkVersion = "3.0.0"

const transportQueryParam = "X-Atmosphere-Transport"

// RequestBuilder accumulates headers, query parameters, transports,
// decoders and encoders into an immutable Request.
type RequestBuilder struct {
	req   *Request
	built bool
}

// NewRequestBuilder starts a builder targeting uri, defaulting to a GET
// request with empty headers and query.
func NewRequestBuilder(uri string) *RequestBuilder {
	return &RequestBuilder{
		req: &Request{
			URI:                         uri,
			Method:                      "GET",
			Headers:                     NewMultiMap(),
			Query:                       NewMultiMap(),
			TrackMessageLengthDelimiter: "|",
			PaddingSize:                 4098,
			EnableProtocol:              true,
			MaxRequestCount:             -1,
		},
	}
}

// AtmosphereRequestBuilder is the Atmosphere-aware specialization. Request
// already carries the Atmosphere fields directly, so
// AtmosphereRequestBuilder is RequestBuilder under the name Atmosphere
// callers expect, kept distinct so call sites read in Atmosphere's own
// vocabulary.
type AtmosphereRequestBuilder struct {
	*RequestBuilder
}

// NewAtmosphereRequestBuilder is the constructor application code uses.
func NewAtmosphereRequestBuilder(uri string) *AtmosphereRequestBuilder {
	return &AtmosphereRequestBuilder{RequestBuilder: NewRequestBuilder(uri)}
}

func (b *RequestBuilder) Method(m string) *RequestBuilder {
	b.req.Method = m
	return b
}

func (b *RequestBuilder) Header(key, value string) *RequestBuilder {
	b.req.Headers.Add(key, value)
	return b
}

func (b *RequestBuilder) QueryParam(key, value string) *RequestBuilder {
	b.req.Query.Add(key, value)
	return b
}

// Transport adds t to the ordered transport list and, the first time any
// transport is added, seeds X-Atmosphere-Transport; later calls only extend
// the transport list and leave the query parameter unchanged.
func (b *RequestBuilder) Transport(t api.TransportName) *RequestBuilder {
	if !b.req.Query.Has(transportQueryParam) {
		b.req.Query.Set(transportQueryParam, string(t))
	}
	b.req.Transports = append(b.req.Transports, t)
	return b
}

func (b *RequestBuilder) Decoder(d api.Decoder) *RequestBuilder {
	b.req.Decoders = append(b.req.Decoders, d)
	return b
}

func (b *RequestBuilder) Encoder(e api.Encoder) *RequestBuilder {
	b.req.Encoders = append(b.req.Encoders, e)
	return b
}

func (b *RequestBuilder) Resolver(r api.FunctionResolver) *RequestBuilder {
	b.req.Resolver = r
	return b
}

func (b *RequestBuilder) ConnectTimeout(d time.Duration) *RequestBuilder {
	b.req.ConnectTimeout = d
	return b
}

func (b *RequestBuilder) RequestTimeout(d time.Duration) *RequestBuilder {
	b.req.RequestTimeout = d
	return b
}

func (b *RequestBuilder) ReadTimeout(d time.Duration) *RequestBuilder {
	b.req.ReadTimeout = d
	return b
}

func (b *RequestBuilder) MaxRequestCount(n int) *RequestBuilder {
	b.req.MaxRequestCount = n
	return b
}

func (b *RequestBuilder) Binary(v bool) *RequestBuilder {
	b.req.Binary = v
	return b
}

func (b *RequestBuilder) CacheType(c api.CacheType) *RequestBuilder {
	b.req.CacheType = c
	return b
}

func (b *RequestBuilder) TrackMessageLength(v bool) *RequestBuilder {
	b.req.TrackMessageLength = v
	return b
}

func (b *RequestBuilder) TrackMessageLengthDelimiter(d string) *RequestBuilder {
	b.req.TrackMessageLengthDelimiter = d
	return b
}

func (b *RequestBuilder) PaddingSize(n int) *RequestBuilder {
	b.req.PaddingSize = n
	return b
}

func (b *RequestBuilder) EnableProtocol(v bool) *RequestBuilder {
	b.req.EnableProtocol = v
	return b
}

// Build finalizes the Request, injecting the Atmosphere handshake query
// parameters and prepending the protocol/message-size decoders.
//
// A builder whose Request has protocol or message-length tracking enabled
// may be built only once — a second call would double-inject the
// handshake decoders. This is checked against the Request's own fields
// rather than a separately tracked flag, since EnableProtocol defaults to
// true in NewRequestBuilder and never goes through a setter on the
// default-construction path. Builders with both knobs off are
// idempotent-safe and may be built repeatedly.
func (b *RequestBuilder) Build() (*Request, error) {
	if b.built && (b.req.EnableProtocol || b.req.TrackMessageLength) {
		return nil, api.ErrBuilderReused
	}
	b.built = true

	req := b.req
	req.Query.Set("X-Atmosphere-Framework", FrameworkVersion)
	if !req.Query.Has(trackingIDQueryParam) {
		req.Query.Set(trackingIDQueryParam, "0")
	}
	if req.EnableProtocol {
		req.Query.Set("X-atmo-protocol", "true")
	}
	if req.TrackMessageLength {
		req.Query.Set("X-Atmosphere-TrackMessageSize", "true")
	}
	if ct := req.Headers.Get("Content-Type"); ct != "" {
		req.Query.Set("Content-Type", ct)
	}

	if req.EnableProtocol {
		strDecoder, binDecoder := NewProtocolDecoderPair(req)
		prependDecoder(req, binDecoder)
		prependDecoder(req, strDecoder)
		if req.TrackMessageLength {
			prependDecoder(req, NewTrackMessageSizeDecoder(req.TrackMessageLengthDelimiter, req.EnableProtocol))
		}
	}

	return req, nil
}

func prependDecoder(req *Request, d api.Decoder) {
	req.Decoders = append([]api.Decoder{d}, req.Decoders...)
}
