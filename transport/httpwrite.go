package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/momentics/wasync-go/api"
	"github.com/momentics/wasync-go/protocol"
)

// DefaultHTTPClient is the process-wide HTTP client transports POST writes
// through. Kept as an injected dependency with an explicit lifecycle
// rather than a hidden singleton; DefaultHTTPClient exists for that
// purpose and callers may replace it.
var DefaultHTTPClient = &http.Client{}

// bodyFor renders an api.Payload into an io.Reader request body,
// implementing the same runtime-type dispatch as the WebSocket send path:
// text -> string body, binary -> byte body, byte-stream/char-stream are
// drained in full.
// TODO: stream HTTP bodies directly instead of buffering them whole.
func bodyFor(p api.Payload) (io.Reader, error) {
	switch p.Kind {
	case api.KindText:
		return strings.NewReader(p.Text), nil
	case api.KindBinary:
		return bytes.NewReader(p.Bytes), nil
	case api.KindByteStream, api.KindCharStream:
		if p.Stream == nil {
			return nil, errors.Wrap(api.ErrNoEncoder, "transport: nil stream payload")
		}
		buf, err := io.ReadAll(p.Stream)
		if err != nil {
			return nil, errors.Wrap(err, "transport: draining stream payload")
		}
		return bytes.NewReader(buf), nil
	default:
		return nil, errors.Wrap(api.ErrNoEncoder, "transport: unrecognized payload kind")
	}
}

// postMessage executes one HTTP POST write, using req's URI/headers/query
// to build the request.
func postMessage(ctx context.Context, req *protocol.Request, payload api.Payload) ([]byte, error) {
	body, err := bodyFor(payload)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(req.URI)
	if err != nil {
		return nil, errors.Wrap(err, "transport: invalid url")
	}
	u.RawQuery = encodeQuery(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "transport: building POST request")
	}
	httpReq.Header = req.HTTPHeader()

	resp, err := DefaultHTTPClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "transport: POST failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "transport: reading POST response")
	}
	return respBody, nil
}

// encodeQuery renders req.Query (including, once negotiated, the tracking
// UUID) as a URL query string, shared by every HTTP-based transport for
// both GETs and POSTs.
func encodeQuery(req *protocol.Request) string {
	q := url.Values{}
	for _, k := range req.Query.Keys() {
		for _, v := range req.Query.Values(k) {
			q.Add(k, v)
		}
	}
	return q.Encode()
}
