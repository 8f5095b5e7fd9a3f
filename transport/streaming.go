package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/momentics/wasync-go/api"
	"github.com/momentics/wasync-go/protocol"
)

// Streaming is the HTTP streaming transport: a single
// long-lived response whose chunked body delivers one message per chunk.
// Writes are independent HTTP POSTs, shared with SSE/long-polling via
// postMessage (transport/httpwrite.go).
type Streaming struct {
	base

	req    *protocol.Request
	ctx    context.Context
	cancel context.CancelFunc
}

func NewStreaming(req *protocol.Request, pipeline *Pipeline) *Streaming {
	ctx, cancel := context.WithCancel(context.Background())
	return &Streaming{base: newBase(api.TransportStreaming, pipeline), req: req, ctx: ctx, cancel: cancel}
}

func (t *Streaming) Open() error {
	httpReq, err := http.NewRequestWithContext(t.ctx, http.MethodGet, t.req.URI, nil)
	if err != nil {
		return errors.Wrap(err, "streaming: building GET request")
	}
	httpReq.Header = t.req.HTTPHeader()
	httpReq.URL.RawQuery = encodeQuery(t.req)

	resp, err := DefaultHTTPClient.Do(httpReq)
	if err != nil {
		werr := errors.Wrap(err, "streaming: GET failed")
		t.recordPreOpenFailure(werr)
		return werr
	}

	t.closeFn = func() error {
		t.cancel()
		return resp.Body.Close()
	}
	go t.readLoop(resp.Body)
	return nil
}

func (t *Streaming) readLoop(body io.Reader) {
	buf := make([]byte, 64*1024)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			t.markOpen()
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			t.pipeline.Deliver(api.EventMessage, string(chunk))
		}
		if err != nil {
			t.close()
			t.pipeline.Deliver(api.EventClose, nil)
			return
		}
	}
}

// SendHTTP implements HTTPSender.
func (t *Streaming) SendHTTP(ctx context.Context, req *protocol.Request, payload api.Payload) ([]byte, error) {
	return postMessage(ctx, req, payload)
}

func (t *Streaming) Close() error {
	return t.close()
}
