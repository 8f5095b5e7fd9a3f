package transport

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"github.com/r3labs/sse"

	"github.com/momentics/wasync-go/api"
	"github.com/momentics/wasync-go/protocol"
)

// SSE is the server-sent-events transport: each SSE "data:"
// record is one message. Subscription/reconnect is delegated to
// github.com/r3labs/sse rather than hand-parsing the event-stream format.
type SSE struct {
	base

	req    *protocol.Request
	client *sse.Client
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSSE(req *protocol.Request, pipeline *Pipeline) *SSE {
	ctx, cancel := context.WithCancel(context.Background())
	return &SSE{base: newBase(api.TransportSSE, pipeline), req: req, ctx: ctx, cancel: cancel}
}

func (t *SSE) Open() error {
	u, err := url.Parse(t.req.URI)
	if err != nil {
		return errors.Wrap(err, "sse: invalid url")
	}
	u.RawQuery = encodeQuery(t.req)
	c := sse.NewClient(u.String())
	for _, k := range t.req.Headers.Keys() {
		if v := t.req.Headers.Get(k); v != "" {
			c.Headers[k] = v
		}
	}
	t.client = c
	t.closeFn = func() error {
		t.cancel()
		return nil
	}

	go t.subscribeLoop()
	return nil
}

func (t *SSE) subscribeLoop() {
	err := t.client.SubscribeWithContext(t.ctx, "", func(msg *sse.Event) {
		if msg == nil || len(msg.Data) == 0 {
			return
		}
		t.markOpen()
		t.pipeline.Deliver(api.EventMessage, string(msg.Data))
	})
	if err != nil && t.ctx.Err() == nil {
		t.Error(errors.Wrap(err, "sse: subscription failed"))
		return
	}
	if t.ctx.Err() != nil {
		t.close()
		t.pipeline.Deliver(api.EventClose, nil)
	}
}

// SendHTTP implements HTTPSender.
func (t *SSE) SendHTTP(ctx context.Context, req *protocol.Request, payload api.Payload) ([]byte, error) {
	return postMessage(ctx, req, payload)
}

func (t *SSE) Close() error {
	return t.close()
}
