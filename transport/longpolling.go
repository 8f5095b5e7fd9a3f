package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	backoff "gopkg.in/cenkalti/backoff.v1"

	"github.com/momentics/wasync-go/api"
	"github.com/momentics/wasync-go/protocol"
)

// LongPoll is the long-polling transport: each poll is an
// independent GET whose body is one message; on completion status goes
// OPEN -> REOPENED and the poll is re-issued, up to req.MaxRequestCount
// (<=0 means unlimited).
type LongPoll struct {
	base

	req    *protocol.Request
	ctx    context.Context
	cancel context.CancelFunc
}

func NewLongPoll(req *protocol.Request, pipeline *Pipeline) *LongPoll {
	ctx, cancel := context.WithCancel(context.Background())
	return &LongPoll{base: newBase(api.TransportLongPoll, pipeline), req: req, ctx: ctx, cancel: cancel}
}

func (t *LongPoll) Open() error {
	t.closeFn = func() error {
		t.cancel()
		return nil
	}
	go t.pollLoop()
	return nil
}

func (t *LongPoll) pollLoop() {
	count := 0
	for {
		if t.ctx.Err() != nil {
			return
		}
		if t.req.MaxRequestCount > 0 && count >= t.req.MaxRequestCount {
			t.log.Debug("long-polling: maximum request count reached, stopping re-arm")
			t.Error(errors.WithStack(api.ErrMaxRequestReached))
			return
		}
		if count > 0 {
			t.markOpen() // re-issue: REOPENED -> OPEN
		}

		body, err := t.pollOnceWithBackoff()
		if err != nil {
			if t.ctx.Err() != nil {
				return
			}
			t.Error(errors.Wrap(err, "long-polling: poll failed"))
			return
		}
		count++

		t.markOpen()
		t.pipeline.Deliver(api.EventMessage, string(body))
		t.markReopened()
	}
}

// pollOnceWithBackoff retries transient failures (dial/connect errors) a
// bounded number of times before giving up on the current poll. This is
// internal plumbing, not a user-configurable backoff policy.
func (t *LongPoll) pollOnceWithBackoff() ([]byte, error) {
	var result []byte
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 5 * time.Second
	policy.InitialInterval = 50 * time.Millisecond

	op := func() error {
		b, err := t.doPoll()
		if err != nil {
			return err
		}
		result = b
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return result, nil
}

func (t *LongPoll) doPoll() ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(t.ctx, http.MethodGet, t.req.URI, nil)
	if err != nil {
		return nil, errors.Wrap(err, "long-polling: building GET request")
	}
	httpReq.Header = t.req.HTTPHeader()
	httpReq.URL.RawQuery = encodeQuery(t.req)

	resp, err := DefaultHTTPClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "long-polling: GET failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "long-polling: reading response body")
	}
	return body, nil
}

// SendHTTP implements HTTPSender.
func (t *LongPoll) SendHTTP(ctx context.Context, req *protocol.Request, payload api.Payload) ([]byte, error) {
	return postMessage(ctx, req, payload)
}

func (t *LongPoll) Close() error {
	return t.close()
}
