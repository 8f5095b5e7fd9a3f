// Package fake provides controllable test doubles for the transport and
// protocol packages, letting Socket/dispatch unit tests run without a real
// network connection.
package fake

import (
	"context"
	"sync"

	"github.com/momentics/wasync-go/api"
	"github.com/momentics/wasync-go/future"
	"github.com/momentics/wasync-go/protocol"
)

// Transport is a fully in-memory api.Transport/transport.Transport double.
// Tests drive it by calling Deliver to simulate inbound frames and inspect
// SentText/SentBinary to assert on writes.
type Transport struct {
	mu sync.Mutex

	name   api.TransportName
	status api.Status

	sentText   []string
	sentBinary [][]byte

	openErr error
	sendErr error

	errorHandled bool
	closed       bool

	rootFuture      *future.Future
	connectedFuture *future.Future

	Pipeline interface {
		Deliver(event api.Event, payload interface{}) bool
	}
}

// NewTransport creates a fake transport reporting name.
func NewTransport(name api.TransportName) *Transport {
	return &Transport{name: name, status: api.StatusInit}
}

func (t *Transport) Name() api.TransportName { return t.name }

func (t *Transport) Status() api.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// SetOpenError configures Open to fail with err.
func (t *Transport) SetOpenError(err error) { t.openErr = err }

// SetSendError configures SendText/SendBinary/SendHTTP to fail with err.
func (t *Transport) SetSendError(err error) { t.sendErr = err }

func (t *Transport) Open() error {
	if t.openErr != nil {
		return t.openErr
	}
	t.mu.Lock()
	t.status = api.StatusOpen
	t.mu.Unlock()
	if t.rootFuture != nil {
		t.rootFuture.Done(true)
	}
	if t.connectedFuture != nil {
		t.connectedFuture.Done(true)
	}
	return nil
}

func (t *Transport) SetFuture(f *future.Future)          { t.rootFuture = f }
func (t *Transport) SetConnectedFuture(f *future.Future) { t.connectedFuture = f }

func (t *Transport) Error(err error) {
	t.mu.Lock()
	t.status = api.StatusError
	handled := t.errorHandled
	rf, cf := t.rootFuture, t.connectedFuture
	t.mu.Unlock()
	if handled {
		return
	}
	if rf != nil {
		rf.IOException(err)
	}
	if cf != nil {
		cf.IOException(err)
	}
}

func (t *Transport) OnThrowable(err error) { t.Error(err) }

func (t *Transport) ErrorHandled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errorHandled
}

func (t *Transport) MarkErrorHandled() {
	t.mu.Lock()
	t.errorHandled = true
	t.mu.Unlock()
}

func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.status = api.StatusClose
	t.mu.Unlock()
	return nil
}

// SendText implements transport.WebSocketSender.
func (t *Transport) SendText(s string) error {
	if t.sendErr != nil {
		return t.sendErr
	}
	t.mu.Lock()
	t.sentText = append(t.sentText, s)
	t.mu.Unlock()
	return nil
}

// SendBinary implements transport.WebSocketSender.
func (t *Transport) SendBinary(b []byte) error {
	if t.sendErr != nil {
		return t.sendErr
	}
	t.mu.Lock()
	t.sentBinary = append(t.sentBinary, append([]byte(nil), b...))
	t.mu.Unlock()
	return nil
}

// SendHTTP implements transport.HTTPSender, recording the outbound payload
// as if it were a text write and returning an empty body (no synthetic
// MESSAGE event).
func (t *Transport) SendHTTP(ctx context.Context, req *protocol.Request, payload api.Payload) ([]byte, error) {
	if t.sendErr != nil {
		return nil, t.sendErr
	}
	t.mu.Lock()
	switch payload.Kind {
	case api.KindText, api.KindCharStream:
		t.sentText = append(t.sentText, payload.Text)
	default:
		t.sentBinary = append(t.sentBinary, append([]byte(nil), payload.Bytes...))
	}
	t.mu.Unlock()
	return nil, nil
}

// SentText returns a copy of every string sent so far.
func (t *Transport) SentText() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sentText...)
}

// SentBinary returns a copy of every binary payload sent so far.
func (t *Transport) SentBinary() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.sentBinary...)
}

// Deliver simulates an inbound frame arriving on this transport.
func (t *Transport) Deliver(event api.Event, payload interface{}) {
	if t.Pipeline != nil {
		t.Pipeline.Deliver(event, payload)
	}
}
