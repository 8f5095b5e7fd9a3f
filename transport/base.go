// Package transport implements the per-wire-transport state machine: one
// file per transport (websocket.go, streaming.go, sse.go, longpolling.go),
// sharing a common base for status, error recording, and idempotent
// close.
package transport

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/momentics/wasync-go/api"
	"github.com/momentics/wasync-go/future"
	"github.com/momentics/wasync-go/internal/dispatch"
)

// Pipeline bundles the shared, mutable decoder chain and function registry
// a Transport carries a non-owning reference to.
type Pipeline struct {
	Decoders  *dispatch.DecoderChain
	Functions *dispatch.Registry
}

// Deliver runs one inbound (event, payload) through the decoder chain and,
// unless aborted, function dispatch. It reports whether a registered
// wrapper actually matched and ran, so a caller delivering api.EventError
// can tell whether a user callback consumed the error.
func (p *Pipeline) Deliver(event api.Event, payload interface{}) bool {
	result, aborted := p.Decoders.Run(event, payload)
	if aborted {
		return false
	}
	return p.Functions.Dispatch(string(event), result)
}

// base is embedded by every transport implementation and supplies the
// common state machine contract: name/status/error/close plus
// the two injected futures. It never owns the network handle — concrete
// transports do — so base itself has no Open()/Send().
type base struct {
	mu           sync.Mutex
	name         api.TransportName
	status       api.Status
	lastErr      error
	errorHandled bool
	closeOnce    sync.Once
	closeFn      func() error

	rootFuture      *future.Future
	connectedFuture *future.Future

	pipeline *Pipeline
	log      *log.Entry
}

func newBase(name api.TransportName, pipeline *Pipeline) base {
	return base{
		name:     name,
		status:   api.StatusInit,
		pipeline: pipeline,
		log:      log.WithField("transport", string(name)),
	}
}

func (b *base) Name() api.TransportName { return b.name }

func (b *base) Status() api.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *base) setStatus(s api.Status) {
	b.mu.Lock()
	b.status = s
	b.mu.Unlock()
}

// SetFuture injects the ultimate-completion future.
func (b *base) SetFuture(f *future.Future) {
	b.mu.Lock()
	b.rootFuture = f
	b.mu.Unlock()
}

// SetConnectedFuture injects the future that unlocks Socket.fire once OPEN
// is reached.
func (b *base) SetConnectedFuture(f *future.Future) {
	b.mu.Lock()
	b.connectedFuture = f
	b.mu.Unlock()
}

// markOpen transitions INIT->OPEN (or REOPENED->OPEN for long-polling
// re-arm) and signals both injected futures the first time it fires.
func (b *base) markOpen() {
	b.mu.Lock()
	first := b.status == api.StatusInit
	b.status = api.StatusOpen
	rf, cf := b.rootFuture, b.connectedFuture
	b.mu.Unlock()
	if first {
		if rf != nil {
			rf.Done(true)
		}
		if cf != nil {
			cf.Done(true)
		}
	}
}

func (b *base) markReopened() {
	b.setStatus(api.StatusReopened)
	b.pipeline.Deliver(api.EventReopen, nil)
}

// Error records a fatal error and transitions to ERROR, then relays to the
// root future unless a user error-function already consumed it.
func (b *base) Error(err error) {
	wrapped := errors.WithMessage(err, "transport error")
	b.mu.Lock()
	b.status = api.StatusError
	b.lastErr = wrapped
	handled := b.errorHandled
	rf, cf := b.rootFuture, b.connectedFuture
	b.mu.Unlock()

	b.log.WithError(err).Error("transport entered error state")
	if b.pipeline.Deliver(api.EventError, wrapped) {
		b.MarkErrorHandled()
		handled = true
	}

	if handled {
		return
	}
	if rf != nil {
		rf.IOException(wrapped)
	}
	if cf != nil {
		cf.IOException(wrapped)
	}
}

// recordPreOpenFailure marks the transport ERROR for a synchronous
// dial/connect failure discovered inside Open, before any read-loop
// goroutine has started. It deliberately does not call Error: Open's
// synchronous failure is reported to the caller via its own return value,
// and during multi-candidate negotiation every candidate is handed the same
// injected futures, so a losing candidate must never be able to touch them.
func (b *base) recordPreOpenFailure(err error) {
	b.mu.Lock()
	b.status = api.StatusError
	b.lastErr = err
	b.mu.Unlock()
	b.log.WithError(err).Warn("transport: synchronous open failed")
}

// OnThrowable is the upcall path the underlying network library invokes on
// unexpected I/O failure; it simply records the error.
func (b *base) OnThrowable(err error) {
	b.Error(err)
}

// ErrorHandled reports whether a user error-function has consumed the
// error. Error calls MarkErrorHandled itself once pipeline delivery
// confirms a wrapper registered under the "error" event actually fired.
func (b *base) ErrorHandled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorHandled
}

// MarkErrorHandled suppresses propagation of the current/next error to the
// root future.
func (b *base) MarkErrorHandled() {
	b.mu.Lock()
	b.errorHandled = true
	b.mu.Unlock()
}

// close runs closeFn exactly once and transitions to CLOSE, regardless of
// how many times it's called.
func (b *base) close() error {
	var err error
	b.closeOnce.Do(func() {
		b.setStatus(api.StatusClose)
		if b.closeFn != nil {
			err = b.closeFn()
		}
	})
	return err
}

func (b *base) lastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}
