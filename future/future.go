// Package future implements the connection-gate latch: a one-shot
// synchronization primitive that unblocks Socket.open/Socket.fire callers
// either with a result or with a fatal I/O error.
//
// It lives in its own package (rather than client or transport) because both
// depend on it: transport implementations signal it on connect/error,
// Socket constructs and owns it. Putting the type here avoids a client<->
// transport import cycle.
package future

import (
	"sync"

	"github.com/pkg/errors"
)

// state is kept internal; callers observe termination only through Get,
// IsDone and FinishOrThrowException.
type state int

const (
	pending state = iota
	doneState
	errorState
)

// FireFunc is the Socket-supplied callback Future.Fire forwards to — "Fire
// on the future is a convenience forwarding to the owning Socket".
type FireFunc func(msg interface{}) (interface{}, error)

// CloseFunc is the Socket-supplied callback Future.Close forwards to.
type CloseFunc func() error

// Future is the connection-gate latch. At most one of Done/IOException is
// ever observable; repeated calls are no-ops.
type Future struct {
	mu      sync.Mutex
	cond    *sync.Cond
	st      state
	result  interface{}
	err     error
	fire    FireFunc
	closeFn CloseFunc
}

// New creates a pending Future. fire/closeFn may be nil until the owning
// Socket wires them up via Bind, since the Future is constructed before
// the Socket that will own it — one per Socket.Open call.
func New() *Future {
	f := &Future{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Bind attaches the owning Socket's fire/close forwarding funcs.
func (f *Future) Bind(fire FireFunc, closeFn CloseFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fire = fire
	f.closeFn = closeFn
}

// Done unblocks any waiter with a successful result. A no-op if
// the future is already terminal.
func (f *Future) Done(result interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.st != pending {
		return
	}
	f.st = doneState
	f.result = result
	f.cond.Broadcast()
}

// IOException unblocks any waiter with a fatal error. A
// no-op if the future is already terminal. InterruptedIOException-style
// cancellation is just any error passed here while open() is
// still blocked in Get.
func (f *Future) IOException(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.st != pending {
		return
	}
	f.st = errorState
	f.err = errors.WithStack(err)
	f.cond.Broadcast()
}

// TimeoutException records an HTTP write timeout on the root future.
// Kept as a distinct name from IOException for callers that care about
// the distinction; same terminal-state machinery underneath.
func (f *Future) TimeoutException(err error) {
	f.IOException(errors.Wrap(err, "request timeout"))
}

// Get blocks until Done or IOException, then behaves as documented: once
// done, subsequent Get calls return the cached result immediately; once
// erred, subsequent Get calls return the cached error immediately.
func (f *Future) Get() (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.st == pending {
		f.cond.Wait()
	}
	if f.st == errorState {
		return nil, f.err
	}
	return f.result, nil
}

// FinishOrThrowException reports completion of a write without blocking and
// without distinguishing transports: it surfaces any already-recorded
// terminal error, otherwise returns the future unchanged. Socket.write
// calls it after the send (and, on HTTP transports, after the response has
// been delivered or a timeout recorded via TimeoutException).
func (f *Future) FinishOrThrowException() (*Future, error) {
	f.mu.Lock()
	st, err := f.st, f.err
	f.mu.Unlock()
	if st == errorState {
		return nil, err
	}
	return f, nil
}

// Fire forwards to the Socket-supplied FireFunc.
func (f *Future) Fire(msg interface{}) (interface{}, error) {
	f.mu.Lock()
	fn := f.fire
	f.mu.Unlock()
	if fn == nil {
		return nil, errors.New("future: fire called before bind")
	}
	return fn(msg)
}

// Close forwards to the Socket-supplied CloseFunc.
func (f *Future) Close() error {
	f.mu.Lock()
	fn := f.closeFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn()
}

// IsDone reports whether the future reached a terminal state, without
// blocking.
func (f *Future) IsDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st != pending
}
