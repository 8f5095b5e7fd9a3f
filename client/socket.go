// Package client implements the Socket runtime: the
// uniform message-oriented abstraction applications program against,
// regardless of which of the four transports got negotiated.
package client

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/momentics/wasync-go/api"
	"github.com/momentics/wasync-go/future"
	"github.com/momentics/wasync-go/internal/dispatch"
	"github.com/momentics/wasync-go/protocol"
	"github.com/momentics/wasync-go/transport"
)

// Socket is the public, transport-agnostic connection handle.
type Socket struct {
	mu  sync.Mutex
	req *protocol.Request
	tr  transport.Transport

	rootFuture      *future.Future
	connectedFuture *future.Future

	decoders  *dispatch.DecoderChain
	functions *dispatch.Registry
	pipeline  *transport.Pipeline

	closeOnce sync.Once
}

// Open negotiates a transport from req.Transports (in order) and blocks
// until it reaches OPEN or records a fatal error.
func Open(req *protocol.Request) (*Socket, error) {
	s := &Socket{
		req:             req,
		rootFuture:      future.New(),
		connectedFuture: future.New(),
		decoders:        dispatch.NewDecoderChain(req.Decoders),
		functions:       dispatch.NewRegistry(req.Resolver),
	}
	s.pipeline = &transport.Pipeline{Decoders: s.decoders, Functions: s.functions}
	s.rootFuture.Bind(s.fire, s.Close)

	if len(req.Transports) == 0 {
		return nil, errors.New("client: request has no enabled transports")
	}

	var lastErr error
	for _, name := range req.Transports {
		tr, err := transport.New(name, req, s.pipeline)
		if err != nil {
			lastErr = err
			continue
		}
		tr.SetFuture(s.rootFuture)
		tr.SetConnectedFuture(s.connectedFuture)

		if err := tr.Open(); err != nil {
			log.WithField("transport", string(name)).WithError(err).Warn("client: transport open failed, trying next candidate")
			lastErr = err
			continue
		}
		s.mu.Lock()
		s.tr = tr
		s.mu.Unlock()
		lastErr = nil
		break
	}

	if s.currentTransport() == nil {
		err := errors.Wrap(lastErr, "client: no transport could be opened")
		s.rootFuture.IOException(err)
		return nil, err
	}

	if _, err := s.rootFuture.Get(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Socket) currentTransport() transport.Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tr
}

// Status reports the Socket's current lifecycle state,
// mirroring the active transport's status; INIT before a transport exists.
func (s *Socket) Status() api.Status {
	tr := s.currentTransport()
	if tr == nil {
		return api.StatusInit
	}
	return tr.Status()
}

// On registers a function wrapper under matchKey. An empty matchKey is the wildcard form ("on(fn)") that fires for
// every dispatched message.
func (s *Socket) On(matchKey string, fn interface{}) error {
	return s.functions.On(matchKey, fn)
}

// Fire sends data, blocking until the socket is connected if it isn't yet.
// It is the public entry point; fire is also reachable via
// rootFuture.Fire, since Fire on the future is a convenience forwarding
// to the owning Socket.
func (s *Socket) Fire(data interface{}) (*future.Future, error) {
	result, err := s.fire(data)
	if err != nil {
		return nil, err
	}
	f, _ := result.(*future.Future)
	return f, nil
}

func (s *Socket) fire(data interface{}) (interface{}, error) {
	s.connectedFuture.Get() // blocks until OPEN or a fatal error recorded
	return s.write(s.req, data)
}

// Close idempotently tears down the active transport and signals both
// futures.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		tr := s.currentTransport()
		if tr != nil {
			err = tr.Close()
		}
		s.rootFuture.IOException(errors.New("client: socket closed"))
		s.connectedFuture.IOException(errors.New("client: socket closed"))
	})
	return err
}
