// Package testserver implements a minimal reference Atmosphere-protocol
// server used only by integration tests: it accepts all four wire
// transports, emits the in-band handshake frame first, optionally injects
// a padding/heartbeat run, and echoes POSTed write bodies back as the
// next inbound message. It is not part of the public library surface.
package testserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Config holds the handful of knobs the test suite needs to control per
// scenario.
type Config struct {
	ListenAddr         string
	Delimiter          string
	HeartbeatChar      byte
	PaddingSize        int
	EmitPadding        bool
	TrackMessageLength bool

	// RejectWebSocket makes the websocket upgrade endpoint fail the
	// handshake instead of upgrading, so a client negotiating a
	// websocket-first transport list is forced to fall back to its next
	// candidate.
	RejectWebSocket bool
}

// DefaultConfig mirrors the client library's own protocol defaults
// (protocol.NewRequestBuilder) so a test server and a default-configured
// client interoperate without extra wiring.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:    "127.0.0.1:0",
		Delimiter:     "|",
		HeartbeatChar: 'X',
		PaddingSize:   4098,
	}
}

// Server is the reference Atmosphere endpoint.
type Server struct {
	cfg *Config

	upgrader websocket.Upgrader
	httpSrv  *http.Server
	listener net.Listener

	mu      sync.Mutex
	started bool
}

// New constructs a Server; it does not listen until Start.
func New(cfg *Config) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Server{cfg: cfg, upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	s.httpSrv = &http.Server{Handler: mux}
	return s
}

// Start binds the listener and serves in the background. URL() returns the
// bound address once Start has returned successfully.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("testserver: listen failed: %w", err)
	}
	s.listener = ln
	s.started = true
	go s.httpSrv.Serve(ln)
	return nil
}

// URL returns the server's base http:// URL.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return "http://" + s.listener.Addr().String()
}

// Shutdown stops accepting connections and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.handlePost(w, r)
		return
	}
	transportName := r.URL.Query().Get("X-Atmosphere-Transport")
	switch transportName {
	case "websocket":
		s.serveWebSocket(w, r)
	case "sse":
		s.serveSSE(w, r)
	case "long-polling":
		s.serveLongPoll(w, r)
	default:
		s.serveStreaming(w, r)
	}
}

func (s *Server) handshakeFrame() string {
	id := uuid.NewString()
	if s.cfg.EmitPadding {
		pad := strings.Repeat(string(s.cfg.HeartbeatChar), s.cfg.PaddingSize)
		return pad + id + s.cfg.Delimiter + string(s.cfg.HeartbeatChar)
	}
	return id + s.cfg.Delimiter + string(s.cfg.HeartbeatChar)
}

func (s *Server) frameOut(payload string) []byte {
	if s.cfg.TrackMessageLength {
		return []byte(fmt.Sprintf("%d%s%s", len(payload), s.cfg.Delimiter, payload))
	}
	return []byte(payload)
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.cfg.RejectWebSocket {
		http.Error(w, "websocket upgrade disabled", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, s.frameOut(s.handshakeFrame())); err != nil {
		return
	}
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		echo := s.frameOut("echo:" + string(data))
		if err := conn.WriteMessage(msgType, echo); err != nil {
			return
		}
	}
}

func (s *Server) serveStreaming(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(s.frameOut(s.handshakeFrame()))
	flusher.Flush()

	<-r.Context().Done()
}

func (s *Server) serveSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "sse unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	fmt.Fprintf(w, "data: %s\n\n", s.frameOut(s.handshakeFrame()))
	flusher.Flush()

	<-r.Context().Done()
}

func (s *Server) serveLongPoll(w http.ResponseWriter, r *http.Request) {
	trackingID := r.URL.Query().Get("X-Atmosphere-tracking-id")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if trackingID == "0" || trackingID == "" {
		w.Write(s.frameOut(s.handshakeFrame()))
		return
	}
	select {
	case <-time.After(20 * time.Millisecond):
		w.Write(s.frameOut("poll-tick"))
	case <-r.Context().Done():
	}
}

// handlePost is wired into the POST side of every HTTP-based transport: it
// echoes the request body back in the response.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, r.Body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Write([]byte("echo:" + buf.String()))
}
