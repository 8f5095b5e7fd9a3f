// Package facade provides the library's public entry point: a thin
// constructor (Client) over client.Socket, letting applications create
// any number of sockets from one configured Client without touching the
// transport-negotiation internals directly.
package facade

import (
	log "github.com/sirupsen/logrus"

	"github.com/momentics/wasync-go/client"
	"github.com/momentics/wasync-go/protocol"
)

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithLogLevel sets the package-wide logrus level used by every component
// the Client creates sockets for.
func WithLogLevel(level log.Level) ClientOption {
	return func(c *Client) {
		log.SetLevel(level)
	}
}

// Client is the library's root object: applications create one Client and
// open any number of Sockets from it.
type Client struct{}

// NewClient constructs a Client, applying opts in order.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create opens a new Socket against req, negotiating a transport from
// req.Transports in order and blocking until it connects or fails.
func (c *Client) Create(req *protocol.Request) (*client.Socket, error) {
	return client.Open(req)
}
