// Package api holds the shared types, interfaces and sentinel errors used
// across protocol, transport, and client.
// Author: momentics <momentics@gmail.com>
package api

import "github.com/pkg/errors"

// Sentinel errors used across the library. Transport and handshake failures
// wrap one of these with github.com/pkg/errors so the cause survives the
// read-loop to root-future boundary.
var (
	ErrTransportClosed   = errors.New("transport is closed")
	ErrInvalidStatus     = errors.New("invalid socket status")
	ErrNoEncoder         = errors.New("no encoder for data")
	ErrHandshakeParse    = errors.New("handshake parse failure")
	ErrBuilderReused     = errors.New("request builder already built")
	ErrMaxRequestReached = errors.New("maximum request count reached")
	ErrUnknownTransport  = errors.New("unknown transport")
)
