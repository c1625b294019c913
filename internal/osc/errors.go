package osc

import "errors"

// Endpoint errors.
var (
	// ErrListenFailed is returned when the local UDP socket cannot be opened.
	ErrListenFailed = errors.New("osc: listen failed")

	// ErrResolveFailed is returned when a destination host/port cannot be resolved.
	ErrResolveFailed = errors.New("osc: resolve failed")

	// ErrSendFailed is returned when an outgoing packet cannot be written.
	ErrSendFailed = errors.New("osc: send failed")

	// ErrClosed is returned when sending on a closed server.
	ErrClosed = errors.New("osc: server closed")
)
