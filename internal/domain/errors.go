package domain

import "errors"

// Domain errors represent error conditions in the relink domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("relink: invalid configuration")

	// ErrSessionClosed is returned by Send after Close has been called.
	ErrSessionClosed = errors.New("relink: session closed")

	// ErrOutboxFull is reported when a bounded outbound queue rejects a message.
	ErrOutboxFull = errors.New("relink: outbound queue full")

	// ErrInvalidTransition is returned when a state change is not allowed
	// from the current state.
	ErrInvalidTransition = errors.New("relink: invalid state transition")

	// ErrHeartbeatTimeout is the reason recorded when no bytes arrive
	// within the timeout period.
	ErrHeartbeatTimeout = errors.New("relink: heartbeat timeout")

	// ErrProtocol wraps frame decode failures on an inbound stream.
	ErrProtocol = errors.New("relink: protocol error")

	// ErrTransportClosed is reported when the peer closes the stream.
	ErrTransportClosed = errors.New("relink: transport closed")
)
