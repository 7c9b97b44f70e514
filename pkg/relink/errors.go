package relink

import (
	"github.com/bft-labs/relink/internal/domain"
	"github.com/bft-labs/relink/pkg/frame"
)

// Errors returned by the session or reported through OnException.
// Check them with errors.Is.
var (
	ErrInvalidConfig    = domain.ErrInvalidConfig
	ErrSessionClosed    = domain.ErrSessionClosed
	ErrOutboxFull       = domain.ErrOutboxFull
	ErrHeartbeatTimeout = domain.ErrHeartbeatTimeout
	ErrProtocol         = domain.ErrProtocol
	ErrTransportClosed  = domain.ErrTransportClosed
	ErrPayloadTooLarge  = frame.ErrPayloadTooLarge
	ErrUnknownKind      = frame.ErrUnknownKind
)
