package relink

import (
	"fmt"
	"time"

	"github.com/bft-labs/relink/internal/app"
	"github.com/bft-labs/relink/pkg/frame"
)

// TransportKind selects the byte stream a session runs over.
type TransportKind string

const (
	TransportTCP       TransportKind = "tcp"
	TransportWebSocket TransportKind = "websocket"
)

// Default configuration values.
const (
	DefaultHost            = "localhost"
	DefaultHeartbeatTicks  = app.DefaultHeartbeatTicks
	DefaultTimeoutTicks    = app.DefaultTimeoutTicks
	DefaultTickInterval    = time.Second
	DefaultReconnectDelay  = app.DefaultReconnectDelay
	DefaultMaxPayloadBytes = 8 << 20
	DefaultDialTimeout     = 10 * time.Second
	DefaultWebSocketPath   = "/"
)

// Config configures a Session.
type Config struct {
	// Host and Port of the peer. Port is required.
	Host string
	Port int

	// HeartbeatTicks is the number of ticks between heartbeats.
	// Default: 20
	HeartbeatTicks int

	// TimeoutTicks is the number of ticks without inbound bytes after
	// which the connection is dropped.
	// Default: 30
	TimeoutTicks int

	// TickInterval is the length of one tick.
	// Default: 1 second
	TickInterval time.Duration

	// ReconnectDelay is the pause before redialing a lost connection.
	// Default: 200 milliseconds
	ReconnectDelay time.Duration

	// MaxPending bounds the queue of messages sent while disconnected.
	// Zero means unbounded.
	MaxPending int

	// MaxPayloadBytes is the largest DATA payload accepted in either
	// direction. Default: 8 MiB
	MaxPayloadBytes int

	// Transport selects TCP or WebSocket. Default: TCP
	Transport TransportKind

	// WebSocketPath is the request path used with TransportWebSocket.
	// Default: "/"
	WebSocketPath string

	// DialTimeout bounds a single connection attempt.
	// Default: 10 seconds
	DialTimeout time.Duration
}

// SetDefaults fills zero fields with default values.
func (c *Config) SetDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.HeartbeatTicks == 0 {
		c.HeartbeatTicks = DefaultHeartbeatTicks
	}
	if c.TimeoutTicks == 0 {
		c.TimeoutTicks = DefaultTimeoutTicks
	}
	if c.TickInterval == 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.MaxPayloadBytes == 0 {
		c.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if c.Transport == "" {
		c.Transport = TransportTCP
	}
	if c.WebSocketPath == "" {
		c.WebSocketPath = DefaultWebSocketPath
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
}

// Validate reports the first invalid field. The error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Port < 1 || c.Port > 65535:
		return invalid("port must be in 1..65535, got %d", c.Port)
	case c.HeartbeatTicks <= 0:
		return invalid("heartbeat ticks must be positive")
	case c.TimeoutTicks <= 0:
		return invalid("timeout ticks must be positive")
	case c.TickInterval <= 0:
		return invalid("tick interval must be positive")
	case c.ReconnectDelay <= 0:
		return invalid("reconnect delay must be positive")
	case c.MaxPending < 0:
		return invalid("max pending must not be negative")
	case c.MaxPayloadBytes <= 0 || uint64(c.MaxPayloadBytes) > uint64(^uint32(0)):
		return invalid("max payload bytes must be in 1..%d", uint64(^uint32(0)))
	case c.DialTimeout <= 0:
		return invalid("dial timeout must be positive")
	}

	switch c.Transport {
	case TransportTCP, TransportWebSocket:
	default:
		return invalid("unknown transport %q", c.Transport)
	}
	return nil
}

func (c *Config) limits() frame.Limits {
	return frame.Limits{MaxPayloadBytes: uint32(c.MaxPayloadBytes)}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
