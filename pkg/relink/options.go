package relink

import (
	"time"

	"github.com/bft-labs/relink/internal/ports"
	"github.com/bft-labs/relink/pkg/log"
)

// Logger is the interface for structured logging.
type Logger = log.Logger

// LogField represents a structured log field.
type LogField = log.Field

// Dialer opens transports. Supply one with WithDialer to run a session
// over a custom byte stream.
type Dialer = ports.Dialer

// Transport is an opaque duplex byte channel returned by a Dialer.
type Transport = ports.Transport

// TransportHandler receives transport notifications.
type TransportHandler = ports.TransportHandler

// Clock schedules the tick and reconnect callbacks.
type Clock = ports.Clock

// Option configures optional behavior of a Session.
type Option func(*options)

// options holds the optional configuration for a Session.
type options struct {
	logger            Logger
	handlers          []EventHandler
	dialer            Dialer
	clock             Clock
	plugins           []Plugin
	reconnectMaxDelay time.Duration
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler registers a handler for session events. It may be
// given more than once; handlers are called in registration order.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.handlers = append(o.handlers, handler)
	}
}

// WithDialer replaces the transport selected by Config.Transport.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithClock replaces the wall clock driving ticks and reconnects.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithPlugin registers a plugin to be initialized when the session starts.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithReconnectBackoff makes the reconnect delay double after every
// consecutive failure, with ±20% jitter, up to max. A successful connection
// resets it to Config.ReconnectDelay. Without this option the delay is fixed.
func WithReconnectBackoff(max time.Duration) Option {
	return func(o *options) {
		o.reconnectMaxDelay = max
	}
}
