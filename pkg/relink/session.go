package relink

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bft-labs/relink/internal/adapters/clock"
	"github.com/bft-labs/relink/internal/adapters/netconn"
	"github.com/bft-labs/relink/internal/adapters/websocket"
	"github.com/bft-labs/relink/internal/app"
	"github.com/bft-labs/relink/internal/mailbox"
	"github.com/bft-labs/relink/internal/ports"
)

// Session is a self-healing connection to one peer.
// Use New() to create one; it starts connecting immediately.
// All methods are safe for concurrent use.
type Session struct {
	config  Config
	logger  ports.Logger
	machine *app.Machine
	inbox   *mailbox.Mailbox[func()]
	plugins []Plugin

	stopTicks func()
	cancel    context.CancelFunc
	closed    atomic.Bool
	done      chan struct{}

	shutdownOnce sync.Once
}

// New validates cfg, creates a session and starts connecting in the
// background. The session ends when Close is called or ctx is cancelled.
// Returns an error wrapping ErrInvalidConfig if configuration is invalid.
func New(ctx context.Context, cfg Config, opts ...Option) (*Session, error) {
	// Set defaults
	cfg.SetDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Validate module version compatibility
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	// Apply options
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.reconnectMaxDelay != 0 && o.reconnectMaxDelay < cfg.ReconnectDelay {
		return nil, invalid("reconnect backoff max %s is below reconnect delay %s", o.reconnectMaxDelay, cfg.ReconnectDelay)
	}

	logger := o.logger
	if logger == nil {
		logger = defaultOptions().logger
	}

	dialer := o.dialer
	if dialer == nil {
		dialer = newDialer(cfg, logger)
	}
	clk := o.clock
	if clk == nil {
		clk = clock.New()
	}

	s := &Session{
		config:  cfg,
		logger:  logger,
		inbox:   mailbox.New[func()](),
		plugins: o.plugins,
		done:    make(chan struct{}),
	}

	emitter := &eventEmitter{handlers: o.handlers, logger: logger}
	s.machine = app.NewMachine(app.MachineConfig{
		Host:              cfg.Host,
		Port:              cfg.Port,
		HeartbeatTicks:    cfg.HeartbeatTicks,
		TimeoutTicks:      cfg.TimeoutTicks,
		ReconnectDelay:    cfg.ReconnectDelay,
		ReconnectMaxDelay: o.reconnectMaxDelay,
		MaxPending:        cfg.MaxPending,
		Limits:            cfg.limits(),
	}, dialer, clk, emitter, logger, s.dispatch)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	// Initialize plugins
	pluginCfg := PluginConfig{
		Host:           cfg.Host,
		Port:           cfg.Port,
		HeartbeatTicks: cfg.HeartbeatTicks,
		TimeoutTicks:   cfg.TimeoutTicks,
		Logger:         logger,
		Controller:     s,
	}
	for i, p := range s.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			s.shutdownPlugins(s.plugins[:i])
			return nil, fmt.Errorf("initialize plugin %s: %w", p.Name(), err)
		}
		logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	logger.Info("session starting",
		ports.String("host", cfg.Host),
		ports.Int("port", cfg.Port),
		ports.String("transport", string(cfg.Transport)),
		ports.Int("heartbeat_ticks", cfg.HeartbeatTicks),
		ports.Int("timeout_ticks", cfg.TimeoutTicks),
		ports.Duration("tick_interval", cfg.TickInterval),
	)

	s.post(s.machine.Start)
	s.stopTicks = clk.Every(cfg.TickInterval, func() { s.post(s.machine.Tick) })
	go s.run(runCtx)

	return s, nil
}

// Send queues a DATA message with the given correlation id. It returns
// ErrSessionClosed after Close and an error wrapping ErrPayloadTooLarge
// when payload exceeds Config.MaxPayloadBytes. Delivery failures are never
// returned; a full bounded queue is reported through OnException.
// The payload is copied.
func (s *Session) Send(id uuid.UUID, payload []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if len(payload) > s.config.MaxPayloadBytes {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), s.config.MaxPayloadBytes)
	}

	b := make([]byte, len(payload))
	copy(b, payload)
	if !s.post(func() { _ = s.machine.Send(id, b) }) {
		return ErrSessionClosed
	}
	return nil
}

// SetPeriods replaces the heartbeat and timeout periods, in ticks.
// The new values apply from the next tick.
func (s *Session) SetPeriods(heartbeatTicks, timeoutTicks int) error {
	if heartbeatTicks <= 0 || timeoutTicks <= 0 {
		return invalid("heartbeat and timeout ticks must be positive")
	}
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.post(func() { _ = s.machine.SetPeriods(heartbeatTicks, timeoutTicks) })
	return nil
}

// Close ends the session: the transport is released, queued messages are
// discarded and no reconnect happens again. A closed event is emitted if
// the session was not already disconnected. Close does not wait; use Done
// for that. Idempotent, and safe to call from an event handler.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	// Anything posted before Close still runs first.
	if !s.post(s.cancel) {
		s.cancel()
	}
}

// Done is closed once the session has shut down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns the current connection state.
// Safe to call concurrently from any goroutine.
func (s *Session) State() State {
	return convertState(s.machine.State())
}

// Config returns the effective configuration.
func (s *Session) Config() Config {
	return s.config
}

// post hands fn to the session goroutine. It reports false once the
// session has shut down.
func (s *Session) post(fn func()) bool {
	return s.inbox.Put(fn)
}

// dispatch is post for callers that cannot act on a refusal: transport
// and timer callbacks arriving after shutdown are dropped.
func (s *Session) dispatch(fn func()) {
	s.post(fn)
}

// run is the session goroutine. It alone touches the machine.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-s.inbox.Ready():
			for _, fn := range s.inbox.Drain() {
				if ctx.Err() != nil {
					break
				}
				fn()
			}
		case <-ctx.Done():
			s.shutdown()
			return
		}
	}
}

// shutdown discards whatever is still posted, closes the machine and
// releases the plugins.
func (s *Session) shutdown() {
	s.shutdownOnce.Do(func() {
		s.closed.Store(true)
		s.stopTicks()
		s.inbox.Close()

		s.machine.Close()
		s.shutdownPlugins(s.plugins)
		s.logger.Info("session closed")
	})
}

// shutdownPlugins shuts plugins down in reverse order.
func (s *Session) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			s.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			s.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

func newDialer(cfg Config, logger ports.Logger) ports.Dialer {
	if cfg.Transport == TransportWebSocket {
		return websocket.NewDialer(logger, cfg.WebSocketPath, cfg.DialTimeout)
	}
	return netconn.NewDialer(logger, cfg.DialTimeout)
}

// NewCorrelationID returns a fresh random correlation identifier.
func NewCorrelationID() uuid.UUID {
	return uuid.New()
}

var _ Controller = (*Session)(nil)
