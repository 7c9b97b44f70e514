package app

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/relink/internal/domain"
	"github.com/bft-labs/relink/internal/ports"
	"github.com/bft-labs/relink/pkg/frame"
)

// Default tick periods.
const (
	DefaultHeartbeatTicks = 20
	DefaultTimeoutTicks   = 30
)

// Observer receives session events. Every call is made on the session
// flow, one at a time.
type Observer interface {
	Connected()
	Closed()
	Data(id uuid.UUID, payload []byte)
	Exception(err error)
}

// MachineConfig contains configuration for the connection state machine.
type MachineConfig struct {
	Host string
	Port int

	HeartbeatTicks int
	TimeoutTicks   int

	// ReconnectDelay is the pause between losing a connection and dialing
	// again. When ReconnectMaxDelay is larger, the pause doubles on every
	// consecutive failure up to that bound.
	ReconnectDelay    time.Duration
	ReconnectMaxDelay time.Duration

	// MaxPending bounds the outbox; zero means unbounded.
	MaxPending int

	Limits frame.Limits
}

// Machine owns one logical session: the transport lifecycle, heartbeat
// and liveness accounting, the outbox and the inbound reassembler.
//
// Machine is not safe for concurrent use. All methods, and every callback
// it hands to the dialer and clock, must run on one serialized flow; the
// dispatch function passed to NewMachine is how transport and timer
// callbacks get onto that flow.
type Machine struct {
	cfg      MachineConfig
	dialer   ports.Dialer
	clock    ports.Clock
	observer Observer
	logger   ports.Logger
	dispatch func(func())

	lifecycle *Lifecycle
	outbox    *Outbox
	inbound   *Reassembler
	backoff   *backoff

	transport ports.Transport
	gen       uint64

	now           int64
	lastHeartbeat int64
	lastActivity  int64

	stopReconnect func()
	userClosed    bool
}

// NewMachine creates a machine in StateDisconnected. Call Start to dial.
// If observer also implements EventEmitter it is told about every state
// change.
func NewMachine(
	cfg MachineConfig,
	dialer ports.Dialer,
	clock ports.Clock,
	observer Observer,
	logger ports.Logger,
	dispatch func(func()),
) *Machine {
	if cfg.HeartbeatTicks <= 0 {
		cfg.HeartbeatTicks = DefaultHeartbeatTicks
	}
	if cfg.TimeoutTicks <= 0 {
		cfg.TimeoutTicks = DefaultTimeoutTicks
	}
	if cfg.Limits.MaxPayloadBytes == 0 {
		cfg.Limits = frame.DefaultLimits()
	}

	emitter, _ := observer.(EventEmitter)

	return &Machine{
		cfg:       cfg,
		dialer:    dialer,
		clock:     clock,
		observer:  observer,
		logger:    logger,
		dispatch:  dispatch,
		lifecycle: NewLifecycle(logger, emitter),
		outbox:    NewOutbox(cfg.MaxPending),
		inbound:   NewReassembler(cfg.Limits),
		backoff:   newBackoff(cfg.ReconnectDelay, cfg.ReconnectMaxDelay),
	}
}

// Start begins the first connection attempt.
func (m *Machine) Start() {
	if m.userClosed || !m.lifecycle.Disconnected() {
		return
	}
	m.connect()
}

// Tick advances the logical clock by one period, sends a heartbeat when
// one is due and drops the connection when nothing has arrived for the
// timeout period.
func (m *Machine) Tick() {
	m.now++

	if m.lastHeartbeat+int64(m.cfg.HeartbeatTicks) <= m.now {
		if m.lifecycle.Connected() {
			m.logger.Debug("sending heartbeat", ports.Int64("tick", m.now))
			m.write(frame.Ping())
		}
		m.lastHeartbeat = m.now
	}

	if m.lastActivity+int64(m.cfg.TimeoutTicks) <= m.now && !m.lifecycle.Disconnected() {
		m.logger.Warn("no inbound traffic, dropping connection",
			ports.Int64("tick", m.now),
			ports.Int64("last_activity", m.lastActivity),
			ports.Int("timeout_ticks", m.cfg.TimeoutTicks),
		)
		m.disconnect(domain.ErrHeartbeatTimeout.Error())
	}
}

// Send writes a data message now when connected and queues it otherwise.
// It returns domain.ErrSessionClosed after Close. Transport failures are
// never returned; they surface later as a disconnect.
func (m *Machine) Send(id uuid.UUID, payload []byte) error {
	if m.userClosed {
		return domain.ErrSessionClosed
	}
	if uint64(len(payload)) > uint64(m.cfg.Limits.MaxPayloadBytes) {
		return fmt.Errorf("%w: %d > %d", frame.ErrPayloadTooLarge, len(payload), m.cfg.Limits.MaxPayloadBytes)
	}

	msg := frame.Data(id, payload)
	if m.lifecycle.Connected() {
		m.write(msg)
		return nil
	}

	if err := m.outbox.Enqueue(msg); err != nil {
		m.logger.Warn("dropping outbound message",
			ports.CorrelationID(id),
			ports.Int("pending", m.outbox.Len()),
			ports.Err(err),
		)
		m.observer.Exception(err)
		return err
	}
	return nil
}

// Close stops the session for good: pending and buffered data are
// discarded, the transport is released and no reconnect is scheduled
// again. Idempotent.
func (m *Machine) Close() {
	if m.userClosed {
		return
	}
	m.userClosed = true

	if m.stopReconnect != nil {
		m.stopReconnect()
		m.stopReconnect = nil
	}
	m.outbox.Reset()
	m.inbound.Reset()
	m.disconnect("closed by user")
}

// SetPeriods replaces the heartbeat and timeout periods. The new values
// apply from the next tick.
func (m *Machine) SetPeriods(heartbeatTicks, timeoutTicks int) error {
	if heartbeatTicks <= 0 || timeoutTicks <= 0 {
		return fmt.Errorf("%w: heartbeat and timeout ticks must be positive", domain.ErrInvalidConfig)
	}
	m.cfg.HeartbeatTicks = heartbeatTicks
	m.cfg.TimeoutTicks = timeoutTicks
	m.logger.Info("tick periods updated",
		ports.Int("heartbeat_ticks", heartbeatTicks),
		ports.Int("timeout_ticks", timeoutTicks),
	)
	return nil
}

// State returns the current connection state. Safe from any goroutine.
func (m *Machine) State() State {
	return m.lifecycle.State()
}

// Pending returns the number of queued outbound messages.
func (m *Machine) Pending() int {
	return m.outbox.Len()
}

// Buffered returns the number of inbound bytes awaiting a complete frame.
func (m *Machine) Buffered() int {
	return m.inbound.Buffered()
}

// Closed reports whether Close has been called.
func (m *Machine) Closed() bool {
	return m.userClosed
}

// Now returns the logical clock of the current connection.
func (m *Machine) Now() int64 {
	return m.now
}

func (m *Machine) connect() {
	m.release()

	if err := m.lifecycle.TransitionTo(StateConnecting, "dial"); err != nil {
		m.logger.Error("cannot start connecting", ports.Err(err))
		return
	}

	m.now = 0
	m.lastHeartbeat = 0
	m.lastActivity = 0
	m.inbound.Reset()

	m.gen++
	m.logger.Debug("dialing",
		ports.String("host", m.cfg.Host),
		ports.Int("port", m.cfg.Port),
	)
	m.transport = m.dialer.Dial(m.cfg.Host, m.cfg.Port, &transportHandler{m: m, gen: m.gen})
}

func (m *Machine) disconnect(reason string) {
	if m.lifecycle.Disconnected() {
		return
	}

	m.release()
	m.inbound.Reset()

	if err := m.lifecycle.TransitionTo(StateDisconnected, reason); err != nil {
		m.logger.Error("cannot disconnect", ports.Err(err))
		return
	}
	m.observer.Closed()

	if m.userClosed {
		return
	}

	delay := m.backoff.Next()
	m.logger.Info("reconnect scheduled", ports.Duration("delay", delay))
	m.stopReconnect = m.clock.After(delay, func() {
		m.dispatch(m.reconnect)
	})
}

func (m *Machine) reconnect() {
	m.stopReconnect = nil
	if m.userClosed || !m.lifecycle.Disconnected() {
		return
	}
	m.connect()
}

// release closes the owned transport and invalidates its callbacks.
func (m *Machine) release() {
	m.gen++
	t := m.transport
	m.transport = nil
	if t != nil {
		t.Close()
	}
}

func (m *Machine) write(msg frame.Message) {
	b, err := frame.Encode(msg)
	if err != nil {
		m.observer.Exception(err)
		return
	}
	m.transport.Write(b)
}

func (m *Machine) handleOpen() {
	if m.lifecycle.Connected() {
		return
	}
	if err := m.lifecycle.TransitionTo(StateConnected, "transport open"); err != nil {
		m.logger.Error("cannot enter connected state", ports.Err(err))
		return
	}
	m.backoff.Reset()

	pending := m.outbox.Drain()
	for _, msg := range pending {
		m.write(msg)
	}
	if len(pending) > 0 {
		m.logger.Info("flushed queued messages", ports.Int("count", len(pending)))
	}

	m.lastActivity = m.now
	m.lastHeartbeat = m.now
	m.observer.Connected()
}

func (m *Machine) handleData(b []byte) {
	m.lastActivity = m.now

	if err := m.inbound.Feed(b, m.deliver); err != nil {
		m.logger.Error("malformed inbound frame", ports.Err(err))
		m.observer.Exception(err)
		m.disconnect(err.Error())
	}
}

func (m *Machine) deliver(msg frame.Message) {
	switch msg.Kind {
	case frame.KindData:
		m.observer.Data(msg.CorrelationID, msg.Payload)
	case frame.KindPing:
		m.logger.Debug("heartbeat received", ports.Int64("tick", m.now))
	}
}

func (m *Machine) handleError(err error) {
	m.logger.Warn("transport error", ports.Err(err))
	m.observer.Exception(err)
	m.disconnect(err.Error())
}

func (m *Machine) handleClose() {
	m.disconnect(domain.ErrTransportClosed.Error())
}

// transportHandler routes notifications of one transport onto the session
// flow. Notifications from a transport the machine has since released
// carry a stale generation and are dropped.
type transportHandler struct {
	m   *Machine
	gen uint64
}

func (h *transportHandler) OnOpen() {
	h.post(h.m.handleOpen)
}

func (h *transportHandler) OnData(b []byte) {
	h.post(func() { h.m.handleData(b) })
}

func (h *transportHandler) OnError(err error) {
	h.post(func() { h.m.handleError(err) })
}

func (h *transportHandler) OnClose() {
	h.post(h.m.handleClose)
}

func (h *transportHandler) post(fn func()) {
	h.m.dispatch(func() {
		if h.gen != h.m.gen {
			return
		}
		fn()
	})
}
