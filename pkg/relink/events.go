package relink

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/bft-labs/relink/internal/app"
	"github.com/bft-labs/relink/internal/ports"
)

// Event names used in HandlerError.
const (
	EventConnected = "connected"
	EventClosed    = "closed"
	EventData      = "data"
)

// DataEvent is a DATA message received from the peer.
type DataEvent struct {
	CorrelationID uuid.UUID
	Payload       []byte
}

// StateChangeEvent describes a connection state change.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives session events. All methods are called on the
// session goroutine, one at a time.
type EventHandler interface {
	// OnConnected is called when a transport opens.
	OnConnected() error

	// OnClosed is called when the connection is lost or closed.
	OnClosed() error

	// OnData is called for every DATA message received.
	OnData(ev DataEvent) error

	// OnException is called with transport failures, protocol errors,
	// rejected sends and errors returned by handlers.
	OnException(err error)
}

// StateChangeHandler is optionally implemented by an EventHandler to be
// told about every state transition.
type StateChangeHandler interface {
	OnStateChange(ev StateChangeEvent)
}

// HandlerFuncs adapts plain functions to EventHandler. Nil fields are skipped.
type HandlerFuncs struct {
	Connected   func() error
	Closed      func() error
	Data        func(ev DataEvent) error
	Exception   func(err error)
	StateChange func(ev StateChangeEvent)
}

// OnConnected calls f.Connected.
func (f HandlerFuncs) OnConnected() error {
	if f.Connected == nil {
		return nil
	}
	return f.Connected()
}

// OnClosed calls f.Closed.
func (f HandlerFuncs) OnClosed() error {
	if f.Closed == nil {
		return nil
	}
	return f.Closed()
}

// OnData calls f.Data.
func (f HandlerFuncs) OnData(ev DataEvent) error {
	if f.Data == nil {
		return nil
	}
	return f.Data(ev)
}

// OnException calls f.Exception.
func (f HandlerFuncs) OnException(err error) {
	if f.Exception != nil {
		f.Exception(err)
	}
}

// OnStateChange calls f.StateChange.
func (f HandlerFuncs) OnStateChange(ev StateChangeEvent) {
	if f.StateChange != nil {
		f.StateChange(ev)
	}
}

// HandlerError reports an error returned, or a panic raised, by an
// EventHandler while processing Event.
type HandlerError struct {
	Event string
	Err   error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("relink: %s handler: %v", e.Event, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// eventEmitter adapts the registered EventHandlers to the internal
// observer interfaces.
type eventEmitter struct {
	handlers []EventHandler
	logger   ports.Logger
}

func (e *eventEmitter) Connected() {
	e.each(EventConnected, func(h EventHandler) error { return h.OnConnected() })
}

func (e *eventEmitter) Closed() {
	e.each(EventClosed, func(h EventHandler) error { return h.OnClosed() })
}

func (e *eventEmitter) Data(id uuid.UUID, payload []byte) {
	ev := DataEvent{CorrelationID: id, Payload: payload}
	e.each(EventData, func(h EventHandler) error { return h.OnData(ev) })
}

func (e *eventEmitter) Exception(err error) {
	for _, h := range e.handlers {
		e.safeException(h, err)
	}
}

func (e *eventEmitter) OnStateChange(previous, current app.State, reason string) {
	ev := StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	}
	for _, h := range e.handlers {
		sh, ok := h.(StateChangeHandler)
		if !ok {
			continue
		}
		if err := guard(func() error { sh.OnStateChange(ev); return nil }); err != nil {
			e.Exception(&HandlerError{Event: "state change", Err: err})
		}
	}
}

func (e *eventEmitter) each(event string, fn func(h EventHandler) error) {
	for _, h := range e.handlers {
		if err := guard(func() error { return fn(h) }); err != nil {
			e.logger.Warn("event handler failed", ports.String("event", event), ports.Err(err))
			e.Exception(&HandlerError{Event: event, Err: err})
		}
	}
}

func (e *eventEmitter) safeException(h EventHandler, err error) {
	if perr := guard(func() error { h.OnException(err); return nil }); perr != nil {
		e.logger.Error("exception handler panicked", ports.Err(perr))
	}
}

// guard runs fn and turns a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

var (
	_ app.Observer     = (*eventEmitter)(nil)
	_ app.EventEmitter = (*eventEmitter)(nil)
)
