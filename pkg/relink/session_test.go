package relink

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/relink/internal/echo"
	"github.com/bft-labs/relink/pkg/frame"
	"github.com/bft-labs/relink/pkg/log"
)

const waitTimeout = 5 * time.Second

// recorder is an EventHandler that forwards every event to channels.
type recorder struct {
	events chan string
	data   chan DataEvent
	errs   chan error
}

func newRecorder() *recorder {
	return &recorder{
		events: make(chan string, 256),
		data:   make(chan DataEvent, 256),
		errs:   make(chan error, 256),
	}
}

func (r *recorder) OnConnected() error { r.events <- EventConnected; return nil }
func (r *recorder) OnClosed() error    { r.events <- EventClosed; return nil }
func (r *recorder) OnData(ev DataEvent) error {
	r.data <- ev
	return nil
}
func (r *recorder) OnException(err error) { r.errs <- err }

func (r *recorder) waitEvent(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case got := <-r.events:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func (r *recorder) waitData(t *testing.T) DataEvent {
	t.Helper()
	select {
	case ev := <-r.data:
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for data event")
		return DataEvent{}
	}
}

func (r *recorder) waitErr(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.errs:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for exception event")
		return nil
	}
}

func startEcho(t *testing.T) (*echo.Server, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	srv := echo.NewServer(log.NewNoopLogger(), frame.DefaultLimits())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Serve(ctx, ln) }()
	t.Cleanup(cancel)

	return srv, ln.Addr().(*net.TCPAddr).Port
}

func testConfig(port int) Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           port,
		TickInterval:   10 * time.Millisecond,
		ReconnectDelay: 20 * time.Millisecond,
	}
}

func newSession(t *testing.T, cfg Config, opts ...Option) *Session {
	t.Helper()
	s, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		<-s.Done()
	})
	return s
}

func TestSession_SendReceive(t *testing.T) {
	_, port := startEcho(t)
	rec := newRecorder()
	s := newSession(t, testConfig(port), WithEventHandler(rec))

	rec.waitEvent(t, EventConnected)
	if s.State() != StateConnected {
		t.Errorf("State() = %v, want Connected", s.State())
	}

	id := NewCorrelationID()
	if err := s.Send(id, []byte("hello")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	ev := rec.waitData(t)
	if ev.CorrelationID != id || string(ev.Payload) != "hello" {
		t.Errorf("data = %s %q, want %s %q", ev.CorrelationID, ev.Payload, id, "hello")
	}
}

func TestSession_SendCopiesPayload(t *testing.T) {
	_, port := startEcho(t)
	rec := newRecorder()
	s := newSession(t, testConfig(port), WithEventHandler(rec))

	payload := []byte("original")
	if err := s.Send(uuid.New(), payload); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	copy(payload, "mutated!")

	if ev := rec.waitData(t); string(ev.Payload) != "original" {
		t.Errorf("payload = %q, want original", ev.Payload)
	}
}

func TestSession_QueuedMessagesKeepOrder(t *testing.T) {
	_, port := startEcho(t)
	rec := newRecorder()
	s := newSession(t, testConfig(port), WithEventHandler(rec))

	want := []string{"A", "B", "C", "D", "E"}
	for _, p := range want {
		if err := s.Send(uuid.New(), []byte(p)); err != nil {
			t.Fatalf("Send(%s) error = %v", p, err)
		}
	}

	for _, p := range want {
		if ev := rec.waitData(t); string(ev.Payload) != p {
			t.Fatalf("payload = %q, want %q", ev.Payload, p)
		}
	}
}

func TestSession_HeartbeatKeepsLinkAlive(t *testing.T) {
	_, port := startEcho(t)
	rec := newRecorder()
	cfg := testConfig(port)
	cfg.HeartbeatTicks = 2
	cfg.TimeoutTicks = 10
	s := newSession(t, cfg, WithEventHandler(rec))

	rec.waitEvent(t, EventConnected)
	time.Sleep(40 * cfg.TickInterval)

	select {
	case ev := <-rec.events:
		t.Errorf("unexpected %s event while the peer answers heartbeats", ev)
	default:
	}
	if s.State() != StateConnected {
		t.Errorf("State() = %v, want Connected", s.State())
	}
}

func TestSession_SilentPeerTimesOutAndReconnects(t *testing.T) {
	srv, port := startEcho(t)
	rec := newRecorder()
	cfg := testConfig(port)
	cfg.HeartbeatTicks = 2
	cfg.TimeoutTicks = 5
	newSession(t, cfg, WithEventHandler(rec))

	rec.waitEvent(t, EventConnected)
	srv.SetSilent(true)
	rec.waitEvent(t, EventClosed)

	srv.SetSilent(false)
	rec.waitEvent(t, EventConnected)
}

func TestSession_PeerDropReconnects(t *testing.T) {
	srv, port := startEcho(t)
	rec := newRecorder()
	s := newSession(t, testConfig(port), WithEventHandler(rec))

	rec.waitEvent(t, EventConnected)
	srv.DropAll()
	rec.waitEvent(t, EventClosed)
	rec.waitEvent(t, EventConnected)

	id := uuid.New()
	if err := s.Send(id, []byte("after reconnect")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if ev := rec.waitData(t); ev.CorrelationID != id {
		t.Errorf("data id = %s, want %s", ev.CorrelationID, id)
	}
}

func TestSession_DialFailureRetries(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	rec := newRecorder()
	newSession(t, testConfig(port), WithEventHandler(rec))

	// Every failed attempt reports an exception and a closed event.
	for i := 0; i < 2; i++ {
		if err := rec.waitErr(t); err == nil {
			t.Fatal("nil exception")
		}
		rec.waitEvent(t, EventClosed)
	}
}

func TestSession_Close(t *testing.T) {
	_, port := startEcho(t)
	rec := newRecorder()
	s, err := New(context.Background(), testConfig(port), WithEventHandler(rec))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec.waitEvent(t, EventConnected)
	s.Close()
	s.Close()

	select {
	case <-s.Done():
	case <-time.After(waitTimeout):
		t.Fatal("Done() not closed after Close")
	}

	if got := <-rec.events; got != EventClosed {
		t.Errorf("event = %s, want closed", got)
	}
	select {
	case ev := <-rec.events:
		t.Errorf("unexpected %s event after close", ev)
	case <-time.After(100 * time.Millisecond):
	}

	if err := s.Send(uuid.New(), []byte("late")); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Send() after Close error = %v, want ErrSessionClosed", err)
	}
	if err := s.SetPeriods(1, 2); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("SetPeriods() after Close error = %v, want ErrSessionClosed", err)
	}
	if s.State() != StateDisconnected {
		t.Errorf("State() = %v, want Disconnected", s.State())
	}
}

func TestSession_ContextCancel(t *testing.T) {
	_, port := startEcho(t)
	rec := newRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	s, err := New(ctx, testConfig(port), WithEventHandler(rec))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec.waitEvent(t, EventConnected)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(waitTimeout):
		t.Fatal("Done() not closed after context cancel")
	}
	rec.waitEvent(t, EventClosed)
	if err := s.Send(uuid.New(), nil); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Send() error = %v, want ErrSessionClosed", err)
	}
}

func TestSession_CloseFromHandler(t *testing.T) {
	_, port := startEcho(t)

	var s *Session
	var mu sync.Mutex
	handler := HandlerFuncs{
		Data: func(ev DataEvent) error {
			mu.Lock()
			defer mu.Unlock()
			s.Close()
			return nil
		},
	}

	mu.Lock()
	sess, err := New(context.Background(), testConfig(port), WithEventHandler(handler))
	if err != nil {
		mu.Unlock()
		t.Fatalf("New() error = %v", err)
	}
	s = sess
	mu.Unlock()

	if err := sess.Send(uuid.New(), []byte("bye")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case <-sess.Done():
	case <-time.After(waitTimeout):
		t.Fatal("session did not shut down after Close from a handler")
	}
}

func TestSession_SendFromConnectedHandler(t *testing.T) {
	_, port := startEcho(t)
	rec := newRecorder()
	id := uuid.New()

	var s *Session
	ready := make(chan struct{})
	greeter := HandlerFuncs{
		Connected: func() error {
			<-ready
			return s.Send(id, []byte("greeting"))
		},
	}

	sess, err := New(context.Background(), testConfig(port),
		WithEventHandler(greeter),
		WithEventHandler(rec),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s = sess
	close(ready)
	t.Cleanup(func() {
		sess.Close()
		<-sess.Done()
	})

	if ev := rec.waitData(t); ev.CorrelationID != id || string(ev.Payload) != "greeting" {
		t.Errorf("data = %s %q, want greeting", ev.CorrelationID, ev.Payload)
	}
}

func TestSession_HandlerErrorsReported(t *testing.T) {
	_, port := startEcho(t)
	rec := newRecorder()
	boom := errors.New("boom")

	failing := HandlerFuncs{
		Connected: func() error { return boom },
		Data:      func(DataEvent) error { panic("bad handler") },
	}
	s := newSession(t, testConfig(port), WithEventHandler(failing), WithEventHandler(rec))

	err := rec.waitErr(t)
	var herr *HandlerError
	if !errors.As(err, &herr) || herr.Event != EventConnected || !errors.Is(err, boom) {
		t.Fatalf("exception = %v, want HandlerError{connected, boom}", err)
	}

	if err := s.Send(uuid.New(), []byte("x")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	err = rec.waitErr(t)
	if !errors.As(err, &herr) || herr.Event != EventData {
		t.Fatalf("exception = %v, want HandlerError{data}", err)
	}

	// The second handler still saw the data and the link is still up.
	rec.waitData(t)
	if s.State() != StateConnected {
		t.Errorf("State() = %v, want Connected", s.State())
	}
}

func TestSession_SendTooLarge(t *testing.T) {
	_, port := startEcho(t)
	cfg := testConfig(port)
	cfg.MaxPayloadBytes = 4
	s := newSession(t, cfg)

	if err := s.Send(uuid.New(), []byte("12345")); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Send() error = %v, want ErrPayloadTooLarge", err)
	}
	if err := s.Send(uuid.New(), []byte("1234")); err != nil {
		t.Errorf("Send() error = %v", err)
	}
}

func TestSession_SetPeriods(t *testing.T) {
	srv, port := startEcho(t)
	rec := newRecorder()
	cfg := testConfig(port)
	cfg.HeartbeatTicks = 1000
	cfg.TimeoutTicks = 1000
	s := newSession(t, cfg, WithEventHandler(rec))

	if err := s.SetPeriods(0, 5); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("SetPeriods(0, 5) error = %v, want ErrInvalidConfig", err)
	}

	rec.waitEvent(t, EventConnected)
	srv.SetSilent(true)
	if err := s.SetPeriods(2, 5); err != nil {
		t.Fatalf("SetPeriods() error = %v", err)
	}

	// With the shorter timeout the silent peer is detected quickly.
	rec.waitEvent(t, EventClosed)
}

func TestSession_WebSocket(t *testing.T) {
	srv := echo.NewServer(log.NewNoopLogger(), frame.DefaultLimits())
	hs := httptest.NewServer(srv)
	defer hs.Close()

	_, portStr, _ := net.SplitHostPort(hs.Listener.Addr().String())
	port, _ := strconv.Atoi(portStr)

	rec := newRecorder()
	cfg := testConfig(port)
	cfg.Transport = TransportWebSocket
	s := newSession(t, cfg, WithEventHandler(rec))

	rec.waitEvent(t, EventConnected)
	id := uuid.New()
	if err := s.Send(id, []byte("over websocket")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if ev := rec.waitData(t); ev.CorrelationID != id || string(ev.Payload) != "over websocket" {
		t.Errorf("data = %s %q", ev.CorrelationID, ev.Payload)
	}
}

func TestSession_StateChanges(t *testing.T) {
	_, port := startEcho(t)
	changes := make(chan StateChangeEvent, 16)
	handler := HandlerFuncs{
		StateChange: func(ev StateChangeEvent) { changes <- ev },
	}
	newSession(t, testConfig(port), WithEventHandler(handler))

	for _, want := range []State{StateConnecting, StateConnected} {
		select {
		case ev := <-changes:
			if ev.Current != want {
				t.Errorf("state change to %v, want %v", ev.Current, want)
			}
		case <-time.After(waitTimeout):
			t.Fatalf("timed out waiting for %v", want)
		}
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		opts []Option
	}{
		{"missing port", Config{}, nil},
		{"port too large", Config{Port: 65536}, nil},
		{"negative heartbeat", Config{Port: 9000, HeartbeatTicks: -1}, nil},
		{"negative timeout", Config{Port: 9000, TimeoutTicks: -1}, nil},
		{"negative tick interval", Config{Port: 9000, TickInterval: -time.Second}, nil},
		{"negative max pending", Config{Port: 9000, MaxPending: -1}, nil},
		{"unknown transport", Config{Port: 9000, Transport: "carrier-pigeon"}, nil},
		{"backoff below delay", Config{Port: 9000}, []Option{WithReconnectBackoff(time.Millisecond)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(context.Background(), tt.cfg, tt.opts...)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
			if s != nil {
				t.Error("New() returned a session for invalid config")
			}
		})
	}
}
