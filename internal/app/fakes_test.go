package app

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/relink/internal/ports"
	"github.com/bft-labs/relink/pkg/frame"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// mockEmitter tracks state change events for testing.
type mockEmitter struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

// fakeTransport records writes and close calls.
type fakeTransport struct {
	handler ports.TransportHandler
	host    string
	port    int
	writes  [][]byte
	closed  bool
}

func (t *fakeTransport) Write(b []byte) {
	t.writes = append(t.writes, append([]byte(nil), b...))
}

func (t *fakeTransport) Close() {
	t.closed = true
}

// messages decodes every write, failing on anything that is not one frame.
func (t *fakeTransport) messages() []frame.Message {
	var out []frame.Message
	for _, b := range t.writes {
		n, msg, err := frame.Decode(b, frame.DefaultLimits())
		if err != nil || n != len(b) {
			panic("write is not exactly one frame")
		}
		out = append(out, msg)
	}
	return out
}

func (t *fakeTransport) pings() int {
	n := 0
	for _, m := range t.messages() {
		if m.Kind == frame.KindPing {
			n++
		}
	}
	return n
}

// fakeDialer hands out fakeTransports and keeps every one it created.
type fakeDialer struct {
	transports []*fakeTransport
}

func (d *fakeDialer) Dial(host string, port int, h ports.TransportHandler) ports.Transport {
	t := &fakeTransport{handler: h, host: host, port: port}
	d.transports = append(d.transports, t)
	return t
}

func (d *fakeDialer) last() *fakeTransport {
	if len(d.transports) == 0 {
		return nil
	}
	return d.transports[len(d.transports)-1]
}

// manualClock fires timers only when advanced by the test.
type manualClock struct {
	now    time.Duration
	timers map[int]*manualTimer
	nextID int
}

type manualTimer struct {
	at time.Duration
	fn func()
}

func newManualClock() *manualClock {
	return &manualClock{timers: make(map[int]*manualTimer)}
}

func (c *manualClock) Every(period time.Duration, fn func()) func() {
	panic("ticks are driven directly through Machine.Tick in these tests")
}

func (c *manualClock) After(d time.Duration, fn func()) func() {
	id := c.nextID
	c.nextID++
	c.timers[id] = &manualTimer{at: c.now + d, fn: fn}
	return func() { delete(c.timers, id) }
}

func (c *manualClock) pending() int {
	return len(c.timers)
}

// Advance moves time forward and fires due timers in deadline order.
func (c *manualClock) Advance(d time.Duration) {
	c.now += d
	var due []int
	for id, t := range c.timers {
		if t.at <= c.now {
			due = append(due, id)
		}
	}
	sort.Slice(due, func(i, j int) bool { return c.timers[due[i]].at < c.timers[due[j]].at })
	for _, id := range due {
		t, ok := c.timers[id]
		if !ok {
			continue
		}
		delete(c.timers, id)
		t.fn()
	}
}

// recordingObserver records events in order.
type recordingObserver struct {
	events     []string
	data       []frame.Message
	exceptions []error
	states     []State
}

func (o *recordingObserver) Connected() { o.events = append(o.events, "connected") }
func (o *recordingObserver) Closed()    { o.events = append(o.events, "closed") }

func (o *recordingObserver) Data(id uuid.UUID, payload []byte) {
	o.events = append(o.events, "data")
	o.data = append(o.data, frame.Data(id, payload))
}

func (o *recordingObserver) Exception(err error) {
	o.events = append(o.events, "exception")
	o.exceptions = append(o.exceptions, err)
}

func (o *recordingObserver) OnStateChange(previous, current State, reason string) {
	o.states = append(o.states, current)
}

func (o *recordingObserver) count(event string) int {
	n := 0
	for _, e := range o.events {
		if e == event {
			n++
		}
	}
	return n
}

// direct runs callbacks immediately; the tests are the only flow.
func direct(fn func()) { fn() }
