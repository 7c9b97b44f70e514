package app

import (
	"errors"
	"sync"
	"testing"

	"github.com/bft-labs/relink/internal/domain"
)

func TestNewLifecycle(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	if l == nil {
		t.Fatal("NewLifecycle returned nil")
	}
	if l.State() != StateDisconnected {
		t.Errorf("initial state = %v, want StateDisconnected", l.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "Disconnected"},
		{StateConnecting, "Connecting"},
		{StateConnected, "Connected"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		got := tt.state.String()
		if got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestLifecycle_TransitionTo_ValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"disconnected to connecting", StateDisconnected, StateConnecting},
		{"disconnected to connected", StateDisconnected, StateConnected},
		{"connecting to connected", StateConnecting, StateConnected},
		{"connecting to disconnected", StateConnecting, StateDisconnected},
		{"connected to disconnected", StateConnected, StateDisconnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle(&mockLogger{}, nil)
			l.state = tt.from

			if err := l.TransitionTo(tt.to, "test"); err != nil {
				t.Errorf("TransitionTo() error = %v, want nil", err)
			}
			if l.State() != tt.to {
				t.Errorf("state = %v after transition, want %v", l.State(), tt.to)
			}
		})
	}
}

func TestLifecycle_TransitionTo_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"disconnected to disconnected", StateDisconnected, StateDisconnected},
		{"connecting to connecting", StateConnecting, StateConnecting},
		{"connected to connected", StateConnected, StateConnected},
		{"connected to connecting", StateConnected, StateConnecting},
		{"unknown state", State(42), StateConnecting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle(&mockLogger{}, nil)
			l.state = tt.from

			err := l.TransitionTo(tt.to, "test")

			if !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("TransitionTo() error = %v, want ErrInvalidTransition", err)
			}
			// State should not change on invalid transition
			if l.State() != tt.from {
				t.Errorf("state changed to %v on invalid transition, want %v", l.State(), tt.from)
			}
		})
	}
}

func TestLifecycle_TransitionTo_EmitsEvents(t *testing.T) {
	emitter := &mockEmitter{}
	l := NewLifecycle(&mockLogger{}, emitter)

	_ = l.TransitionTo(StateConnecting, "dial")
	_ = l.TransitionTo(StateConnected, "transport open")
	_ = l.TransitionTo(StateConnected, "ignored")

	events := emitter.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	if events[0].previous != StateDisconnected || events[0].current != StateConnecting {
		t.Errorf("event 0: got %v->%v, want Disconnected->Connecting", events[0].previous, events[0].current)
	}
	if events[1].previous != StateConnecting || events[1].current != StateConnected {
		t.Errorf("event 1: got %v->%v, want Connecting->Connected", events[1].previous, events[1].current)
	}
	if events[1].reason != "transport open" {
		t.Errorf("event 1 reason = %q, want %q", events[1].reason, "transport open")
	}
}

func TestLifecycle_Predicates(t *testing.T) {
	tests := []struct {
		state            State
		wantConnected    bool
		wantDisconnected bool
	}{
		{StateDisconnected, false, true},
		{StateConnecting, false, false},
		{StateConnected, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			l := NewLifecycle(&mockLogger{}, nil)
			l.state = tt.state

			if got := l.Connected(); got != tt.wantConnected {
				t.Errorf("Connected() = %v, want %v", got, tt.wantConnected)
			}
			if got := l.Disconnected(); got != tt.wantDisconnected {
				t.Errorf("Disconnected() = %v, want %v", got, tt.wantDisconnected)
			}
		})
	}
}

func TestLifecycle_Concurrency(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	var wg sync.WaitGroup

	// Concurrent state reads
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = l.State()
				_ = l.Connected()
			}
		}()
	}

	// Concurrent transitions (some will fail, which is expected)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.TransitionTo(StateConnecting, "test")
			_ = l.TransitionTo(StateConnected, "test")
			_ = l.TransitionTo(StateDisconnected, "test")
		}()
	}

	wg.Wait()
}
