package relink

import "github.com/bft-labs/relink/internal/app"

// State is the connection state of a session.
type State int

const (
	// StateDisconnected means no transport is live. A reconnect may be
	// scheduled unless the session was closed.
	StateDisconnected State = iota

	// StateConnecting means a transport is being opened.
	StateConnecting

	// StateConnected means the transport is writable.
	StateConnected
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

func convertState(s app.State) State {
	switch s {
	case app.StateConnecting:
		return StateConnecting
	case app.StateConnected:
		return StateConnected
	default:
		return StateDisconnected
	}
}
