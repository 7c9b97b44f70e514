package relink

import "context"

// Plugin extends a Session with optional behavior that runs alongside it.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize is called once while the session starts. Returning an
	// error aborts New.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called once when the session ends.
	Shutdown(ctx context.Context) error
}

// Controller is the part of a Session a plugin may drive.
type Controller interface {
	// SetPeriods replaces the heartbeat and timeout periods, in ticks.
	SetPeriods(heartbeatTicks, timeoutTicks int) error

	// State returns the current connection state.
	State() State
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	Host           string
	Port           int
	HeartbeatTicks int
	TimeoutTicks   int

	Logger     Logger
	Controller Controller
}
