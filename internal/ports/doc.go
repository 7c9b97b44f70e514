// Package ports defines the interfaces (ports) that connect the session
// core to infrastructure adapters.
//
// Ports are the boundaries between the connection state machine and the
// outside world. They define what the core needs from external systems
// without specifying how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [Dialer]: Opens a duplex byte channel to host:port
//   - [Transport]: The open channel (fire-and-forget write, close)
//   - [TransportHandler]: Notifications delivered by a transport
//   - [Clock]: Periodic ticks and one-shot timers
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with TCP,
// WebSocket and wall-clock implementations. Tests substitute fakes that
// deliver notifications and ticks by hand.
package ports
