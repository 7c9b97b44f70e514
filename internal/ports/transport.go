package ports

// Dialer opens transports.
type Dialer interface {
	// Dial starts connecting to host:port and returns immediately.
	// The outcome is reported through h: OnOpen on success, OnError on
	// failure. Exactly one transport is returned per call, even when the
	// connection attempt is already known to fail. h is never invoked
	// before Dial returns.
	Dial(host string, port int, h TransportHandler) Transport
}

// Transport is an opaque duplex byte channel.
type Transport interface {
	// Write queues b for sending and never blocks. Write failures are
	// reported asynchronously through TransportHandler.OnError.
	Write(b []byte)

	// Close releases the channel. After Close returns the transport
	// delivers no further notifications that the owner has to act on.
	// Close is idempotent.
	Close()
}

// TransportHandler receives transport notifications.
// Implementations must be safe to call from any goroutine.
type TransportHandler interface {
	// OnOpen is called once the channel is writable.
	OnOpen()

	// OnData is called with every chunk of received bytes, in order.
	// The slice is owned by the handler.
	OnData(b []byte)

	// OnError reports a low-level failure (refused, reset, broken pipe).
	OnError(err error)

	// OnClose reports that the channel was closed by the peer or after
	// an error.
	OnClose()
}
