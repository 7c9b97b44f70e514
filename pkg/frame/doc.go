// Package frame implements the relink wire format.
//
// Every frame starts with a one-byte kind tag. PING frames consist of the
// tag alone. DATA frames carry a 16-byte correlation identifier and a
// big-endian uint32 payload length followed by the payload:
//
//	PING: | 0x01 |
//	DATA: | 0x02 | correlation id (16) | payload length (4) | payload |
//
// # Usage
//
// Encode a message for the wire:
//
//	b, err := frame.Encode(frame.Data(uuid.New(), []byte("hello")))
//
// Decode from an accumulating buffer. A zero consumed count means the
// buffer does not hold a complete frame yet:
//
//	n, msg, err := frame.Decode(buf, frame.DefaultLimits())
//	if err != nil {
//	    // malformed input, drop the connection
//	}
//	if n > 0 {
//	    buf = buf[n:]
//	    handle(msg)
//	}
//
// Peers owning a dedicated reader can use [ReadMessage] and [WriteMessage].
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package frame
