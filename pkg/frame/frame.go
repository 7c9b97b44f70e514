package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
)

// Kind is the one-byte tag that opens every frame.
type Kind uint8

// Wire values are part of the protocol and must not change.
const (
	KindPing Kind = 0x01
	KindData Kind = 0x02
)

const (
	// PingLen is the encoded size of a PING frame.
	PingLen = 1

	// DataHeaderLen is the size of a DATA frame before its payload:
	// kind (1) + correlation id (16) + payload length (4).
	DataHeaderLen = 1 + 16 + 4
)

var (
	ErrUnknownKind       = errors.New("frame: unknown kind")
	ErrPayloadTooLarge   = errors.New("frame: payload too large")
	ErrUnexpectedPayload = errors.New("frame: ping carries payload")
)

// String returns the protocol name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPing:
		return "PING"
	case KindData:
		return "DATA"
	default:
		return fmt.Sprintf("Kind(0x%02x)", uint8(k))
	}
}

// Message is one protocol envelope.
type Message struct {
	Kind Kind

	// CorrelationID lets the application match requests and replies.
	// Only meaningful for DATA frames.
	CorrelationID uuid.UUID

	Payload []byte
}

// Ping returns a heartbeat message.
func Ping() Message {
	return Message{Kind: KindPing}
}

// Data returns a data message.
func Data(id uuid.UUID, payload []byte) Message {
	return Message{Kind: KindData, CorrelationID: id, Payload: payload}
}

// EncodedLen returns the number of bytes Encode produces for m.
func (m Message) EncodedLen() int {
	if m.Kind == KindPing {
		return PingLen
	}
	return DataHeaderLen + len(m.Payload)
}

// Limits constrains decode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

// Encode serializes m into a self-delimiting frame.
func Encode(m Message) ([]byte, error) {
	switch m.Kind {
	case KindPing:
		if len(m.Payload) > 0 {
			return nil, ErrUnexpectedPayload
		}
		return []byte{byte(KindPing)}, nil
	case KindData:
		if uint64(len(m.Payload)) > math.MaxUint32 {
			return nil, ErrPayloadTooLarge
		}
		buf := make([]byte, DataHeaderLen+len(m.Payload))
		buf[0] = byte(KindData)
		copy(buf[1:17], m.CorrelationID[:])
		binary.BigEndian.PutUint32(buf[17:21], uint32(len(m.Payload)))
		copy(buf[DataHeaderLen:], m.Payload)
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownKind, uint8(m.Kind))
	}
}

// Decode extracts the first frame from b.
//
// When b does not yet hold a complete frame Decode returns zero consumed
// bytes and no error; the caller retries once more bytes arrive. An error
// is returned only for input that can never become a valid frame: an
// unknown kind tag or a declared payload length above limits. Decode keeps
// no state between calls and the returned payload does not alias b.
func Decode(b []byte, limits Limits) (int, Message, error) {
	if len(b) == 0 {
		return 0, Message{}, nil
	}

	switch kind := Kind(b[0]); kind {
	case KindPing:
		return PingLen, Ping(), nil
	case KindData:
		if len(b) < DataHeaderLen {
			return 0, Message{}, nil
		}
		n := binary.BigEndian.Uint32(b[17:21])
		if n > limits.MaxPayloadBytes {
			return 0, Message{}, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, n, limits.MaxPayloadBytes)
		}
		total := DataHeaderLen + int(n)
		if len(b) < total {
			return 0, Message{}, nil
		}
		var id uuid.UUID
		copy(id[:], b[1:17])
		payload := make([]byte, n)
		copy(payload, b[DataHeaderLen:total])
		return total, Data(id, payload), nil
	default:
		return 0, Message{}, fmt.Errorf("%w: 0x%02x", ErrUnknownKind, uint8(kind))
	}
}

// ReadMessage reads exactly one frame from r.
func ReadMessage(r io.Reader, limits Limits) (Message, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return Message{}, err
	}

	switch kind := Kind(tag[0]); kind {
	case KindPing:
		return Ping(), nil
	case KindData:
		var hdr [DataHeaderLen - 1]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return Message{}, unexpectedEOF(err)
		}
		n := binary.BigEndian.Uint32(hdr[16:20])
		if n > limits.MaxPayloadBytes {
			return Message{}, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, n, limits.MaxPayloadBytes)
		}
		var id uuid.UUID
		copy(id[:], hdr[0:16])
		payload := make([]byte, n)
		if _, err := io.ReadFull(r, payload); err != nil {
			return Message{}, unexpectedEOF(err)
		}
		return Data(id, payload), nil
	default:
		return Message{}, fmt.Errorf("%w: 0x%02x", ErrUnknownKind, uint8(kind))
	}
}

// WriteMessage encodes m and writes it to w in a single call.
func WriteMessage(w io.Writer, m Message) error {
	b, err := Encode(m)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// A frame cut off after its tag is truncated, not a clean end of stream.
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
