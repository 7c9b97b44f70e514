package app

import (
	"fmt"

	"github.com/bft-labs/relink/internal/domain"
	"github.com/bft-labs/relink/pkg/frame"
)

// Reassembler turns a fragmented byte stream into frames.
// It is owned by the session flow and is not safe for concurrent use.
type Reassembler struct {
	buf    []byte
	limits frame.Limits
}

// NewReassembler creates a reassembler enforcing limits on every frame.
func NewReassembler(limits frame.Limits) *Reassembler {
	return &Reassembler{limits: limits}
}

// Feed appends data and emits every complete frame now in the buffer.
//
// Decoding stops at the first call that consumes nothing; the leftover
// bytes stay buffered for the next Feed. A malformed frame returns an
// error wrapping domain.ErrProtocol and the frame error. Frames decoded
// before the malformed one have already been emitted.
func (r *Reassembler) Feed(data []byte, emit func(frame.Message)) error {
	r.buf = append(r.buf, data...)

	off := 0
	defer func() {
		if off == 0 || off > len(r.buf) {
			return
		}
		n := copy(r.buf, r.buf[off:])
		r.buf = r.buf[:n]
	}()

	for off < len(r.buf) {
		n, msg, err := frame.Decode(r.buf[off:], r.limits)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrProtocol, err)
		}
		if n == 0 {
			break
		}
		off += n
		emit(msg)
	}
	return nil
}

// Buffered returns the number of bytes waiting for the rest of a frame.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Reset drops all buffered bytes.
func (r *Reassembler) Reset() {
	r.buf = nil
}
