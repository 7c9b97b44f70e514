package app

import (
	"github.com/eapache/queue"

	"github.com/bft-labs/relink/internal/domain"
	"github.com/bft-labs/relink/pkg/frame"
)

// Outbox holds messages sent while the session is not connected.
// It is owned by the session flow and is not safe for concurrent use.
type Outbox struct {
	items *queue.Queue
	max   int
}

// NewOutbox creates an outbox. A max of zero or less means unbounded,
// which is the default: the queue grows for as long as the link is down.
func NewOutbox(max int) *Outbox {
	return &Outbox{
		items: queue.New(),
		max:   max,
	}
}

// Enqueue appends m. Returns domain.ErrOutboxFull when bounded and full.
func (o *Outbox) Enqueue(m frame.Message) error {
	if o.max > 0 && o.items.Length() >= o.max {
		return domain.ErrOutboxFull
	}
	o.items.Add(m)
	return nil
}

// Drain removes and returns all queued messages in FIFO order.
func (o *Outbox) Drain() []frame.Message {
	if o.items.Length() == 0 {
		return nil
	}
	out := make([]frame.Message, 0, o.items.Length())
	for o.items.Length() > 0 {
		out = append(out, o.items.Remove().(frame.Message))
	}
	return out
}

// Len returns the number of queued messages.
func (o *Outbox) Len() int {
	return o.items.Length()
}

// Reset discards all queued messages.
func (o *Outbox) Reset() {
	o.items = queue.New()
}
