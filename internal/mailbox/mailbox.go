// Package mailbox provides an unbounded FIFO that wakes a single consumer.
//
// Producers never block: Put appends under a short lock and signals a
// one-slot channel. The consumer waits on Ready and takes everything
// queued so far with Drain.
package mailbox

import (
	"sync"

	"github.com/eapache/queue"
)

// Mailbox is an unbounded multi-producer, single-consumer queue.
type Mailbox[T any] struct {
	mu     sync.Mutex
	items  *queue.Queue
	ready  chan struct{}
	done   chan struct{}
	closed bool
}

// New creates an empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{
		items: queue.New(),
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Put appends v. It reports false when the mailbox is closed and v was dropped.
func (m *Mailbox[T]) Put(v T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items.Add(v)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return true
}

// Drain removes and returns all queued items in arrival order.
func (m *Mailbox[T]) Drain() []T {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.items.Length()
	if n == 0 {
		return nil
	}
	out := make([]T, 0, n)
	for m.items.Length() > 0 {
		out = append(out, m.items.Remove().(T))
	}
	return out
}

// Ready is signalled after Put. A signal may cover several items.
func (m *Mailbox[T]) Ready() <-chan struct{} {
	return m.ready
}

// Done is closed by Close.
func (m *Mailbox[T]) Done() <-chan struct{} {
	return m.done
}

// Len returns the number of queued items.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.Length()
}

// Close rejects further Puts and discards queued items. Idempotent.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.items = queue.New()
	close(m.done)
}
