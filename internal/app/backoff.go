package app

import (
	"math/rand"
	"time"
)

// Default reconnect delay values.
const (
	DefaultReconnectDelay = 200 * time.Millisecond
)

// backoff yields reconnect delays. With max equal to initial it is a fixed
// delay; otherwise it grows exponentially with jitter.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
	jitter  func() float64
}

// newBackoff creates a new backoff with the given initial and max durations.
func newBackoff(initial, max time.Duration) *backoff {
	if initial <= 0 {
		initial = DefaultReconnectDelay
	}
	if max < initial {
		max = initial
	}
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
		jitter:  rand.Float64,
	}
}

// Next returns the delay before the next attempt and increases it.
func (b *backoff) Next() time.Duration {
	if b.max == b.initial {
		return b.initial
	}

	// Add jitter: ±20%
	jitter := float64(b.current) * 0.2 * (b.jitter()*2 - 1)
	delay := time.Duration(float64(b.current) + jitter)

	// Increase for next time
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return delay
}

// Reset resets the backoff to the initial duration.
func (b *backoff) Reset() {
	b.current = b.initial
}

// Current returns the current backoff duration.
func (b *backoff) Current() time.Duration {
	return b.current
}
