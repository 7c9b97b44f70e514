package ports

import "time"

// Clock schedules callbacks.
type Clock interface {
	// Every calls fn once per period until stop is called.
	Every(period time.Duration, fn func()) (stop func())

	// After calls fn once after d unless stop is called first.
	After(d time.Duration, fn func()) (stop func())
}
