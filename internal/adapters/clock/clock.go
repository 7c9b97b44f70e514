// Package clock implements ports.Clock on wall time.
package clock

import (
	"sync"
	"time"
)

// System schedules callbacks with the runtime timers. Callbacks run on
// their own goroutines; callers hop them onto their own flow.
type System struct{}

// New returns the wall-clock implementation.
func New() System {
	return System{}
}

// Every calls fn once per period until stop is called.
func (System) Every(period time.Duration, fn func()) (stop func()) {
	ticker := time.NewTicker(period)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// After calls fn once after d unless stop is called first.
func (System) After(d time.Duration, fn func()) (stop func()) {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
