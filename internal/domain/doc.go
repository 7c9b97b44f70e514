// Package domain contains the error vocabulary shared by every relink layer.
//
// It has no dependencies on infrastructure concerns (sockets, timers,
// logging). Errors are sentinel values wrapped with fmt.Errorf("...: %w")
// where context is added, so callers match them with errors.Is.
package domain
