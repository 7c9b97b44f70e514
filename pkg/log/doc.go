// Package log is the logging seam of relink.
//
// Every component logs through [Logger] with typed [Field] values, so the
// session core never imports a logging library. [ZerologAdapter] backs it
// with zerolog; [NoopLogger] is the default when a caller supplies nothing.
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	s, err := relink.New(ctx, cfg, relink.WithLogger(logger))
//
// Any type with the four level methods can stand in for an existing
// logging setup.
package log
