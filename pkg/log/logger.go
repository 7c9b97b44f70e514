package log

import (
	"time"

	"github.com/google/uuid"
)

// Logger is the sink every relink component logs through. The session,
// its transports and plugins only ever log at these four levels.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key-value pair attached to a log line. Build fields with
// the constructors below so adapters see a known value type.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field, used for ports, tick periods and counts.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field, used for logical tick counters.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field with key "error".
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// CorrelationID creates the "correlation_id" field of a DATA message.
func CorrelationID(id uuid.UUID) Field {
	return Field{Key: "correlation_id", Value: id}
}
