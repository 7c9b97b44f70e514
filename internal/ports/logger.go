package ports

import (
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/relink/pkg/log"
)

// Logger is the structured logger used across internal packages.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// String creates a string field.
func String(key, value string) Field { return log.String(key, value) }

// Int creates an int field.
func Int(key string, value int) Field { return log.Int(key, value) }

// Int64 creates an int64 field.
func Int64(key string, value int64) Field { return log.Int64(key, value) }

// CorrelationID creates the "correlation_id" field.
func CorrelationID(id uuid.UUID) Field { return log.CorrelationID(id) }

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field { return log.Duration(key, value) }

// Err creates an error field with key "error".
func Err(err error) Field { return log.Err(err) }
