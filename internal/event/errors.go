package event

import (
	"errors"
	"fmt"
)

// ErrMalformedEnvelope marks input that cannot be parsed into the envelope's
// structural shape at all. Never retried locally.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// ErrSchemaViolation marks an envelope that parsed but violates an envelope
// invariant. Rejected and reported to the caller.
var ErrSchemaViolation = errors.New("schema violation")

// SchemaError reports which field violated which invariant. It matches
// ErrSchemaViolation under errors.Is.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema violation: %s: %s", e.Field, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchemaViolation }
