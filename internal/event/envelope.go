package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Type tags an envelope with the kind of event it carries.
type Type string

const (
	TypeInvoke Type = "invoke"
	TypeResult Type = "result"
	TypeError  Type = "error"
)

// Valid reports whether t is one of the recognized event types.
func (t Type) Valid() bool {
	switch t {
	case TypeInvoke, TypeResult, TypeError:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// Source identifies the service that produced an envelope.
type Source struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

// Envelope is the unit of inter-service communication. An envelope is
// created once at the point a tool is invoked and never mutated afterwards;
// anything that forwards an envelope with changed fields must copy it.
type Envelope struct {
	EventID       string          `json:"eventId"`
	CorrelationID string          `json:"correlationId"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        Source          `json:"source"`
	Subject       Subject         `json:"subject"`
	EventType     Type            `json:"eventType"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Validate checks the envelope invariants. Errors wrap ErrSchemaViolation.
func (e *Envelope) Validate() error {
	if e.EventID == "" {
		return &SchemaError{Field: "eventId", Reason: "must not be empty"}
	}
	if e.CorrelationID == "" {
		return &SchemaError{Field: "correlationId", Reason: "must not be empty"}
	}
	if e.Timestamp.IsZero() {
		return &SchemaError{Field: "timestamp", Reason: "must be set"}
	}
	if e.Source.Service == "" {
		return &SchemaError{Field: "source.service", Reason: "must not be empty"}
	}
	if err := e.Subject.Validate(); err != nil {
		return err
	}
	if !e.EventType.Valid() {
		return &SchemaError{Field: "eventType", Reason: "unknown type " + string(e.EventType)}
	}
	// Invoke events travel on invoke subjects; result and error events on
	// result subjects.
	wantKind := KindResult
	if e.EventType == TypeInvoke {
		wantKind = KindInvoke
	}
	if e.Subject.Kind() != wantKind {
		return &SchemaError{
			Field:  "eventType",
			Reason: string(e.EventType) + " event on " + e.Subject.Kind() + " subject",
		}
	}
	return nil
}

// Factory builds envelopes for a single producing service.
type Factory struct {
	source Source
	clock  clockwork.Clock
}

// NewFactory returns a factory stamping envelopes with the given source.
// The clock is injectable so tests can pin timestamps.
func NewFactory(source Source, clock clockwork.Clock) *Factory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Factory{source: source, clock: clock}
}

// New creates a validated envelope with a fresh event ID and the current
// timestamp. The correlation ID must already be resolved by the caller.
func (f *Factory) New(subject Subject, typ Type, correlationID string, payload json.RawMessage) (*Envelope, error) {
	env := &Envelope{
		EventID:       uuid.NewString(),
		CorrelationID: correlationID,
		Timestamp:     f.clock.Now().UTC().Truncate(time.Microsecond),
		Source:        f.source,
		Subject:       subject,
		EventType:     typ,
		Payload:       payload,
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}

// Invoke creates an invoke envelope addressed to the given domain and tool.
func (f *Factory) Invoke(domain, tool, correlationID string, payload json.RawMessage) (*Envelope, error) {
	subject, err := NewSubject(KindInvoke, domain, tool)
	if err != nil {
		return nil, err
	}
	return f.New(subject, TypeInvoke, correlationID, payload)
}

// Result creates the result envelope for an invoke envelope. It carries the
// invoke's correlation ID on the derived tool.result subject.
func (f *Factory) Result(invoke *Envelope, payload json.RawMessage) (*Envelope, error) {
	return f.New(invoke.Subject.Result(), TypeResult, invoke.CorrelationID, payload)
}

// Error creates an error envelope for an invoke envelope, published on the
// same result subject so the invoker observes the failure.
func (f *Factory) Error(invoke *Envelope, payload json.RawMessage) (*Envelope, error) {
	return f.New(invoke.Subject.Result(), TypeError, invoke.CorrelationID, payload)
}
