package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Codec validates and (de)serializes envelopes to the JSON wire format.
// It is stateless and safe for concurrent use.
type Codec struct{}

// wireEnvelope keeps loosely-typed fields as strings so that decoding can
// distinguish a document of the wrong shape (MalformedEnvelope) from a
// well-shaped document with invalid field values (SchemaViolation).
type wireEnvelope struct {
	EventID       string          `json:"eventId"`
	CorrelationID string          `json:"correlationId"`
	Timestamp     string          `json:"timestamp"`
	Source        Source          `json:"source"`
	Subject       string          `json:"subject"`
	EventType     string          `json:"eventType"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Encode validates the envelope and serializes it to JSON. Invalid envelopes
// fail with an error wrapping ErrSchemaViolation.
func (Codec) Encode(e *Envelope) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(wireEnvelope{
		EventID:       e.EventID,
		CorrelationID: e.CorrelationID,
		Timestamp:     e.Timestamp.UTC().Format(time.RFC3339Nano),
		Source:        e.Source,
		Subject:       string(e.Subject),
		EventType:     string(e.EventType),
		Payload:       e.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// Decode parses and validates an envelope from its JSON wire form. Input that
// is not a JSON document of the envelope's shape fails with
// ErrMalformedEnvelope; a well-shaped document with invalid field values
// fails with ErrSchemaViolation.
func (Codec) Decode(data []byte) (*Envelope, error) {
	var wire wireEnvelope
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	env := &Envelope{
		EventID:       wire.EventID,
		CorrelationID: wire.CorrelationID,
		Source:        wire.Source,
		Subject:       Subject(wire.Subject),
		EventType:     Type(wire.EventType),
		Payload:       wire.Payload,
	}

	if wire.Timestamp == "" {
		return nil, &SchemaError{Field: "timestamp", Reason: "must be set"}
	}
	ts, err := time.Parse(time.RFC3339, wire.Timestamp)
	if err != nil {
		return nil, &SchemaError{Field: "timestamp", Reason: "not a valid RFC 3339 time: " + wire.Timestamp}
	}
	env.Timestamp = ts

	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}
