// Package schema holds per-tool payload validators. The envelope layer
// treats payloads as opaque; validation happens here, at the handler
// boundary, keyed by (domain, tool).
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/wraiths/core/internal/event"
)

// Validator checks a payload against the schema of one (domain, tool) pair.
type Validator interface {
	Validate(payload json.RawMessage) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(payload json.RawMessage) error

func (f ValidatorFunc) Validate(payload json.RawMessage) error { return f(payload) }

type key struct {
	domain string
	tool   string
}

// Registry maps (domain, tool) pairs to payload validators. Like the router,
// it is populated at startup and read-only afterwards.
type Registry struct {
	mu         sync.RWMutex
	validators map[key]Validator
}

func NewRegistry() *Registry {
	return &Registry{validators: make(map[key]Validator)}
}

// Register binds a validator to a (domain, tool) pair, replacing any
// previous registration.
func (r *Registry) Register(domain, tool string, v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[key{domain: domain, tool: tool}] = v
}

// Validate runs the registered validator for the subject's (domain, tool)
// pair. Pairs without a registered validator pass unchecked. Validation
// failures wrap event.ErrSchemaViolation.
func (r *Registry) Validate(subject event.Subject, payload json.RawMessage) error {
	r.mu.RLock()
	v, ok := r.validators[key{domain: subject.Domain(), tool: subject.Tool()}]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := v.Validate(payload); err != nil {
		return fmt.Errorf("%w: payload for %s: %v", event.ErrSchemaViolation, subject, err)
	}
	return nil
}

// RequiredKeys returns a validator requiring the payload to be a JSON object
// containing all the given keys.
func RequiredKeys(keys ...string) Validator {
	return ValidatorFunc(func(payload json.RawMessage) error {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(payload, &obj); err != nil {
			return fmt.Errorf("not a JSON object: %v", err)
		}
		for _, k := range keys {
			if _, ok := obj[k]; !ok {
				return fmt.Errorf("missing key %q", k)
			}
		}
		return nil
	})
}
