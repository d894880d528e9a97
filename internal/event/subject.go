package event

import (
	"fmt"
	"strings"
)

// Subject kinds. The second segment of every subject is one of these.
const (
	KindInvoke = "invoke"
	KindResult = "result"
)

const subjectSegments = 4

// Subject is the hierarchical routing string for an envelope:
// tool.<invoke|result>.<domain>.<tool>. All segments are lowercase and
// separated by a single dot. The first segment is always the literal "tool".
type Subject string

// ParseSubject validates s against the subject grammar and returns it as a
// Subject. The error wraps ErrSchemaViolation.
func ParseSubject(s string) (Subject, error) {
	subj := Subject(s)
	if err := subj.Validate(); err != nil {
		return "", err
	}
	return subj, nil
}

// NewSubject builds a subject from its variable segments.
func NewSubject(kind, domain, tool string) (Subject, error) {
	return ParseSubject("tool." + kind + "." + domain + "." + tool)
}

// Validate checks the subject grammar: exactly four non-empty dot-separated
// lowercase segments, first segment "tool", second "invoke" or "result".
func (s Subject) Validate() error {
	segments := strings.Split(string(s), ".")
	if len(segments) != subjectSegments {
		return &SchemaError{
			Field:  "subject",
			Reason: fmt.Sprintf("expected %d segments, got %d", subjectSegments, len(segments)),
		}
	}
	if segments[0] != "tool" {
		return &SchemaError{Field: "subject", Reason: fmt.Sprintf("first segment must be %q, got %q", "tool", segments[0])}
	}
	if segments[1] != KindInvoke && segments[1] != KindResult {
		return &SchemaError{Field: "subject", Reason: fmt.Sprintf("kind must be %q or %q, got %q", KindInvoke, KindResult, segments[1])}
	}
	for i, seg := range segments {
		if seg == "" {
			return &SchemaError{Field: "subject", Reason: fmt.Sprintf("segment %d is empty", i)}
		}
		if seg != strings.ToLower(seg) {
			return &SchemaError{Field: "subject", Reason: fmt.Sprintf("segment %q must be lowercase", seg)}
		}
	}
	return nil
}

// Kind returns the second segment ("invoke" or "result").
func (s Subject) Kind() string { return s.segment(1) }

// Domain returns the third segment, the functional tool category.
func (s Subject) Domain() string { return s.segment(2) }

// Tool returns the fourth segment, the tool name within the domain.
func (s Subject) Tool() string { return s.segment(3) }

// Result returns the tool.result.<domain>.<tool> counterpart of an invoke
// subject. Calling it on a result subject returns the subject unchanged.
func (s Subject) Result() Subject {
	return Subject("tool." + KindResult + "." + s.Domain() + "." + s.Tool())
}

func (s Subject) String() string { return string(s) }

func (s Subject) segment(i int) string {
	segments := strings.Split(string(s), ".")
	if i >= len(segments) {
		return ""
	}
	return segments[i]
}
