package routing

import (
	"fmt"
	"strings"

	"github.com/wraiths/core/internal/event"
)

// Wildcard matches any single segment in a pattern.
const Wildcard = "*"

// Pattern is a subject match expression using the subject grammar
// tool.<invoke|result>.<domain>.<tool>, where any of the kind, domain and
// tool segments may be the wildcard "*". Router registration additionally
// requires a literal kind; the general form exists for stream filters.
type Pattern struct {
	Kind   string
	Domain string
	Tool   string
}

// ParsePattern validates and parses a pattern string.
func ParsePattern(s string) (Pattern, error) {
	segments := strings.Split(s, ".")
	if len(segments) != 4 {
		return Pattern{}, fmt.Errorf("pattern %q: expected 4 segments, got %d", s, len(segments))
	}
	if segments[0] != "tool" {
		return Pattern{}, fmt.Errorf("pattern %q: first segment must be %q", s, "tool")
	}
	if segments[1] != event.KindInvoke && segments[1] != event.KindResult && segments[1] != Wildcard {
		return Pattern{}, fmt.Errorf("pattern %q: kind must be %q, %q or %q", s, event.KindInvoke, event.KindResult, Wildcard)
	}
	for _, seg := range segments[2:] {
		if seg == "" {
			return Pattern{}, fmt.Errorf("pattern %q: empty segment", s)
		}
		if seg != Wildcard && seg != strings.ToLower(seg) {
			return Pattern{}, fmt.Errorf("pattern %q: segment %q must be lowercase", s, seg)
		}
	}
	return Pattern{Kind: segments[1], Domain: segments[2], Tool: segments[3]}, nil
}

// Match reports whether the pattern matches a parsed subject.
func (p Pattern) Match(s event.Subject) bool {
	return segmentMatch(p.Kind, s.Kind()) &&
		segmentMatch(p.Domain, s.Domain()) &&
		segmentMatch(p.Tool, s.Tool())
}

// Wildcards returns the number of wildcard segments in the pattern.
func (p Pattern) Wildcards() int {
	n := 0
	for _, seg := range []string{p.Kind, p.Domain, p.Tool} {
		if seg == Wildcard {
			n++
		}
	}
	return n
}

// specificity orders patterns with the same wildcard count: a pattern whose
// wildcard sits further right is more specific, so a literal in an earlier
// segment scores higher than a literal in a later one.
func (p Pattern) specificity() int {
	score := 0
	if p.Kind != Wildcard {
		score += 4
	}
	if p.Domain != Wildcard {
		score += 2
	}
	if p.Tool != Wildcard {
		score += 1
	}
	return score
}

func (p Pattern) String() string {
	return "tool." + p.Kind + "." + p.Domain + "." + p.Tool
}

func segmentMatch(pattern, segment string) bool {
	return pattern == Wildcard || pattern == segment
}
