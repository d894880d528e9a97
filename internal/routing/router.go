package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/wraiths/core/internal/event"
)

// ErrNoRouteFound marks a dispatch against a subject no registered pattern
// matches. It is reportable but non-fatal; the caller decides whether to
// drop, dead-letter or alert.
var ErrNoRouteFound = errors.New("no route found")

// Handler processes a dispatched envelope and returns the result payload to
// publish under the corresponding tool.result subject.
type Handler func(ctx context.Context, env *event.Envelope) (json.RawMessage, error)

type route struct {
	pattern Pattern
	handler Handler
}

// Router maps subjects to handlers. Registration is expected to happen once
// at process start, before traffic begins; the table is immutable afterwards.
type Router struct {
	mu     sync.RWMutex
	exact  map[string]Handler
	ranked []route
}

func NewRouter() *Router {
	return &Router{exact: make(map[string]Handler)}
}

// Register binds a pattern to a handler. The pattern follows the subject
// grammar; the domain and tool segments may be the wildcard "*", the kind
// segment must be literal. Registering a duplicate pattern is an error.
func (r *Router) Register(pattern string, h Handler) error {
	if h == nil {
		return fmt.Errorf("register %q: nil handler", pattern)
	}
	p, err := ParsePattern(pattern)
	if err != nil {
		return err
	}
	if p.Kind == Wildcard {
		return fmt.Errorf("register %q: kind segment must be literal", pattern)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.Wildcards() == 0 {
		if _, ok := r.exact[p.String()]; ok {
			return fmt.Errorf("register %q: duplicate pattern", pattern)
		}
		r.exact[p.String()] = h
		return nil
	}
	for _, existing := range r.ranked {
		if existing.pattern == p {
			return fmt.Errorf("register %q: duplicate pattern", pattern)
		}
	}
	r.ranked = append(r.ranked, route{pattern: p, handler: h})
	return nil
}

// Dispatch routes the envelope to the handler with the best-matching
// pattern. An exact match always beats wildcard matches; among wildcard
// matches the one with the fewest wildcards wins, and at equal wildcard
// count the pattern whose wildcard sits further right wins, so
// tool.invoke.recon.* beats tool.invoke.*.port-scan. Fails with
// ErrNoRouteFound when nothing matches.
func (r *Router) Dispatch(ctx context.Context, env *event.Envelope) (json.RawMessage, error) {
	h, err := r.resolve(env.Subject)
	if err != nil {
		return nil, err
	}
	return h(ctx, env)
}

func (r *Router) resolve(subject event.Subject) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.exact[subject.String()]; ok {
		return h, nil
	}

	var best *route
	for i := range r.ranked {
		candidate := &r.ranked[i]
		if !candidate.pattern.Match(subject) {
			continue
		}
		if best == nil || moreSpecific(candidate.pattern, best.pattern) {
			best = candidate
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRouteFound, subject)
	}
	return best.handler, nil
}

func moreSpecific(a, b Pattern) bool {
	if a.Wildcards() != b.Wildcards() {
		return a.Wildcards() < b.Wildcards()
	}
	return a.specificity() > b.specificity()
}
