package httpapi

import "sync"

// DependencyStatus is the readiness detail for one external dependency.
// Connected is nil when the state is unknown (e.g. the dependency is not
// configured at all).
type DependencyStatus struct {
	Configured bool  `json:"configured"`
	Connected  *bool `json:"connected"`
	Required   bool  `json:"required"`
}

// Readiness tracks service startup and dependency health for /ready.
type Readiness struct {
	mu      sync.RWMutex
	started bool
	deps    map[string]DependencyStatus
}

func NewReadiness() *Readiness {
	return &Readiness{deps: make(map[string]DependencyStatus)}
}

// SetStarted flips the base readiness bit once startup completes.
func (r *Readiness) SetStarted(started bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = started
}

// SetDependency records or replaces a dependency's status.
func (r *Readiness) SetDependency(name string, status DependencyStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deps[name] = status
}

// SetConnected updates only the connected state of a known dependency.
func (r *Readiness) SetConnected(name string, connected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := r.deps[name]
	status.Connected = &connected
	r.deps[name] = status
}

// Ready reports whether the service has started and every required
// dependency is connected.
func (r *Readiness) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.started {
		return false
	}
	for _, dep := range r.deps {
		if dep.Required && (dep.Connected == nil || !*dep.Connected) {
			return false
		}
	}
	return true
}

// Snapshot returns a copy of the dependency table for the /ready body.
func (r *Readiness) Snapshot() map[string]DependencyStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]DependencyStatus, len(r.deps))
	for name, dep := range r.deps {
		out[name] = dep
	}
	return out
}
