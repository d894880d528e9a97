// Package correlation resolves and propagates the identifier linking all
// events and requests in one causal chain. Once a correlation ID exists it
// is forwarded unchanged; it is only ever generated when absent.
package correlation

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wraiths/core/internal/event"
)

// Header is the HTTP header carrying the correlation ID in both directions.
const Header = "X-Correlation-Id"

type ctxKey struct{}

// WithID returns a context carrying the correlation ID.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the correlation ID stored in the context, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Generate returns a fresh low-collision-probability identifier.
func Generate() string { return uuid.NewString() }

// Resolve returns the existing identifier when present and well formed,
// otherwise a freshly generated one. It never returns an empty string.
func Resolve(existing string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return Generate()
	}
	return existing
}

// FromRequest resolves the correlation ID for an inbound HTTP request.
func FromRequest(r *http.Request) string {
	return Resolve(r.Header.Get(Header))
}

// FromEnvelope resolves the correlation ID for a consumed envelope.
func FromEnvelope(env *event.Envelope) string {
	return Resolve(env.CorrelationID)
}

// Middleware resolves the request's correlation ID, stores it in the request
// context and echoes it in the response header so external callers can
// retrieve the value that was actually used.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := FromRequest(r)
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}
