// Package httpapi is the service's HTTP boundary: liveness, readiness and
// version endpoints plus the event-stream upgrade, behind the CORS,
// security-header, correlation and request-logging middleware chain.
package httpapi

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/wraiths/core/internal/buildinfo"
	"github.com/wraiths/core/internal/config"
	"github.com/wraiths/core/internal/correlation"
)

// StreamHandler is the optional WebSocket event-stream endpoint, satisfied
// by the gateway manager.
type StreamHandler interface {
	HandleStream(w http.ResponseWriter, r *http.Request)
}

// NewServer builds the HTTP server with all routes and middleware wired.
func NewServer(cfg config.HTTPConfig, info buildinfo.Info, readiness *Readiness, stream StreamHandler) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler(info))
	mux.HandleFunc("GET /version", versionHandler(info))
	mux.HandleFunc("GET /ready", readyHandler(info, readiness))
	if stream != nil {
		mux.HandleFunc("GET /events/stream", stream.HandleStream)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := Handler(mux, info.Environment)
	handler = c.Handler(handler)

	return &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}
}

// Handler wraps h in the middleware chain shared by all routes: security
// headers, then correlation resolution, then request logging.
func Handler(h http.Handler, environment string) http.Handler {
	wrapped := RequestLogger(h)
	wrapped = correlation.Middleware(wrapped)
	wrapped = SecurityHeaders(environment)(wrapped)
	return wrapped
}
