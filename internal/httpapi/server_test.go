package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wraiths/core/internal/buildinfo"
	"github.com/wraiths/core/internal/config"
	"github.com/wraiths/core/internal/correlation"
)

func testServer(t *testing.T, readiness *Readiness) http.Handler {
	t.Helper()
	srv := NewServer(
		config.HTTPConfig{Addr: ":0", AllowedOrigins: []string{"*"}},
		buildinfo.Info{Service: "wraiths-core", Version: "1.0.0", Environment: "test"},
		readiness,
		nil,
	)
	return srv.Handler
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := get(t, testServer(t, NewReadiness()), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "wraiths-core", body["service"])
	assert.Equal(t, "1.0.0", body["version"])
}

func TestVersionEndpoint(t *testing.T) {
	rec := get(t, testServer(t, NewReadiness()), "/version")
	require.Equal(t, http.StatusOK, rec.Code)

	var info buildinfo.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "wraiths-core", info.Service)
	assert.Equal(t, "test", info.Environment)
}

func TestReadyEndpoint(t *testing.T) {
	readiness := NewReadiness()
	readiness.SetDependency("nats", DependencyStatus{Configured: true, Required: true})
	handler := testServer(t, readiness)

	// Not started yet.
	assert.Equal(t, http.StatusServiceUnavailable, get(t, handler, "/ready").Code)

	// Started but the required dependency is not connected.
	readiness.SetStarted(true)
	rec := get(t, handler, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body readyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Ready)
	require.Contains(t, body.Dependencies, "nats")
	assert.True(t, body.Dependencies["nats"].Required)

	// Dependency comes up.
	readiness.SetConnected("nats", true)
	rec = get(t, handler, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	// And goes away again.
	readiness.SetConnected("nats", false)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, handler, "/ready").Code)
}

func TestReadyIgnoresOptionalDependencies(t *testing.T) {
	readiness := NewReadiness()
	readiness.SetDependency("nats", DependencyStatus{Configured: false, Required: false})
	readiness.SetStarted(true)

	assert.Equal(t, http.StatusOK, get(t, testServer(t, readiness), "/ready").Code)
}

func TestCorrelationHeaderEchoed(t *testing.T) {
	handler := testServer(t, NewReadiness())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(correlation.Header, "corr-9")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "corr-9", rec.Header().Get(correlation.Header))

	// Generated when absent.
	rec = get(t, handler, "/health")
	assert.NotEmpty(t, rec.Header().Get(correlation.Header))
}

func TestSecurityHeaders(t *testing.T) {
	rec := get(t, testServer(t, NewReadiness()), "/health")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	// Environment "test" is not dev, so HSTS is present.
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeadersNoHSTSInDev(t *testing.T) {
	handler := Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), "dev")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}
