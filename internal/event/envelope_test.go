package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryInvoke(t *testing.T) {
	now := time.Date(2025, 9, 14, 10, 30, 0, 0, time.UTC)
	factory := NewFactory(Source{Service: "wraiths-core", Version: "1.0.0"}, clockwork.NewFakeClockAt(now))

	env, err := factory.Invoke("recon", "port-scan", "corr-1", json.RawMessage(`{"target":"10.0.0.1"}`))
	require.NoError(t, err)

	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "corr-1", env.CorrelationID)
	assert.Equal(t, now, env.Timestamp)
	assert.Equal(t, Subject("tool.invoke.recon.port-scan"), env.Subject)
	assert.Equal(t, TypeInvoke, env.EventType)
	assert.Equal(t, Source{Service: "wraiths-core", Version: "1.0.0"}, env.Source)
}

func TestFactoryAssignsUniqueEventIDs(t *testing.T) {
	factory := NewFactory(Source{Service: "wraiths-core", Version: "1.0.0"}, clockwork.NewRealClock())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		env, err := factory.Invoke("recon", "port-scan", "corr-1", nil)
		require.NoError(t, err)
		assert.False(t, seen[env.EventID], "event ID reused")
		seen[env.EventID] = true
	}
}

func TestFactoryResultKeepsCorrelationID(t *testing.T) {
	factory := NewFactory(Source{Service: "wraiths-core", Version: "1.0.0"}, clockwork.NewRealClock())

	invoke, err := factory.Invoke("recon", "port-scan", "corr-7", nil)
	require.NoError(t, err)

	result, err := factory.Result(invoke, json.RawMessage(`{"open":[22,80]}`))
	require.NoError(t, err)
	assert.Equal(t, "corr-7", result.CorrelationID)
	assert.Equal(t, Subject("tool.result.recon.port-scan"), result.Subject)
	assert.Equal(t, TypeResult, result.EventType)
	assert.NotEqual(t, invoke.EventID, result.EventID)

	errEnv, err := factory.Error(invoke, json.RawMessage(`{"error":"timeout"}`))
	require.NoError(t, err)
	assert.Equal(t, "corr-7", errEnv.CorrelationID)
	assert.Equal(t, Subject("tool.result.recon.port-scan"), errEnv.Subject)
	assert.Equal(t, TypeError, errEnv.EventType)
}

func TestFactoryRejectsEmptyCorrelationID(t *testing.T) {
	factory := NewFactory(Source{Service: "wraiths-core", Version: "1.0.0"}, clockwork.NewRealClock())

	_, err := factory.Invoke("recon", "port-scan", "", nil)
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestEnvelopeValidateTypeSubjectConsistency(t *testing.T) {
	env := validEnvelope(t)

	env.EventType = TypeResult
	assert.ErrorIs(t, env.Validate(), ErrSchemaViolation)

	env.Subject = env.Subject.Result()
	assert.NoError(t, env.Validate())

	env.EventType = TypeError
	assert.NoError(t, env.Validate())

	env.EventType = TypeInvoke
	assert.ErrorIs(t, env.Validate(), ErrSchemaViolation)
}
