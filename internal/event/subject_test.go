package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubject(t *testing.T) {
	subj, err := ParseSubject("tool.invoke.recon.port-scan")
	require.NoError(t, err)
	assert.Equal(t, "invoke", subj.Kind())
	assert.Equal(t, "recon", subj.Domain())
	assert.Equal(t, "port-scan", subj.Tool())
}

func TestParseSubjectRejectsBadGrammar(t *testing.T) {
	for _, input := range []string{
		"",
		"tool.invoke.recon",
		"tool.invoke.recon.port-scan.extra",
		"task.invoke.recon.port-scan",
		"tool.request.recon.port-scan",
		"tool.invoke..port-scan",
		"tool.invoke.recon.",
		"tool.invoke.RECON.port-scan",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseSubject(input)
			assert.ErrorIs(t, err, ErrSchemaViolation)
		})
	}
}

func TestSubjectResult(t *testing.T) {
	subj, err := ParseSubject("tool.invoke.recon.port-scan")
	require.NoError(t, err)
	assert.Equal(t, Subject("tool.result.recon.port-scan"), subj.Result())

	// Already a result subject: unchanged.
	assert.Equal(t, subj.Result(), subj.Result().Result())
}

func TestNewSubject(t *testing.T) {
	subj, err := NewSubject(KindResult, "exploitation", "sqlmap")
	require.NoError(t, err)
	assert.Equal(t, Subject("tool.result.exploitation.sqlmap"), subj)

	_, err = NewSubject("invoke", "", "sqlmap")
	assert.ErrorIs(t, err, ErrSchemaViolation)
}
