package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDefaults(t *testing.T) {
	info := Get("dev")
	assert.Equal(t, "wraiths-core", info.Service)
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "dev", info.Environment)
	assert.NotEmpty(t, info.BuildTime)
}

func TestGetFallsBackToEnv(t *testing.T) {
	t.Setenv("GIT_COMMIT", "abc1234")
	t.Setenv("GIT_BRANCH", "main")

	info := Get("prod")
	assert.Equal(t, "abc1234", info.Commit)
	assert.Equal(t, "main", info.Branch)
}
