package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings("")
	require.NoError(t, err)

	assert.Equal(t, 10, s.Engine.HopLimit)
	assert.Equal(t, 30*time.Second, s.Engine.HopTimeout)
	assert.Equal(t, 500*time.Millisecond, s.Engine.RetryBackoff)
	assert.Equal(t, 10*time.Minute, s.Engine.IdleTimeout)
	assert.Equal(t, 8192, s.Memory.Budget)
	assert.Equal(t, "", s.Archive.Path)
	assert.Equal(t, "mock", s.Models.Provider)
}

func TestLoadSettings_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	data := []byte(`
engine:
  hop_limit: 4
  hop_timeout: 5s
memory:
  budget: 1024
archive:
  path: /tmp/raciswarm.db
models:
  provider: openai
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, 4, s.Engine.HopLimit)
	assert.Equal(t, 5*time.Second, s.Engine.HopTimeout)
	assert.Equal(t, 1024, s.Memory.Budget)
	assert.Equal(t, "/tmp/raciswarm.db", s.Archive.Path)
	assert.Equal(t, "openai", s.Models.Provider)
	// Unset values keep their defaults.
	assert.Equal(t, 4, s.Memory.RecentWindow)
}

func TestLoadSettings_Validation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models:\n  provider: carrier-pigeon\n"), 0o644))

	_, err := LoadSettings(path)
	assert.ErrorContains(t, err, "unknown models.provider")
}

func TestLoadSettings_EnvOverride(t *testing.T) {
	t.Setenv("RACISWARM_HOP_LIMIT", "3")

	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Engine.HopLimit)
}
