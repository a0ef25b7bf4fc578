package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raciswarm/raciswarm/model"
	"github.com/raciswarm/raciswarm/router"
)

const sampleFile = `
swarms:
  - name: file-swarm
    capabilities: [file-generation]
    agents:
      - id: starter
        role: responsible
        forward_to: admin
      - id: admin
        role: accountable
        model: mock-model
        description: coordinates the file swarm
      - id: format-helper
        role: consulted
        reply: "xlsx works"
`

func TestParseAndApply(t *testing.T) {
	f, err := Parse([]byte(sampleFile))
	require.NoError(t, err)
	require.Len(t, f.Swarms, 1)

	reg := router.NewRegistry(nil)
	err = f.Apply(reg, func(name string) model.Model { return model.NewMockModel(name) })
	require.NoError(t, err)

	s, err := reg.Resolve("file-generation")
	require.NoError(t, err)
	assert.Equal(t, "file-swarm", s.Name)
	assert.Equal(t, "starter", s.Initializer().ID())
	assert.Equal(t, "admin", s.Admin().ID())
	require.NotNil(t, s.Member("format-helper"))
}

func TestParse_RejectsBadRoles(t *testing.T) {
	_, err := Parse([]byte(`
swarms:
  - name: broken
    capabilities: [x]
    agents:
      - id: a
        role: boss
        reply: hi
`))
	assert.ErrorContains(t, err, "unknown role")
}

func TestParse_EnforcesRACIInvariants(t *testing.T) {
	_, err := Parse([]byte(`
swarms:
  - name: broken
    capabilities: [x]
    agents:
      - id: a
        role: consulted
        reply: hi
`))
	assert.ErrorContains(t, err, "exactly one responsible")
}

func TestApply_ModelAgentNeedsFactory(t *testing.T) {
	f, err := Parse([]byte(sampleFile))
	require.NoError(t, err)
	err = f.Apply(router.NewRegistry(nil), nil)
	assert.ErrorContains(t, err, "model factory")
}
