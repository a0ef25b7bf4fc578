package router

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raciswarm/raciswarm/core"
)

type fixedAgent struct {
	id   string
	role core.Role
}

func (a *fixedAgent) ID() string             { return a.id }
func (a *fixedAgent) Role() core.Role        { return a.role }
func (a *fixedAgent) Capabilities() []string { return nil }
func (a *fixedAgent) Respond(context.Context, []core.Fragment, string) (core.Response, error) {
	return core.Response{}, nil
}

func populated(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(nil)
	r.RegisterAgent(&fixedAgent{"starter", core.RoleResponsible})
	r.RegisterAgent(&fixedAgent{"admin", core.RoleAccountable})
	r.RegisterAgent(&fixedAgent{"helper", core.RoleConsulted})
	_, err := r.RegisterSwarm("file-swarm", []string{"file-generation", "file-reading"}, "starter", "admin", "helper")
	require.NoError(t, err)
	return r
}

func TestRegistry_Resolve(t *testing.T) {
	r := populated(t)

	s, err := r.Resolve("file-generation")
	require.NoError(t, err)
	assert.Equal(t, "file-swarm", s.Name)

	_, err = r.Resolve("generate-excel")
	assert.ErrorIs(t, err, core.ErrNoMatchingSwarm)
}

func TestRegistry_SwarmSharesAgentsByReference(t *testing.T) {
	r := populated(t)
	_, err := r.RegisterSwarm("reader-swarm", []string{"rule-inference"}, "starter", "admin")
	require.NoError(t, err)

	a, err := r.Agent("starter")
	require.NoError(t, err)
	s1, err := r.Swarm("file-swarm")
	require.NoError(t, err)
	s2, err := r.Swarm("reader-swarm")
	require.NoError(t, err)

	// Both swarms and the registry hold the same instance; resolving never
	// clones agent state.
	assert.Same(t, s1.Initializer(), s2.Initializer())
	assert.Same(t, a, s1.Initializer())
}

func TestRegistry_SwarmValidation(t *testing.T) {
	r := populated(t)

	_, err := r.RegisterSwarm("ghost", []string{"x"}, "starter", "nobody")
	assert.ErrorIs(t, err, core.ErrUnknownAgent)

	_, err = r.RegisterSwarm("headless", []string{"x"}, "helper")
	assert.Error(t, err, "RACI invariants still hold at registration time")
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	r := populated(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := r.Resolve("file-reading"); err != nil {
					t.Error(err)
					return
				}
				if _, err := r.Agent("admin"); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
