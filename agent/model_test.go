package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raciswarm/raciswarm/core"
	"github.com/raciswarm/raciswarm/model"
)

func newTestModelAgent(m model.Model) *ModelAgent {
	return NewModelAgent("admin", core.RoleAccountable, m, func(o *ModelAgentOptions) {
		o.Instructions = "Coordinate the swarm."
		o.Peers = []Peer{
			{ID: "helper", Role: core.RoleConsulted, Description: "knows file formats"},
		}
	})
}

func TestModelAgent_DirectAnswer(t *testing.T) {
	m := model.NewMockModel("test")
	m.AddResponse("what format?", "xlsx is fine")
	a := newTestModelAgent(m)

	resp, err := a.Respond(context.Background(), nil, "what format?")
	require.NoError(t, err)
	assert.Equal(t, "xlsx is fine", resp.Content)
	assert.Nil(t, resp.Delegation)
}

func TestModelAgent_DelegationDirective(t *testing.T) {
	m := model.NewMockModel("test")
	m.AddResponse("handle this", "DELEGATE helper: check the format\nI asked helper for input.")
	a := newTestModelAgent(m)

	resp, err := a.Respond(context.Background(), nil, "handle this")
	require.NoError(t, err)
	require.NotNil(t, resp.Delegation)
	assert.Equal(t, "helper", resp.Delegation.Recipient)
	assert.Equal(t, "check the format", resp.Delegation.Goal)
	assert.Equal(t, "I asked helper for input.", resp.Content)
}

func TestModelAgent_UnknownPeerStripped(t *testing.T) {
	m := model.NewMockModel("test")
	m.AddResponse("handle this", "DELEGATE nobody: do magic\nfallback answer")
	a := newTestModelAgent(m)

	resp, err := a.Respond(context.Background(), nil, "handle this")
	require.NoError(t, err)
	assert.Nil(t, resp.Delegation, "hallucinated recipients must not route envelopes")
	assert.Equal(t, "fallback answer", resp.Content)
}

func TestFragmentsToMessages(t *testing.T) {
	msgs := fragmentsToMessages([]core.Fragment{
		{FromUser: true, Content: "the request"},
		{Summary: true, Content: "earlier stuff"},
		{Sender: "helper", Content: "my input"},
	})
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "system", msgs[1].Role)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "helper", msgs[2].Name)
}
