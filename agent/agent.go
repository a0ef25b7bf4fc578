// Package agent provides reusable core.Agent implementations: closure-backed
// agents for tests and tool adapters, fixed-route agents for user-facing
// Initializers, and model-backed agents that can decide delegation.
package agent

import (
	"context"

	"github.com/raciswarm/raciswarm/core"
)

// Base bundles the identity shared by all agent implementations: id, RACI
// role and capability tags. Embed it and supply Respond to satisfy
// core.Agent.
type Base struct {
	id           string
	role         core.Role
	capabilities []string
	description  string
}

// NewBase constructs a Base identity.
func NewBase(id string, role core.Role, capabilities ...string) Base {
	return Base{id: id, role: role, capabilities: capabilities}
}

// ID returns the agent's unique name.
func (b *Base) ID() string { return b.id }

// Role returns the agent's RACI role.
func (b *Base) Role() core.Role { return b.role }

// Capabilities returns the agent's capability tags.
func (b *Base) Capabilities() []string { return b.capabilities }

// Description returns the agent's capability description.
func (b *Base) Description() string { return b.description }

// SetDescription updates the capability description used in peer listings.
func (b *Base) SetDescription(desc string) { b.description = desc }

// RespondFunc is the signature of a single agent hop.
type RespondFunc func(ctx context.Context, contextSlice []core.Fragment, goal string) (core.Response, error)

// FuncAgent adapts a closure to core.Agent. It is the workhorse for tests
// and for wrapping external tool services whose invocation is the closure's
// private concern.
type FuncAgent struct {
	Base
	fn RespondFunc
}

// NewFuncAgent constructs a FuncAgent.
func NewFuncAgent(id string, role core.Role, fn RespondFunc, capabilities ...string) *FuncAgent {
	return &FuncAgent{Base: NewBase(id, role, capabilities...), fn: fn}
}

// Respond implements core.Agent.
func (a *FuncAgent) Respond(ctx context.Context, contextSlice []core.Fragment, goal string) (core.Response, error) {
	return a.fn(ctx, contextSlice, goal)
}

// StaticAgent always answers with a fixed reply. Useful for Informed agents
// and smoke tests.
type StaticAgent struct {
	Base
	reply string
}

// NewStaticAgent constructs a StaticAgent.
func NewStaticAgent(id string, role core.Role, reply string, capabilities ...string) *StaticAgent {
	return &StaticAgent{Base: NewBase(id, role, capabilities...), reply: reply}
}

// Respond implements core.Agent.
func (a *StaticAgent) Respond(ctx context.Context, _ []core.Fragment, _ string) (core.Response, error) {
	if err := ctx.Err(); err != nil {
		return core.Response{}, err
	}
	return core.Response{Content: a.reply}, nil
}

// ForwardingAgent always delegates the goal to a fixed recipient. This is
// the usual shape of an Initializer: it frames the user request and hands it
// to the Accountable agent for coordination.
type ForwardingAgent struct {
	Base
	recipient string
}

// NewForwardingAgent constructs a ForwardingAgent.
func NewForwardingAgent(id string, role core.Role, recipient string, capabilities ...string) *ForwardingAgent {
	return &ForwardingAgent{Base: NewBase(id, role, capabilities...), recipient: recipient}
}

// Respond implements core.Agent.
func (a *ForwardingAgent) Respond(ctx context.Context, _ []core.Fragment, goal string) (core.Response, error) {
	if err := ctx.Err(); err != nil {
		return core.Response{}, err
	}
	return core.Response{
		Content:    goal,
		Delegation: &core.Delegation{Recipient: a.recipient, Goal: goal},
	}, nil
}
