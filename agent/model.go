package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/raciswarm/raciswarm/core"
	"github.com/raciswarm/raciswarm/model"
)

// delegatePrefix is the directive a model-backed agent emits on its first
// line to hand a narrowed sub-goal to a peer.
const delegatePrefix = "DELEGATE"

// Peer describes a fellow swarm member a model-backed agent may delegate to.
type Peer struct {
	ID          string
	Role        core.Role
	Description string
}

// ModelAgentOptions configure a ModelAgent.
type ModelAgentOptions struct {
	// Instructions is the role/goal preamble placed before the generated
	// peer listing.
	Instructions string
	// Peers lists the swarm members this agent may delegate to. An empty
	// list produces an agent that always answers directly.
	Peers []Peer
}

// ModelAgent is a core.Agent backed by a language model. The model sees the
// projected conversation memory plus a listing of its peers, and may either
// answer within its role scope or emit a delegation directive
// ("DELEGATE <agent-id>: <sub-goal>") as its first line. Directives naming
// unknown peers are stripped and the remainder treated as a plain answer, so
// a hallucinated recipient can never route an envelope.
type ModelAgent struct {
	Base
	model        model.Model
	instructions string
	peers        []Peer
}

// NewModelAgent constructs a ModelAgent.
func NewModelAgent(id string, role core.Role, m model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ModelAgent{
		Base:         NewBase(id, role),
		model:        m,
		instructions: opts.Instructions,
		peers:        opts.Peers,
	}
}

// Respond implements core.Agent.
func (a *ModelAgent) Respond(ctx context.Context, contextSlice []core.Fragment, goal string) (core.Response, error) {
	req := model.Request{
		Instructions: a.buildInstructions(),
		Messages:     append(fragmentsToMessages(contextSlice), model.Message{Role: "user", Content: goal}),
	}
	resp, err := a.model.Generate(ctx, req)
	if err != nil {
		return core.Response{}, fmt.Errorf("agent %s: %w", a.ID(), err)
	}
	return a.parse(resp.Content), nil
}

func (a *ModelAgent) buildInstructions() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, the %s agent of a RACI swarm.\n", a.ID(), a.Role())
	if a.instructions != "" {
		b.WriteString(a.instructions)
		b.WriteString("\n")
	}
	if len(a.peers) == 0 {
		b.WriteString("Answer the request within your role scope.")
		return b.String()
	}
	b.WriteString("You may delegate a narrowed sub-goal to one of these agents:\n")
	for _, p := range a.peers {
		fmt.Fprintf(&b, "  - %s (%s): %s\n", p.ID, p.Role, p.Description)
	}
	fmt.Fprintf(&b, "To delegate, start your reply with a line of the form %q. Otherwise answer directly.", delegatePrefix+" <agent-id>: <sub-goal>")
	return b.String()
}

// parse splits a delegation directive off the completion, if present and
// addressed to a known peer.
func (a *ModelAgent) parse(completion string) core.Response {
	first, rest, _ := strings.Cut(strings.TrimSpace(completion), "\n")
	if !strings.HasPrefix(first, delegatePrefix+" ") {
		return core.Response{Content: strings.TrimSpace(completion)}
	}
	target, goal, ok := strings.Cut(strings.TrimPrefix(first, delegatePrefix+" "), ":")
	if !ok {
		return core.Response{Content: strings.TrimSpace(completion)}
	}
	target = strings.TrimSpace(target)
	if !a.knowsPeer(target) {
		return core.Response{Content: strings.TrimSpace(rest)}
	}
	return core.Response{
		Content:    strings.TrimSpace(rest),
		Delegation: &core.Delegation{Recipient: target, Goal: strings.TrimSpace(goal)},
	}
}

func (a *ModelAgent) knowsPeer(id string) bool {
	for _, p := range a.peers {
		if p.ID == id {
			return true
		}
	}
	return false
}

// fragmentsToMessages converts projected memory into chat turns: user turns
// stay user, summaries become system context, agent traffic becomes named
// assistant turns.
func fragmentsToMessages(fragments []core.Fragment) []model.Message {
	msgs := make([]model.Message, 0, len(fragments))
	for _, f := range fragments {
		switch {
		case f.Summary:
			msgs = append(msgs, model.Message{Role: "system", Content: "Summary of earlier exchange:\n" + f.Content})
		case f.FromUser:
			msgs = append(msgs, model.Message{Role: "user", Content: f.Content})
		default:
			msgs = append(msgs, model.Message{Role: "assistant", Name: f.Sender, Content: f.Content})
		}
	}
	return msgs
}
