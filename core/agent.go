package core

import "context"

// Role is the closed RACI role variant. Role-specific behavior lives in the
// state machine and the memory projection rules, not in open-ended dynamic
// dispatch.
type Role int

const (
	// RoleResponsible executes the request and faces the user (the Initializer).
	RoleResponsible Role = iota
	// RoleAccountable owns the outcome and coordinates the exchange (the Admin).
	RoleAccountable
	// RoleConsulted provides input when asked.
	RoleConsulted
	// RoleInformed is kept updated but never drives the conversation.
	RoleInformed
)

// String returns the canonical role name.
func (r Role) String() string {
	switch r {
	case RoleResponsible:
		return "responsible"
	case RoleAccountable:
		return "accountable"
	case RoleConsulted:
		return "consulted"
	case RoleInformed:
		return "informed"
	default:
		return "unknown"
	}
}

// ParseRole maps a role name (as found in swarm definition files) to a Role.
// The single-letter shorthands r/a/c/i are accepted.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "responsible", "r":
		return RoleResponsible, true
	case "accountable", "a":
		return RoleAccountable, true
	case "consulted", "c":
		return RoleConsulted, true
	case "informed", "i":
		return RoleInformed, true
	default:
		return 0, false
	}
}

// Delegation is an agent's request to hand a narrowed sub-goal to another
// participant. Recipient is an agent id registered with the router.
type Delegation struct {
	Recipient string `json:"recipient"`
	Goal      string `json:"goal"`
}

// Response is the outcome of a single agent hop: either a final answer for
// the agent's role scope (Delegation nil) or a delegation carrying a
// narrowed sub-goal. Content is always the agent's own contribution and is
// admitted to conversation memory either way.
type Response struct {
	Content    string      `json:"content"`
	Delegation *Delegation `json:"delegation,omitempty"`
}

// Agent is the only contract tool-service participants must implement.
//
// Respond receives the memory projection for the agent's role plus the goal
// it is being asked to advance, and produces a Response. Agents never mutate
// conversation state directly; the orchestrator turns Responses into
// envelopes and applies them. Tool failures must be reported as a normal
// Response describing the failure, not as a panic; returned errors are
// treated as hop failures (retried once, then converted to a failure
// envelope for the Accountable agent).
//
// Respond must respect context cancellation: the orchestrator enforces a
// per-hop timeout through ctx.
type Agent interface {
	ID() string
	Role() Role
	Capabilities() []string
	Respond(ctx context.Context, contextSlice []Fragment, goal string) (Response, error)
}

// Fragment is one retained piece of conversation memory handed to an agent
// as context. It is either a single prior envelope or a summary of several.
type Fragment struct {
	ID         string `json:"id"`
	SequenceNo int    `json:"sequence_no"`
	Sender     string `json:"sender"`
	Recipient  string `json:"recipient"`
	Content    string `json:"content"`
	FromUser   bool   `json:"from_user"`
	Terminal   bool   `json:"terminal"`
	Summary    bool   `json:"summary"`
	Pinned     bool   `json:"pinned"`
}
