package core

import "fmt"

// Swarm is a named, reusable set of agents with assigned RACI roles for a
// class of requests. Swarms hold agent references, never copies: the same
// agent instance may belong to many swarms simultaneously, so resolving a
// swarm never clones agent state.
type Swarm struct {
	Name         string
	Capabilities []string
	Members      []Agent
	CreatedBy    string
}

// NewSwarm validates the RACI invariants and returns the swarm: exactly one
// Responsible member (the Initializer) and exactly one Accountable member
// (the Admin); Consulted and Informed sets may be empty or many.
func NewSwarm(name string, capabilities []string, members ...Agent) (*Swarm, error) {
	var responsible, accountable int
	for _, m := range members {
		switch m.Role() {
		case RoleResponsible:
			responsible++
		case RoleAccountable:
			accountable++
		}
	}
	if responsible != 1 {
		return nil, fmt.Errorf("swarm %s: want exactly one responsible member, have %d", name, responsible)
	}
	if accountable != 1 {
		return nil, fmt.Errorf("swarm %s: want exactly one accountable member, have %d", name, accountable)
	}
	return &Swarm{Name: name, Capabilities: capabilities, Members: members}, nil
}

// Initializer returns the single Responsible member.
func (s *Swarm) Initializer() Agent { return s.byRole(RoleResponsible) }

// Admin returns the single Accountable member.
func (s *Swarm) Admin() Agent { return s.byRole(RoleAccountable) }

func (s *Swarm) byRole(r Role) Agent {
	for _, m := range s.Members {
		if m.Role() == r {
			return m
		}
	}
	return nil
}

// Member returns the member with the given id, or nil.
func (s *Swarm) Member(id string) Agent {
	for _, m := range s.Members {
		if m.ID() == id {
			return m
		}
	}
	return nil
}

// Claims reports whether the swarm declares the given capability tag.
func (s *Swarm) Claims(capability string) bool {
	for _, c := range s.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}
