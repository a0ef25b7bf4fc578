// Package router resolves incoming requests to the swarm that claims their
// capability tag. The registry is read-mostly: lookups take a shared lock and
// may run concurrently across conversations, registration takes an exclusive
// lock and normally happens once at startup.
package router

import (
	"fmt"
	"sync"

	"github.com/raciswarm/raciswarm/core"
	"github.com/raciswarm/raciswarm/logging"
)

// Registry holds the registered agents and swarms. Agents are shared by
// reference: a swarm stores the same Agent instance the registry does, and an
// agent may be a member of any number of swarms. Resolving never clones
// agent state.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]core.Agent
	swarms map[string]*core.Swarm
	logger logging.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Registry{
		agents: make(map[string]core.Agent),
		swarms: make(map[string]*core.Swarm),
		logger: logger,
	}
}

// RegisterAgent makes an agent available for swarm membership and envelope
// delivery. Re-registering an id replaces the previous instance.
func (r *Registry) RegisterAgent(a core.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.ID()] = a
	r.logger.Debug("agent registered", "agent_id", a.ID(), "role", a.Role().String())
}

// RegisterSwarm validates and registers a swarm built from previously
// registered agent ids.
func (r *Registry) RegisterSwarm(name string, capabilities []string, memberIDs ...string) (*core.Swarm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := make([]core.Agent, 0, len(memberIDs))
	for _, id := range memberIDs {
		a, ok := r.agents[id]
		if !ok {
			return nil, fmt.Errorf("swarm %s: member %s: %w", name, id, core.ErrUnknownAgent)
		}
		members = append(members, a)
	}
	swarm, err := core.NewSwarm(name, capabilities, members...)
	if err != nil {
		return nil, err
	}
	r.swarms[name] = swarm
	r.logger.Info("swarm registered", "swarm", name, "capabilities", capabilities)
	return swarm, nil
}

// Resolve selects the registered swarm claiming the given capability tag.
// Returns ErrNoMatchingSwarm when no swarm claims it; callers surface that as
// an "unsupported request" response, not a crash.
func (r *Registry) Resolve(capability string) (*core.Swarm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.swarms {
		if s.Claims(capability) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("capability %q: %w", capability, core.ErrNoMatchingSwarm)
}

// Agent looks up a registered agent by id.
func (r *Registry) Agent(id string) (core.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent %q: %w", id, core.ErrUnknownAgent)
	}
	return a, nil
}

// Swarm looks up a registered swarm by name.
func (r *Registry) Swarm(name string) (*core.Swarm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.swarms[name]
	if !ok {
		return nil, fmt.Errorf("swarm %q: %w", name, core.ErrNoMatchingSwarm)
	}
	return s, nil
}

// Swarms returns the registered swarm names.
func (r *Registry) Swarms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.swarms))
	for name := range r.swarms {
		names = append(names, name)
	}
	return names
}
