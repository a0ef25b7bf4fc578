// Package config loads swarm definitions from YAML files and registers the
// resulting agents and swarms with a router registry.
//
// Definition shape:
//
//	swarms:
//	  - name: file-swarm
//	    capabilities: [file-generation]
//	    agents:
//	      - id: starter
//	        role: responsible
//	        forward_to: admin
//	      - id: admin
//	        role: accountable
//	        model: gpt-4o-mini
//	      - id: format-helper
//	        role: consulted
//	        reply: "xlsx works"
//
// An agent entry with forward_to produces a fixed-route agent, one with
// model a model-backed agent (peers are its fellow swarm members), and one
// with reply a static agent.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/raciswarm/raciswarm/agent"
	"github.com/raciswarm/raciswarm/core"
	"github.com/raciswarm/raciswarm/model"
	"github.com/raciswarm/raciswarm/router"
)

// SwarmFile is the top-level definition document.
type SwarmFile struct {
	Swarms []SwarmDef `yaml:"swarms"`
}

// SwarmDef declares one swarm and its members.
type SwarmDef struct {
	Name         string     `yaml:"name"`
	Capabilities []string   `yaml:"capabilities"`
	Agents       []AgentDef `yaml:"agents"`
}

// AgentDef declares a swarm member. Exactly one of forward_to, model or
// reply selects the implementation.
type AgentDef struct {
	ID           string   `yaml:"id"`
	Role         string   `yaml:"role"`
	Description  string   `yaml:"description"`
	Capabilities []string `yaml:"capabilities"`
	ForwardTo    string   `yaml:"forward_to"`
	Model        string   `yaml:"model"`
	Reply        string   `yaml:"reply"`
}

// Load reads and validates a swarm definition file.
func Load(path string) (*SwarmFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read swarm file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates swarm definitions.
func Parse(raw []byte) (*SwarmFile, error) {
	var f SwarmFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse swarm file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks role names and the RACI membership invariants before any
// registration happens, so a bad file fails as a whole.
func (f *SwarmFile) Validate() error {
	if len(f.Swarms) == 0 {
		return fmt.Errorf("swarm file declares no swarms")
	}
	for _, s := range f.Swarms {
		if s.Name == "" {
			return fmt.Errorf("swarm with empty name")
		}
		if len(s.Capabilities) == 0 {
			return fmt.Errorf("swarm %s: no capabilities declared", s.Name)
		}
		var responsible, accountable int
		for _, a := range s.Agents {
			role, ok := core.ParseRole(a.Role)
			if !ok {
				return fmt.Errorf("swarm %s: agent %s: unknown role %q", s.Name, a.ID, a.Role)
			}
			switch role {
			case core.RoleResponsible:
				responsible++
			case core.RoleAccountable:
				accountable++
			}
		}
		if responsible != 1 || accountable != 1 {
			return fmt.Errorf("swarm %s: want exactly one responsible and one accountable member", s.Name)
		}
	}
	return nil
}

// ModelFactory builds a model.Model for a model id named in a definition.
type ModelFactory func(name string) model.Model

// Apply registers every agent and swarm from the file. newModel may be nil
// when no agent entry names a model.
func (f *SwarmFile) Apply(reg *router.Registry, newModel ModelFactory) error {
	for _, s := range f.Swarms {
		memberIDs := make([]string, 0, len(s.Agents))
		for _, def := range s.Agents {
			a, err := buildAgent(def, s, newModel)
			if err != nil {
				return fmt.Errorf("swarm %s: %w", s.Name, err)
			}
			reg.RegisterAgent(a)
			memberIDs = append(memberIDs, def.ID)
		}
		if _, err := reg.RegisterSwarm(s.Name, s.Capabilities, memberIDs...); err != nil {
			return err
		}
	}
	return nil
}

func buildAgent(def AgentDef, s SwarmDef, newModel ModelFactory) (core.Agent, error) {
	role, _ := core.ParseRole(def.Role)
	switch {
	case def.ForwardTo != "":
		return agent.NewForwardingAgent(def.ID, role, def.ForwardTo, def.Capabilities...), nil
	case def.Model != "":
		if newModel == nil {
			return nil, fmt.Errorf("agent %s names model %q but no model factory is configured", def.ID, def.Model)
		}
		peers := make([]agent.Peer, 0, len(s.Agents)-1)
		for _, p := range s.Agents {
			if p.ID == def.ID {
				continue
			}
			prole, _ := core.ParseRole(p.Role)
			peers = append(peers, agent.Peer{ID: p.ID, Role: prole, Description: p.Description})
		}
		return agent.NewModelAgent(def.ID, role, newModel(def.Model), func(o *agent.ModelAgentOptions) {
			o.Instructions = def.Description
			o.Peers = peers
		}), nil
	case def.Reply != "":
		return agent.NewStaticAgent(def.ID, role, def.Reply, def.Capabilities...), nil
	default:
		return nil, fmt.Errorf("agent %s: one of forward_to, model or reply is required", def.ID)
	}
}
