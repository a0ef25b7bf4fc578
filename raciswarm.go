// Package raciswarm provides a high-level façade over the orchestration
// engine and its services (router registry, bounded conversation memory,
// archival, logging) for coordinating RACI agent swarms. Most applications
// interact with this package by:
//  1. Creating a Swarm service via New() (optionally overriding defaults)
//  2. Registering agents and swarms (or applying a config.SwarmFile)
//  3. Submitting requests and replying to conversations
//
// The façade delegates orchestration to engine.Engine while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable archive store
// and a structured logger.
package raciswarm

import (
	"context"
	"errors"

	"github.com/raciswarm/raciswarm/archive"
	"github.com/raciswarm/raciswarm/core"
	"github.com/raciswarm/raciswarm/engine"
	"github.com/raciswarm/raciswarm/logging"
	"github.com/raciswarm/raciswarm/memory"
	"github.com/raciswarm/raciswarm/router"
)

// Options configures the Service instance.
type Options struct {
	// Engine tuning (hop ceiling, per-hop timeout, retry backoff, idle close).
	Engine []func(o *engine.Options)

	// Memory manages bounded conversation memory (defaults to in-memory
	// manager with default budget).
	Memory *memory.Manager

	// Archive receives closed conversations (defaults to in-memory).
	Archive archive.Store

	// Observer receives structured state transition events.
	Observer core.Observer

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Service aggregates the router registry and the orchestration engine.
type Service struct {
	registry *router.Registry
	engine   *engine.Engine
}

// New creates a Service with optional overrides. Any unset dependency is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Service {
	opts := Options{
		Memory:   memory.NewManager(),
		Archive:  archive.NewInMemoryStore(),
		Observer: core.NoOpObserver{},
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry := router.NewRegistry(opts.Logger)
	e := engine.New(registry, append([]func(o *engine.Options){func(o *engine.Options) {
		o.Memory = opts.Memory
		o.Archive = opts.Archive
		o.Observer = opts.Observer
		o.Logger = opts.Logger
	}}, opts.Engine...)...)

	return &Service{registry: registry, engine: e}
}

// Registry exposes the underlying router registry for bootstrap code
// (config.SwarmFile.Apply and direct registration).
func (s *Service) Registry() *router.Registry { return s.registry }

// RegisterAgent adds an agent to the registry.
func (s *Service) RegisterAgent(a core.Agent) { s.registry.RegisterAgent(a) }

// RegisterSwarm registers a swarm over previously registered agent ids.
func (s *Service) RegisterSwarm(name string, capabilities []string, memberIDs ...string) (*core.Swarm, error) {
	return s.registry.RegisterSwarm(name, capabilities, memberIDs...)
}

// SubmitRequest routes a user request to the swarm claiming the capability
// tag and drives the conversation until the swarm hands control back.
func (s *Service) SubmitRequest(ctx context.Context, capability, userID, text string) (engine.Result, error) {
	return s.engine.SubmitRequest(ctx, capability, userID, text)
}

// Reply continues a conversation awaiting the user.
func (s *Service) Reply(ctx context.Context, conversationID, text string) (engine.Result, error) {
	return s.engine.Reply(ctx, conversationID, text)
}

// Close ends a conversation and archives its memory snapshot.
func (s *Service) Close(conversationID string) error { return s.engine.Close(conversationID) }

// Conversation returns a snapshot copy of a live conversation.
func (s *Service) Conversation(conversationID string) (core.Conversation, error) {
	return s.engine.Conversation(conversationID)
}

// UserFacingMessage maps an orchestration error to the response shown to the
// end user: unsupported requests get a clear refusal, everything else a
// generic degraded-service message. Raw internal errors never reach users.
func UserFacingMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrNoMatchingSwarm):
		return "This request is not supported: no agent swarm claims the requested capability."
	case errors.Is(err, core.ErrConversationClosed):
		return "This conversation has ended. Please start a new request."
	default:
		return "The service could not complete your request. Please try again later."
	}
}
