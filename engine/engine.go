// Package engine drives conversations to completion: it resolves the swarm
// for a request, delivers envelopes to agents, admits every exchange to the
// memory manager, applies the conversation state machine, and returns the
// terminal response once the swarm hands control back to the user.
//
// Concurrency model: each conversation advances as an independent sequential
// state machine. The engine holds a per-conversation lock for the whole of a
// turn, which is what guarantees the single-writer property behind the
// sequence_no total order. Different conversations run fully in parallel;
// the only shared state is the router's read-mostly registry.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/raciswarm/raciswarm/archive"
	"github.com/raciswarm/raciswarm/core"
	"github.com/raciswarm/raciswarm/logging"
	"github.com/raciswarm/raciswarm/memory"
	"github.com/raciswarm/raciswarm/router"
)

// Options configure an Engine.
type Options struct {
	// HopLimit is the per-turn ceiling on agent-to-agent envelopes. When the
	// limit is reached a terminal fallback envelope summarizing partial
	// progress is produced instead of hop HopLimit.
	HopLimit int
	// HopTimeout bounds a single agent invocation. A timed-out hop is
	// retried once after RetryBackoff, then converted to a failure envelope
	// for the Accountable agent.
	HopTimeout time.Duration
	// RetryBackoff is the pause before the single retry of a failed hop.
	RetryBackoff time.Duration
	// IdleTimeout closes a conversation that sits in awaiting_user with no
	// reply. Zero disables idle closing.
	IdleTimeout time.Duration

	// Memory manages bounded conversation memory. Defaults to an in-memory
	// manager with default budget.
	Memory *memory.Manager
	// Archive receives closed conversations. Defaults to in-memory.
	Archive archive.Store
	// Observer receives structured state transition events.
	Observer core.Observer
	// Logger for engine diagnostics.
	Logger logging.Logger
}

// Engine is the orchestrator. Public methods are safe for concurrent use.
type Engine struct {
	hopLimit     int
	hopTimeout   time.Duration
	retryBackoff time.Duration
	idleTimeout  time.Duration

	registry *router.Registry
	memory   *memory.Manager
	archive  archive.Store
	observer core.Observer
	logger   logging.Logger

	mu            sync.RWMutex
	conversations map[string]*conversationState
}

// conversationState couples a conversation with the lock that serializes its
// turns and the idle timer armed while it awaits the user.
type conversationState struct {
	mu    sync.Mutex
	conv  *core.Conversation
	swarm *core.Swarm
	idle  *time.Timer
}

// Result is the outcome of a completed conversation turn.
type Result struct {
	ConversationID string
	Content        string
	// Degraded reports that the content is a fallback (hop ceiling or an
	// unrecoverable Accountable failure) rather than a full answer.
	Degraded bool
}

// New constructs an Engine over a router registry with optional overrides.
func New(registry *router.Registry, optFns ...func(o *Options)) *Engine {
	opts := Options{
		HopLimit:     10,
		HopTimeout:   30 * time.Second,
		RetryBackoff: 500 * time.Millisecond,
		IdleTimeout:  10 * time.Minute,
		Memory:       memory.NewManager(),
		Archive:      archive.NewInMemoryStore(),
		Observer:     core.NoOpObserver{},
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{
		hopLimit:      opts.HopLimit,
		hopTimeout:    opts.HopTimeout,
		retryBackoff:  opts.RetryBackoff,
		idleTimeout:   opts.IdleTimeout,
		registry:      registry,
		memory:        opts.Memory,
		archive:       opts.Archive,
		observer:      opts.Observer,
		logger:        opts.Logger,
		conversations: make(map[string]*conversationState),
	}
}

// SubmitRequest is the inbound boundary: it resolves the swarm claiming the
// capability tag, opens a conversation, routes the first envelope to the
// Initializer and drives the turn until the terminal envelope is produced.
// When no swarm claims the capability, core.ErrNoMatchingSwarm is returned
// and no conversation is created.
func (e *Engine) SubmitRequest(ctx context.Context, capability, userID, text string) (Result, error) {
	swarm, err := e.registry.Resolve(capability)
	if err != nil {
		e.logger.Info("unsupported request", "capability", capability, "user_id", userID)
		return Result{}, err
	}

	conv := core.NewConversation(swarm.Name, userID)
	cs := &conversationState{conv: conv, swarm: swarm}
	e.mu.Lock()
	e.conversations[conv.ID] = cs
	e.mu.Unlock()

	cs.mu.Lock()
	defer cs.mu.Unlock()
	return e.runUserTurn(ctx, cs, text)
}

// Reply continues a conversation that awaits the user. Replying to a closed
// conversation lands the message in archival memory and returns
// core.ErrConversationClosed; nothing is routed.
func (e *Engine) Reply(ctx context.Context, conversationID, text string) (Result, error) {
	cs, err := e.state(conversationID)
	if err != nil {
		return Result{}, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	switch cs.conv.State {
	case core.StateClosed:
		env := core.NewUserEnvelope(conversationID, cs.swarm.Initializer().ID(), text, cs.conv.NextSequenceNo())
		if archErr := e.archive.AppendLate(conversationID, env); archErr != nil {
			e.logger.Error("late append failed", "conversation_id", conversationID, "error", archErr)
		}
		return Result{ConversationID: conversationID}, fmt.Errorf("conversation %s: %w", conversationID, core.ErrConversationClosed)
	case core.StateAwaitingUser:
		if cs.idle != nil {
			cs.idle.Stop()
		}
		return e.runUserTurn(ctx, cs, text)
	default:
		return Result{}, fmt.Errorf("conversation %s: turn already in progress (%s)", conversationID, cs.conv.State)
	}
}

// Close ends a conversation, releasing its memory snapshot to the archive.
// Idempotent; safe to race with a late reply for the same conversation.
func (e *Engine) Close(conversationID string) error {
	cs, err := e.state(conversationID)
	if err != nil {
		return err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.conv.State == core.StateClosed {
		return nil
	}
	if cs.idle != nil {
		cs.idle.Stop()
	}

	from := cs.conv.State
	cs.conv.Close()
	e.observer.OnTransition(core.TransitionEvent{
		ConversationID: conversationID,
		FromState:      from,
		ToState:        core.StateClosed,
		SequenceNo:     cs.conv.NextSequenceNo() - 1,
	})

	fragments := e.memory.Release(conversationID)
	rec := archive.Record{Conversation: *cs.conv, Fragments: fragments, ClosedAt: time.Now().UTC()}
	if err := e.archive.Archive(rec); err != nil {
		return fmt.Errorf("archive conversation %s: %w", conversationID, err)
	}
	e.logger.Info("conversation closed", "conversation_id", conversationID, "envelopes", len(cs.conv.Envelopes))
	return nil
}

// Conversation returns a snapshot copy of a live conversation.
func (e *Engine) Conversation(conversationID string) (core.Conversation, error) {
	cs, err := e.state(conversationID)
	if err != nil {
		return core.Conversation{}, err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	snap := *cs.conv
	snap.Envelopes = append([]core.Envelope(nil), cs.conv.Envelopes...)
	return snap, nil
}

func (e *Engine) state(conversationID string) (*conversationState, error) {
	e.mu.RLock()
	cs, ok := e.conversations[conversationID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, core.ErrUnknownConversation)
	}
	return cs, nil
}

// runUserTurn appends the user envelope and drives the agent exchange until
// the terminal envelope. Caller holds cs.mu.
func (e *Engine) runUserTurn(ctx context.Context, cs *conversationState, text string) (Result, error) {
	conv := cs.conv
	userEnv := core.NewUserEnvelope(conv.ID, cs.swarm.Initializer().ID(), text, conv.NextSequenceNo())
	if err := e.append(cs, userEnv); err != nil {
		return Result{ConversationID: conv.ID}, err
	}

	terminal, degraded, err := e.runExchange(ctx, cs, userEnv, text)
	if err != nil {
		// The state machine could not reach awaiting_user: fatal for the
		// turn. The caller surfaces a generic degraded-service response,
		// never this raw error text to the end user.
		e.logger.Error("turn failed", "conversation_id", conv.ID, "error", err)
		return Result{ConversationID: conv.ID}, err
	}

	e.armIdleTimer(cs)
	return Result{ConversationID: conv.ID, Content: terminal.Content, Degraded: degraded}, nil
}

// frame is one outstanding delegation: who asked, and what the goal was
// before the sub-goal narrowed it.
type frame struct {
	delegator string
	goal      string
}

// runExchange is the envelope loop of one turn. env is the envelope being
// delivered next; goal is the narrowed goal accompanying it.
func (e *Engine) runExchange(ctx context.Context, cs *conversationState, env core.Envelope, goal string) (core.Envelope, bool, error) {
	conv := cs.conv
	initializerID := cs.swarm.Initializer().ID()
	adminID := cs.swarm.Admin().ID()

	var stack []frame
	hops := 0

	for {
		recipient, err := e.registry.Agent(env.RecipientID)
		if err != nil {
			return core.Envelope{}, false, err
		}

		resp, err := e.invokeWithRetry(ctx, recipient, conv.ID, goal)
		if err != nil {
			if ctx.Err() != nil {
				return core.Envelope{}, false, ctx.Err()
			}
			if recipient.ID() == adminID {
				// The Accountable agent itself is gone; degrade the turn.
				terminal, ferr := e.fallbackTerminal(cs, adminID, initializerID,
					fmt.Sprintf("the coordinating agent failed: %v", err))
				return terminal, true, ferr
			}
			// Contained failure: forward to the Accountable agent as a
			// normal envelope and let it decide how to proceed.
			e.logger.Warn("hop failed, forwarding failure to accountable",
				"conversation_id", conv.ID, "agent_id", recipient.ID(), "error", err)
			if len(stack) > 0 {
				f := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				goal = f.goal
			}
			failure := core.NewInternalEnvelope(conv.ID, recipient.ID(), adminID,
				fmt.Sprintf("agent %s failed: %v", recipient.ID(), err), conv.NextSequenceNo())
			hops++
			if hops >= e.hopLimit {
				terminal, ferr := e.fallbackTerminal(cs, adminID, initializerID, core.ErrDelegationDepthExceeded.Error())
				return terminal, true, ferr
			}
			if err := e.append(cs, failure); err != nil {
				return core.Envelope{}, false, err
			}
			env = failure
			continue
		}

		var next core.Envelope
		if resp.Delegation != nil {
			stack = append(stack, frame{delegator: recipient.ID(), goal: goal})
			goal = resp.Delegation.Goal
			content := resp.Content
			if content == "" {
				content = resp.Delegation.Goal
			}
			next = core.NewInternalEnvelope(conv.ID, recipient.ID(), resp.Delegation.Recipient, content, conv.NextSequenceNo())
		} else {
			target := initializerID
			if len(stack) > 0 {
				f := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				target = f.delegator
				goal = f.goal
			}
			next = core.NewInternalEnvelope(conv.ID, recipient.ID(), target, resp.Content, conv.NextSequenceNo())
			// The single place the terminal flag is derived: delivery to the
			// Initializer with no further delegation attached.
			if core.IsTerminalFor(next, initializerID, false) {
				next = core.SealTerminal(next)
			}
		}

		hops++
		if hops >= e.hopLimit && !next.IsTerminal() {
			e.logger.Warn("delegation depth exceeded", "conversation_id", conv.ID, "hops", hops)
			terminal, ferr := e.fallbackTerminal(cs, adminID, initializerID, core.ErrDelegationDepthExceeded.Error())
			return terminal, true, ferr
		}

		if err := e.append(cs, next); err != nil {
			if errors.Is(err, core.ErrConversationClosed) {
				// Closed concurrently; keep the response for the record only.
				_ = e.archive.AppendLate(conv.ID, next)
				return core.Envelope{}, false, err
			}
			return core.Envelope{}, false, err
		}
		if next.IsTerminal() {
			return next, false, nil
		}
		env = next
	}
}

// invoke delivers one hop to an agent under the per-hop timeout.
func (e *Engine) invoke(ctx context.Context, a core.Agent, conversationID, goal string) (core.Response, error) {
	hopCtx, cancel := context.WithTimeout(ctx, e.hopTimeout)
	defer cancel()

	slice := e.memory.Project(conversationID, a.Role())
	resp, err := a.Respond(hopCtx, slice, goal)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return core.Response{}, fmt.Errorf("agent %s: %w", a.ID(), core.ErrAgentTimeout)
	}
	return resp, err
}

// invokeWithRetry retries one failed hop once with backoff before giving up.
func (e *Engine) invokeWithRetry(ctx context.Context, a core.Agent, conversationID, goal string) (core.Response, error) {
	resp, err := e.invoke(ctx, a, conversationID, goal)
	if err == nil || ctx.Err() != nil {
		return resp, err
	}
	e.logger.Warn("hop failed, retrying once", "conversation_id", conversationID, "agent_id", a.ID(), "error", err)
	select {
	case <-ctx.Done():
		return core.Response{}, ctx.Err()
	case <-time.After(e.retryBackoff):
	}
	return e.invoke(ctx, a, conversationID, goal)
}

// fallbackTerminal produces the forced terminal envelope used when a turn
// cannot complete normally, summarizing the progress retained in memory.
func (e *Engine) fallbackTerminal(cs *conversationState, senderID, initializerID, reason string) (core.Envelope, error) {
	conv := cs.conv
	var b strings.Builder
	fmt.Fprintf(&b, "The swarm could not fully complete the request (%s).", reason)
	if progress := e.memory.Project(conv.ID, core.RoleAccountable); len(progress) > 0 {
		b.WriteString(" Partial progress:\n")
		for _, f := range progress {
			if f.FromUser {
				continue
			}
			fmt.Fprintf(&b, "- %s: %s\n", f.Sender, f.Content)
		}
	}

	terminal := core.SealTerminal(core.NewInternalEnvelope(conv.ID, senderID, initializerID, b.String(), conv.NextSequenceNo()))
	if err := e.append(cs, terminal); err != nil {
		return core.Envelope{}, err
	}
	return terminal, nil
}

// append records an envelope on the conversation, admits it to memory and
// emits the transition event. Caller holds cs.mu.
func (e *Engine) append(cs *conversationState, env core.Envelope) error {
	from := cs.conv.State
	if err := cs.conv.Append(env); err != nil {
		return err
	}
	e.memory.Admit(env)
	if to := cs.conv.State; to != from {
		e.observer.OnTransition(core.TransitionEvent{
			ConversationID: cs.conv.ID,
			FromState:      from,
			ToState:        to,
			SequenceNo:     env.SequenceNo,
		})
	}
	return nil
}

func (e *Engine) armIdleTimer(cs *conversationState) {
	if e.idleTimeout <= 0 {
		return
	}
	if cs.idle != nil {
		cs.idle.Stop()
	}
	id := cs.conv.ID
	cs.idle = time.AfterFunc(e.idleTimeout, func() {
		if err := e.Close(id); err != nil {
			e.logger.Error("idle close failed", "conversation_id", id, "error", err)
		}
	})
}
