package core

import (
	"fmt"
	"time"
)

// State tracks where a conversation is in its lifecycle.
type State int

const (
	// StateOpen means the conversation awaits its first agent response of
	// the current user turn.
	StateOpen State = iota
	// StateDelegating means agents are still exchanging internal envelopes.
	StateDelegating
	// StateAwaitingUser means the terminal envelope has been produced and
	// delivered; the conversation waits for a new user turn.
	StateAwaitingUser
	// StateClosed means the conversation was explicitly ended or timed out;
	// its memory snapshot has been released to archival.
	StateClosed
)

// String returns the canonical state name used in transition events.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateDelegating:
		return "delegating"
	case StateAwaitingUser:
		return "awaiting_user"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conversation is an ordered sequence of envelopes plus lifecycle state.
//
// A conversation is a single-writer structure: the orchestrator serializes
// all appends within one conversation, which is what makes SequenceNo a
// total order. Different conversations are fully independent.
type Conversation struct {
	ID        string     `json:"id"`
	SwarmName string     `json:"swarm_name"`
	UserID    string     `json:"user_id"`
	State     State      `json:"state"`
	Envelopes []Envelope `json:"envelopes"`
	Created   time.Time  `json:"created"`
	Updated   time.Time  `json:"updated"`
}

// NewConversation creates an open conversation bound to a swarm.
func NewConversation(swarmName, userID string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:        NewID(),
		SwarmName: swarmName,
		UserID:    userID,
		State:     StateOpen,
		Created:   now,
		Updated:   now,
	}
}

// NextSequenceNo returns the sequence number the next envelope must carry.
// Sequence numbers continue monotonically across user turns.
func (c *Conversation) NextSequenceNo() int { return len(c.Envelopes) }

// Append records an envelope and advances the state machine. It enforces the
// conversation invariants:
//
//   - sequence numbers are strictly increasing (assigned, never supplied twice)
//   - at most one envelope is terminal, and nothing follows it until a new
//     user turn re-opens the conversation
//   - a closed conversation accepts no envelopes (late arrivals are the
//     archive's concern, not the conversation's)
func (c *Conversation) Append(env Envelope) error {
	if c.State == StateClosed {
		return fmt.Errorf("conversation %s: %w", c.ID, ErrConversationClosed)
	}
	if env.SequenceNo != c.NextSequenceNo() {
		return fmt.Errorf("conversation %s: sequence gap: got %d, want %d", c.ID, env.SequenceNo, c.NextSequenceNo())
	}
	if c.State == StateAwaitingUser && !env.IsFromUser() {
		return fmt.Errorf("conversation %s: only a user turn may follow the terminal envelope", c.ID)
	}
	c.Envelopes = append(c.Envelopes, env)
	c.State = NextState(c.State, env)
	c.Updated = time.Now().UTC()
	return nil
}

// Terminal returns the terminal envelope of the current turn, if any.
func (c *Conversation) Terminal() (Envelope, bool) {
	for i := len(c.Envelopes) - 1; i >= 0; i-- {
		if c.Envelopes[i].IsFromUser() {
			return Envelope{}, false
		}
		if c.Envelopes[i].IsTerminal() {
			return c.Envelopes[i], true
		}
	}
	return Envelope{}, false
}

// Close marks the conversation closed. Idempotent.
func (c *Conversation) Close() {
	c.State = StateClosed
	c.Updated = time.Now().UTC()
}

// NextState is the pure transition function of the conversation state
// machine. It depends only on the current state and the envelope content, so
// replaying envelopes in sequence order always reproduces the same states.
func NextState(current State, env Envelope) State {
	switch current {
	case StateOpen, StateDelegating:
		if env.IsTerminal() {
			return StateAwaitingUser
		}
		if env.IsFromUser() {
			return current
		}
		return StateDelegating
	case StateAwaitingUser:
		if env.IsFromUser() {
			return StateOpen
		}
		return StateAwaitingUser
	case StateClosed:
		return StateClosed
	default:
		return current
	}
}

// IsTerminalFor decides whether an envelope concludes the agent exchange:
// it is addressed to the swarm's Initializer and carries no further
// delegation. This is the single place the terminal condition is defined;
// the orchestrator derives the pending_user_reply flag from it via
// SealTerminal and nothing else ever sets the flag to true.
func IsTerminalFor(env Envelope, initializerID string, delegated bool) bool {
	return !delegated && env.RecipientID == initializerID && env.SenderID != UserSenderID
}

// SealTerminal stamps the envelope as the terminal hand-off to the user.
// Callers must only seal envelopes for which IsTerminalFor holds.
func SealTerminal(env Envelope) Envelope {
	pending := true
	env.PendingUserReply = &pending
	return env
}
