package core

import "errors"

var (
	// ErrNoMatchingSwarm is returned when no registered swarm claims the
	// requested capability. Unrecoverable for the request; surfaced to the
	// user as an "unsupported request" response, never a crash.
	ErrNoMatchingSwarm = errors.New("no matching swarm for capability")

	// ErrAgentTimeout marks a hop whose agent did not respond within the
	// configured per-hop timeout. Recoverable: the hop is retried once with
	// backoff, then converted to a failure envelope for the Accountable agent.
	ErrAgentTimeout = errors.New("agent response timed out")

	// ErrDelegationDepthExceeded marks a conversation turn that hit the hop
	// ceiling. It forces a terminal fallback envelope summarizing partial
	// progress; the request is never silently dropped.
	ErrDelegationDepthExceeded = errors.New("delegation depth exceeded")

	// ErrMemoryBudgetExceeded signals that a retained-memory compaction was
	// required. Always recovered internally via summarization and never
	// surfaced to the user.
	ErrMemoryBudgetExceeded = errors.New("memory budget exceeded")

	// ErrConversationClosed is returned when a reply or late agent response
	// targets a conversation already in StateClosed. The payload is accepted
	// into archival memory but produces no further routing.
	ErrConversationClosed = errors.New("conversation is closed")

	// ErrUnknownConversation is returned for conversation ids the engine has
	// never seen.
	ErrUnknownConversation = errors.New("unknown conversation")

	// ErrUnknownAgent is returned when an envelope addresses an agent id
	// that is not registered.
	ErrUnknownAgent = errors.New("unknown agent")
)
