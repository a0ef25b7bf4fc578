// Package archive persists closed conversations. Closing a conversation
// releases its memory snapshot here; a response arriving after close is
// accepted into the archive but never routed again.
package archive

import (
	"errors"
	"time"

	"github.com/raciswarm/raciswarm/core"
)

// ErrNotFound is returned when no archived record exists for a conversation id.
var ErrNotFound = errors.New("archived conversation not found")

// Record is the archived form of a closed conversation: its final envelope
// history plus the memory snapshot released on close.
type Record struct {
	Conversation core.Conversation `json:"conversation"`
	Fragments    []core.Fragment   `json:"fragments"`
	ClosedAt     time.Time         `json:"closed_at"`
}

// Store persists archived conversations. Archive must be safe to call
// concurrently with AppendLate for the same conversation: closing and a
// late-arriving agent response may race.
type Store interface {
	Archive(rec Record) error
	// AppendLate records an envelope that arrived after the conversation
	// closed. It is retained for audit but produces no routing.
	AppendLate(conversationID string, env core.Envelope) error
	Get(conversationID string) (Record, error)
}
