package core

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is the unit exchanged between agents. After creation it is passed
// by value and treated as immutable; the one mutation in its lifecycle (the
// terminal stamp) happens in exactly one place, SealTerminal, before the
// envelope is delivered.
//
// PendingUserReply is the central lifecycle signal and is tri-state:
//
//	nil   - the envelope originates from the user; no agent-chain state yet
//	false - internal agent-to-agent traffic, the exchange is still running
//	true  - terminal hand-off to the user; the conversation awaits a new turn
//
// The JSON shape (conversation_id, sender_id, recipient_id, sequence_no,
// pending_user_reply in {null,false,true}, content) is the compatibility
// contract for downstream consumers.
type Envelope struct {
	ConversationID   string    `json:"conversation_id"`
	SenderID         string    `json:"sender_id"`
	RecipientID      string    `json:"recipient_id"`
	SequenceNo       int       `json:"sequence_no"`
	PendingUserReply *bool     `json:"pending_user_reply"`
	Content          string    `json:"content"`
	Timestamp        time.Time `json:"timestamp"`
}

// UserSenderID is the sender recorded on envelopes originating from the user.
const UserSenderID = "user"

// NewUserEnvelope creates the envelope for a user turn addressed to the
// swarm's Initializer. PendingUserReply stays nil: user-origin envelopes
// carry no agent-chain state.
func NewUserEnvelope(conversationID, recipientID, content string, seq int) Envelope {
	return Envelope{
		ConversationID: conversationID,
		SenderID:       UserSenderID,
		RecipientID:    recipientID,
		SequenceNo:     seq,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	}
}

// NewInternalEnvelope creates an agent-to-agent envelope with
// PendingUserReply = false.
func NewInternalEnvelope(conversationID, senderID, recipientID, content string, seq int) Envelope {
	pending := false
	return Envelope{
		ConversationID:   conversationID,
		SenderID:         senderID,
		RecipientID:      recipientID,
		SequenceNo:       seq,
		PendingUserReply: &pending,
		Content:          content,
		Timestamp:        time.Now().UTC(),
	}
}

// IsFromUser reports whether the envelope originates from the user
// (tri-state flag unset).
func (e Envelope) IsFromUser() bool { return e.PendingUserReply == nil }

// IsTerminal reports whether this is the terminal hand-off envelope.
func (e Envelope) IsTerminal() bool { return e.PendingUserReply != nil && *e.PendingUserReply }

// IsInternal reports whether this is ordinary agent-to-agent traffic.
func (e Envelope) IsInternal() bool { return e.PendingUserReply != nil && !*e.PendingUserReply }

// Fragment converts the envelope into its memory-fragment form.
func (e Envelope) Fragment() Fragment {
	return Fragment{
		ID:         NewID(),
		SequenceNo: e.SequenceNo,
		Sender:     e.SenderID,
		Recipient:  e.RecipientID,
		Content:    e.Content,
		FromUser:   e.IsFromUser(),
		Terminal:   e.IsTerminal(),
	}
}

// NewID generates a unique identifier for conversations, envelopes and
// memory fragments.
func NewID() string { return uuid.NewString() }
