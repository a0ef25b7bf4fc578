package archive

import (
	"fmt"
	"sync"

	"github.com/raciswarm/raciswarm/core"
)

// InMemoryStore is a volatile archive suited for tests and ephemeral
// deployments. Safe for concurrent use.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	late    map[string][]core.Envelope
}

// NewInMemoryStore constructs an empty in-memory archive.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]Record),
		late:    make(map[string][]core.Envelope),
	}
}

// Archive implements Store.
func (s *InMemoryStore) Archive(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Conversation.ID] = rec
	return nil
}

// AppendLate implements Store. Late envelopes may arrive before Archive when
// close and a hanging agent response race; they are kept either way.
func (s *InMemoryStore) AppendLate(conversationID string, env core.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.late[conversationID] = append(s.late[conversationID], env)
	return nil
}

// Get implements Store.
func (s *InMemoryStore) Get(conversationID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[conversationID]
	if !ok {
		return Record{}, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	return rec, nil
}

// Late returns the late-arriving envelopes recorded for a conversation.
func (s *InMemoryStore) Late(conversationID string) []core.Envelope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Envelope(nil), s.late[conversationID]...)
}
