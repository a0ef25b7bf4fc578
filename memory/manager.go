// Package memory implements the bounded working memory of a conversation:
// envelopes are admitted as fragments, projected per consumer role, and
// compacted into summaries once the retained budget is exceeded. Fragments
// are merged, never silently dropped, so continuity is preserved.
package memory

import (
	"sync"

	"github.com/raciswarm/raciswarm/core"
	"github.com/raciswarm/raciswarm/logging"
)

// Options configure a Manager.
type Options struct {
	// Budget is the maximum retained content size (bytes) per conversation.
	Budget int
	// RecentWindow is the number of most recent fragments kept verbatim for
	// as long as the budget allows; older fragments are the first merged.
	RecentWindow int
	// Summarizer merges evicted fragments into a summary fragment.
	Summarizer Summarizer
	// Logger for compaction diagnostics.
	Logger logging.Logger
}

// Manager maintains per-conversation memory snapshots. Admit and Project are
// in-process and non-blocking; snapshots of different conversations share no
// state, so no cross-conversation locking occurs.
type Manager struct {
	budget       int
	recentWindow int
	summarizer   Summarizer
	logger       logging.Logger

	mu        sync.RWMutex
	snapshots map[string]*snapshot
}

type snapshot struct {
	mu        sync.Mutex
	fragments []core.Fragment
	size      int
}

// NewManager constructs a Manager with optional overrides.
func NewManager(optFns ...func(o *Options)) *Manager {
	opts := Options{
		Budget:       8192,
		RecentWindow: 4,
		Summarizer:   TruncatingSummarizer{MaxLen: 1024},
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		budget:       opts.Budget,
		recentWindow: opts.RecentWindow,
		summarizer:   opts.Summarizer,
		logger:       opts.Logger,
		snapshots:    make(map[string]*snapshot),
	}
}

// Admit appends an envelope to the conversation's working memory, compacting
// if the retained budget is exceeded. User-origin fragments are pinned so a
// turn's framing survives compaction. A budget overrun is always recovered
// here via summarization and never surfaced to callers.
func (m *Manager) Admit(env core.Envelope) {
	s := m.snapshot(env.ConversationID)
	s.mu.Lock()
	defer s.mu.Unlock()

	f := env.Fragment()
	f.Pinned = f.FromUser
	s.fragments = append(s.fragments, f)
	s.size += len(f.Content)

	if s.size > m.budget {
		m.logger.Debug("memory budget exceeded, compacting",
			"conversation_id", env.ConversationID, "size", s.size, "budget", m.budget)
		m.compactLocked(s)
	}
}

// Project returns the memory slice relevant to the given consumer role. It is
// a pure function of the current snapshot and the role: two calls with no
// intervening Admit return identical slices. The returned fragments are
// copies; mutating them does not affect the snapshot.
//
// Projection rules:
//
//   - Accountable sees the full retained snapshot (it coordinates everyone)
//   - Responsible sees user turns, summaries and terminal hand-offs
//   - Consulted sees summaries plus the most recent exchange window
//   - Informed sees summaries only
func (m *Manager) Project(conversationID string, role core.Role) []core.Fragment {
	m.mu.RLock()
	s, ok := m.snapshots[conversationID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Fragment, 0, len(s.fragments))
	recentFrom := len(s.fragments) - m.recentWindow
	for i, f := range s.fragments {
		switch role {
		case core.RoleAccountable:
			out = append(out, f)
		case core.RoleResponsible:
			if f.FromUser || f.Summary || f.Terminal {
				out = append(out, f)
			}
		case core.RoleConsulted:
			if f.Summary || i >= recentFrom {
				out = append(out, f)
			}
		case core.RoleInformed:
			if f.Summary {
				out = append(out, f)
			}
		}
	}
	return out
}

// Size returns the retained content size for a conversation.
func (m *Manager) Size(conversationID string) int {
	m.mu.RLock()
	s, ok := m.snapshots[conversationID]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Release removes a conversation's snapshot and returns the retained
// fragments for archival. Called when a conversation closes.
func (m *Manager) Release(conversationID string) []core.Fragment {
	m.mu.Lock()
	s, ok := m.snapshots[conversationID]
	delete(m.snapshots, conversationID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Fragment(nil), s.fragments...)
}

func (m *Manager) snapshot(conversationID string) *snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[conversationID]
	if !ok {
		s = &snapshot{}
		m.snapshots[conversationID] = s
	}
	return s
}

// compactLocked merges the lowest-scoring fragments into a single summary
// until the snapshot fits the budget. Ordering: oldest unpinned fragments go
// first, then pinned ones, then the recent window; as a last resort the
// summary itself is re-summarized. Caller holds s.mu.
func (m *Manager) compactLocked(s *snapshot) {
	for pass := 0; s.size > m.budget && pass < 3; pass++ {
		keepRecent := m.recentWindow
		if pass >= 1 {
			keepRecent = 1 // shrink the verbatim window if a pass was not enough
		}
		recentFrom := len(s.fragments) - keepRecent

		var merge, keep []core.Fragment
		summaryAt := -1
		for i, f := range s.fragments {
			if i >= recentFrom || (f.Pinned && pass < 2) {
				keep = append(keep, f)
				continue
			}
			if summaryAt < 0 {
				summaryAt = len(keep)
			}
			merge = append(merge, f)
		}
		if len(merge) == 0 {
			break
		}
		summary := core.Fragment{
			ID:         core.NewID(),
			SequenceNo: merge[len(merge)-1].SequenceNo,
			Sender:     "memory",
			Content:    m.summarizer.Summarize(merge),
			Summary:    true,
		}
		// Splice the summary where the first merged fragment sat so the
		// snapshot stays ordered.
		s.fragments = make([]core.Fragment, 0, len(keep)+1)
		s.fragments = append(s.fragments, keep[:summaryAt]...)
		s.fragments = append(s.fragments, summary)
		s.fragments = append(s.fragments, keep[summaryAt:]...)
		s.size = 0
		for _, f := range s.fragments {
			s.size += len(f.Content)
		}
	}

	// Oversized remainders (a huge single envelope, a summary that did not
	// shrink enough) are truncated rather than violating the retained-size
	// invariant.
	for i := range s.fragments {
		if s.size <= m.budget {
			break
		}
		c := s.fragments[i].Content
		trim := s.size - m.budget
		if trim > len(c) {
			trim = len(c)
		}
		s.fragments[i].Content = c[:len(c)-trim]
		s.size -= trim
	}
}
