package memory

import (
	"fmt"
	"strings"

	"github.com/raciswarm/raciswarm/core"
)

// Summarizer merges evicted fragments into a single summary text. It runs on
// the Admit path and must therefore be in-process and non-blocking; model
// backed summarization belongs in an agent, not here.
type Summarizer interface {
	Summarize(fragments []core.Fragment) string
}

// TruncatingSummarizer is the default heuristic summarizer: one line per
// fragment with its routing, hard-capped at MaxLen bytes (oldest lines give
// way first).
type TruncatingSummarizer struct {
	MaxLen int
}

// Summarize implements Summarizer.
func (t TruncatingSummarizer) Summarize(fragments []core.Fragment) string {
	lines := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f.Summary {
			// Re-summarized summaries keep their content as-is.
			lines = append(lines, f.Content)
			continue
		}
		lines = append(lines, fmt.Sprintf("[%d] %s->%s: %s", f.SequenceNo, f.Sender, f.Recipient, f.Content))
	}
	for len(lines) > 1 && total(lines) > t.MaxLen {
		lines = lines[1:]
	}
	s := strings.Join(lines, "\n")
	if t.MaxLen > 0 && len(s) > t.MaxLen {
		s = s[len(s)-t.MaxLen:]
	}
	return s
}

func total(lines []string) int {
	n := len(lines) - 1 // newline separators
	for _, l := range lines {
		n += len(l)
	}
	return n
}
