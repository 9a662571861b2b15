package retrieval

import (
	"fmt"
	"strings"

	"github.com/sagekb/sage/internal/chunker"
	"github.com/sagekb/sage/internal/document"
)

// assemble builds the context block from matches in order, stopping before
// the token budget is exceeded. Each chunk is labeled with its source
// document name so the model can attribute its answer.
//
// The budget is greedy and strict: a chunk whose estimated tokens would
// push the total past maxTokens is skipped along with everything after it,
// never truncated mid-chunk.
func assemble(matches []document.Match, maxTokens int) Result {
	var (
		b       strings.Builder
		kept    []document.Match
		sources []string
		seen    = make(map[string]bool)
		used    int
	)

	const sep = "\n\n"
	for _, m := range matches {
		entry := fmt.Sprintf("[Source: %s]\n%s", m.DocumentName, m.Content)
		cost := chunker.EstimateTokens(entry)
		if b.Len() > 0 {
			// The joining separator counts against the budget too.
			cost += chunker.EstimateTokens(sep)
		}
		if used+cost > maxTokens {
			break
		}
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(entry)
		used += cost

		kept = append(kept, m)
		if !seen[m.DocumentName] {
			seen[m.DocumentName] = true
			sources = append(sources, m.DocumentName)
		}
	}

	return Result{
		Context: b.String(),
		Matches: kept,
		Sources: sources,
	}
}
