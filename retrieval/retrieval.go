// Package retrieval gathers context snippets for the refinement loop. It
// fans out to every enabled source concurrently, tolerates per-source
// failures, and merges the survivors into a deduplicated, score-ordered,
// token-budgeted list.
package retrieval

import (
	"context"
	"strings"
)

// SourceKind identifies where a snippet came from.
type SourceKind string

const (
	// SourceVector is the mandatory vector-similarity source.
	SourceVector SourceKind = "vector"
	// SourceWeb is an optional web search source.
	SourceWeb SourceKind = "web"
	// SourceOther covers any auxiliary source.
	SourceOther SourceKind = "other"
)

// Priority ranks source kinds for deterministic tie-breaking when scores
// are equal: vector beats web beats other.
func (k SourceKind) Priority() int {
	switch k {
	case SourceVector:
		return 0
	case SourceWeb:
		return 1
	default:
		return 2
	}
}

// Snippet is one retrieved piece of context. Snippets live for a single
// request.
type Snippet struct {
	ID    string     `json:"id"`
	Text  string     `json:"text"`
	Kind  SourceKind `json:"source"`
	Score float64    `json:"score"`
}

// Source produces candidate snippets for a query. Implementations must
// honour ctx cancellation; a Source that errors simply contributes nothing
// to the merged result.
type Source interface {
	Kind() SourceKind
	Search(ctx context.Context, query string, topK int) ([]Snippet, error)
}

// normalizeText produces the dedup key for a snippet: lowercased with all
// whitespace runs collapsed to single spaces.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// FlattenSnippets renders snippets as a context block for prompts.
func FlattenSnippets(snippets []Snippet) string {
	if len(snippets) == 0 {
		return "No supporting context was retrieved."
	}
	var b strings.Builder
	for _, sn := range snippets {
		b.WriteString("[")
		b.WriteString(sn.ID)
		b.WriteString(" ")
		b.WriteString(string(sn.Kind))
		b.WriteString("]\n")
		b.WriteString(strings.TrimSpace(sn.Text))
		b.WriteString("\n---\n")
	}
	return b.String()
}
