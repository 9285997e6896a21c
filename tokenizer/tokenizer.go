// Package tokenizer provides token-count estimation for prompt budgeting.
// The default estimator uses a chars-per-token heuristic; an exact
// tiktoken-backed implementation lives in contrib/tokenizer/tiktoken.
package tokenizer

// Estimator estimates how many LLM tokens a text occupies.
type Estimator interface {
	EstimateTokens(text string) int
}

// DefaultCharsPerToken is the heuristic ratio used when no exact tokenizer
// is configured. Four characters per token is a reasonable average for
// English prose.
const DefaultCharsPerToken = 4

// Heuristic estimates tokens by dividing character count by a fixed ratio.
type Heuristic struct {
	CharsPerToken int
}

// NewHeuristic creates a heuristic estimator. A non-positive ratio falls
// back to DefaultCharsPerToken.
func NewHeuristic(charsPerToken int) *Heuristic {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return &Heuristic{CharsPerToken: charsPerToken}
}

// EstimateTokens implements Estimator. Results round up so a partial token
// still counts against the budget.
func (h *Heuristic) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	ratio := h.CharsPerToken
	if ratio <= 0 {
		ratio = DefaultCharsPerToken
	}
	return (len(text) + ratio - 1) / ratio
}

var _ Estimator = (*Heuristic)(nil)
