package tiktoken

import (
	"github.com/pkoukk/tiktoken-go"
)

// Estimator counts tokens exactly using the tiktoken BPE vocabularies.
// It satisfies tokenizer.Estimator and can replace the chars-per-token
// heuristic for tighter prompt budgets.
type Estimator struct {
	enc *tiktoken.Tiktoken
}

// New resolves the encoding by model name first (e.g. "gpt-4o-mini"),
// then by encoding name (e.g. "cl100k_base").
func New(name string) (*Estimator, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Estimator{enc: enc}, nil
}

// EstimateTokens returns the exact token count for text.
func (e *Estimator) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(e.enc.Encode(text, nil, nil))
}
