// Package intent classifies user messages into coarse routing categories.
//
// Classification flow:
//  1. One JSON-mode LLM call (retried with exponential backoff)
//  2. Deterministic keyword fallback when the call fails or its output is
//     unusable
package intent

import "fmt"

// Label is the closed set of intent categories.
type Label string

const (
	LabelGreeting Label = "greeting"
	LabelQuestion Label = "question"
	LabelCommand  Label = "command"
	LabelUnclear  Label = "unclear"
)

// Labels lists every valid label.
func Labels() []Label {
	return []Label{LabelGreeting, LabelQuestion, LabelCommand, LabelUnclear}
}

// Valid reports whether the label is one of the closed set.
func (l Label) Valid() bool {
	switch l {
	case LabelGreeting, LabelQuestion, LabelCommand, LabelUnclear:
		return true
	}
	return false
}

// Result is a classified intent. It is created once per incoming message
// and never mutated afterwards.
type Result struct {
	Label      Label             `json:"label"`
	Confidence float64           `json:"confidence"`
	RawScores  map[Label]float64 `json:"raw_scores,omitempty"`
}

func (r *Result) String() string {
	return fmt.Sprintf("%s(%.2f)", r.Label, r.Confidence)
}
