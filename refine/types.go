// Package refine implements the bounded planner/critique loop that turns a
// query plus retrieved context into an approved answer.
package refine

import (
	"github.com/convoflow-ai/convoflow/retrieval"
)

// SessionState labels the loop's position in its state machine.
type SessionState string

const (
	// StatePlanning means a draft is being produced.
	StatePlanning SessionState = "planning"
	// StateCritiquing means the current draft is under review.
	StateCritiquing SessionState = "critiquing"
	// StateApproved is terminal: the critic accepted a draft.
	StateApproved SessionState = "approved"
	// StateIterating means the critic rejected the draft and another pass
	// is about to start.
	StateIterating SessionState = "iterating"
	// StateExhausted is terminal: the iteration budget ran out and the
	// last draft stands.
	StateExhausted SessionState = "exhausted"
)

// Terminal reports whether the state ends the loop.
func (s SessionState) Terminal() bool {
	return s == StateApproved || s == StateExhausted
}

// Draft is one planner-produced answer candidate.
type Draft struct {
	Text       string `json:"text"`
	Iteration  int    `json:"iteration"`
	TokensUsed int    `json:"tokens_used"`
}

// Scores holds the critic's per-dimension ratings, each in [0,1].
type Scores struct {
	Accuracy     float64 `json:"accuracy"`
	Completeness float64 `json:"completeness"`
	Clarity      float64 `json:"clarity"`
}

// Critique is the critic's verdict on one draft.
type Critique struct {
	Scores   Scores  `json:"scores"`
	Overall  float64 `json:"overall"`
	Approved bool    `json:"approved"`
	Feedback string  `json:"feedback"`
}

// Iteration pairs a draft with the critique that judged it.
type Iteration struct {
	Draft    Draft    `json:"draft"`
	Critique Critique `json:"critique"`
}

// Session captures one full run of the refinement loop. It is owned by a
// single request and discarded once the final answer is returned.
type Session struct {
	Query         string              `json:"query"`
	Context       []retrieval.Snippet `json:"context"`
	Iterations    []Iteration         `json:"iterations"`
	MaxIterations int                 `json:"max_iterations"`
	FinalAnswer   Draft               `json:"final_answer"`
	State         SessionState        `json:"state"`
}

// LastIteration returns the most recent iteration, or nil before any
// planner pass completed.
func (s *Session) LastIteration() *Iteration {
	if len(s.Iterations) == 0 {
		return nil
	}
	return &s.Iterations[len(s.Iterations)-1]
}
