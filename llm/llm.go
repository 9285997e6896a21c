// Package llm defines the generation-client boundary shared by every agent
// in the pipeline. Providers live under contrib/provider and implement
// Client; the core treats any error from this boundary as recoverable.
package llm

import (
	"context"

	"github.com/convoflow-ai/convoflow/message"
)

// GenerateRequest bundles inputs for a non-streaming LLM invocation.
type GenerateRequest struct {
	Messages    []*message.Message
	Temperature float64
	MaxTokens   int64
	// JSONMode asks the provider to constrain output to a single JSON
	// object. Providers that cannot enforce this degrade to prompt-level
	// instructions; callers must still validate with DecodeJSON.
	JSONMode bool
}

// GenerateResponse captures the LLM reply for non-streaming calls.
type GenerateResponse struct {
	Message    *message.Message
	TokensUsed int
}

// Client defines the interface for LLM providers.
type Client interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// Pick returns primary unless it is nil, in which case fallback is used.
func Pick(primary, fallback Client) Client {
	if primary != nil {
		return primary
	}
	return fallback
}
