package refine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/convoflow-ai/convoflow/llm"
	"github.com/convoflow-ai/convoflow/message"
	"github.com/convoflow-ai/convoflow/retrieval"
)

type critic struct {
	llm    llm.Client
	cfg    *Config
	logger *slog.Logger
}

func newCritic(client llm.Client, cfg *Config, logger *slog.Logger) *critic {
	return &critic{
		llm:    client,
		cfg:    cfg,
		logger: logger.With("agent", "critic"),
	}
}

// criticVerdict is the JSON shape requested from the model.
type criticVerdict struct {
	Accuracy     float64 `json:"accuracy"`
	Completeness float64 `json:"completeness"`
	Clarity      float64 `json:"clarity"`
	Feedback     string  `json:"feedback"`
}

// Review scores a draft along the fixed dimensions. Any failure (call
// error, timeout, unparseable or out-of-range output) approves by default:
// critique must never block producing an answer. Review never returns an
// error.
func (c *critic) Review(ctx context.Context, draft Draft, query string, snippets []retrieval.Snippet) Critique {
	userPrompt := fmt.Sprintf(
		"Question:\n%s\n\nContext:\n%s\n\nDraft answer:\n%s\n\nReturn JSON only.",
		query, retrieval.FlattenSnippets(snippets), draft.Text,
	)

	var verdict *criticVerdict
	err := c.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()

		resp, genErr := c.llm.Generate(callCtx, &llm.GenerateRequest{
			Messages: []*message.Message{
				message.NewMessage(message.RoleSystem, c.cfg.CriticPrompt),
				message.NewMessage(message.RoleUser, userPrompt),
			},
			Temperature: c.cfg.CriticTemperature,
			MaxTokens:   c.cfg.MaxTokens,
			JSONMode:    true,
		})
		if genErr != nil {
			return genErr
		}
		if resp == nil || resp.Message == nil {
			return fmt.Errorf("critic returned empty response")
		}

		decoded, decErr := llm.DecodeJSON[criticVerdict](resp.Message.Text())
		if decErr != nil {
			return fmt.Errorf("critic output invalid: %w", decErr)
		}
		if !inUnit(decoded.Accuracy) || !inUnit(decoded.Completeness) || !inUnit(decoded.Clarity) {
			return fmt.Errorf("critic scores out of range: %+v", decoded)
		}
		verdict = decoded
		return nil
	})
	if err != nil {
		c.logger.Warn("critique unavailable, approving by default", "iteration", draft.Iteration, "error", err)
		return c.autoApprove()
	}

	scores := Scores{
		Accuracy:     verdict.Accuracy,
		Completeness: verdict.Completeness,
		Clarity:      verdict.Clarity,
	}
	overall := c.overall(scores)
	return Critique{
		Scores:   scores,
		Overall:  overall,
		Approved: overall >= c.cfg.Threshold,
		Feedback: strings.TrimSpace(verdict.Feedback),
	}
}

// autoApprove is the availability-over-strictness degradation: the overall
// score is pinned to the threshold as a sentinel.
func (c *critic) autoApprove() Critique {
	return Critique{
		Overall:  c.cfg.Threshold,
		Approved: true,
		Feedback: "critique unavailable; approved by default",
	}
}

func (c *critic) overall(s Scores) float64 {
	w := c.cfg.Weights
	return w.Accuracy*s.Accuracy + w.Completeness*s.Completeness + w.Clarity*s.Clarity
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
