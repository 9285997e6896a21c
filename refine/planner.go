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

type planner struct {
	llm    llm.Client
	cfg    *Config
	logger *slog.Logger
}

func newPlanner(client llm.Client, cfg *Config, logger *slog.Logger) *planner {
	return &planner{
		llm:    client,
		cfg:    cfg,
		logger: logger.With("agent", "planner"),
	}
}

// Plan produces the draft for one iteration. On iteration 0 prev and
// feedback are empty; later iterations carry the rejected draft and the
// critic's feedback so the model revises instead of regenerating. A failed
// generation degrades to a safe fallback draft; Plan never returns an error.
func (p *planner) Plan(ctx context.Context, query string, snippets []retrieval.Snippet, prev *Draft, feedback string, iteration int) Draft {
	userPrompt := p.buildPrompt(query, snippets, prev, feedback)

	var resp *llm.GenerateResponse
	err := p.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
		defer cancel()

		var genErr error
		resp, genErr = p.llm.Generate(callCtx, &llm.GenerateRequest{
			Messages: []*message.Message{
				message.NewMessage(message.RoleSystem, p.cfg.PlannerPrompt),
				message.NewMessage(message.RoleUser, userPrompt),
			},
			Temperature: p.cfg.PlannerTemperature,
			MaxTokens:   p.cfg.MaxTokens,
		})
		if genErr != nil {
			return genErr
		}
		if resp == nil || resp.Message == nil || strings.TrimSpace(resp.Message.Text()) == "" {
			return fmt.Errorf("planner returned empty response")
		}
		return nil
	})
	if err != nil {
		p.logger.Warn("generation unavailable, using fallback draft", "iteration", iteration, "error", err)
		return p.fallbackDraft(snippets, iteration)
	}

	return Draft{
		Text:       strings.TrimSpace(resp.Message.Text()),
		Iteration:  iteration,
		TokensUsed: resp.TokensUsed,
	}
}

func (p *planner) buildPrompt(query string, snippets []retrieval.Snippet, prev *Draft, feedback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question:\n%s\n\nContext:\n%s\n", query, retrieval.FlattenSnippets(snippets))
	if prev != nil {
		fmt.Fprintf(&b, "\nPrevious draft:\n%s\n", prev.Text)
		if feedback != "" {
			fmt.Fprintf(&b, "\nReviewer feedback to address:\n%s\n", feedback)
		}
		b.WriteString("\nRevise the draft to fix its weaknesses. Keep what already works.")
	}
	return b.String()
}

// fallbackDraft restates the retrieved context verbatim when any exists,
// otherwise returns the configured generic answer. The loop must always
// have some draft to carry forward.
func (p *planner) fallbackDraft(snippets []retrieval.Snippet, iteration int) Draft {
	if len(snippets) > 0 {
		var b strings.Builder
		b.WriteString("Here is what I found on this topic:\n\n")
		for _, sn := range snippets {
			b.WriteString("- ")
			b.WriteString(strings.TrimSpace(sn.Text))
			b.WriteString("\n")
		}
		return Draft{Text: b.String(), Iteration: iteration}
	}
	return Draft{Text: p.cfg.FallbackAnswer, Iteration: iteration}
}
