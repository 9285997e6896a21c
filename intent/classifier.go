package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/convoflow-ai/convoflow/llm"
	"github.com/convoflow-ai/convoflow/message"
	"github.com/convoflow-ai/convoflow/pkg/logging"
	"github.com/convoflow-ai/convoflow/pkg/retry"
)

// Config controls classifier behaviour.
type Config struct {
	// FallbackConfidence is assigned to keyword-based classifications to
	// signal reduced certainty.
	FallbackConfidence float64
	// CallTimeout bounds each LLM attempt.
	CallTimeout time.Duration
	// Retry is the backoff schedule applied to the LLM call.
	Retry retry.Policy
	// Keywords overrides the fallback keyword sets when non-nil.
	Keywords map[Label][]string
	// Prompt overrides the classification system prompt when non-empty.
	Prompt string
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		FallbackConfidence: 0.5,
		CallTimeout:        8 * time.Second,
		Retry:              retry.DefaultPolicy(),
	}
}

// Classifier maps free text to a Label plus confidence. It never returns
// an error: every failure degrades to a keyword or unclear classification.
type Classifier struct {
	llm      llm.Client
	cfg      Config
	keywords map[Label][]string
	prompt   string
	logger   *slog.Logger
}

// NewClassifier creates a classifier. A nil client skips the LLM path and
// classifies by keywords only.
func NewClassifier(client llm.Client, cfg Config) *Classifier {
	if cfg.FallbackConfidence <= 0 || cfg.FallbackConfidence > 1 {
		cfg.FallbackConfidence = 0.5
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 8 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	keywords := cfg.Keywords
	if keywords == nil {
		keywords = defaultKeywords()
	}
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = classificationPrompt
	}
	return &Classifier{
		llm:      client,
		cfg:      cfg,
		keywords: keywords,
		prompt:   prompt,
		logger:   logging.WithComponent("intent_classifier"),
	}
}

// llmVerdict is the JSON shape requested from the model.
type llmVerdict struct {
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores,omitempty"`
}

// Classify determines the intent of a user message. Empty input classifies
// as unclear with confidence 0 and makes no external call.
func (c *Classifier) Classify(ctx context.Context, text string) *Result {
	if strings.TrimSpace(text) == "" {
		return &Result{Label: LabelUnclear, Confidence: 0}
	}

	if c.llm != nil {
		if result, err := c.classifyWithLLM(ctx, text); err == nil {
			return result
		} else {
			c.logger.Warn("LLM classification unavailable, using keyword fallback", "error", err)
		}
	}

	return c.classifyByKeywords(text)
}

func (c *Classifier) classifyWithLLM(ctx context.Context, text string) (*Result, error) {
	var verdict *llmVerdict

	err := c.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()

		resp, err := c.llm.Generate(callCtx, &llm.GenerateRequest{
			Messages: []*message.Message{
				message.NewMessage(message.RoleSystem, c.prompt),
				message.NewMessage(message.RoleUser, text),
			},
			Temperature: 0,
			MaxTokens:   128,
			JSONMode:    true,
		})
		if err != nil {
			return err
		}
		if resp == nil || resp.Message == nil {
			return fmt.Errorf("empty classification response")
		}

		verdict, err = llm.DecodeJSON[llmVerdict](resp.Message.Text())
		if err != nil {
			return fmt.Errorf("classification output invalid: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	label := Label(strings.ToLower(strings.TrimSpace(verdict.Label)))
	if !label.Valid() {
		return nil, fmt.Errorf("classification returned unknown label %q", verdict.Label)
	}

	confidence := verdict.Confidence
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("classification confidence %v out of range", verdict.Confidence)
	}

	result := &Result{Label: label, Confidence: confidence}
	if len(verdict.Scores) > 0 {
		result.RawScores = make(map[Label]float64, len(verdict.Scores))
		for k, v := range verdict.Scores {
			if l := Label(strings.ToLower(k)); l.Valid() {
				result.RawScores[l] = v
			}
		}
	}
	return result, nil
}

func (c *Classifier) classifyByKeywords(text string) *Result {
	label := matchKeywords(c.keywords, text)
	if label == LabelUnclear {
		return &Result{Label: LabelUnclear, Confidence: 0}
	}
	return &Result{Label: label, Confidence: c.cfg.FallbackConfidence}
}

const classificationPrompt = `You classify a user's message into exactly one intent label.
Labels: greeting | question | command | unclear.
Return ONLY a JSON object: {"label":"...","confidence":0.0-1.0,"scores":{"greeting":0.0,"question":0.0,"command":0.0,"unclear":0.0}}.
- greeting: salutations and small talk openers.
- question: the user asks for information.
- command: the user asks the assistant to perform an action or produce something specific.
- unclear: anything else, including fragments.
No prose, no markdown fences.`
