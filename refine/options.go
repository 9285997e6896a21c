package refine

import (
	"time"

	"github.com/convoflow-ai/convoflow/config"
	"github.com/convoflow-ai/convoflow/pkg/retry"
)

// Weights describes the critic's dimension weighting. The defaults come
// straight from the product documentation; they are configuration, not
// magic numbers, so do not tune them here.
type Weights struct {
	Accuracy     float64
	Completeness float64
	Clarity      float64
}

// Config controls the planner, critic, and loop controller. Construct with
// DefaultConfig and adjust via Options; Controller validation fails fast on
// unusable values.
type Config struct {
	Name          string  // Logical name for tracing/logging
	MaxIterations int     // Hard cap on planner/critique cycles
	Threshold     float64 // Overall score required for approval
	Weights       Weights

	PlannerPrompt  string
	CriticPrompt   string
	FallbackAnswer string // Used when the planner cannot generate at all

	PlannerTemperature float64
	CriticTemperature  float64
	MaxTokens          int64
	CallTimeout        time.Duration
	Retry              retry.Policy
}

// Option customises the configuration.
type Option func(*Config)

// WithName sets the logical session name used in logs.
func WithName(name string) Option {
	return func(cfg *Config) {
		if name != "" {
			cfg.Name = name
		}
	}
}

// WithMaxIterations caps how many planner/critique cycles may run.
func WithMaxIterations(n int) Option {
	return func(cfg *Config) {
		cfg.MaxIterations = n
	}
}

// WithThreshold sets the overall score required for approval.
func WithThreshold(t float64) Option {
	return func(cfg *Config) {
		cfg.Threshold = t
	}
}

// WithWeights overrides the critic's dimension weighting.
func WithWeights(w Weights) Option {
	return func(cfg *Config) {
		cfg.Weights = w
	}
}

// WithPlannerPrompt sets the planner system prompt.
func WithPlannerPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.PlannerPrompt = prompt
		}
	}
}

// WithCriticPrompt sets the critic system prompt.
func WithCriticPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.CriticPrompt = prompt
		}
	}
}

// WithFallbackAnswer customises the text used when generation is down and
// no context is available to restate.
func WithFallbackAnswer(text string) Option {
	return func(cfg *Config) {
		if text != "" {
			cfg.FallbackAnswer = text
		}
	}
}

// WithCallTimeout bounds each LLM call.
func WithCallTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.CallTimeout = d
		}
	}
}

// WithRetry sets the backoff schedule for planner and critic calls.
func WithRetry(p retry.Policy) Option {
	return func(cfg *Config) {
		if p.MaxAttempts > 0 {
			cfg.Retry = p
		}
	}
}

// WithMaxTokens caps generation length per call.
func WithMaxTokens(n int64) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxTokens = n
		}
	}
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:          "refine",
		MaxIterations: 2,
		Threshold:     0.85,
		Weights: Weights{
			Accuracy:     0.4,
			Completeness: 0.4,
			Clarity:      0.2,
		},
		PlannerPrompt: `You are the planner for a conversational assistant. Using only the question and the supplied context snippets, draft a clear, direct answer.
Rules:
- Ground every claim in the supplied context; if the context does not cover something, say so rather than guessing.
- Keep the answer focused on the question; no meta commentary about your process.
- When revision feedback is supplied, fix the named weaknesses in place; do not regenerate from scratch unless the draft is unsalvageable.`,
		CriticPrompt: `You review a draft answer for a conversational assistant. Score it against the question and the supplied context.
Return JSON only: {"accuracy":0.0-1.0,"completeness":0.0-1.0,"clarity":0.0-1.0,"feedback":"..."}.
- accuracy: are claims supported by the context, without hallucinations?
- completeness: does it address every part of the question the context can answer?
- clarity: is it well organised and easy to follow?
- feedback: name the concrete weaknesses to fix, or leave empty when there are none.
No prose outside the JSON object.`,
		FallbackAnswer:     "I wasn't able to produce a complete answer right now. Please try rephrasing your question or asking again shortly.",
		PlannerTemperature: 0.7,
		CriticTemperature:  0,
		MaxTokens:          1024,
		CallTimeout:        20 * time.Second,
		Retry:              retry.DefaultPolicy(),
	}
}

func applyOptions(cfg *Config, opts []Option) *Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// validate rejects configuration that would break the loop's guarantees.
func (cfg *Config) validate() error {
	v := config.NewValidator()
	v.RequirePositive("max_iterations", cfg.MaxIterations)
	v.ValidateFloatRange("threshold", cfg.Threshold, 0, 1)
	v.ValidateFloatRange("weights.accuracy", cfg.Weights.Accuracy, 0, 1)
	v.ValidateFloatRange("weights.completeness", cfg.Weights.Completeness, 0, 1)
	v.ValidateFloatRange("weights.clarity", cfg.Weights.Clarity, 0, 1)
	if sum := cfg.Weights.Accuracy + cfg.Weights.Completeness + cfg.Weights.Clarity; sum <= 0 {
		v.RequirePositive("weights.sum", int(sum))
	}
	return v.Error()
}
