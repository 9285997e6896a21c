package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/convoflow-ai/convoflow/pkg/logging"
	"github.com/convoflow-ai/convoflow/tokenizer"
)

// Config controls retrieval behaviour.
type Config struct {
	TopK          int           // Per-source result cap
	TokenBudget   int           // Max estimated tokens across all merged snippets
	SourceTimeout time.Duration // Per-source call timeout
	Estimator     tokenizer.Estimator
}

// Option customizes retriever config.
type Option func(*Config)

// WithTopK sets how many snippets each source may return.
func WithTopK(k int) Option {
	return func(cfg *Config) {
		if k > 0 {
			cfg.TopK = k
		}
	}
}

// WithTokenBudget caps the estimated token total of the merged context.
func WithTokenBudget(budget int) Option {
	return func(cfg *Config) {
		if budget > 0 {
			cfg.TokenBudget = budget
		}
	}
}

// WithSourceTimeout bounds each source call.
func WithSourceTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.SourceTimeout = d
		}
	}
}

// WithEstimator plugs in an exact tokenizer for budget accounting.
func WithEstimator(est tokenizer.Estimator) Option {
	return func(cfg *Config) {
		if est != nil {
			cfg.Estimator = est
		}
	}
}

// Retriever fans a query out to its sources and merges the results.
type Retriever struct {
	sources []Source
	cfg     Config
	logger  *slog.Logger
}

// New creates a retriever over the given sources. At least one source is
// expected; a retriever with no sources always returns an empty context.
func New(sources []Source, opts ...Option) *Retriever {
	cfg := Config{
		TopK:          5,
		TokenBudget:   1500,
		SourceTimeout: 10 * time.Second,
		Estimator:     tokenizer.NewHeuristic(tokenizer.DefaultCharsPerToken),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Retriever{
		sources: sources,
		cfg:     cfg,
		logger:  logging.WithComponent("retriever"),
	}
}

type sourceResult struct {
	index    int
	snippets []Snippet
	err      error
}

// Retrieve queries all sources concurrently and merges whatever succeeded.
// A failing or timed-out source contributes zero snippets; Retrieve itself
// never fails, it degrades to an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string) []Snippet {
	if len(r.sources) == 0 {
		return nil
	}

	results := make(chan sourceResult, len(r.sources))
	for i, src := range r.sources {
		go func(idx int, src Source) {
			callCtx, cancel := context.WithTimeout(ctx, r.cfg.SourceTimeout)
			defer cancel()
			snippets, err := src.Search(callCtx, query, r.cfg.TopK)
			results <- sourceResult{index: idx, snippets: snippets, err: err}
		}(i, src)
	}

	var collected []Snippet
	for range r.sources {
		res := <-results
		if res.err != nil {
			r.logger.Warn("retrieval source failed",
				"kind", r.sources[res.index].Kind(),
				"error", res.err,
			)
			continue
		}
		kind := r.sources[res.index].Kind()
		for _, sn := range res.snippets {
			if sn.Kind == "" {
				sn.Kind = kind
			}
			collected = append(collected, sn)
		}
	}

	merged := r.merge(collected)
	r.logger.Debug("retrieval completed",
		"candidates", len(collected),
		"merged", len(merged),
	)
	return merged
}

// merge deduplicates by normalized text (keeping the highest-scoring
// duplicate), orders by score descending with deterministic tie-breaking,
// and truncates to the token budget.
func (r *Retriever) merge(snippets []Snippet) []Snippet {
	if len(snippets) == 0 {
		return nil
	}

	byText := make(map[string]Snippet, len(snippets))
	for _, sn := range snippets {
		key := normalizeText(sn.Text)
		if key == "" {
			continue
		}
		best, seen := byText[key]
		if !seen || sn.Score > best.Score || (sn.Score == best.Score && sn.Kind.Priority() < best.Kind.Priority()) {
			byText[key] = sn
		}
	}

	deduped := make([]Snippet, 0, len(byText))
	for _, sn := range byText {
		deduped = append(deduped, sn)
	}

	sort.Slice(deduped, func(i, j int) bool {
		a, b := deduped[i], deduped[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Kind.Priority() != b.Kind.Priority() {
			return a.Kind.Priority() < b.Kind.Priority()
		}
		return a.ID < b.ID
	})

	return r.truncate(deduped)
}

// truncate greedily keeps snippets in score order until the next one would
// exceed the token budget; the result is always a prefix of the sorted list.
func (r *Retriever) truncate(sorted []Snippet) []Snippet {
	if r.cfg.TokenBudget <= 0 {
		return sorted
	}

	used := 0
	for i, sn := range sorted {
		cost := r.cfg.Estimator.EstimateTokens(sn.Text)
		if used+cost > r.cfg.TokenBudget {
			return sorted[:i]
		}
		used += cost
	}
	return sorted
}
