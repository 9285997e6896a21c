// Package orchestrator ties the pipeline together: classify the query,
// gather supporting context, run the refinement loop, persist the outcome,
// and shape the final reply.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	errorspkg "github.com/convoflow-ai/convoflow/errors"
	"github.com/convoflow-ai/convoflow/intent"
	"github.com/convoflow-ai/convoflow/pkg/logging"
	"github.com/convoflow-ai/convoflow/pkg/telemetry"
	"github.com/convoflow-ai/convoflow/refine"
	"github.com/convoflow-ai/convoflow/retrieval"
	"github.com/convoflow-ai/convoflow/store"
)

const (
	defaultMaxConcurrency   = 10
	defaultGreetingReply    = "Hello! How can I help you today?"
	defaultConfidenceCutoff = 0.5
	defaultDisclaimer       = "Note: I wasn't fully confident about the intent of your question, so this answer may not be exactly what you were looking for."
)

// Reply is the outcome of one processed query.
type Reply struct {
	Text    string
	Intent  *intent.Result
	Session *refine.Session // nil when the query short-circuited
}

// Orchestrator runs the classify/retrieve/refine/persist pipeline. Safe
// for concurrent use; throughput is bounded by the semaphore.
type Orchestrator struct {
	classifier *intent.Classifier
	retriever  *retrieval.Retriever
	controller *refine.Controller
	sink       store.Sink

	greetingReply    string
	confidenceCutoff float64
	disclaimer       string

	semaphore chan struct{}
	tracer    trace.Tracer
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSink sets the persistence sink for completed turns.
func WithSink(sink store.Sink) Option {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// WithMaxConcurrency bounds how many requests run at once.
func WithMaxConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.semaphore = make(chan struct{}, n)
		}
	}
}

// WithGreetingReply overrides the canned greeting response.
func WithGreetingReply(text string) Option {
	return func(o *Orchestrator) {
		if strings.TrimSpace(text) != "" {
			o.greetingReply = text
		}
	}
}

// WithConfidenceCutoff sets the intent confidence below which the reply
// carries a disclaimer.
func WithConfidenceCutoff(cutoff float64) Option {
	return func(o *Orchestrator) {
		o.confidenceCutoff = cutoff
	}
}

// WithDisclaimer overrides the low-confidence disclaimer line.
func WithDisclaimer(text string) Option {
	return func(o *Orchestrator) {
		if strings.TrimSpace(text) != "" {
			o.disclaimer = text
		}
	}
}

// New builds an orchestrator over the given pipeline stages.
func New(classifier *intent.Classifier, retriever *retrieval.Retriever, controller *refine.Controller, opts ...Option) (*Orchestrator, error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if controller == nil {
		return nil, fmt.Errorf("refinement controller is required")
	}

	o := &Orchestrator{
		classifier:       classifier,
		retriever:        retriever,
		controller:       controller,
		greetingReply:    defaultGreetingReply,
		confidenceCutoff: defaultConfidenceCutoff,
		disclaimer:       defaultDisclaimer,
		semaphore:        make(chan struct{}, defaultMaxConcurrency),
		tracer:           otel.Tracer("convoflow/orchestrator"),
		logger:           logging.WithComponent("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Process answers one user query. The only surfaced error conditions are
// an empty query and context cancellation; every downstream failure
// degrades inside its own stage and still yields a reply.
func (o *Orchestrator) Process(ctx context.Context, query string) (*Reply, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty: %w", errorspkg.ErrInvalidInput)
	}

	select {
	case o.semaphore <- struct{}{}:
		defer func() { <-o.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.process")
	var err error
	defer func() { telemetry.End(span, err) }()

	result := o.classifier.Classify(ctx, query)
	span.SetAttributes(
		attribute.String("intent.label", string(result.Label)),
		attribute.Float64("intent.confidence", result.Confidence),
	)
	o.logger.Debug("query classified",
		"label", result.Label,
		"confidence", result.Confidence,
	)

	if result.Label == intent.LabelGreeting {
		return &Reply{Text: o.greetingReply, Intent: result}, nil
	}

	snippets := o.retriever.Retrieve(ctx, query)
	span.SetAttributes(attribute.Int("retrieval.snippets", len(snippets)))

	session, runErr := o.controller.Run(ctx, query, snippets)
	if runErr != nil {
		err = runErr
		return nil, runErr
	}

	text := session.FinalAnswer.Text
	if result.Confidence < o.confidenceCutoff {
		text = text + "\n\n" + o.disclaimer
	}

	o.persist(ctx, session, result)

	return &Reply{
		Text:    text,
		Intent:  result,
		Session: session,
	}, nil
}

// persist writes the turn to the sink. Storage failures are logged and
// never change the reply.
func (o *Orchestrator) persist(ctx context.Context, session *refine.Session, result *intent.Result) {
	if o.sink == nil {
		return
	}

	rec := store.NewRecord(session, string(result.Label), result.Confidence)
	if err := o.sink.Save(ctx, rec); err != nil {
		o.logger.Error("failed to persist conversation record",
			"record_id", rec.ID,
			"error", err,
		)
	}
}
