package refine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/convoflow-ai/convoflow/graph"
	"github.com/convoflow-ai/convoflow/llm"
	"github.com/convoflow-ai/convoflow/pkg/logging"
	"github.com/convoflow-ai/convoflow/retrieval"
)

const sessionStateKey = "__refine_session"

// Clients groups the LLM clients used by the loop's agents. Planner and
// Critic fall back to Default when unset, so a single client can drive the
// whole loop.
type Clients struct {
	Default llm.Client
	Planner llm.Client
	Critic  llm.Client
}

// Controller runs the bounded planner/critique refinement loop:
//
//	PLANNING -> CRITIQUING -> {APPROVED | ITERATING | EXHAUSTED}
//
// ITERATING feeds the critic's feedback back into another planning pass.
// The loop is expressed on the execution graph with a condition node as the
// gate and a back-edge for iteration; the graph's max-visit guard backs up
// the iteration cap.
type Controller struct {
	cfg     *Config
	planner *planner
	critic  *critic
	graph   *graph.Graph
	logger  *slog.Logger
}

// NewController validates configuration and wires the loop graph. Invalid
// configuration (e.g. MaxIterations <= 0) fails here, never mid-request.
func NewController(clients Clients, opts ...Option) (*Controller, error) {
	cfg := applyOptions(nil, opts)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	plannerLLM := llm.Pick(clients.Planner, clients.Default)
	criticLLM := llm.Pick(clients.Critic, clients.Default)
	if plannerLLM == nil {
		return nil, fmt.Errorf("planner client is required")
	}
	if criticLLM == nil {
		return nil, fmt.Errorf("critic client is required")
	}

	logger := logging.WithComponent("refine_controller").With("session", cfg.Name)
	c := &Controller{
		cfg:     cfg,
		planner: newPlanner(plannerLLM, cfg, logger),
		critic:  newCritic(criticLLM, cfg, logger),
		logger:  logger,
	}

	builder := graph.NewBuilder().
		AddNode("start", graph.NodeTypeStart, c.startNode).
		AddNode("plan", graph.NodeTypeLLM, c.planNode).
		AddNode("critique", graph.NodeTypeLLM, c.critiqueNode).
		AddConditionNode("gate", c.gate, map[string]string{
			"approved":  "end",
			"iterate":   "plan",
			"exhausted": "end",
		}).
		AddNode("end", graph.NodeTypeEnd, c.endNode).
		AddEdge("start", "plan").
		AddEdge("plan", "critique").
		AddEdge("critique", "gate").
		SetStart("start")

	g := builder.Build()
	// Every node is visited at most once per iteration plus the entry pass.
	g.SetMaxVisits(cfg.MaxIterations + 2)
	c.graph = g

	c.logger.Info("refinement controller initialised",
		"max_iterations", cfg.MaxIterations,
		"threshold", cfg.Threshold,
	)
	return c, nil
}

// Run executes the loop for one query. It always produces a session with a
// non-empty final answer; component failures degrade per their policies
// instead of aborting. The only error paths are context cancellation and
// graph wiring faults.
func (c *Controller) Run(ctx context.Context, query string, snippets []retrieval.Snippet) (*Session, error) {
	session := &Session{
		Query:         strings.TrimSpace(query),
		Context:       snippets,
		MaxIterations: c.cfg.MaxIterations,
		State:         StatePlanning,
	}

	finalState, err := c.graph.Execute(ctx, graph.State{sessionStateKey: session})
	if err != nil {
		return nil, err
	}
	return getSession(finalState)
}

func (c *Controller) startNode(ctx context.Context, state graph.State) (graph.State, error) {
	_, err := getSession(state)
	return state, err
}

func (c *Controller) planNode(ctx context.Context, state graph.State) (graph.State, error) {
	session, err := getSession(state)
	if err != nil {
		return state, err
	}

	session.State = StatePlanning
	iteration := len(session.Iterations)

	var prev *Draft
	var feedback string
	if last := session.LastIteration(); last != nil {
		prev = &last.Draft
		feedback = last.Critique.Feedback
	}

	draft := c.planner.Plan(ctx, session.Query, session.Context, prev, feedback, iteration)
	session.Iterations = append(session.Iterations, Iteration{Draft: draft})
	c.logger.Debug("draft produced", "iteration", iteration, "tokens", draft.TokensUsed)
	return state, nil
}

func (c *Controller) critiqueNode(ctx context.Context, state graph.State) (graph.State, error) {
	session, err := getSession(state)
	if err != nil {
		return state, err
	}

	session.State = StateCritiquing
	last := session.LastIteration()
	if last == nil {
		return state, fmt.Errorf("critique node reached without a draft")
	}

	last.Critique = c.critic.Review(ctx, last.Draft, session.Query, session.Context)
	c.logger.Debug("draft reviewed",
		"iteration", last.Draft.Iteration,
		"overall", last.Critique.Overall,
		"approved", last.Critique.Approved,
	)
	return state, nil
}

func (c *Controller) gate(ctx context.Context, state graph.State) (string, error) {
	session, err := getSession(state)
	if err != nil {
		return "", err
	}

	last := session.LastIteration()
	if last == nil {
		return "", fmt.Errorf("gate reached without an iteration")
	}

	switch {
	case last.Critique.Approved:
		session.State = StateApproved
		return "approved", nil
	case len(session.Iterations) < session.MaxIterations:
		session.State = StateIterating
		return "iterate", nil
	default:
		session.State = StateExhausted
		return "exhausted", nil
	}
}

func (c *Controller) endNode(ctx context.Context, state graph.State) (graph.State, error) {
	session, err := getSession(state)
	if err != nil {
		return state, err
	}

	last := session.LastIteration()
	if last == nil {
		return state, fmt.Errorf("loop ended without producing a draft")
	}
	session.FinalAnswer = last.Draft

	c.logger.Info("refinement completed",
		"state", session.State,
		"iterations", len(session.Iterations),
	)
	return state, nil
}

func getSession(state graph.State) (*Session, error) {
	raw, ok := state[sessionStateKey]
	if !ok {
		return nil, fmt.Errorf("refine session missing in graph state")
	}
	session, ok := raw.(*Session)
	if !ok {
		return nil, fmt.Errorf("invalid refine session type")
	}
	return session, nil
}
