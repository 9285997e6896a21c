package graph

import (
	"context"
	"strings"
	"testing"
)

func passthrough(ctx context.Context, state State) (State, error) {
	return state, nil
}

func TestLinearExecution(t *testing.T) {
	var order []string
	record := func(name string) NodeFunc {
		return func(ctx context.Context, state State) (State, error) {
			order = append(order, name)
			return state, nil
		}
	}

	g := NewBuilder().
		AddNode("start", NodeTypeStart, record("start")).
		AddNode("work", NodeTypeCustom, record("work")).
		AddNode("end", NodeTypeEnd, record("end")).
		AddEdge("start", "work").
		AddEdge("work", "end").
		SetStart("start").
		Build()

	if _, err := g.Execute(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "start,work,end"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("expected order %q, got %q", want, got)
	}
}

func TestConditionBranching(t *testing.T) {
	g := NewBuilder().
		AddNode("start", NodeTypeStart, passthrough).
		AddConditionNode("gate", func(ctx context.Context, state State) (string, error) {
			if state["go_left"] == true {
				return "left", nil
			}
			return "right", nil
		}, map[string]string{
			"left":  "left_end",
			"right": "right_end",
		}).
		AddNode("left_end", NodeTypeEnd, func(ctx context.Context, state State) (State, error) {
			state["result"] = "left"
			return state, nil
		}).
		AddNode("right_end", NodeTypeEnd, func(ctx context.Context, state State) (State, error) {
			state["result"] = "right"
			return state, nil
		}).
		AddEdge("start", "gate").
		SetStart("start").
		Build()

	state, err := g.Execute(context.Background(), State{"go_left": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state["result"] != "left" {
		t.Errorf("expected left branch, got %v", state["result"])
	}

	state, err = g.Execute(context.Background(), State{"go_left": false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state["result"] != "right" {
		t.Errorf("expected right branch, got %v", state["result"])
	}
}

func TestLoopWithBoundedVisits(t *testing.T) {
	g := NewBuilder().
		AddNode("start", NodeTypeStart, passthrough).
		AddNode("work", NodeTypeCustom, func(ctx context.Context, state State) (State, error) {
			n, _ := state["count"].(int)
			state["count"] = n + 1
			return state, nil
		}).
		AddConditionNode("gate", func(ctx context.Context, state State) (string, error) {
			if state["count"].(int) >= 3 {
				return "done", nil
			}
			return "again", nil
		}, map[string]string{
			"again": "work",
			"done":  "end",
		}).
		AddNode("end", NodeTypeEnd, passthrough).
		AddEdge("start", "work").
		AddEdge("work", "gate").
		SetStart("start").
		SetMaxVisits(10).
		Build()

	state, err := g.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state["count"] != 3 {
		t.Errorf("expected 3 loop passes, got %v", state["count"])
	}
}

func TestRunawayLoopDetected(t *testing.T) {
	g := NewBuilder().
		AddNode("start", NodeTypeStart, passthrough).
		AddNode("spin", NodeTypeCustom, passthrough).
		AddNode("end", NodeTypeEnd, passthrough).
		AddEdge("start", "spin").
		AddEdge("spin", "spin").
		SetStart("start").
		SetMaxVisits(5).
		Build()

	if _, err := g.Execute(context.Background(), nil); err == nil {
		t.Fatal("expected infinite loop error")
	}
}

func TestMissingBranchEdge(t *testing.T) {
	g := NewBuilder().
		AddNode("start", NodeTypeStart, passthrough).
		AddConditionNode("gate", func(ctx context.Context, state State) (string, error) {
			return "unknown", nil
		}, map[string]string{"known": "end"}).
		AddNode("end", NodeTypeEnd, passthrough).
		AddEdge("start", "gate").
		SetStart("start").
		Build()

	if _, err := g.Execute(context.Background(), nil); err == nil {
		t.Fatal("expected error for missing branch edge")
	}
}

func TestCancelledContextStopsExecution(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewBuilder().
		AddNode("start", NodeTypeStart, passthrough).
		AddNode("end", NodeTypeEnd, passthrough).
		AddEdge("start", "end").
		SetStart("start").
		Build()

	if _, err := g.Execute(ctx, nil); err == nil {
		t.Fatal("expected context error")
	}
}
