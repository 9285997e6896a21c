package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubSource struct {
	kind     SourceKind
	snippets []Snippet
	err      error
	delay    time.Duration
	calls    int
}

func (s *stubSource) Kind() SourceKind {
	return s.kind
}

func (s *stubSource) Search(ctx context.Context, query string, topK int) ([]Snippet, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.snippets, nil
}

func TestRetrieveMergesAcrossSources(t *testing.T) {
	vectorSrc := &stubSource{
		kind: SourceVector,
		snippets: []Snippet{
			{ID: "v1", Text: "VA loans are guaranteed by the VA.", Score: 0.9},
			{ID: "v2", Text: "Eligibility requires a certificate.", Score: 0.7},
		},
	}
	webSrc := &stubSource{
		kind: SourceWeb,
		snippets: []Snippet{
			{ID: "w1", Text: "VA loans need no down payment.", Score: 0.8},
		},
	}

	r := New([]Source{vectorSrc, webSrc})
	got := r.Retrieve(context.Background(), "what is a VA loan")

	if len(got) != 3 {
		t.Fatalf("expected 3 snippets, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("results not sorted by score: %v then %v", got[i-1], got[i])
		}
	}
	if got[0].ID != "v1" || got[1].ID != "w1" || got[2].ID != "v2" {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestRetrieveOrderIndependentOfSourceLatency(t *testing.T) {
	fast := &stubSource{
		kind:     SourceWeb,
		snippets: []Snippet{{ID: "w1", Text: "lower scored but arrives first", Score: 0.3}},
	}
	slow := &stubSource{
		kind:     SourceVector,
		delay:    30 * time.Millisecond,
		snippets: []Snippet{{ID: "v1", Text: "higher scored but arrives last", Score: 0.9}},
	}

	r := New([]Source{fast, slow})
	got := r.Retrieve(context.Background(), "query")

	if len(got) != 2 {
		t.Fatalf("expected 2 snippets, got %d", len(got))
	}
	if got[0].ID != "v1" {
		t.Errorf("expected score order to win over arrival order, got %v", got)
	}
}

func TestRetrieveToleratesFailingSource(t *testing.T) {
	healthy := &stubSource{
		kind:     SourceVector,
		snippets: []Snippet{{ID: "v1", Text: "still here", Score: 0.5}},
	}
	broken := &stubSource{
		kind: SourceWeb,
		err:  errors.New("search backend down"),
	}

	r := New([]Source{healthy, broken})
	got := r.Retrieve(context.Background(), "query")

	if len(got) != 1 || got[0].ID != "v1" {
		t.Errorf("expected only the healthy source's snippet, got %v", got)
	}
}

func TestRetrieveAllSourcesFailingYieldsEmpty(t *testing.T) {
	r := New([]Source{
		&stubSource{kind: SourceVector, err: errors.New("down")},
		&stubSource{kind: SourceWeb, err: errors.New("also down")},
	})

	if got := r.Retrieve(context.Background(), "query"); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestRetrieveTimesOutSlowSource(t *testing.T) {
	slow := &stubSource{
		kind:     SourceWeb,
		delay:    time.Second,
		snippets: []Snippet{{ID: "w1", Text: "too late", Score: 0.9}},
	}
	fast := &stubSource{
		kind:     SourceVector,
		snippets: []Snippet{{ID: "v1", Text: "on time", Score: 0.1}},
	}

	r := New([]Source{slow, fast}, WithSourceTimeout(20*time.Millisecond))
	got := r.Retrieve(context.Background(), "query")

	if len(got) != 1 || got[0].ID != "v1" {
		t.Errorf("expected slow source to be dropped, got %v", got)
	}
}

func TestMergeDeduplicatesByNormalizedText(t *testing.T) {
	r := New(nil)
	merged := r.merge([]Snippet{
		{ID: "a", Text: "VA  loans are great.", Kind: SourceWeb, Score: 0.4},
		{ID: "b", Text: "va loans are great.", Kind: SourceVector, Score: 0.8},
		{ID: "c", Text: "Something else entirely.", Kind: SourceVector, Score: 0.5},
	})

	if len(merged) != 2 {
		t.Fatalf("expected 2 snippets after dedup, got %d", len(merged))
	}
	if merged[0].ID != "b" {
		t.Errorf("expected highest-scoring duplicate to survive, got %v", merged[0])
	}
}

func TestMergeTieBreaksBySourcePriority(t *testing.T) {
	r := New(nil)
	merged := r.merge([]Snippet{
		{ID: "o", Text: "other text", Kind: SourceOther, Score: 0.5},
		{ID: "w", Text: "web text", Kind: SourceWeb, Score: 0.5},
		{ID: "v", Text: "vector text", Kind: SourceVector, Score: 0.5},
	})

	if merged[0].Kind != SourceVector || merged[1].Kind != SourceWeb || merged[2].Kind != SourceOther {
		t.Errorf("expected vector > web > other on equal scores, got %v", merged)
	}
}

func TestTruncateHonoursTokenBudget(t *testing.T) {
	// 40 chars each => 10 estimated tokens per snippet at 4 chars/token.
	text := "0123456789012345678901234567890123456789"
	var snippets []Snippet
	for i := 0; i < 5; i++ {
		snippets = append(snippets, Snippet{
			ID:    string(rune('a' + i)),
			Text:  text,
			Kind:  SourceVector,
			Score: float64(5 - i),
		})
	}

	r := New(nil, WithTokenBudget(25))
	// Texts are identical so bypass dedup and exercise truncation directly.
	got := r.truncate(snippets)

	if len(got) != 2 {
		t.Fatalf("expected 2 snippets within budget, got %d", len(got))
	}
	for i, sn := range got {
		if sn.ID != snippets[i].ID {
			t.Errorf("truncated result is not a prefix: position %d has %s", i, sn.ID)
		}
	}
}

func TestRetrieveNoSources(t *testing.T) {
	r := New(nil)
	if got := r.Retrieve(context.Background(), "query"); got != nil {
		t.Errorf("expected nil for no sources, got %v", got)
	}
}
