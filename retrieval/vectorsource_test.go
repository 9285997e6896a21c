package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/convoflow-ai/convoflow/contrib/vector/inmemory"
)

type keywordEmbedder struct{}

var keywordSpace = []string{"loan", "veteran", "mortgage", "rate"}

func (k *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(keywordSpace))
	lower := strings.ToLower(text)
	for idx, kw := range keywordSpace {
		if strings.Contains(lower, kw) {
			vec[idx] = 1
		}
	}
	return vec, nil
}

func (k *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := k.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (k *keywordEmbedder) Dimension() int {
	return len(keywordSpace)
}

func TestVectorSourceIndexAndSearch(t *testing.T) {
	ctx := context.Background()
	src, err := NewVectorSource(inmemory.New(), &keywordEmbedder{})
	if err != nil {
		t.Fatalf("NewVectorSource error: %v", err)
	}

	err = src.Index(ctx,
		Snippet{ID: "va-basics", Text: "A VA loan is a mortgage guaranteed for veterans."},
		Snippet{ID: "rates", Text: "Interest rate trends this quarter."},
	)
	if err != nil {
		t.Fatalf("Index error: %v", err)
	}

	results, err := src.Search(ctx, "veteran loan details", 2)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].ID != "va-basics" {
		t.Errorf("expected va-basics first, got %s", results[0].ID)
	}
	if results[0].Kind != SourceVector {
		t.Errorf("expected vector kind, got %s", results[0].Kind)
	}
	if results[0].Score <= results[len(results)-1].Score && len(results) > 1 {
		t.Errorf("expected descending scores, got %v", results)
	}
}

func TestVectorSourceRejectsEmptySnippet(t *testing.T) {
	src, err := NewVectorSource(inmemory.New(), &keywordEmbedder{})
	if err != nil {
		t.Fatalf("NewVectorSource error: %v", err)
	}
	if err := src.Index(context.Background(), Snippet{ID: "x", Text: "   "}); err == nil {
		t.Fatal("expected error for empty snippet")
	}
}

func TestVectorSourceRequiresDependencies(t *testing.T) {
	if _, err := NewVectorSource(nil, &keywordEmbedder{}); err == nil {
		t.Error("expected error for nil store")
	}
	if _, err := NewVectorSource(inmemory.New(), nil); err == nil {
		t.Error("expected error for nil embedder")
	}
}
