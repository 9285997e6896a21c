package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/convoflow-ai/convoflow/vector"
)

// VectorSource is the mandatory similarity source. It embeds the query,
// searches the vector store, and maps hits back to snippets scored by
// cosine similarity.
type VectorSource struct {
	store    vector.Store
	embedder vector.Embedder
}

// NewVectorSource creates the source over a store and embedder.
func NewVectorSource(store vector.Store, embedder vector.Embedder) (*VectorSource, error) {
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	return &VectorSource{store: store, embedder: embedder}, nil
}

// Kind implements Source.
func (s *VectorSource) Kind() SourceKind {
	return SourceVector
}

// Index embeds and stores the given texts so they become searchable. IDs
// are derived from the position when not provided.
func (s *VectorSource) Index(ctx context.Context, snippets ...Snippet) error {
	for i, sn := range snippets {
		if strings.TrimSpace(sn.Text) == "" {
			return fmt.Errorf("snippet content cannot be empty")
		}
		id := sn.ID
		if id == "" {
			id = fmt.Sprintf("snippet-%d", i+1)
		}
		vec, err := s.embedder.Embed(ctx, sn.Text)
		if err != nil {
			return fmt.Errorf("embed snippet %s: %w", id, err)
		}
		if err := s.store.Add(ctx, &vector.Embedding{
			ID:     id,
			Vector: vec,
			Text:   sn.Text,
		}); err != nil {
			return fmt.Errorf("store snippet %s: %w", id, err)
		}
	}
	return nil
}

// Search implements Source.
func (s *VectorSource) Search(ctx context.Context, query string, topK int) ([]Snippet, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.store.Search(ctx, queryVec, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	snippets := make([]Snippet, 0, len(hits))
	for _, hit := range hits {
		snippets = append(snippets, Snippet{
			ID:    hit.ID,
			Text:  hit.Text,
			Kind:  SourceVector,
			Score: float64(vector.CosineSimilarity(queryVec, hit.Vector)),
		})
	}
	return snippets, nil
}

var _ Source = (*VectorSource)(nil)
