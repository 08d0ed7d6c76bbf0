package rag

import (
	"context"
	"fmt"

	"ytai/internal/domain"
)

// Retriever finds the chunks of a collection closest to a question.
type Retriever struct {
	embedder domain.Embedder
	store    domain.VectorStore
}

// NewRetriever creates a Retriever. embedder must be the one the collection was indexed with.
func NewRetriever(embedder domain.Embedder, store domain.VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns the k chunks most similar to question, best first.
func (r *Retriever) Retrieve(ctx context.Context, collection, question string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return []domain.SearchResult{}, nil
	}
	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	res, err := r.store.Query(ctx, collection, vec, k)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return res, nil
}
