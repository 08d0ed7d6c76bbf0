package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"ytai/internal/domain"
)

// Indexer embeds transcript chunks into a vector store collection.
type Indexer struct {
	embedder domain.Embedder
	store    domain.VectorStore
	logger   *slog.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(embedder domain.Embedder, store domain.VectorStore, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{embedder: embedder, store: store, logger: logger}
}

// Index adds one record per chunk to collection and returns how many were added.
// A collection that already holds records is left untouched and 0 is returned.
// When embedding fails midway the records added so far stay in place and a
// *domain.PartialIndexError is returned.
func (ix *Indexer) Index(ctx context.Context, collection string, chunks []string) (int, error) {
	n, err := ix.store.Count(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	if n > 0 {
		ix.logger.Debug("collection already indexed", slog.String("collection", collection), slog.Int("records", n))
		return 0, nil
	}

	added := 0
	for i, text := range chunks {
		vec, err := ix.embedder.Embed(ctx, text)
		if err == nil {
			var id uuid.UUID
			if id, err = uuid.NewUUID(); err == nil {
				err = ix.store.Add(ctx, collection, []domain.Record{{ID: id.String(), Vector: vec, Text: text}})
			}
		}
		if err != nil {
			ix.logger.Error("indexing stopped",
				slog.String("collection", collection),
				slog.Int("chunk", i),
				slog.Int("indexed", added),
				slog.String("error", err.Error()),
			)
			return added, &domain.PartialIndexError{Collection: collection, Indexed: added, Err: err}
		}
		added++
	}
	ix.logger.Info("indexed transcript",
		slog.String("collection", collection),
		slog.String("embedder", ix.embedder.Name()),
		slog.Int("records", added),
	)
	return added, nil
}
