package rag

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"paper-rag/internal/embedding"
	"paper-rag/internal/models"
)

// Retriever finds the chunks closest to a query in an existing collection
type Retriever struct {
	store    VectorStore
	embedder embeddings.Embedder
	k        int
}

// NewRetriever attaches to the collection behind store. It fails with
// models.ErrNotFound when the collection has not been built. k <= 0 means
// models.DefaultTopK.
func NewRetriever(ctx context.Context, store VectorStore, embedder embeddings.Embedder, k int) (*Retriever, error) {
	if k <= 0 {
		k = models.DefaultTopK
	}
	if err := store.Open(ctx); err != nil {
		return nil, err
	}
	return &Retriever{store: store, embedder: embedder, k: k}, nil
}

// Retrieve returns min(k, collection size) chunks in descending similarity
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.Retrieved, error) {
	vector, err := embedding.EmbedQuery(ctx, r.embedder, query)
	if err != nil {
		return nil, err
	}

	count, err := r.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	n := min(r.k, count)
	if n == 0 {
		log.Warn().Msg("Collection is empty")
		return nil, nil
	}

	results, err := r.store.Query(ctx, vector, n)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("k", r.k).Int("found", len(results)).Msg("Retrieved context")
	return results, nil
}
