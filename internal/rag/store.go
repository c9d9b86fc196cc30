package rag

import (
	"context"

	"paper-rag/internal/models"
)

// VectorStore is a named collection of embedded chunks. chromemdb.VectorDBManager
// and db.PGVectorStore implement it.
type VectorStore interface {
	// Open attaches to the existing collection, ErrNotFound when it is absent
	Open(ctx context.Context) error
	// Rebuild drops the collection (failures ignored) and creates an empty one
	Rebuild(ctx context.Context, dimension int, metadata map[string]string) error
	Add(ctx context.Context, records []models.Record) error
	// Query returns at most n records, most similar first
	Query(ctx context.Context, embedding []float32, n int) ([]models.Retrieved, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
