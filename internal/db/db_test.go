package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-rag/internal/config"
	"paper-rag/internal/models"
)

func TestToDocuments_RoundTrip(t *testing.T) {
	records := []models.Record{
		{ID: "0", Embedding: []float32{0.1, 0.2}, Document: "first chunk", Metadata: models.Metadata{Source: "a.pdf", Page: 1}},
		{ID: "1", Embedding: []float32{0.3, 0.4}, Document: "second chunk", Metadata: models.Metadata{Source: "b.pdf", Page: 9}},
	}

	docs := ToDocuments(records)
	require.Len(t, docs, 2)
	assert.Equal(t, "1", docs[1].ID)
	assert.Equal(t, []float32{0.3, 0.4}, docs[1].Embedding.Slice())

	out := ToRetrieved(docs)
	require.Len(t, out, 2)
	for i, r := range records {
		assert.Equal(t, r.Document, out[i].Document)
		assert.Equal(t, r.Metadata, out[i].Metadata)
	}
}

// needs a Postgres with the vector extension available
func newTestStore(t *testing.T, collection string) *PGVectorStore {
	t.Helper()
	dsn := os.Getenv("PAPER_RAG_TEST_DSN")
	if dsn == "" {
		t.Skip("PAPER_RAG_TEST_DSN not set")
	}

	s, err := NewPGVectorStore(context.Background(), &config.PostgresConfig{DSN: dsn}, collection)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+s.table())
		s.Close()
	})
	return s
}

func TestPGVectorStore_MissingCollection(t *testing.T) {
	s := newTestStore(t, "paper_rag_missing_test")
	_, _ = s.db.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+s.table())

	err := s.Open(context.Background())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPGVectorStore_RebuildAndQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "paper_rag_store_test")

	records := []models.Record{
		{ID: "0", Embedding: []float32{1, 0, 0}, Document: "x axis", Metadata: models.Metadata{Source: "a.pdf", Page: 1}},
		{ID: "1", Embedding: []float32{0, 1, 0}, Document: "y axis", Metadata: models.Metadata{Source: "a.pdf", Page: 2}},
		{ID: "2", Embedding: []float32{0.9, 0.1, 0}, Document: "mostly x", Metadata: models.Metadata{Source: "b.pdf", Page: 3}},
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, s.Rebuild(ctx, 3, map[string]string{"run": "test"}))
		require.NoError(t, s.Add(ctx, records))
	}

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	results, err := s.Query(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "x axis", results[0].Document)
	assert.Equal(t, "mostly x", results[1].Document)
	assert.Equal(t, models.Metadata{Source: "a.pdf", Page: 2}, results[2].Metadata)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-5)

	reader := newTestStore(t, "paper_rag_store_test")
	require.NoError(t, reader.Open(ctx))
}
