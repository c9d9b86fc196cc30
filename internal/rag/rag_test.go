package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"paper-rag/internal/chromemdb"
	"paper-rag/internal/embedding"
	"paper-rag/internal/models"
)

var testChunks = []models.Chunk{
	{Source: "attention.pdf", Page: 1, Text: "attention is all you need transformer architecture"},
	{Source: "attention.pdf", Page: 2, Text: "multi head attention and positional encoding"},
	{Source: "soil.pdf", Page: 4, Text: "soil moisture sensors for irrigation"},
}

type fakeLLM struct {
	answer string
	err    error

	prompts []string
}

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, m := range messages {
		for _, p := range m.Parts {
			if text, ok := p.(llms.TextContent); ok {
				f.prompts = append(f.prompts, text.Text)
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.answer}}}, nil
}

func newStore(t *testing.T) (*chromemdb.VectorDBManager, *embedding.MockEmbedder) {
	t.Helper()
	embedder := embedding.NewMockEmbedder(64)
	store, err := chromemdb.NewVectorDBManager("", models.DefaultCollection, true, false, chromemdb.EmbeddingFunc(embedder))
	require.NoError(t, err)
	return store, embedder
}

func buildStore(t *testing.T, chunks []models.Chunk) (*chromemdb.VectorDBManager, *embedding.MockEmbedder) {
	t.Helper()
	store, embedder := newStore(t)
	n, err := NewBuilder(store, embedder, 2, nil).Build(context.Background(), chunks)
	require.NoError(t, err)
	require.Equal(t, len(chunks), n)
	return store, embedder
}

func TestBuild_StoresEveryChunk(t *testing.T) {
	ctx := context.Background()
	store, embedder := buildStore(t, testChunks)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	// batches of two
	assert.Equal(t, 2, embedder.Calls())
}

func TestBuild_NoChunks(t *testing.T) {
	store, embedder := newStore(t)

	_, err := NewBuilder(store, embedder, 2, nil).Build(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.ErrorIs(t, store.Open(context.Background()), models.ErrNotFound)
}

func TestBuild_EmbedderFailure(t *testing.T) {
	store, embedder := newStore(t)
	embedder.Err = errors.New("connection refused")

	_, err := NewBuilder(store, embedder, 2, nil).Build(context.Background(), testChunks)
	assert.ErrorIs(t, err, models.ErrUnavailable)
}

func TestBuild_RebuildReplacesPreviousRun(t *testing.T) {
	ctx := context.Background()
	store, embedder := buildStore(t, testChunks)

	builder := NewBuilder(store, embedder, 8, nil)
	builder.Metadata["chunk_size"] = "800"
	n, err := builder.Build(ctx, testChunks[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	_, ok := builder.Metadata["run_id"]
	assert.False(t, ok, "run metadata must not leak into the builder")
}

func TestRetriever_MissingCollection(t *testing.T) {
	store, embedder := newStore(t)

	_, err := NewRetriever(context.Background(), store, embedder, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRetriever_FewerRecordsThanK(t *testing.T) {
	ctx := context.Background()
	store, embedder := buildStore(t, testChunks)

	retriever, err := NewRetriever(ctx, store, embedder, 5)
	require.NoError(t, err)

	results, err := retriever.Retrieve(ctx, "soil moisture irrigation")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, models.Metadata{Source: "soil.pdf", Page: 4}, results[0].Metadata)
	for i := 0; i+1 < len(results); i++ {
		assert.GreaterOrEqual(t, results[i].Similarity, results[i+1].Similarity)
	}
}

func TestRetriever_TopK(t *testing.T) {
	ctx := context.Background()
	store, embedder := buildStore(t, testChunks)

	retriever, err := NewRetriever(ctx, store, embedder, 1)
	require.NoError(t, err)

	results, err := retriever.Retrieve(ctx, "transformer architecture")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, testChunks[0].Text, results[0].Document)
}

func TestRetriever_EmptyQuery(t *testing.T) {
	ctx := context.Background()
	store, embedder := buildStore(t, testChunks)

	retriever, err := NewRetriever(ctx, store, embedder, 0)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTopK, retriever.k)

	_, err = retriever.Retrieve(ctx, "   ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestBuildPrompt(t *testing.T) {
	docs := []models.Retrieved{
		{Document: "first text", Metadata: models.Metadata{Source: "a.pdf", Page: 3}},
		{Document: "second text", Metadata: models.Metadata{Source: "b.pdf", Page: 1}},
	}

	prompt := BuildPrompt("What is it?", docs)

	first := strings.Index(prompt, "[SOURCE 1 | a.pdf | page 3]\nfirst text")
	second := strings.Index(prompt, "[SOURCE 2 | b.pdf | page 1]\nsecond text")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)

	assert.Contains(t, prompt, "first text\n\n[SOURCE 2")
	assert.Contains(t, prompt, "Question: What is it?")
	assert.Contains(t, prompt, "ONLY the provided context")
	assert.Contains(t, prompt, "doesn't exist in the documents provided")
	assert.Contains(t, prompt, "Cite sources like [SOURCE 1]")
}

func TestAnswer_ReturnsRetrievedContext(t *testing.T) {
	ctx := context.Background()
	store, embedder := buildStore(t, testChunks)
	retriever, err := NewRetriever(ctx, store, embedder, 2)
	require.NoError(t, err)

	llm := &fakeLLM{answer: "<think>hmm</think>Soil sensors measure moisture [SOURCE 1]."}
	answer, err := NewRAG(retriever, llm).Answer(ctx, "soil moisture irrigation")
	require.NoError(t, err)

	assert.Equal(t, "Soil sensors measure moisture [SOURCE 1].", answer.Answer)
	assert.Equal(t, "soil moisture irrigation", answer.Query)

	expected, err := retriever.Retrieve(ctx, "soil moisture irrigation")
	require.NoError(t, err)
	assert.Equal(t, expected, answer.Context)

	require.Len(t, llm.prompts, 1)
	assert.Equal(t, BuildPrompt("soil moisture irrigation", expected), llm.prompts[0])
}

func TestAnswer_CompletionFailure(t *testing.T) {
	ctx := context.Background()
	store, embedder := buildStore(t, testChunks)
	retriever, err := NewRetriever(ctx, store, embedder, 2)
	require.NoError(t, err)

	_, err = NewRAG(retriever, &fakeLLM{err: errors.New("503")}).Answer(ctx, "anything")
	assert.ErrorIs(t, err, models.ErrUnavailable)
}
