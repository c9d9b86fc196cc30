package rag

import (
	"context"
	"fmt"
	"io"
	"maps"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"paper-rag/internal/embedding"
	"paper-rag/internal/helper"
	"paper-rag/internal/models"
)

// Builder embeds chunks and writes them into a freshly rebuilt collection
type Builder struct {
	store     VectorStore
	embedder  embeddings.Embedder
	batchSize int
	progress  io.Writer

	// Metadata is attached to the collection on every build
	Metadata map[string]string
}

func NewBuilder(store VectorStore, embedder embeddings.Embedder, batchSize int, progress io.Writer) *Builder {
	return &Builder{
		store:     store,
		embedder:  embedder,
		batchSize: batchSize,
		progress:  progress,
		Metadata:  map[string]string{},
	}
}

// Build replaces the collection with one record per chunk. Record ids are the
// chunk positions. It returns the number of stored records.
func (b *Builder) Build(ctx context.Context, chunks []models.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, models.NewServiceError("builder", "build", models.ErrInvalidInput,
			fmt.Errorf("no chunks to store"))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := embedding.EmbedTexts(ctx, b.embedder, texts, b.batchSize, b.progress)
	if err != nil {
		return 0, err
	}

	records := make([]models.Record, len(chunks))
	for i, c := range chunks {
		records[i] = models.Record{
			ID:        strconv.Itoa(i),
			Embedding: vectors[i],
			Document:  c.Text,
			Metadata:  models.Metadata{Source: c.Source, Page: c.Page},
		}
	}

	metadata, err := b.runMetadata(len(records))
	if err != nil {
		return 0, err
	}
	if err := b.store.Rebuild(ctx, len(vectors[0]), metadata); err != nil {
		return 0, err
	}
	if err := b.store.Add(ctx, records); err != nil {
		return 0, err
	}

	log.Debug().Str("run_id", metadata["run_id"]).Int("records", len(records)).Msg("Collection built")
	return len(records), nil
}

func (b *Builder) runMetadata(records int) (map[string]string, error) {
	runID, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	metadata := maps.Clone(b.Metadata)
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadata["run_id"] = runID
	metadata["records"] = strconv.Itoa(records)
	metadata["created_at"] = time.Now().UTC().Format(time.RFC3339)
	return metadata, nil
}
