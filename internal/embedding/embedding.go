package embedding

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"paper-rag/internal/config"
	"paper-rag/internal/models"
)

const service = "embedding"

// NewEmbedder builds the embedder selected by cfg.Provider
func NewEmbedder(cfg *config.EmbeddingConfig) (embeddings.Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOllama, "":
		return NewOllamaEmbedder(cfg)
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(cfg)
	default:
		return nil, models.NewServiceError(service, "init", models.ErrInvalidInput,
			fmt.Errorf("unknown embedding provider: %s", cfg.Provider))
	}
}

// NewOllamaEmbedder embeds through a local Ollama server
func NewOllamaEmbedder(cfg *config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating ollama embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, models.Unavailable(service, "init", err)
	}
	return newEmbedder(llm, cfg.BatchSize)
}

// NewOpenAIEmbedder embeds through any OpenAI-compatible /embeddings endpoint
func NewOpenAIEmbedder(cfg *config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating openai embedder")

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, models.Unavailable(service, "init", err)
	}
	return newEmbedder(llm, cfg.BatchSize)
}

func newEmbedder(client embeddings.EmbedderClient, batchSize int) (*embeddings.EmbedderImpl, error) {
	opts := []embeddings.Option{embeddings.WithStripNewLines(false)}
	if batchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(batchSize))
	}
	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, models.Unavailable(service, "init", err)
	}
	return embedder, nil
}

// EmbedTexts encodes texts in order, batchSize at a time, and checks that every
// vector came back with the same dimension. When progress is not nil a progress
// bar is drawn on it.
func EmbedTexts(ctx context.Context, embedder embeddings.Embedder, texts []string, batchSize int, progress io.Writer) ([][]float32, error) {
	if len(texts) == 0 {
		log.Info().Msg("No chunks to embed")
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	var bar *progressbar.ProgressBar
	if progress != nil {
		bar = progressbar.NewOptions(len(texts),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionSetDescription("Embedding chunks"),
			progressbar.OptionSetItsString("chunks"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batch, err := embedder.EmbedDocuments(ctx, texts[start:end])
		if err != nil {
			return nil, models.Unavailable(service, "embed documents", err)
		}
		if len(batch) != end-start {
			return nil, models.NewServiceError(service, "embed documents", models.ErrInvalidInput,
				fmt.Errorf("got %d vectors for %d texts", len(batch), end-start))
		}
		vectors = append(vectors, batch...)
		if bar != nil {
			_ = bar.Add(len(batch))
		}
	}

	if err := checkDimensions(vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

// EmbedQuery encodes a single query string
func EmbedQuery(ctx context.Context, embedder embeddings.Embedder, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewServiceError(service, "embed query", models.ErrInvalidInput,
			fmt.Errorf("query is empty"))
	}
	vector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, models.Unavailable(service, "embed query", err)
	}
	if len(vector) == 0 {
		return nil, models.NewServiceError(service, "embed query", models.ErrInvalidInput,
			fmt.Errorf("empty embedding returned"))
	}
	return vector, nil
}

func checkDimensions(vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return models.NewServiceError(service, "embed documents", models.ErrInvalidInput,
				fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim))
		}
	}
	return nil
}
