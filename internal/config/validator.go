package config

import (
	"fmt"
	"net/url"

	"paper-rag/internal/parser"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.PDFDir == "" {
		errors = append(errors, ValidationError{
			Field:   "pdf_dir",
			Message: "pdf_dir is required",
		})
	}

	for _, ext := range c.Loader.Extensions {
		if !parser.IsSupportedExtension(ext) {
			errors = append(errors, ValidationError{
				Field:   "loader.extensions",
				Message: fmt.Sprintf("unsupported extension: %s", ext),
			})
		}
	}

	if c.Chunking.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunking.chunk_size",
			Message: "chunk_size must be positive",
		})
	} else if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "chunking.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.Retrieval.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.VectorStore.Collection == "" {
		errors = append(errors, ValidationError{
			Field:   "vector_store.collection",
			Message: "collection name is required",
		})
	}

	switch c.VectorStore.Type {
	case StoreChromem:
		if c.VectorStore.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "vector_store.path",
				Message: "path is required for the chromem store",
			})
		}
	case StorePGVector:
		if c.VectorStore.Postgres.DSN == "" {
			errors = append(errors, ValidationError{
				Field:   "vector_store.postgres.dsn",
				Message: "dsn is required for the pgvector store",
			})
		} else if _, err := url.Parse(c.VectorStore.Postgres.DSN); err != nil {
			errors = append(errors, ValidationError{
				Field:   "vector_store.postgres.dsn",
				Message: "invalid database URL",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "vector_store.type",
			Message: fmt.Sprintf("unknown vector store type: %s", c.VectorStore.Type),
		})
	}

	if k := len(c.VectorStore.EncryptionKey); k != 0 && k != 32 {
		errors = append(errors, ValidationError{
			Field:   "vector_store.encryption_key",
			Message: "encryption_key must be 32 bytes long",
		})
	}

	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		errors = append(errors, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("unknown embedding provider: %s", c.Embedding.Provider),
		})
	}

	if c.Embedding.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "embedding.model",
			Message: "embedding model is required",
		})
	}

	if c.Embedding.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if _, err := url.ParseRequestURI(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid completion base URL",
		})
	}

	if c.LLM.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.model",
			Message: "completion model is required",
		})
	}

	return errors
}

// ValidateQuery adds the checks that only matter when answering questions
func (c *Config) ValidateQuery() []ValidationError {
	errors := c.Validate()
	if c.LLM.Key == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.api_key",
			Message: "api key is required (set GROQ_API_KEY)",
		})
	}
	return errors
}
