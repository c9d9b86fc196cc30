package chromemdb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"paper-rag/internal/models"
)

const (
	service = "chromem"

	// documents are inserted one at a time, ingestion stays sequential
	addConcurrency = 1
)

// VectorDBManager encapsulates the chromem-go database operations for one named collection
type VectorDBManager struct {
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	dbPath         string
	compress       bool
	embed          chromem.EmbeddingFunc
}

// NewVectorDBManager opens (or creates) the database directory. An in-memory
// database is used when inMemory is set or dbPath is empty.
func NewVectorDBManager(dbPath, collectionName string, inMemory, compress bool, embed chromem.EmbeddingFunc) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory || dbPath == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, models.Classify(service, "open "+dbPath, fmt.Errorf("failed to create database: %w", err))
		}
	}

	return &VectorDBManager{
		db:             db,
		collectionName: collectionName,
		dbPath:         dbPath,
		compress:       compress,
		embed:          embed,
	}, nil
}

// EmbeddingFunc adapts a langchaingo embedder to chromem. It is only used when a
// document or query arrives without a precomputed embedding.
func EmbeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}

// Name returns the collection name the manager works on
func (m *VectorDBManager) Name() string {
	return m.collectionName
}

// Open attaches to the existing collection without creating it
func (m *VectorDBManager) Open(ctx context.Context) error {
	c := m.db.GetCollection(m.collectionName, m.embed)
	if c == nil {
		return models.NewServiceError(service, "open", models.ErrNotFound,
			fmt.Errorf("collection %q does not exist, run the ingestion first", m.collectionName))
	}
	m.collection = c
	return nil
}

// Rebuild drops the collection if present and creates an empty one. Failing to
// drop is not fatal.
func (m *VectorDBManager) Rebuild(ctx context.Context, dimension int, metadata map[string]string) error {
	if err := m.db.DeleteCollection(m.collectionName); err != nil {
		log.Debug().Err(err).Str("collection", m.collectionName).Msg("Ignoring failure to drop collection")
	}
	m.collection = nil

	c, err := m.db.CreateCollection(m.collectionName, metadata, m.embed)
	if err != nil {
		return models.Classify(service, "create", fmt.Errorf("failed to create collection: %w", err))
	}
	m.collection = c
	log.Debug().Str("collection", m.collectionName).Int("dimension", dimension).Msg("Collection recreated")
	return nil
}

// Add inserts records into the collection
func (m *VectorDBManager) Add(ctx context.Context, records []models.Record) error {
	if m.collection == nil {
		return models.NewServiceError(service, "add", models.ErrNotFound,
			fmt.Errorf("collection %q is not open", m.collectionName))
	}
	if len(records) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Document,
			Metadata:  CreateMetadata(r.Metadata),
			Embedding: r.Embedding,
		}
	}

	if err := m.collection.AddDocuments(ctx, docs, addConcurrency); err != nil {
		return models.NewServiceError(service, "add", models.ErrInvalidInput, fmt.Errorf("failed to add documents: %w", err))
	}
	return nil
}

// Query returns up to n nearest records, most similar first. n is capped at the
// collection size.
func (m *VectorDBManager) Query(ctx context.Context, embedding []float32, n int) ([]models.Retrieved, error) {
	if m.collection == nil {
		return nil, models.NewServiceError(service, "query", models.ErrNotFound,
			fmt.Errorf("collection %q is not open", m.collectionName))
	}
	if len(embedding) == 0 {
		return nil, models.NewServiceError(service, "query", models.ErrInvalidInput, fmt.Errorf("embedding must be provided"))
	}

	n = min(n, m.collection.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := m.collection.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, models.NewServiceError(service, "query", models.ErrInvalidInput, fmt.Errorf("failed to query by similarity: %w", err))
	}

	out := make([]models.Retrieved, 0, len(results))
	for _, r := range results {
		meta, err := ParseMetadata(r.Metadata)
		if err != nil {
			return nil, models.NewServiceError(service, "query", models.ErrInvalidInput, fmt.Errorf("record %s: %w", r.ID, err))
		}
		out = append(out, models.Retrieved{
			Document:   r.Content,
			Metadata:   meta,
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

// Count returns the number of records in the open collection
func (m *VectorDBManager) Count(ctx context.Context) (int, error) {
	if m.collection == nil {
		return 0, models.NewServiceError(service, "count", models.ErrNotFound,
			fmt.Errorf("collection %q is not open", m.collectionName))
	}
	return m.collection.Count(), nil
}

// Close is a no-op, chromem writes through on every insert
func (m *VectorDBManager) Close() error {
	return nil
}

// Export writes the collection to a single gob file, optionally compressed and
// encrypted with a 32 byte key.
func (m *VectorDBManager) Export(filePath, encryptionKey string) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	if filePath == "" {
		return fmt.Errorf("export path is required")
	}

	log.Debug().Str("collection", m.collectionName).Str("file", filePath).Bool("compress", m.compress).Msg("Exporting collection")
	if err := m.db.ExportToFile(filePath, m.compress, encryptionKey, m.collectionName); err != nil {
		return models.Classify(service, "export", fmt.Errorf("failed to export database: %w", err))
	}
	return nil
}

// CreateMetadata flattens chunk metadata into chromem's string map
func CreateMetadata(meta models.Metadata) map[string]string {
	return map[string]string{
		models.MetaSource: meta.Source,
		models.MetaPage:   strconv.Itoa(meta.Page),
	}
}

// ParseMetadata is the inverse of CreateMetadata
func ParseMetadata(meta map[string]string) (models.Metadata, error) {
	page, err := strconv.Atoi(meta[models.MetaPage])
	if err != nil {
		return models.Metadata{}, fmt.Errorf("invalid page metadata %q", meta[models.MetaPage])
	}
	return models.Metadata{Source: meta[models.MetaSource], Page: page}, nil
}
