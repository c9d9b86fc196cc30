package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"paper-rag/internal/config"
	"paper-rag/internal/models"
)

const service = "pgvector"

// Document is one stored chunk. The table name is the collection name and is
// supplied per query.
type Document struct {
	bun.BaseModel `bun:"alias:d"`
	ID            string          `bun:"id,pk"`
	Content       string          `bun:"document,notnull"`
	Source        string          `bun:"source,notnull"`
	Page          int             `bun:"page,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Similarity    float32         `bun:"similarity,scanonly"`
}

// PGVectorStore keeps one collection as a Postgres table with a pgvector column
type PGVectorStore struct {
	db         *bun.DB
	collection string
	open       bool
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(cfg *config.PostgresConfig) *sql.DB {
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
}

// NewPGVectorStore connects to cfg.DSN. The collection table is not touched until
// Open or Rebuild.
func NewPGVectorStore(ctx context.Context, cfg *config.PostgresConfig, collection string) (*PGVectorStore, error) {
	db := NewDB(ConnectDB(cfg), cfg.Debug)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, models.Unavailable(service, "connect", err)
	}
	return &PGVectorStore{db: db, collection: collection}, nil
}

func (s *PGVectorStore) table() string {
	return pq.QuoteIdentifier(s.collection)
}

// Open attaches to an existing collection table
func (s *PGVectorStore) Open(ctx context.Context) error {
	var name sql.NullString
	if err := s.db.NewRaw("SELECT to_regclass(?)", s.table()).Scan(ctx, &name); err != nil {
		return models.Unavailable(service, "open", err)
	}
	if !name.Valid {
		return models.NewServiceError(service, "open", models.ErrNotFound,
			fmt.Errorf("collection %q does not exist, run the ingestion first", s.collection))
	}
	s.open = true
	return nil
}

// Rebuild drops the collection table if present and creates an empty one sized
// for dimension. The metadata is stored as the table comment.
func (s *PGVectorStore) Rebuild(ctx context.Context, dimension int, metadata map[string]string) error {
	if dimension <= 0 {
		return models.NewServiceError(service, "create", models.ErrInvalidInput,
			fmt.Errorf("invalid vector dimension %d", dimension))
	}

	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.table()); err != nil {
		log.Debug().Err(err).Str("collection", s.collection).Msg("Ignoring failure to drop collection")
	}
	s.open = false

	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return models.Unavailable(service, "create", fmt.Errorf("failed to create vector extension: %w", err))
	}

	createTable := fmt.Sprintf(`CREATE TABLE %s (
		id TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		source TEXT NOT NULL,
		page INTEGER NOT NULL,
		embedding vector(%d) NOT NULL
	)`, s.table(), dimension)
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return models.Unavailable(service, "create", fmt.Errorf("failed to create table: %w", err))
	}

	if len(metadata) > 0 {
		comment, err := json.Marshal(metadata)
		if err != nil {
			return models.NewServiceError(service, "create", models.ErrInvalidInput, err)
		}
		if _, err := s.db.ExecContext(ctx,
			fmt.Sprintf("COMMENT ON TABLE %s IS %s", s.table(), pq.QuoteLiteral(string(comment)))); err != nil {
			log.Warn().Err(err).Str("collection", s.collection).Msg("Failed to store collection metadata")
		}
	}

	s.open = true
	log.Debug().Str("collection", s.collection).Int("dimension", dimension).Msg("Collection recreated")
	return nil
}

// Add inserts records in a single statement
func (s *PGVectorStore) Add(ctx context.Context, records []models.Record) error {
	if !s.open {
		return models.NewServiceError(service, "add", models.ErrNotFound,
			fmt.Errorf("collection %q is not open", s.collection))
	}
	if len(records) == 0 {
		return nil
	}

	docs := ToDocuments(records)
	if _, err := s.db.NewInsert().Model(&docs).ModelTableExpr(s.table()).Exec(ctx); err != nil {
		return models.Unavailable(service, "add", fmt.Errorf("failed to insert documents: %w", err))
	}
	return nil
}

// Query returns up to n records ordered by cosine distance, closest first
func (s *PGVectorStore) Query(ctx context.Context, embedding []float32, n int) ([]models.Retrieved, error) {
	if !s.open {
		return nil, models.NewServiceError(service, "query", models.ErrNotFound,
			fmt.Errorf("collection %q is not open", s.collection))
	}
	if len(embedding) == 0 {
		return nil, models.NewServiceError(service, "query", models.ErrInvalidInput, fmt.Errorf("embedding must be provided"))
	}

	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	n = min(n, count)
	if n <= 0 {
		return nil, nil
	}

	vec := pgvector.NewVector(embedding)
	var docs []Document
	err = s.db.NewSelect().
		Model(&docs).
		ModelTableExpr(s.table()+" AS d").
		Column("id", "document", "source", "page").
		ColumnExpr("1 - (embedding <=> ?) AS similarity", vec).
		OrderExpr("embedding <=> ?", vec).
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, models.Unavailable(service, "query", fmt.Errorf("failed to search documents: %w", err))
	}
	return ToRetrieved(docs), nil
}

// Count returns the number of rows in the collection table
func (s *PGVectorStore) Count(ctx context.Context) (int, error) {
	if !s.open {
		return 0, models.NewServiceError(service, "count", models.ErrNotFound,
			fmt.Errorf("collection %q is not open", s.collection))
	}
	var n int
	if err := s.db.NewRaw("SELECT count(*) FROM ?", bun.Safe(s.table())).Scan(ctx, &n); err != nil {
		return 0, models.Unavailable(service, "count", err)
	}
	return n, nil
}

func (s *PGVectorStore) Close() error {
	return s.db.Close()
}

func ToDocuments(records []models.Record) []Document {
	docs := make([]Document, len(records))
	for i, r := range records {
		docs[i] = Document{
			ID:        r.ID,
			Content:   r.Document,
			Source:    r.Metadata.Source,
			Page:      r.Metadata.Page,
			Embedding: pgvector.NewVector(r.Embedding),
		}
	}
	return docs
}

func ToRetrieved(docs []Document) []models.Retrieved {
	out := make([]models.Retrieved, len(docs))
	for i, d := range docs {
		out[i] = models.Retrieved{
			Document:   d.Content,
			Metadata:   models.Metadata{Source: d.Source, Page: d.Page},
			Similarity: d.Similarity,
		}
	}
	return out
}
