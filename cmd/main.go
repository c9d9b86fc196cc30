package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"paper-rag/internal/chromemdb"
	"paper-rag/internal/cli"
	"paper-rag/internal/config"
	"paper-rag/internal/db"
	"paper-rag/internal/embedding"
	"paper-rag/internal/helper"
	"paper-rag/internal/llmservice"
	"paper-rag/internal/models"
	"paper-rag/internal/parser"
	"paper-rag/internal/rag"
)

const configFilePath = "./configs/config.yaml"

type exporter interface {
	Export(filePath, encryptionKey string) error
}

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	ingest := flag.Bool("ingest", false, "Load the PDFs and rebuild the vector collection")
	query := flag.String("query", "", "Question to answer, skips the interactive loop")
	dryRun := flag.Bool("dry-run", false, "Load and chunk the documents, do not embed or store")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "error loading .env file: %v\n", err)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setLogLevel(cfg.Log.Level, *debug)
	log.Debug().Interface("config", cfg.Redacted()).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	// after the first interrupt a second one kills the process
	context.AfterFunc(ctx, stop)

	switch {
	case *dryRun:
		validate(cfg.Validate())
		chunkDocuments(cfg, true)
	case *ingest:
		validate(cfg.Validate())
		ingestDocuments(ctx, cfg)
	default:
		validate(cfg.ValidateQuery())
		answerQueries(ctx, cfg, *query)
	}
}

func setLogLevel(level string, debug bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func validate(errs []config.ValidationError) {
	if len(errs) == 0 {
		return
	}
	for _, e := range errs {
		log.Error().Str("field", e.Field).Msg(e.Message)
	}
	log.Fatal().Int("errors", len(errs)).Msg("Invalid configuration")
}

func chunkDocuments(cfg *config.Config, printStats bool) []models.Chunk {
	pages, err := parser.LoadDocuments(cfg.PDFDir, cfg.Loader.Extensions)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading documents")
	}
	log.Info().Msgf("Loaded %d pages", len(pages))

	chunks, err := parser.ChunkPages(pages, cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	if err != nil {
		log.Fatal().Err(err).Msg("Error chunking documents")
	}
	log.Info().Msgf("Created %d chunks", len(chunks))

	if printStats {
		perSource := map[string]int{}
		for _, c := range chunks {
			perSource[c.Source]++
		}
		helper.PrettyPrint(os.Stdout, map[string]interface{}{
			"pages":         len(pages),
			"chunks":        len(chunks),
			"chunk_size":    cfg.Chunking.ChunkSize,
			"chunk_overlap": cfg.Chunking.ChunkOverlap,
			"sources":       perSource,
		})
	}
	return chunks
}

func ingestDocuments(ctx context.Context, cfg *config.Config) {
	chunks := chunkDocuments(cfg, false)

	embedder, err := embedding.NewEmbedder(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	store, err := newStore(ctx, cfg, embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	defer store.Close()

	builder := rag.NewBuilder(store, embedder, cfg.Embedding.BatchSize, os.Stderr)
	builder.Metadata["chunk_size"] = strconv.Itoa(cfg.Chunking.ChunkSize)
	builder.Metadata["chunk_overlap"] = strconv.Itoa(cfg.Chunking.ChunkOverlap)
	builder.Metadata["embedding_model"] = cfg.Embedding.Model

	stored, err := builder.Build(ctx, chunks)
	if err != nil {
		log.Fatal().Err(err).Msg("Error building vector store")
	}
	log.Info().Str("collection", cfg.VectorStore.Collection).Msgf("Stored %d chunks", stored)

	if cfg.VectorStore.ExportFile == "" {
		return
	}
	exp, ok := store.(exporter)
	if !ok {
		log.Warn().Str("type", cfg.VectorStore.Type).Msg("Vector store does not support export")
		return
	}
	if err := exp.Export(cfg.VectorStore.ExportFile, cfg.VectorStore.EncryptionKey); err != nil {
		log.Fatal().Err(err).Msg("Error exporting collection")
	}
	log.Info().Str("file", cfg.VectorStore.ExportFile).Msg("Exported collection")
}

func answerQueries(ctx context.Context, cfg *config.Config, query string) {
	embedder, err := embedding.NewEmbedder(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	store, err := newStore(ctx, cfg, embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	defer store.Close()

	retriever, err := rag.NewRetriever(ctx, store, embedder, cfg.Retrieval.TopK)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening collection")
	}

	llm, err := llmservice.NewChatModel(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing chat model")
	}
	assistant := rag.NewRAG(retriever, llm)

	if query != "" {
		answer, err := assistant.Answer(ctx, query)
		if err != nil {
			log.Fatal().Err(err).Msg("Error querying")
		}
		cli.PrintAnswer(os.Stdout, answer)
		return
	}

	if err := cli.Run(ctx, os.Stdin, os.Stdout, assistant); err != nil && ctx.Err() == nil {
		color.Red("Error reading input: %v", err)
	}
}

func newStore(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder) (rag.VectorStore, error) {
	vs := cfg.VectorStore
	switch vs.Type {
	case config.StorePGVector:
		store, err := db.NewPGVectorStore(ctx, &vs.Postgres, vs.Collection)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		if err := helper.CreateFolder(vs.Path); err != nil {
			return nil, err
		}
		store, err := chromemdb.NewVectorDBManager(vs.Path, vs.Collection, false, vs.Compress, chromemdb.EmbeddingFunc(embedder))
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}
