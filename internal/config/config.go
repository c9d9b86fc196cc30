package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"paper-rag/internal/models"
)

const (
	StoreChromem  = "chromem"
	StorePGVector = "pgvector"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type Config struct {
	PDFDir      string            `yaml:"pdf_dir"`
	Loader      LoaderConfig      `yaml:"loader"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	LLM         LLMConfig         `yaml:"llm"`
	Log         LogConfig         `yaml:"log"`
}

type LoaderConfig struct {
	// file extensions picked up from PDFDir, lower case with the leading dot
	Extensions []string `yaml:"extensions"`
}

type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

type VectorStoreConfig struct {
	Type          string         `yaml:"type"`
	Path          string         `yaml:"path"`
	Collection    string         `yaml:"collection"`
	Compress      bool           `yaml:"compress"`
	ExportFile    string         `yaml:"export_file"`
	EncryptionKey string         `yaml:"encryption_key"`
	Postgres      PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Debug bool   `yaml:"debug"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	Key       string `yaml:"api_key"`
	BatchSize int    `yaml:"batch_size"`
}

type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Key     string `yaml:"api_key"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		PDFDir: models.DefaultPDFDir,
		Loader: LoaderConfig{Extensions: []string{".pdf"}},
		Chunking: ChunkingConfig{
			ChunkSize:    models.DefaultChunkSize,
			ChunkOverlap: models.DefaultChunkOverlap,
		},
		Retrieval: RetrievalConfig{TopK: models.DefaultTopK},
		VectorStore: VectorStoreConfig{
			Type:       StoreChromem,
			Path:       models.DefaultStoreDir,
			Collection: models.DefaultCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:  ProviderOllama,
			BaseURL:   "http://localhost:11434",
			Model:     "all-minilm",
			BatchSize: 32,
		},
		LLM: LLMConfig{
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "llama3-70b-8192",
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads a yaml file on top of the defaults and applies environment
// overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("error reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	normalize(cfg)
	mergeWithEnv(cfg)

	return cfg, nil
}

func mergeWithEnv(cfg *Config) {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		cfg.LLM.Key = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Embedding.Provider == ProviderOpenAI {
		cfg.Embedding.Key = key
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.Embedding.Provider == ProviderOllama {
		cfg.Embedding.BaseURL = baseURL
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.VectorStore.Postgres.DSN = dsn
	}
}

func normalize(cfg *Config) {
	for i, ext := range cfg.Loader.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Loader.Extensions[i] = ext
	}
	cfg.VectorStore.Type = strings.ToLower(cfg.VectorStore.Type)
	cfg.Embedding.Provider = strings.ToLower(cfg.Embedding.Provider)
}

const redacted = "xxxxx"

// Redacted returns a copy of the config safe to log: api keys, the encryption
// key and the database password are masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Loader.Extensions = append([]string(nil), c.Loader.Extensions...)
	if out.Embedding.Key != "" {
		out.Embedding.Key = redacted
	}
	if out.LLM.Key != "" {
		out.LLM.Key = redacted
	}
	if out.VectorStore.EncryptionKey != "" {
		out.VectorStore.EncryptionKey = redacted
	}
	if dsn := out.VectorStore.Postgres.DSN; dsn != "" {
		u, err := url.Parse(dsn)
		if err != nil || u.Scheme == "" {
			out.VectorStore.Postgres.DSN = redacted
		} else {
			out.VectorStore.Postgres.DSN = u.Redacted()
		}
	}
	return &out
}
