package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vecta-io/recall/embeddings"
	"github.com/vecta-io/recall/embeddings/ollama"
	"github.com/vecta-io/recall/embeddings/openai"
	"github.com/vecta-io/recall/schema"
	"github.com/vecta-io/recall/vectordb"
	"github.com/vecta-io/recall/vectordb/pinecone"
	"github.com/vecta-io/recall/vectordb/sqlitevec"
)

// Config selects and configures the backends at construction time. API
// keys are explicit fields injected by the caller, not process globals.
type Config struct {
	Store       StoreConfig    `yaml:"store"`
	Embedder    EmbedderConfig `yaml:"embedder"`
	ChunkSize   int            `yaml:"chunkSize"`
	Concurrency int            `yaml:"concurrency"`
	Separator   string         `yaml:"separator"`
}

// StoreConfig defines the vector store backend.
type StoreConfig struct {
	// Kind selects the backend: "pinecone" or "sqlite".
	Kind string `yaml:"kind"`
	// DSN is the SQLite database path (sqlite kind).
	DSN string `yaml:"dsn,omitempty"`
	// Collection is the SQLite collection name (sqlite kind).
	Collection string `yaml:"collection,omitempty"`
	// Index is the managed index name (pinecone kind).
	Index string `yaml:"index,omitempty"`
	// BaseURL overrides the control-plane endpoint (pinecone kind).
	BaseURL string `yaml:"baseURL,omitempty"`
	// APIKey authenticates against the managed service (pinecone kind).
	APIKey string `yaml:"apiKey,omitempty"`
	Cloud  string `yaml:"cloud,omitempty"`
	Region string `yaml:"region,omitempty"`
}

// EmbedderConfig defines the embedding backend.
type EmbedderConfig struct {
	// Provider selects the client: "openai" or "ollama".
	Provider string `yaml:"provider"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"apiKey,omitempty"`
	BaseURL  string `yaml:"baseURL,omitempty"`
	// Dimension declares the vector size for providers whose models vary
	// (ollama); openai models carry a known dimension.
	Dimension int `yaml:"dimension,omitempty"`
}

// LoadConfig reads a YAML config, expanding ~ in the store DSN.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Store.DSN != "" {
		expanded, err := expandUserPath(cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		cfg.Store.DSN = expanded
	}
	return &cfg, nil
}

// NewFromConfig builds a fully wired Service from a Config.
func NewFromConfig(cfg *Config, opts ...Option) (*Service, error) {
	embedder, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	store, err := newStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	wired := []Option{WithEmbedder(embedder), WithStore(store)}
	if cfg.ChunkSize > 0 {
		wired = append(wired, WithChunkSize(cfg.ChunkSize))
	}
	if cfg.Concurrency > 0 {
		wired = append(wired, WithConcurrency(cfg.Concurrency))
	}
	if cfg.Separator != "" {
		wired = append(wired, WithSeparator(cfg.Separator))
	}
	wired = append(wired, opts...)
	return New(wired...)
}

func newEmbedder(cfg EmbedderConfig) (embeddings.Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		var opts []openai.ClientOption
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.Dimension > 0 {
			opts = append(opts, openai.WithDimension(cfg.Dimension))
		}
		return openai.NewClient(cfg.APIKey, cfg.Model, opts...), nil
	case "ollama":
		if cfg.Dimension < 1 {
			return nil, fmt.Errorf("config: ollama embedder requires a dimension: %w", schema.ErrInvalidArgument)
		}
		var opts []ollama.ClientOption
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithBaseURL(cfg.BaseURL))
		}
		return ollama.NewClient(cfg.Model, cfg.Dimension, opts...), nil
	default:
		return nil, fmt.Errorf("config: unknown embedder provider %q: %w", cfg.Provider, schema.ErrInvalidArgument)
	}
}

func newStore(cfg StoreConfig) (vectordb.Store, error) {
	switch strings.ToLower(cfg.Kind) {
	case "sqlite", "":
		var opts []sqlitevec.Option
		if cfg.Collection != "" {
			opts = append(opts, sqlitevec.WithCollection(cfg.Collection))
		}
		opts = append(opts, sqlitevec.WithDSN(cfg.DSN))
		return sqlitevec.NewStore(opts...)
	case "pinecone":
		if cfg.Index == "" {
			return nil, fmt.Errorf("config: pinecone store requires an index name: %w", schema.ErrInvalidArgument)
		}
		var opts []pinecone.Option
		if cfg.BaseURL != "" {
			opts = append(opts, pinecone.WithBaseURL(cfg.BaseURL))
		}
		if cfg.Cloud != "" || cfg.Region != "" {
			opts = append(opts, pinecone.WithRegion(cfg.Cloud, cfg.Region))
		}
		return pinecone.New(cfg.APIKey, cfg.Index, opts...), nil
	default:
		return nil, fmt.Errorf("config: unknown store kind %q: %w", cfg.Kind, schema.ErrInvalidArgument)
	}
}

func expandUserPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed[0] != '~' {
		return path, nil
	}
	if trimmed != "~" && !strings.HasPrefix(trimmed, "~/") {
		return "", fmt.Errorf("config: unsupported ~user path: %s", path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if trimmed == "~" {
		return home, nil
	}
	return filepath.Join(home, trimmed[2:]), nil
}
