package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RAGConfig controls chunking and retrieval depth. ChunkOverlap is a
// pointer so an explicit zero (valid, no overlap) is distinguishable from
// the field being absent.
type RAGConfig struct {
	ChunkSize    int  `yaml:"chunk_size"`
	ChunkOverlap *int `yaml:"chunk_overlap"`
	TopK         int  `yaml:"top_k"`
}

// Overlap returns the configured chunk overlap; defaults are applied on
// load, so the pointer is always set by then.
func (r *RAGConfig) Overlap() int { return *r.ChunkOverlap }

// LLMConfig describes one LLM endpoint (embedding or chat).
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// DatabaseConfig holds Postgres connection details for the pgvector backend.
type DatabaseConfig struct {
	URL        string `yaml:"url"`
	Password   string `yaml:"password"`
	VectorSize int    `yaml:"vector_size"`
	Debug      bool   `yaml:"debug"`
}

type Config struct {
	DocsDir  string         `yaml:"docs_dir"`
	RAG      RAGConfig      `yaml:"rag"`
	Store    StoreConfig    `yaml:"store"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	ChatLLM  LLMConfig      `yaml:"chat_llm"`
	Database DatabaseConfig `yaml:"database"`
}

const (
	defaultChunkSize    = 1200 // characters
	defaultChunkOverlap = 200  // characters
	defaultTopK         = 5
	defaultVectorSize   = 768
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration used when no file is provided.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.DocsDir == "" {
		cfg.DocsDir = "./data/pdfs"
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
	}
	if cfg.RAG.ChunkOverlap == nil {
		overlap := defaultChunkOverlap
		cfg.RAG.ChunkOverlap = &overlap
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "chromem"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./data/chroma_db"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "clinical_guidelines"
	}
	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = "ollama"
	}
	if cfg.EmbedLLM.BaseURL == "" {
		cfg.EmbedLLM.BaseURL = "http://localhost:11434"
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = "nomic-embed-text"
	}
	if cfg.ChatLLM.Provider == "" {
		cfg.ChatLLM.Provider = "ollama"
	}
	if cfg.ChatLLM.BaseURL == "" {
		cfg.ChatLLM.BaseURL = "http://localhost:11434"
	}
	if cfg.ChatLLM.Model == "" {
		cfg.ChatLLM.Model = "deepseek-r1"
	}
	if cfg.Database.VectorSize == 0 {
		cfg.Database.VectorSize = defaultVectorSize
	}
}

// Validate fails fast on configuration that would break the pipeline,
// before any document is processed.
func (c *Config) Validate() error {
	if c.RAG.ChunkOverlap == nil {
		return fmt.Errorf("rag: chunk_overlap not set")
	}
	overlap := c.RAG.Overlap()
	if overlap < 0 {
		return fmt.Errorf("rag: chunk_overlap must not be negative, got %d", overlap)
	}
	if c.RAG.ChunkSize <= overlap {
		return fmt.Errorf("rag: chunk_size (%d) must be greater than chunk_overlap (%d)",
			c.RAG.ChunkSize, overlap)
	}
	if c.RAG.TopK < 1 {
		return fmt.Errorf("rag: top_k must be at least 1, got %d", c.RAG.TopK)
	}
	switch c.Store.Backend {
	case "chromem", "postgres":
	default:
		return fmt.Errorf("store: unknown backend %q", c.Store.Backend)
	}
	return nil
}
