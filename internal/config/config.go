// Package config loads the application configuration from YAML with
// environment overrides suitable for local development.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// OllamaConfig points at the embedding model endpoint.
type OllamaConfig struct {
	Host        string `yaml:"host"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ChromaConfig points at the vector store.
type ChromaConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SplitterConfig configures segmentation. Overlap is a pointer so an
// explicit "overlap: 0" survives instead of being replaced by the default.
type SplitterConfig struct {
	ChunkSize int  `yaml:"chunk_size"`
	Overlap   *int `yaml:"overlap"`
}

// IndexerConfig configures batching during ingestion. Workers follows the
// same unset-versus-zero convention as SplitterConfig.Overlap.
type IndexerConfig struct {
	BatchSize int  `yaml:"batch_size"`
	Workers   *int `yaml:"workers"`
}

// SearchConfig configures the query path.
type SearchConfig struct {
	TopK       int    `yaml:"top_k"`
	Collection string `yaml:"collection"`
}

// VectorStoreConfig selects the vector store implementation.
type VectorStoreConfig struct {
	Type   string       `yaml:"type"` // "chroma" or "memory"
	Chroma ChromaConfig `yaml:"chroma"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Ollama      OllamaConfig      `yaml:"ollama"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Splitter    SplitterConfig    `yaml:"splitter"`
	Indexer     IndexerConfig     `yaml:"indexer"`
	Search      SearchConfig      `yaml:"search"`
	CorpusDir   string            `yaml:"corpus_dir"`
}

// Load reads a config from path. A missing file yields defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./tutorrag.yaml first, then
// ~/.config/tutorrag/config.yaml, falling back to defaults.
func LoadDefault() (*AppConfig, error) {
	if _, err := os.Stat("tutorrag.yaml"); err == nil {
		return Load("tutorrag.yaml")
	}
	home, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(home, ".config", "tutorrag", "config.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return Load(userPath)
		}
	}
	cfg := defaultConfig()
	applyEnv(cfg)
	return cfg, nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Ollama.Host == "" {
		cfg.Ollama.Host = "http://localhost:11434"
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = "nomic-embed-text"
	}
	if cfg.Ollama.TimeoutSecs == 0 {
		cfg.Ollama.TimeoutSecs = 30
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "chroma"
	}
	if cfg.VectorStore.Chroma.Host == "" {
		cfg.VectorStore.Chroma.Host = "localhost"
	}
	if cfg.VectorStore.Chroma.Port == 0 {
		cfg.VectorStore.Chroma.Port = 8000
	}
	if cfg.VectorStore.Chroma.TimeoutSecs == 0 {
		cfg.VectorStore.Chroma.TimeoutSecs = 30
	}
	if cfg.Splitter.ChunkSize == 0 {
		cfg.Splitter.ChunkSize = 1000
	}
	if cfg.Splitter.Overlap == nil {
		overlap := 200
		cfg.Splitter.Overlap = &overlap
	}
	if cfg.Indexer.BatchSize == 0 {
		cfg.Indexer.BatchSize = 32
	}
	if cfg.Indexer.Workers == nil {
		workers := 4
		cfg.Indexer.Workers = &workers
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 5
	}
	if cfg.Search.Collection == "" {
		cfg.Search.Collection = "curriculum"
	}
	if cfg.CorpusDir == "" {
		cfg.CorpusDir = "corpus"
	}
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.Ollama.Host = v
	}
	if v := os.Getenv("TUTORRAG_EMBED_MODEL"); v != "" {
		cfg.Ollama.Model = v
	}
	if v := os.Getenv("CHROMA_HOST"); v != "" {
		cfg.VectorStore.Chroma.Host = v
	}
	if v := os.Getenv("CHROMA_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.VectorStore.Chroma.Port = p
		}
	}
}
