package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.Host)
	assert.Equal(t, "nomic-embed-text", cfg.Ollama.Model)
	assert.Equal(t, "localhost", cfg.VectorStore.Chroma.Host)
	assert.Equal(t, 8000, cfg.VectorStore.Chroma.Port)
	assert.Equal(t, 1000, cfg.Splitter.ChunkSize)
	assert.Equal(t, 200, *cfg.Splitter.Overlap)
	assert.Equal(t, 32, cfg.Indexer.BatchSize)
	assert.Equal(t, 4, *cfg.Indexer.Workers)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, "curriculum", cfg.Search.Collection)
}

func TestLoad_FileWithPartialValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
ollama:
  model: all-minilm
splitter:
  chunk_size: 500
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "all-minilm", cfg.Ollama.Model)
	assert.Equal(t, 500, cfg.Splitter.ChunkSize)
	// untouched values keep defaults
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.Host)
	assert.Equal(t, 200, *cfg.Splitter.Overlap)
}

func TestLoad_ExplicitZeroOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
splitter:
  chunk_size: 400
  overlap: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Splitter.ChunkSize)
	assert.Equal(t, 0, *cfg.Splitter.Overlap, "explicit zero overlap must not become the default")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://embed.internal:11434")
	t.Setenv("CHROMA_HOST", "vectors.internal")
	t.Setenv("CHROMA_PORT", "9800")
	t.Setenv("TUTORRAG_EMBED_MODEL", "mxbai-embed-large")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://embed.internal:11434", cfg.Ollama.Host)
	assert.Equal(t, "vectors.internal", cfg.VectorStore.Chroma.Host)
	assert.Equal(t, 9800, cfg.VectorStore.Chroma.Port)
	assert.Equal(t, "mxbai-embed-large", cfg.Ollama.Model)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ollama: [broken"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
