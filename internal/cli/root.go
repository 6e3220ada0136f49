// Package cli implements the tutorrag CLI commands.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"tutorrag/internal/config"
	"tutorrag/internal/embedding"
	"tutorrag/internal/vectorstore"
	"tutorrag/internal/vectorstore/chroma"
	"tutorrag/internal/vectorstore/memory"
)

var (
	configPath string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "tutorrag",
	Short: "Semantic retrieval for tutoring curriculum and student memory",
	Long: "tutorrag indexes curriculum PDFs and student interaction transcripts\n" +
		"into a vector store and retrieves the most relevant passages for a\n" +
		"natural-language question.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		level := log.InfoLevel
		if verbose {
			level = log.DebugLevel
		}
		log.DefaultLogger = log.Logger{
			Level:      level,
			TimeFormat: time.TimeOnly,
			Writer:     &log.ConsoleWriter{ColorOutput: true, Writer: os.Stderr},
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (default: ./tutorrag.yaml, then ~/.config/tutorrag/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func loadConfig() (*config.AppConfig, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadDefault()
}

func buildEmbedder(cfg *config.AppConfig) *embedding.Client {
	return embedding.NewClient(embedding.Config{
		BaseURL: cfg.Ollama.Host,
		Model:   cfg.Ollama.Model,
		Timeout: time.Duration(cfg.Ollama.TimeoutSecs) * time.Second,
	})
}

func buildStore(cfg *config.AppConfig) (vectorstore.Store, error) {
	switch cfg.VectorStore.Type {
	case "chroma", "":
		return chroma.New(chroma.Config{
			Host:    cfg.VectorStore.Chroma.Host,
			Port:    cfg.VectorStore.Chroma.Port,
			Timeout: time.Duration(cfg.VectorStore.Chroma.TimeoutSecs) * time.Second,
		}), nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
