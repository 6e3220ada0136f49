package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tutorrag/internal/indexer"
	"tutorrag/internal/recall"
	"tutorrag/internal/search"
	"tutorrag/internal/splitter"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember <student-id> [text]",
		Short: "Store an interaction transcript in a student's memory",
		Long: "Segments and indexes a tutoring transcript into the student's\n" +
			"memory collection. Reads from stdin when no text is given.",
		Args: cobra.MinimumNArgs(1),
		Run:  runRemember,
	}
	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	studentID := args[0]
	var transcript string
	if len(args) > 1 {
		transcript = strings.Join(args[1:], " ")
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		transcript = string(data)
	}

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	emb := buildEmbedder(cfg)
	store, err := buildStore(cfg)
	if err != nil {
		exitErr("vector store", err)
	}
	if err := emb.Health(cmd.Context()); err != nil {
		exitErr("embedding service", err)
	}

	split := splitter.New(cfg.Splitter.ChunkSize, *cfg.Splitter.Overlap)
	ix := indexer.New(emb, store, indexer.Options{
		BatchSize:       cfg.Indexer.BatchSize,
		Workers:         *cfg.Indexer.Workers,
		AllowUnembedded: true,
	}, nil)
	svc := recall.NewService(split, ix, search.NewEngine(emb, store), store)

	res, err := svc.Record(cmd.Context(), studentID, transcript)
	if err != nil {
		exitErr("remember", err)
	}
	fmt.Printf("Stored %d chunks for %s (%d embedded, %d failed)\n",
		res.Total, studentID, res.Embedded, res.Failed)
}
