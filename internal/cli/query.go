package cli

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"tutorrag/internal/recall"
	"tutorrag/internal/search"
	"tutorrag/internal/tui"
)

func init() {
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Retrieve the most relevant passages for a question",
		Run:   runQuery,
	}
	cmd.Flags().IntP("top-k", "k", 0, "Number of results (default from config)")
	cmd.Flags().String("collection", "", "Collection to query (default from config)")
	cmd.Flags().String("student", "", "Query this student's interaction memory instead")
	cmd.Flags().BoolP("interactive", "i", false, "Open the interactive query browser")
	RootCmd.AddCommand(cmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	topK, _ := cmd.Flags().GetInt("top-k")
	collection, _ := cmd.Flags().GetString("collection")
	student, _ := cmd.Flags().GetString("student")
	interactive, _ := cmd.Flags().GetBool("interactive")

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	if topK <= 0 {
		topK = cfg.Search.TopK
	}
	if collection == "" {
		collection = cfg.Search.Collection
	}
	if student != "" {
		collection = recall.CollectionFor(student)
	}

	store, err := buildStore(cfg)
	if err != nil {
		exitErr("vector store", err)
	}
	engine := search.NewEngine(buildEmbedder(cfg), store)

	if interactive {
		if _, err := tea.NewProgram(tui.New(engine, collection, topK)).Run(); err != nil {
			exitErr("query browser", err)
		}
		return
	}

	if len(args) == 0 {
		exitErr("query", fmt.Errorf("provide query text or use --interactive"))
	}
	queryText := strings.Join(args, " ")

	results, err := engine.Retrieve(cmd.Context(), queryText, topK, collection)
	if err != nil {
		exitErr("query", err)
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		os.Exit(1)
	}

	for i, r := range results {
		meta := r.Chunk.Meta
		fmt.Printf("%d. [%.3f] %s  (%s, %s, p.%d)\n",
			i+1, r.Similarity, meta.SourceTitle, meta.Group, meta.Subject, meta.Page)
		fmt.Printf("   %s\n", preview(r.Chunk.Text, 160))
	}

	verdict := search.Classify(results[0].Similarity)
	fmt.Printf("\nVerdict: %s (top similarity %.3f)\n",
		verdictLabel(verdict), results[0].Similarity)
}

func verdictLabel(v search.Verdict) string {
	style := lipgloss.NewStyle().Bold(true)
	switch v {
	case search.VerdictConfident:
		return style.Foreground(lipgloss.Color("10")).Render(string(v))
	case search.VerdictPartial:
		return style.Foreground(lipgloss.Color("11")).Render(string(v))
	default:
		return style.Foreground(lipgloss.Color("9")).Render(string(v))
	}
}

func preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
