package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"multirag/internal/domain"
)

var (
	searchTopK   int
	searchTarget string
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored chunks",
	Long: `Embeds the query once and searches the selected backends, merging
results by id and ranking by score.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from retrieved context",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, askCmd} {
		c.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "maximum number of results (default from config)")
		c.Flags().StringVar(&searchTarget, "target", "", "backend target: auto, local or remote")
		c.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
		rootCmd.AddCommand(c)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget(searchTarget)
	if err != nil {
		return err
	}
	hits, err := services.Vector.Search(commandContext(cmd), args[0], resolveTopK(searchTopK), target)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if searchJSON {
		return outputJSON(cmd, hits)
	}
	outputHits(cmd, hits)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget(searchTarget)
	if err != nil {
		return err
	}
	res, err := services.Vector.Answer(commandContext(cmd), args[0], resolveTopK(searchTopK), target)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}
	if searchJSON {
		return outputJSON(cmd, res)
	}
	cmd.Println(res.Answer)
	if len(res.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		outputHits(cmd, res.Sources)
	}
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputHits(cmd *cobra.Command, hits []domain.SearchHit) {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return
	}
	for i, h := range hits {
		cmd.Printf("  [%d] %s (%.3f, %s)\n", i+1, h.ID, h.Score, h.Backend)
		if src, ok := h.Metadata["source"]; ok {
			cmd.Printf("      Source: %v\n", src)
		}
		if s := snippet(h.Content, 160); s != "" {
			cmd.Printf("      %s\n", s)
		}
	}
}

// snippet shortens content to at most n runes on a word boundary.
func snippet(content string, n int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
