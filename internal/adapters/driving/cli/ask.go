package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

var (
	askTopK      int
	askThreshold float64
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the stored documents",
	Long: `Finds the chunks most similar to the question and composes an answer from
them with the configured LLM provider. The sources are printed with their
relevance scores.

When nothing passes the similarity threshold the query is retried once
without it, and the answer is marked as a low-confidence match.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of sources (0 = configured default)")
	askCmd.Flags().Float64Var(&askThreshold, "threshold", -1, "minimum similarity (negative = configured default)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := requireStore(cmd); err != nil {
		return err
	}
	question := strings.Join(args, " ")

	answer, err := askService.Ask(commandContext(cmd), question, queryOptions(askTopK, askThreshold))
	if err != nil && !errors.Is(err, domain.ErrAnswerUnavailable) {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return printJSON(cmd, answer)
	}

	if err != nil {
		cmd.PrintErrf("Answer unavailable: %v\n\n", err)
	} else {
		cmd.Println(answer.Text)
	}
	if answer.Relaxed {
		cmd.Println()
		cmd.Println("Note: no chunk passed the similarity threshold; these are the closest matches.")
	}
	printSources(cmd, answer.Sources)
	return nil
}

// queryOptions applies configured defaults to flag values.
func queryOptions(topK int, threshold float64) domain.QueryOptions {
	opts := queryDefaults
	if topK > 0 {
		opts.TopK = topK
	}
	if threshold >= 0 {
		opts.Threshold = threshold
	}
	return opts
}

func printSources(cmd *cobra.Command, sources []domain.Source) {
	if len(sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, src := range sources {
		cmd.Printf("  [%d] %s (relevance: %.2f)\n", i+1, sourceLabel(src.DocumentID, src.Metadata), src.Similarity)
		cmd.Printf("      %s\n", oneLine(src.Text))
	}
}

func sourceLabel(documentID string, metadata map[string]any) string {
	label := documentID
	if title, ok := metadata["title"].(string); ok && title != "" {
		label = title
	}
	if page, ok := metadata["page"]; ok {
		label = fmt.Sprintf("%s, page %v", label, page)
	}
	return label
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
