package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

var (
	queryTopK      int
	queryThreshold float64
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Show the chunks most similar to a query",
	Long: `Runs a similarity search without composing an answer. Results are ordered
by cosine similarity, highest first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "maximum number of results (0 = configured default)")
	queryCmd.Flags().Float64Var(&queryThreshold, "threshold", -1, "minimum similarity (negative = configured default)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := requireStore(cmd); err != nil {
		return err
	}

	results, err := retrievalStore.Query(commandContext(cmd), strings.Join(args, " "), queryOptions(queryTopK, queryThreshold))
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return printJSON(cmd, results)
	}
	return outputQueryTable(cmd, results)
}

func outputQueryTable(cmd *cobra.Command, results []domain.ScoredChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		c := results[i].Chunk
		cmd.Printf("  [%d] %s #%d (%.2f)\n", i+1, sourceLabel(c.SourceDocumentID, c.Metadata), c.ID, results[i].Similarity)
		cmd.Printf("      %s\n", oneLine(c.Text))
		cmd.Println()
	}
	return nil
}
