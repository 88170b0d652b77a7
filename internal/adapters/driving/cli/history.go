package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent questions",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of entries")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if err := requireStore(cmd); err != nil {
		return err
	}
	records, err := askService.History(commandContext(cmd), historyLimit)
	if err != nil {
		return fmt.Errorf("history failed: %w", err)
	}
	if historyJSON {
		return printJSON(cmd, records)
	}
	if len(records) == 0 {
		cmd.Println("No questions asked yet.")
		return nil
	}
	for _, r := range records {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		cmd.Printf("  %s  %-6s %3d sources  %8s  %s\n",
			r.CreatedAt.Format("2006-01-02 15:04"), status, r.Results, r.Latency.Round(time.Millisecond), r.Question)
	}
	return nil
}
