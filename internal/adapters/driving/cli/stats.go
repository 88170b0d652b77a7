package cli

import (
	"github.com/spf13/cobra"
)

var (
	statsJSON  bool
	healthJSON bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	Long:  `Counts chunks, vectors and documents. Counts are recomputed on every call.`,
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the store and embedding provider",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(healthCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if err := requireStore(cmd); err != nil {
		return err
	}
	ctx := commandContext(cmd)
	stats := retrievalStore.Stats(ctx)
	if statsJSON {
		return printJSON(cmd, stats)
	}

	cmd.Println("Store")
	cmd.Println("=====")
	cmd.Printf("  Documents:  %d\n", stats.DocumentsCount)
	cmd.Printf("  Chunks:     %d\n", stats.ChunksCount)
	cmd.Printf("  Vectors:    %d\n", stats.TotalVectors)
	cmd.Printf("  In sync:    %s\n", yesNo(stats.IsSynced))
	cmd.Printf("  Dimension:  %d\n", stats.Dimension)
	cmd.Printf("  Metric:     %s\n", stats.Metric)
	cmd.Printf("  Generation: %d\n", stats.Generation)
	if stats.IntegrityFault {
		cmd.Println("  Integrity fault: writes are refused until 'ragstore reset'")
	}

	summary, err := askService.Summary(ctx)
	if err == nil && summary.Total > 0 {
		cmd.Println()
		cmd.Println("Queries")
		cmd.Println("=======")
		cmd.Printf("  Total:           %d\n", summary.Total)
		cmd.Printf("  Succeeded:       %d\n", summary.Succeeded)
		cmd.Printf("  Failed:          %d\n", summary.Failed)
		cmd.Printf("  Average latency: %s\n", summary.AverageLatency)
	}
	return nil
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if err := requireStore(cmd); err != nil {
		return err
	}
	h := retrievalStore.Health(commandContext(cmd))
	if healthJSON {
		return printJSON(cmd, h)
	}

	cmd.Printf("Status:   %s\n", h.Describe())
	cmd.Printf("Chunks:   %d\n", h.Stats.ChunksCount)
	cmd.Printf("Vectors:  %d\n", h.Stats.TotalVectors)
	cmd.Printf("Provider: %s", h.Provider.Name)
	if h.Provider.Model != "" {
		cmd.Printf(" (%s)", h.Provider.Model)
	}
	cmd.Println()
	if h.Provider.Configured {
		cmd.Println("Embedding: configured")
	} else {
		cmd.Printf("Embedding: not configured - %s\n", h.Provider.Message)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
