package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/adapters/driving/watch"
)

var watchNoSync bool

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Keep the store in step with a directory",
	Long: `Ingests every supported file under the directory that is not already in
the store, then watches for changes. A modified file is deleted and ingested
again; a removed file is deleted. Hidden files and directories are ignored.

Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoSync, "no-sync", false, "skip the initial ingest of existing files")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requireStore(cmd); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	w := watch.New(args[0], ingestService, retrievalStore)
	defer w.Close()

	if !watchNoSync {
		cmd.Printf("Syncing %s...\n", w.Root())
		res, err := w.Sync(ctx)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		cmd.Printf("Ingested %d files, skipped %d unsupported, %d failed.\n", res.Ingested, res.Skipped, res.Failed)
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", w.Root())
	return w.Run(ctx, func(c watch.Change, err error) {
		if err != nil {
			cmd.PrintErrf("  %s %s: %v\n", c.Type, c.Path, err)
			return
		}
		cmd.Printf("  %s %s\n", c.Type, c.Path)
	})
}
