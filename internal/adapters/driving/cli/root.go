package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/app"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

var (
	homeDir string
	verbose bool
)

// Services used by commands. They are opened on first use and can be
// replaced in tests.
var (
	retrievalStore  driving.RetrievalStore
	ingestService   driving.IngestService
	askService      driving.AskService
	settingsService driving.SettingsService

	// queryDefaults holds the configured top-k and threshold.
	queryDefaults = domain.QueryOptions{TopK: domain.DefaultTopK, Threshold: domain.DefaultThreshold}

	closeServices func() error
)

var rootCmd = &cobra.Command{
	Use:   "ragstore",
	Short: "Local document store for retrieval-augmented answers",
	Long: `ragstore ingests documents, splits them into overlapping chunks, embeds
each chunk and answers questions from the most similar chunks.

Settings live in ~/.ragstore/config.toml (override with --home or RAGSTORE_HOME).
Credentials can also come from the environment or a .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "ragstore home directory (default ~/.ragstore)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print diagnostic logs to stderr")
}

// Execute runs the root command and releases any services it opened.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if closeServices != nil {
		if cerr := closeServices(); cerr != nil {
			logger.Warn("Close: %v", cerr)
		}
		closeServices = nil
	}
	return err
}

// Hint returns a suggestion for fixing err, or "".
func Hint(err error) string {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return "Check the provider with 'ragstore settings show', then set its API key with " +
			"'ragstore settings set embedding.api_key' or 'ragstore settings set llm.api_key'."
	case errors.Is(err, domain.ErrIntegrity):
		return "The store is out of sync. Run 'ragstore reset' and ingest your documents again."
	case errors.Is(err, domain.ErrDimensionMismatch):
		return "The embedding model changed. Run 'ragstore reset' before ingesting with the new model."
	default:
		return ""
	}
}

// requireStore opens the store and its services unless already set.
func requireStore(cmd *cobra.Command) error {
	if retrievalStore != nil {
		return nil
	}
	a, err := app.New(commandContext(cmd), app.Options{Home: homeDir})
	if err != nil {
		return err
	}
	retrievalStore = a.Store
	ingestService = a.Ingest
	askService = a.Ask
	settingsService = a.Settings
	queryDefaults = domain.QueryOptions{TopK: a.Current.Retrieval.TopK, Threshold: a.Current.Retrieval.Threshold}
	closeServices = a.Close
	return nil
}

// requireSettings opens only the settings service, so a configuration that
// cannot start the store can still be inspected and repaired.
func requireSettings() error {
	if settingsService != nil {
		return nil
	}
	home, err := app.ResolveHome(homeDir)
	if err != nil {
		return err
	}
	app.LoadEnv(home)
	_, svc, err := app.OpenSettings(home)
	if err != nil {
		return err
	}
	settingsService = svc
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
