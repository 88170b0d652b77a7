package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

var (
	ingestText    string
	ingestID      string
	ingestMeta    map[string]string
	ingestJSON    bool
	ingestReplace bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Add documents to the store",
	Long: `Extracts text from each file, splits it into chunks, embeds the chunks and
stores them. Files are identified by their absolute path, so ingesting the same
file twice adds it twice unless --replace is given, which swaps out the stored
version in one step.

Use --text to ingest a string instead of files, or --text - to read stdin.

Examples:
  ragstore ingest notes.md report.pdf
  ragstore ingest --text "The launch moved to March." --id launch-note
  cat minutes.txt | ragstore ingest --text - --meta team=infra`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestText, "text", "t", "", "ingest this text instead of files (- reads stdin)")
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "document ID (single input only)")
	ingestCmd.Flags().StringToStringVarP(&ingestMeta, "meta", "m", nil, "metadata copied onto every chunk (key=value)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	ingestCmd.Flags().BoolVar(&ingestReplace, "replace", false, "replace any chunks already stored under the same document ID")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	hasText := cmd.Flags().Changed("text")
	if hasText && len(args) > 0 {
		return errors.New("use either --text or files, not both")
	}
	if !hasText && len(args) == 0 {
		return errors.New("nothing to ingest: pass files or --text")
	}
	if ingestID != "" && len(args) > 1 {
		return errors.New("--id can only be used with a single input")
	}

	if err := requireStore(cmd); err != nil {
		return err
	}
	ctx := commandContext(cmd)
	opts := driving.IngestOptions{
		DocumentID: ingestID,
		Metadata:   metadataFromFlags(ingestMeta),
		Replace:    ingestReplace,
	}

	var results []*domain.IngestResult
	if hasText {
		text, err := readTextFlag(cmd, ingestText)
		if err != nil {
			return err
		}
		res, err := ingestService.IngestText(ctx, text, opts)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		results = append(results, res)
	}

	for _, path := range args {
		res, err := ingestService.IngestFile(ctx, path, opts)
		if err != nil {
			return fmt.Errorf("ingest %s failed: %w", path, err)
		}
		results = append(results, res)
	}

	if ingestJSON {
		return printJSON(cmd, results)
	}
	for _, res := range results {
		cmd.Printf("Ingested %s: %d chunks added (store: %d chunks, %d vectors)\n",
			res.DocumentID, res.ChunksAdded, res.TotalChunks, res.TotalVectors)
	}
	return nil
}

func readTextFlag(cmd *cobra.Command, value string) (string, error) {
	if value != "-" {
		return value, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func metadataFromFlags(flags map[string]string) map[string]any {
	if len(flags) == 0 {
		return nil
	}
	out := make(map[string]any, len(flags))
	for k, v := range flags {
		out[strings.TrimSpace(k)] = v
	}
	return out
}
