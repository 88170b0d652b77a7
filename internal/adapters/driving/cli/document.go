package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var documentListJSON bool

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage stored documents",
	Long:  `List the documents in the store or delete one and rebuild the index.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document",
	Long: `Removes every chunk of the document and rebuilds the vector index from the
remaining chunks. Chunk IDs of other documents are renumbered.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentDelete,
}

func init() {
	documentListCmd.Flags().BoolVar(&documentListJSON, "json", false, "output as JSON")
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if err := requireStore(cmd); err != nil {
		return err
	}
	docs := retrievalStore.Documents(commandContext(cmd))
	if documentListJSON {
		return printJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Println("No documents.")
		return nil
	}
	for _, d := range docs {
		title := d.Title
		if title == "" {
			title = "-"
		}
		cmd.Printf("  %s  %s (%d chunks)\n", d.ID, title, d.Chunks)
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if err := requireStore(cmd); err != nil {
		return err
	}
	res, err := retrievalStore.DeleteDocument(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	cmd.Printf("Deleted %s: %d chunks removed (store: %d chunks, %d vectors)\n",
		res.DocumentID, res.ChunksRemoved, res.TotalChunks, res.TotalVectors)
	return nil
}
