package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [files...]", ingestCmd.Use)
}

func TestIngestCmd_Short(t *testing.T) {
	assert.Equal(t, "Add documents to the store", ingestCmd.Short)
}

func TestIngestCmd_Flags(t *testing.T) {
	for _, name := range []string{"text", "id", "meta", "json"} {
		assert.NotNil(t, ingestCmd.Flags().Lookup(name), "missing flag %s", name)
	}
	assert.Equal(t, "t", ingestCmd.Flags().Lookup("text").Shorthand)
	assert.Equal(t, "m", ingestCmd.Flags().Lookup("meta").Shorthand)
}

func TestIngestCmd_Text(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "ingest", "--text", "The launch moved to March.", "--id", "launch-note")

	require.NoError(t, err)
	require.Len(t, ts.ingest.texts, 1)
	assert.Equal(t, "The launch moved to March.", ts.ingest.texts[0])
	assert.Equal(t, "launch-note", ts.ingest.options[0].DocumentID)
	assert.Contains(t, out, "Ingested launch-note: 2 chunks added (store: 2 chunks, 2 vectors)")
}

func TestIngestCmd_TextFromStdin(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "minutes from stdin", "ingest", "--text", "-")

	require.NoError(t, err)
	require.Len(t, ts.ingest.texts, 1)
	assert.Equal(t, "minutes from stdin", ts.ingest.texts[0])
}

func TestIngestCmd_Files(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "ingest", "notes.md", "report.pdf")

	require.NoError(t, err)
	assert.Equal(t, []string{"notes.md", "report.pdf"}, ts.ingest.paths)
	assert.Contains(t, out, "Ingested notes.md: 3 chunks added")
	assert.Contains(t, out, "Ingested report.pdf: 3 chunks added")
}

func TestIngestCmd_Replace(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "", "ingest", "--replace", "notes.md")
	require.NoError(t, err)
	require.Len(t, ts.ingest.options, 1)
	assert.True(t, ts.ingest.options[0].Replace)

	_, err = execute(t, "", "ingest", "notes.md")
	require.NoError(t, err)
	require.Len(t, ts.ingest.options, 2)
	assert.False(t, ts.ingest.options[1].Replace)
}

func TestIngestCmd_Metadata(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "", "ingest", "--text", "hello", "--meta", "team=infra")

	require.NoError(t, err)
	require.Len(t, ts.ingest.options, 1)
	assert.Equal(t, map[string]any{"team": "infra"}, ts.ingest.options[0].Metadata)
}

func TestIngestCmd_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"text and files", []string{"ingest", "--text", "x", "a.md"}, "use either --text or files, not both"},
		{"nothing", []string{"ingest"}, "nothing to ingest: pass files or --text"},
		{"id with many files", []string{"ingest", "--id", "doc", "a.md", "b.md"}, "--id can only be used with a single input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, cleanup := setupTestServices()
			defer cleanup()

			_, err := execute(t, "", tt.args...)

			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.Empty(t, ts.ingest.texts)
			assert.Empty(t, ts.ingest.paths)
		})
	}
}

func TestIngestCmd_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingest.err = errors.New("embedder offline")

	_, err := execute(t, "", "ingest", "a.md")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest a.md failed")
	assert.ErrorIs(t, err, ts.ingest.err)
}

func TestIngestCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "ingest", "--json", "--text", "hello", "--id", "doc-7")

	require.NoError(t, err)
	assert.Contains(t, out, `"DocumentID": "doc-7"`)
}

func TestMetadataFromFlags(t *testing.T) {
	assert.Nil(t, metadataFromFlags(nil))
	assert.Nil(t, metadataFromFlags(map[string]string{}))
	assert.Equal(t, map[string]any{"team": "infra"}, metadataFromFlags(map[string]string{" team ": "infra"}))
}
