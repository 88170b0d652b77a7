package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/normalisers"
	"github.com/custodia-labs/ragstore/internal/normalisers/markdown"
	"github.com/custodia-labs/ragstore/internal/normalisers/pdf"
	"github.com/custodia-labs/ragstore/internal/normalisers/plaintext"
)

// pageRunner stands in for pdftotext.
type pageRunner struct{ out string }

func (r pageRunner) Run(context.Context, string, ...string) ([]byte, error) {
	return []byte(r.out), nil
}

func newIngestFixture(t *testing.T, maxMB int) (*IngestService, *testStore) {
	t.Helper()
	s := newTestStore(t)
	registry := normalisers.NewRegistry(
		plaintext.New(),
		markdown.New(),
		pdf.NewWithRunner(pageRunner{out: "Cover page\fFinancial results\f"}),
	)
	return NewIngestService(s, registry, normalisers.DetectMIME, maxMB), s
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIngestService_IngestText(t *testing.T) {
	svc, s := newIngestFixture(t, 0)
	meta := map[string]any{"topic": "travel"}

	result, err := svc.IngestText(context.Background(), "Flights are booked through the portal.",
		driving.IngestOptions{Metadata: meta})
	require.NoError(t, err)

	assert.Len(t, result.DocumentID, 36)
	chunks := s.chunks.All()
	require.Len(t, chunks, 1)
	assert.Equal(t, result.DocumentID, chunks[0].SourceDocumentID)
	assert.Equal(t, "text", chunks[0].Metadata["source"])
	assert.Equal(t, "travel", chunks[0].Metadata["topic"])
	assert.NotContains(t, meta, "source")
}

func TestIngestService_IngestTextWithID(t *testing.T) {
	svc, _ := newIngestFixture(t, 0)

	result, err := svc.IngestText(context.Background(), "hello", driving.IngestOptions{DocumentID: "note-1"})
	require.NoError(t, err)
	assert.Equal(t, "note-1", result.DocumentID)

	_, err = svc.IngestText(context.Background(), "   ", driving.IngestOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestService_IngestFileReplace(t *testing.T) {
	svc, s := newIngestFixture(t, 0)
	ctx := context.Background()
	path := writeFile(t, "notes.txt", "The first draft of the notes.")

	_, err := svc.IngestFile(ctx, path, driving.IngestOptions{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("The second draft of the notes."), 0o600))

	result, err := svc.IngestFile(ctx, path, driving.IngestOptions{Replace: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksReplaced)

	chunks := s.chunks.All()
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "second draft")
}

func TestIngestService_IngestFileMarkdown(t *testing.T) {
	svc, s := newIngestFixture(t, 0)
	path := writeFile(t, "travel_policy.md", "# Travel Policy\n\nBook flights through the **portal**.")

	result, err := svc.IngestFile(context.Background(), path, driving.IngestOptions{})
	require.NoError(t, err)

	assert.Equal(t, path, result.DocumentID)
	chunks := s.chunks.All()
	require.Len(t, chunks, 1)
	meta := chunks[0].Metadata
	assert.Equal(t, "travel_policy.md", meta["filename"])
	assert.Equal(t, path, meta["source"])
	assert.Equal(t, "text/markdown", meta["mime_type"])
	assert.Equal(t, "Travel Policy", meta["title"])
	assert.Equal(t, "markdown", meta["format"])
	assert.Equal(t, "Travel Policy\n\nBook flights through the portal.", chunks[0].Text)

	docs := s.Documents(context.Background())
	require.Len(t, docs, 1)
	assert.Equal(t, "Travel Policy", docs[0].Title)
}

func TestIngestService_IngestFileOptions(t *testing.T) {
	svc, s := newIngestFixture(t, 0)
	path := writeFile(t, "notes.txt", "quarterly notes")

	result, err := svc.IngestFile(context.Background(), path, driving.IngestOptions{
		DocumentID: "notes",
		Metadata:   map[string]any{"owner": "finance"},
	})
	require.NoError(t, err)

	assert.Equal(t, "notes", result.DocumentID)
	assert.Equal(t, "finance", s.chunks.All()[0].Metadata["owner"])
}

func TestIngestService_IngestFilePDFPages(t *testing.T) {
	svc, s := newIngestFixture(t, 0)
	path := writeFile(t, "report.pdf", "%PDF-1.4")

	result, err := svc.IngestFile(context.Background(), path, driving.IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ChunksAdded)

	chunks := s.chunks.All()
	require.Len(t, chunks, 2)
	assert.Equal(t, "Cover page", chunks[0].Text)
	assert.Equal(t, 1, chunks[0].Metadata["page"])
	assert.Equal(t, "Financial results", chunks[1].Text)
	assert.Equal(t, 2, chunks[1].Metadata["page"])
	assert.Equal(t, "Cover page", chunks[1].Metadata["title"])
	assert.Equal(t, "application/pdf", chunks[1].Metadata["mime_type"])
}

func TestIngestService_IngestFileTooLarge(t *testing.T) {
	svc, s := newIngestFixture(t, 1)
	path := writeFile(t, "big.txt", strings.Repeat("a", 1<<20+1))

	_, err := svc.IngestFile(context.Background(), path, driving.IngestOptions{})
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
	assert.Equal(t, 0, s.chunks.Len())
	assert.Equal(t, 0, s.embedder.callCount())
}

func TestIngestService_IngestFileErrors(t *testing.T) {
	svc, s := newIngestFixture(t, 0)
	ctx := context.Background()

	_, err := svc.IngestFile(ctx, filepath.Join(t.TempDir(), "missing.txt"), driving.IngestOptions{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.IngestFile(ctx, t.TempDir(), driving.IngestOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.IngestFile(ctx, writeFile(t, "photo.png", "\x89PNG"), driving.IngestOptions{})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = svc.IngestFile(ctx, writeFile(t, "empty.txt", ""), driving.IngestOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, 0, s.chunks.Len())
}

func TestIngestService_SupportedMIMETypes(t *testing.T) {
	svc, _ := newIngestFixture(t, 0)

	types := svc.SupportedMIMETypes()
	assert.Contains(t, types, "application/pdf")
	assert.Contains(t, types, "text/markdown")
	assert.Contains(t, types, "text/plain")
}
