package driving

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// IngestOptions configures a single ingest call.
type IngestOptions struct {
	// DocumentID overrides the generated document ID.
	DocumentID string

	// Metadata is copied onto every chunk.
	Metadata map[string]any

	// Replace swaps out any chunks already stored under the document ID in
	// the same commit. Without it, ingesting an existing ID adds a second copy.
	Replace bool
}

// IngestService extracts text and hands it to the retrieval store.
type IngestService interface {
	// IngestText stores pasted text.
	IngestText(ctx context.Context, text string, opts IngestOptions) (*domain.IngestResult, error)

	// IngestFile extracts text from a file and stores it.
	IngestFile(ctx context.Context, path string, opts IngestOptions) (*domain.IngestResult, error)

	// SupportedMIMETypes lists the file types IngestFile accepts.
	SupportedMIMETypes() []string
}
