package driving

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// RetrievalStore owns the chunk store and vector index as one unit.
// Every write either commits a full batch with verified counts or leaves
// the store unchanged.
type RetrievalStore interface {
	// Ingest chunks, embeds and stores text for one source document.
	Ingest(ctx context.Context, text, sourceDocumentID string, metadata map[string]any) (*domain.IngestResult, error)

	// IngestDocument is Ingest for a normalised, possibly paginated document.
	IngestDocument(ctx context.Context, doc *domain.Document) (*domain.IngestResult, error)

	// ReplaceDocument swaps a document's chunks for a fresh ingest in one
	// commit. On failure the previous version stays in place.
	ReplaceDocument(ctx context.Context, doc *domain.Document) (*domain.IngestResult, error)

	// Query returns the chunks most similar to the question.
	// An empty store returns an empty result.
	Query(ctx context.Context, question string, opts domain.QueryOptions) ([]domain.ScoredChunk, error)

	// Stats recomputes counts from the underlying collections.
	Stats(ctx context.Context) domain.StatsSnapshot

	// Health returns stats with the embedding provider status.
	Health(ctx context.Context) domain.Health

	// Documents lists the source documents present in the store.
	Documents(ctx context.Context) []domain.DocumentSummary

	// DeleteDocument removes a document's chunks and rebuilds the index.
	DeleteDocument(ctx context.Context, sourceDocumentID string) (*domain.DeleteResult, error)

	// Reset clears all state and persisted artifacts. It is idempotent.
	Reset(ctx context.Context) error
}
