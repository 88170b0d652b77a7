package driven

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// IndexArtifact persists the vector index.
type IndexArtifact interface {
	// Save replaces the stored index with the snapshot.
	Save(ctx context.Context, snapshot IndexSnapshot) error

	// Load returns the stored index. A missing artifact returns an empty
	// snapshot and no error.
	Load(ctx context.Context) (IndexSnapshot, error)

	// Remove deletes the stored index. Removing a missing artifact is not an error.
	Remove(ctx context.Context) error

	// Location describes where the artifact lives, for stats output.
	Location() string
}

// ChunkArtifact persists chunk records in position order.
type ChunkArtifact interface {
	// Save replaces all stored chunks.
	Save(ctx context.Context, chunks []domain.Chunk) error

	// Load returns all stored chunks ordered by position.
	Load(ctx context.Context) ([]domain.Chunk, error)

	// Remove deletes all stored chunks.
	Remove(ctx context.Context) error

	// Close releases resources.
	Close() error
}
