package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Ensure ChunkArtifact implements the interface.
var _ driven.ChunkArtifact = (*ChunkArtifact)(nil)

// ChunkArtifact keeps persisted chunks in process memory.
// It backs the "memory" storage backend and tests.
type ChunkArtifact struct {
	mu     sync.RWMutex
	chunks []domain.Chunk
}

// NewChunkArtifact creates an empty artifact.
func NewChunkArtifact() *ChunkArtifact {
	return &ChunkArtifact{}
}

// Save replaces all stored chunks.
func (a *ChunkArtifact) Save(_ context.Context, chunks []domain.Chunk) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.chunks = cloneChunks(chunks)
	return nil
}

// Load returns the stored chunks.
func (a *ChunkArtifact) Load(_ context.Context) ([]domain.Chunk, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cloneChunks(a.chunks), nil
}

// Remove deletes all stored chunks.
func (a *ChunkArtifact) Remove(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.chunks = nil
	return nil
}

// Close is a no-op.
func (a *ChunkArtifact) Close() error {
	return nil
}

func cloneChunks(chunks []domain.Chunk) []domain.Chunk {
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = c.Clone()
	}
	return out
}
