package driven

import "github.com/custodia-labs/ragstore/internal/core/domain"

// ChunkStore is the ordered collection of chunk records.
// The chunk at position i describes the vector at position i in the VectorIndex.
type ChunkStore interface {
	// Append adds chunks at the end. Chunk IDs are assigned from the current length.
	Append(chunks []domain.Chunk) []domain.Chunk

	// Get returns the chunk at position, or domain.ErrNotFound.
	Get(position int) (domain.Chunk, error)

	// All returns every chunk in position order.
	All() []domain.Chunk

	// FilterBySource returns the chunks of one source document.
	FilterBySource(sourceDocumentID string) []domain.Chunk

	// Truncate drops every chunk at position n and beyond.
	Truncate(n int)

	// Clear removes all chunks.
	Clear()

	// Len returns the number of chunks.
	Len() int
}
