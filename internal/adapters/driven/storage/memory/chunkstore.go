package memory

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an ordered, in-memory list of chunk records.
// Records are copied on the way in and on the way out.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks []domain.Chunk
}

// NewChunkStore creates an empty chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{}
}

// Append adds chunks at the end, assigning IDs from the current length.
// The stored records are returned.
func (s *ChunkStore) Append(chunks []domain.Chunk) []domain.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c = c.Clone()
		c.ID = len(s.chunks)
		s.chunks = append(s.chunks, c)
		added[i] = c.Clone()
	}
	return added
}

// Get returns the chunk at position.
func (s *ChunkStore) Get(position int) (domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if position < 0 || position >= len(s.chunks) {
		return domain.Chunk{}, fmt.Errorf("chunk %d: %w", position, domain.ErrNotFound)
	}
	return s.chunks[position].Clone(), nil
}

// All returns every chunk in position order.
func (s *ChunkStore) All() []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Chunk, len(s.chunks))
	for i, c := range s.chunks {
		out[i] = c.Clone()
	}
	return out
}

// FilterBySource returns the chunks of one source document in position order.
func (s *ChunkStore) FilterBySource(sourceDocumentID string) []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Chunk
	for _, c := range s.chunks {
		if c.SourceDocumentID == sourceDocumentID {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Truncate drops every chunk at position n and beyond.
func (s *ChunkStore) Truncate(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 0 {
		n = 0
	}
	if n < len(s.chunks) {
		clear(s.chunks[n:])
		s.chunks = s.chunks[:n]
	}
}

// Clear removes all chunks.
func (s *ChunkStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
}

// Len returns the number of chunks.
func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
