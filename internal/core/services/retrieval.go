package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Ensure RetrievalStore implements the interface.
var _ driving.RetrievalStore = (*RetrievalStore)(nil)

// RetrievalStore keeps the chunk store and the vector index in lockstep.
//
// Position i in the index is the vector of chunk i. Writes hold the
// exclusive lock for the whole chunk, embed, add, verify and persist
// sequence; reads hold the shared lock. After a write observes the two
// collections out of step the store is faulted and refuses writes until
// Reset.
type RetrievalStore struct {
	mu sync.RWMutex

	chunker  driven.PostProcessorPipeline
	embedder *EmbeddingClient
	index    driven.VectorIndex
	chunks   driven.ChunkStore

	indexArtifact driven.IndexArtifact
	chunkArtifact driven.ChunkArtifact

	generation uint64
	faulted    bool
}

// NewRetrievalStore creates a store. Call SetArtifacts to enable persistence.
func NewRetrievalStore(
	chunker driven.PostProcessorPipeline,
	embedder *EmbeddingClient,
	index driven.VectorIndex,
	chunks driven.ChunkStore,
) *RetrievalStore {
	return &RetrievalStore{
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		chunks:   chunks,
	}
}

// SetArtifacts enables persistence. Both artifacts must be set together.
func (s *RetrievalStore) SetArtifacts(index driven.IndexArtifact, chunks driven.ChunkArtifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexArtifact = index
	s.chunkArtifact = chunks
}

// Ingest chunks text, embeds every chunk in one batch and appends chunks and
// vectors together.
//
// On success the result carries the verified totals. If the in-memory commit
// succeeded but persisting it failed, the result is returned together with an
// error matching domain.ErrPersistence.
func (s *RetrievalStore) Ingest(
	ctx context.Context, text, sourceDocumentID string, metadata map[string]any,
) (*domain.IngestResult, error) {
	return s.IngestDocument(ctx, &domain.Document{
		ID:       sourceDocumentID,
		Content:  text,
		Metadata: metadata,
	})
}

// IngestDocument is Ingest for an already normalised document, which may be
// paginated.
func (s *RetrievalStore) IngestDocument(ctx context.Context, doc *domain.Document) (*domain.IngestResult, error) {
	logger.Section("Ingest")
	defer logger.Timed("ingest")()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.faulted {
		return nil, s.integrityError("ingest")
	}
	chunks, vectors, err := s.prepare(ctx, doc)
	if err != nil {
		return nil, err
	}

	before := s.chunks.Len()
	s.chunks.Append(chunks)
	if err := s.index.Add(vectors); err != nil {
		s.chunks.Truncate(before)
		return nil, fmt.Errorf("ingest: %w", err)
	}

	return s.commit(ctx, "ingest", doc.ID, len(chunks), 0)
}

// ReplaceDocument swaps the chunks of doc.ID for a fresh ingest of doc in a
// single commit. The new batch is chunked and embedded before anything is
// removed, so a failure leaves the previous version in place. A document
// that is not yet stored is simply ingested.
func (s *RetrievalStore) ReplaceDocument(ctx context.Context, doc *domain.Document) (*domain.IngestResult, error) {
	logger.Section("Replace Document")
	defer logger.Timed("replace")()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.faulted {
		return nil, s.integrityError("replace")
	}
	chunks, vectors, err := s.prepare(ctx, doc)
	if err != nil {
		return nil, err
	}

	all := s.chunks.All()
	snapshot := s.index.Snapshot()
	if len(all) != snapshot.Len() {
		s.faulted = true
		return nil, s.integrityError("replace")
	}

	survivors := make([]domain.Chunk, 0, len(all))
	kept := make([][]float32, 0, len(all))
	for i, c := range all {
		if c.SourceDocumentID == doc.ID {
			continue
		}
		survivors = append(survivors, c)
		kept = append(kept, snapshot.Vectors[i])
	}
	removed := len(all) - len(survivors)

	if removed > 0 {
		trimmed := driven.IndexSnapshot{Metric: snapshot.Metric, Dimension: snapshot.Dimension, Vectors: kept}
		if err := s.index.Restore(trimmed); err != nil {
			return nil, fmt.Errorf("replace %s: rebuild index: %w", doc.ID, err)
		}
	}
	if err := s.index.Add(vectors); err != nil {
		if rerr := s.index.Restore(snapshot); rerr != nil {
			s.faulted = true
			logger.Error("Restore after failed replace: %v", rerr)
		}
		return nil, fmt.Errorf("replace %s: %w", doc.ID, err)
	}

	if removed > 0 {
		s.chunks.Clear()
		s.chunks.Append(survivors)
		s.generation++
	}
	s.chunks.Append(chunks)

	return s.commit(ctx, "replace", doc.ID, len(chunks), removed)
}

// prepare validates doc, chunks it and embeds every chunk in one batch.
// The caller holds the write lock. Nothing is modified.
func (s *RetrievalStore) prepare(ctx context.Context, doc *domain.Document) ([]domain.Chunk, [][]float32, error) {
	if doc == nil {
		return nil, nil, fmt.Errorf("ingest: %w: document is nil", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(doc.ID) == "" {
		return nil, nil, fmt.Errorf("ingest: %w: source document id is empty", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(doc.Content) == "" && strings.TrimSpace(strings.Join(doc.Pages, "")) == "" {
		return nil, nil, fmt.Errorf("ingest: %w: text is empty", domain.ErrInvalidInput)
	}
	for k, v := range doc.Metadata {
		if !domain.IsScalar(v) {
			return nil, nil, fmt.Errorf("ingest: %w: metadata %q has non-scalar type %T", domain.ErrInvalidInput, k, v)
		}
	}

	chunks, err := s.chunker.Process(ctx, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: chunking: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil, fmt.Errorf("ingest: %w: text produced no chunks", domain.ErrInvalidInput)
	}
	logger.Debug("Document %s split into %d chunks", doc.ID, len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: %w: %w", domain.ErrEmbeddingFailed, err)
	}
	return chunks, vectors, nil
}

// commit verifies the counts after a write and persists the new state.
// If the in-memory commit succeeded but persisting failed, the result is
// returned together with an error matching domain.ErrPersistence.
func (s *RetrievalStore) commit(ctx context.Context, op, id string, added, removed int) (*domain.IngestResult, error) {
	if s.chunks.Len() != s.index.Size() {
		s.faulted = true
		logger.Error("Store out of sync after %s: %d chunks, %d vectors", op, s.chunks.Len(), s.index.Size())
		return nil, s.integrityError(op)
	}

	result := &domain.IngestResult{
		DocumentID:     id,
		ChunksAdded:    added,
		ChunksReplaced: removed,
		TotalChunks:    s.chunks.Len(),
		TotalVectors:   s.index.Size(),
	}
	logger.Info("Stored %d chunks for %s, replacing %d (total %d)", added, id, removed, result.TotalChunks)

	if err := s.persist(ctx); err != nil {
		return result, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// Query returns the chunks most similar to question, ordered by descending
// similarity. An empty store returns an empty result without embedding.
func (s *RetrievalStore) Query(
	ctx context.Context, question string, opts domain.QueryOptions,
) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("query: %w: question is empty", domain.ErrInvalidInput)
	}
	if s.index.Size() == 0 || opts.TopK <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	hits, err := s.index.Search(vector, opts.TopK, opts.Threshold)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	logger.Debug("Query matched %d of %d vectors (k=%d, threshold=%.2f)",
		len(hits), s.index.Size(), opts.TopK, opts.Threshold)

	results := make([]domain.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		chunk, err := s.chunks.Get(hit.Position)
		if err != nil {
			logger.Error("Vector %d has no chunk record", hit.Position)
			return nil, s.integrityError("query")
		}
		results = append(results, domain.ScoredChunk{
			Chunk:      chunk,
			Similarity: hit.Similarity,
			Generation: s.generation,
		})
	}
	return results, nil
}

// Stats recomputes counts from both collections.
func (s *RetrievalStore) Stats(_ context.Context) domain.StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats()
}

func (s *RetrievalStore) stats() domain.StatsSnapshot {
	chunks := s.chunks.Len()
	vectors := s.index.Size()

	sources := make(map[string]struct{})
	for _, c := range s.chunks.All() {
		sources[c.SourceDocumentID] = struct{}{}
	}

	return domain.StatsSnapshot{
		ChunksCount:    chunks,
		TotalVectors:   vectors,
		IsSynced:       chunks == vectors,
		DocumentsCount: len(sources),
		Generation:     s.generation,
		Dimension:      s.index.Dimension(),
		Metric:         s.index.Metric(),
		IntegrityFault: s.faulted,
	}
}

// Health combines live stats with the embedding provider status.
func (s *RetrievalStore) Health(_ context.Context) domain.Health {
	s.mu.RLock()
	stats := s.stats()
	s.mu.RUnlock()

	provider := domain.ProviderStatus{
		Name:       s.embedder.Provider(),
		Model:      s.embedder.ModelName(),
		Configured: true,
	}
	if err := s.embedder.Configured(); err != nil {
		provider.Configured = false
		provider.Message = err.Error()
	}

	return domain.Health{
		Status:   domain.HealthFromStats(stats),
		Stats:    stats,
		Provider: provider,
	}
}

// Documents lists source documents in order of first appearance.
func (s *RetrievalStore) Documents(_ context.Context) []domain.DocumentSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		order []string
		byID  = make(map[string]*domain.DocumentSummary)
	)
	for _, c := range s.chunks.All() {
		summary, ok := byID[c.SourceDocumentID]
		if !ok {
			summary = &domain.DocumentSummary{ID: c.SourceDocumentID, Title: chunkTitle(c)}
			byID[c.SourceDocumentID] = summary
			order = append(order, c.SourceDocumentID)
		}
		summary.Chunks++
	}

	out := make([]domain.DocumentSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

func chunkTitle(c domain.Chunk) string {
	for _, key := range []string{"title", "filename"} {
		if v, ok := c.Metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// DeleteDocument removes every chunk of one source document.
//
// Survivors are renumbered from 0 and the index is rebuilt from their
// existing vectors, so nothing is re-embedded. Positions change, so the
// generation advances.
func (s *RetrievalStore) DeleteDocument(ctx context.Context, sourceDocumentID string) (*domain.DeleteResult, error) {
	logger.Section("Delete Document")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.faulted {
		return nil, s.integrityError("delete")
	}

	all := s.chunks.All()
	snapshot := s.index.Snapshot()
	if len(all) != snapshot.Len() {
		s.faulted = true
		return nil, s.integrityError("delete")
	}

	survivors := make([]domain.Chunk, 0, len(all))
	vectors := make([][]float32, 0, len(all))
	for i, c := range all {
		if c.SourceDocumentID == sourceDocumentID {
			continue
		}
		survivors = append(survivors, c)
		vectors = append(vectors, snapshot.Vectors[i])
	}
	removed := len(all) - len(survivors)
	if removed == 0 {
		return nil, fmt.Errorf("delete %s: %w", sourceDocumentID, domain.ErrNotFound)
	}

	rebuilt := driven.IndexSnapshot{Metric: snapshot.Metric, Dimension: snapshot.Dimension, Vectors: vectors}
	if err := s.index.Restore(rebuilt); err != nil {
		return nil, fmt.Errorf("delete %s: rebuild index: %w", sourceDocumentID, err)
	}
	s.chunks.Clear()
	s.chunks.Append(survivors)
	s.generation++

	if s.chunks.Len() != s.index.Size() {
		s.faulted = true
		return nil, s.integrityError("delete")
	}
	if s.index.Size() == 0 {
		s.embedder.Reset()
	}

	result := &domain.DeleteResult{
		DocumentID:    sourceDocumentID,
		ChunksRemoved: removed,
		TotalChunks:   s.chunks.Len(),
		TotalVectors:  s.index.Size(),
	}
	logger.Info("Deleted %d chunks of %s, %d remain", removed, sourceDocumentID, result.TotalChunks)

	if err := s.persist(ctx); err != nil {
		return result, fmt.Errorf("delete %s: %w", sourceDocumentID, err)
	}
	return result, nil
}

// Reset clears both collections and the persisted artifacts, clears the
// fault and starts a new generation. It is idempotent.
func (s *RetrievalStore) Reset(ctx context.Context) error {
	logger.Section("Reset")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks.Clear()
	s.index.Reset()
	s.embedder.Reset()
	s.generation++
	s.faulted = false

	var errs []error
	if s.indexArtifact != nil {
		if err := s.indexArtifact.Remove(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.chunkArtifact != nil {
		if err := s.chunkArtifact.Remove(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("reset: %w: %w", domain.ErrPersistence, err)
	}

	logger.Info("Store reset (generation %d)", s.generation)
	return nil
}

// Load replaces the in-memory state with the persisted artifacts.
//
// Missing artifacts load as empty. When the artifacts disagree on the count,
// both are loaded, the store is marked faulted and writes are refused until
// Reset. An unreadable or incompatible index artifact loads the chunks over
// an empty index, faults the store and returns an *IntegrityError wrapping
// the cause; Reset still works and removes the bad artifact.
func (s *RetrievalStore) Load(ctx context.Context) error {
	defer logger.Timed("load")()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexArtifact == nil || s.chunkArtifact == nil {
		return nil
	}

	chunks, err := s.chunkArtifact.Load(ctx)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}

	snapshot, err := s.indexArtifact.Load(ctx)
	if err == nil {
		if snapshot.Metric == "" {
			snapshot.Metric = s.index.Metric()
		}
		err = s.index.Restore(snapshot)
	}
	if err != nil {
		s.index.Reset()
		s.chunks.Clear()
		s.chunks.Append(chunks)
		s.faulted = true
		logger.Warn("Index artifact %s unusable: %v; writes refused until reset", s.indexArtifact.Location(), err)
		return &domain.IntegrityError{Op: "load", Chunks: s.chunks.Len(), Vectors: 0, Err: err}
	}

	s.chunks.Clear()
	s.chunks.Append(chunks)
	s.embedder.SetDimension(s.index.Dimension())
	s.faulted = s.chunks.Len() != s.index.Size()

	if s.faulted {
		logger.Warn("Loaded %d chunks but %d vectors; writes refused until reset", s.chunks.Len(), s.index.Size())
	} else {
		logger.Debug("Loaded %d chunks from %s", s.chunks.Len(), s.indexArtifact.Location())
	}
	return nil
}

// Persist writes the index artifact and then the chunk artifact.
func (s *RetrievalStore) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx)
}

func (s *RetrievalStore) persist(ctx context.Context) error {
	if s.indexArtifact == nil || s.chunkArtifact == nil {
		return nil
	}
	if err := s.indexArtifact.Save(ctx, s.index.Snapshot()); err != nil {
		return fmt.Errorf("%w: save index: %w", domain.ErrPersistence, err)
	}
	if err := s.chunkArtifact.Save(ctx, s.chunks.All()); err != nil {
		return fmt.Errorf("%w: save chunks: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (s *RetrievalStore) integrityError(op string) error {
	return &domain.IntegrityError{Op: op, Chunks: s.chunks.Len(), Vectors: s.index.Size()}
}
