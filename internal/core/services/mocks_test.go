package services

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// --- Mock implementations ---

// stubEmbedder implements driven.EmbeddingService for testing.
// Texts listed in vectors get that vector; others get a deterministic
// vector derived from the text hash.
type stubEmbedder struct {
	mu      sync.Mutex
	dims    int
	vectors map[string][]float32
	failAt  int // fail when the n-th text overall is embedded (1-based); 0 disables
	err     error
	seen    int
	calls   int
	batches [][]string
}

func newStubEmbedder(dims int) *stubEmbedder {
	return &stubEmbedder{dims: dims, vectors: make(map[string][]float32)}
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.batches = append(s.batches, append([]string(nil), texts...))
	if s.err != nil {
		return nil, s.err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		s.seen++
		if s.failAt > 0 && s.seen == s.failAt {
			return nil, errors.New("provider exploded")
		}
		if v, ok := s.vectors[text]; ok {
			out[i] = append([]float32(nil), v...)
			continue
		}
		out[i] = hashVector(text, s.dims)
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return s.dims }
func (s *stubEmbedder) ModelName() string { return "stub" }
func (s *stubEmbedder) Ping(_ context.Context) error { return s.err }
func (s *stubEmbedder) Close() error { return nil }

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// hashVector returns a deterministic, non-zero vector for text.
func hashVector(text string, dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		h := fnv.New32a()
		h.Write([]byte{byte(i)})
		h.Write([]byte(text))
		v[i] = float32(h.Sum32()%1000)/1000 + 0.001
	}
	return v
}

// stubComposer implements driven.AnswerComposer for testing.
type stubComposer struct {
	answer   string
	err      error
	question string
	sources  []domain.Source
}

func (c *stubComposer) Compose(_ context.Context, question string, sources []domain.Source) (string, error) {
	c.question = question
	c.sources = sources
	return c.answer, c.err
}

func (c *stubComposer) ModelName() string { return "stub-llm" }
func (c *stubComposer) Ping(_ context.Context) error { return c.err }
func (c *stubComposer) Close() error { return nil }

// failingQueryLog implements driven.QueryLog and fails every call.
type failingQueryLog struct{}

func (failingQueryLog) Record(_ context.Context, _ domain.QueryRecord) error {
	return errors.New("disk full")
}

func (failingQueryLog) Recent(_ context.Context, _ int) ([]domain.QueryRecord, error) {
	return nil, errors.New("disk full")
}

func (failingQueryLog) Summary(_ context.Context) (domain.QuerySummary, error) {
	return domain.QuerySummary{}, errors.New("disk full")
}

func (failingQueryLog) Close() error { return nil }

// failingChunkArtifact implements driven.ChunkArtifact with failing saves.
type failingChunkArtifact struct {
	saveErr error
}

func (a *failingChunkArtifact) Save(_ context.Context, _ []domain.Chunk) error { return a.saveErr }
func (a *failingChunkArtifact) Load(_ context.Context) ([]domain.Chunk, error) { return nil, nil }
func (a *failingChunkArtifact) Remove(_ context.Context) error { return nil }
func (a *failingChunkArtifact) Close() error { return nil }
