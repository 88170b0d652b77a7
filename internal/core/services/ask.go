package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Ensure AskService implements the interface.
var _ driving.AskService = (*AskService)(nil)

// Answers returned without calling the composer.
const (
	EmptyStoreAnswer  = "No documents have been ingested yet. Ingest a file or some text first."
	NoResultsAnswer   = "No relevant information was found for your question. Try rephrasing it."
	DefaultPreviewLen = 200
)

// AskConfig holds defaults applied to questions.
type AskConfig struct {
	// TopK is used when the question does not set one.
	TopK int

	// PreviewRunes truncates source text in answers. Zero uses DefaultPreviewLen.
	PreviewRunes int
}

// AskService answers questions from the retrieval store.
//
// When the thresholded query finds nothing in a non-empty store it retries
// once with the threshold removed and twice the result count, and marks the
// answer as relaxed.
type AskService struct {
	store    driving.RetrievalStore
	composer driven.AnswerComposer
	history  driven.QueryLog
	cfg      AskConfig
}

// NewAskService creates an ask service.
// The composer and history parameters are optional (can be nil).
func NewAskService(
	store driving.RetrievalStore,
	composer driven.AnswerComposer,
	history driven.QueryLog,
	cfg AskConfig,
) *AskService {
	if cfg.TopK <= 0 {
		cfg.TopK = domain.DefaultTopK
	}
	if cfg.PreviewRunes <= 0 {
		cfg.PreviewRunes = DefaultPreviewLen
	}
	return &AskService{store: store, composer: composer, history: history, cfg: cfg}
}

// Ask retrieves sources for question and composes an answer.
//
// A composer failure returns the answer with its sources together with an
// error matching domain.ErrAnswerUnavailable.
func (s *AskService) Ask(ctx context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error) {
	logger.Section("Ask")
	start := time.Now()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("ask: %w: question is empty", domain.ErrInvalidInput)
	}
	if opts.TopK <= 0 {
		opts.TopK = s.cfg.TopK
	}

	answer, err := s.ask(ctx, question, opts)

	record := domain.QueryRecord{
		Question: question,
		Latency:  time.Since(start),
		Success:  err == nil,
	}
	if answer != nil {
		record.Results = len(answer.Sources)
	}
	if err != nil {
		record.Error = err.Error()
	} else if answer.Text == EmptyStoreAnswer {
		record.Success = false
		record.Error = "store is empty"
	}
	s.record(ctx, record)

	return answer, err
}

func (s *AskService) ask(ctx context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error) {
	stats := s.store.Stats(ctx)
	if stats.ChunksCount == 0 {
		return &domain.Answer{Query: question, Text: EmptyStoreAnswer, Sources: []domain.Source{}, Generation: stats.Generation}, nil
	}

	results, err := s.store.Query(ctx, question, opts)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	relaxed := false
	if len(results) == 0 {
		logger.Info("No results at threshold %.2f, retrying without threshold", opts.Threshold)
		results, err = s.store.Query(ctx, question, domain.QueryOptions{TopK: opts.TopK * 2, Threshold: 0})
		if err != nil {
			return nil, fmt.Errorf("ask: %w", err)
		}
		relaxed = true
	}

	answer := &domain.Answer{Query: question, Relaxed: relaxed, Generation: stats.Generation}
	if len(results) == 0 {
		answer.Text = NoResultsAnswer
		answer.Sources = []domain.Source{}
		return answer, nil
	}
	answer.Generation = results[0].Generation

	full := make([]domain.Source, len(results))
	for i, r := range results {
		full[i] = domain.Source{
			ChunkID:    r.Chunk.ID,
			DocumentID: r.Chunk.SourceDocumentID,
			Text:       r.Chunk.Text,
			Similarity: r.Similarity,
			Metadata:   r.Chunk.Metadata,
		}
	}
	answer.Sources = previewSources(full, s.cfg.PreviewRunes)

	if s.composer == nil {
		return answer, fmt.Errorf("ask: %w: no answer composer configured", domain.ErrAnswerUnavailable)
	}

	text, err := s.composer.Compose(ctx, question, full)
	if err != nil {
		logger.Warn("Answer composition failed: %v", err)
		return answer, fmt.Errorf("ask: %w: %w", domain.ErrAnswerUnavailable, err)
	}
	answer.Text = text
	return answer, nil
}

// History returns the most recent questions, newest first.
func (s *AskService) History(ctx context.Context, limit int) ([]domain.QueryRecord, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.Recent(ctx, limit)
}

// Summary aggregates the query history.
func (s *AskService) Summary(ctx context.Context) (domain.QuerySummary, error) {
	if s.history == nil {
		return domain.QuerySummary{}, nil
	}
	return s.history.Summary(ctx)
}

func (s *AskService) record(ctx context.Context, record domain.QueryRecord) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, record); err != nil {
		logger.Warn("Failed to record query: %v", err)
	}
}

// previewSources copies sources with their text cut to limit runes.
func previewSources(sources []domain.Source, limit int) []domain.Source {
	out := make([]domain.Source, len(sources))
	for i, src := range sources {
		src.Text = Truncate(src.Text, limit)
		out[i] = src
	}
	return out
}

// Truncate cuts s to limit runes and appends "..." when anything was cut.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
