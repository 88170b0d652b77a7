package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// newAskFixture returns a store holding "alpha" (aligned with "question")
// and "gamma" (orthogonal to it).
func newAskFixture(t *testing.T) (*testStore, *stubComposer, *memory.QueryLog, *AskService) {
	t.Helper()
	s := newTestStore(t)
	ctx := context.Background()

	s.embedder.vectors["alpha"] = []float32{1, 0, 0, 0}
	s.embedder.vectors["gamma"] = []float32{0, 0, 1, 0}
	s.embedder.vectors["question"] = []float32{1, 0, 0, 0}
	s.embedder.vectors["sideways"] = []float32{0.1, 1, 0, 0}

	_, err := s.Ingest(ctx, "alpha", "doc-a", map[string]any{"page": 4})
	require.NoError(t, err)
	_, err = s.Ingest(ctx, "gamma", "doc-g", nil)
	require.NoError(t, err)

	composer := &stubComposer{answer: "composed answer"}
	log := memory.NewQueryLog()
	return s, composer, log, NewAskService(s, composer, log, AskConfig{TopK: 3})
}

func TestAskService_Answers(t *testing.T) {
	_, composer, log, ask := newAskFixture(t)
	ctx := context.Background()

	answer, err := ask.Ask(ctx, "  question ", domain.QueryOptions{Threshold: 0.9})
	require.NoError(t, err)
	assert.Equal(t, "question", answer.Query)
	assert.Equal(t, "composed answer", answer.Text)
	assert.False(t, answer.Relaxed)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "doc-a", answer.Sources[0].DocumentID)
	assert.Equal(t, 4, answer.Sources[0].Metadata["page"])

	assert.Equal(t, "question", composer.question)
	require.Len(t, composer.sources, 1)

	history, err := ask.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)
	assert.Equal(t, 1, history[0].Results)
	assert.Equal(t, "question", history[0].Question)

	summary, err := log.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
}

func TestAskService_FallsBackToZeroThreshold(t *testing.T) {
	_, _, _, ask := newAskFixture(t)

	answer, err := ask.Ask(context.Background(), "sideways", domain.QueryOptions{TopK: 1, Threshold: 0.9})
	require.NoError(t, err)
	assert.True(t, answer.Relaxed)
	require.Len(t, answer.Sources, 2, "fallback doubles top k")
	assert.Equal(t, "alpha", answer.Sources[0].Text)
}

func TestAskService_NoResultsAfterFallback(t *testing.T) {
	s, composer, _, ask := newAskFixture(t)
	s.embedder.vectors["opposite"] = []float32{-1, 0, -1, 0}

	answer, err := ask.Ask(context.Background(), "opposite", domain.QueryOptions{Threshold: 0.5})
	require.NoError(t, err)
	assert.Equal(t, NoResultsAnswer, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.True(t, answer.Relaxed)
	assert.Empty(t, composer.question, "composer not called")
}

func TestAskService_EmptyStore(t *testing.T) {
	s := newTestStore(t)
	log := memory.NewQueryLog()
	ask := NewAskService(s, &stubComposer{}, log, AskConfig{})

	answer, err := ask.Ask(context.Background(), "anything", domain.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, EmptyStoreAnswer, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, 0, s.embedder.callCount())

	history, err := log.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
}

func TestAskService_EmptyQuestion(t *testing.T) {
	_, _, log, ask := newAskFixture(t)

	_, err := ask.Ask(context.Background(), "   ", domain.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	history, err := log.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAskService_ComposerFailureKeepsSources(t *testing.T) {
	_, composer, log, ask := newAskFixture(t)
	composer.err = errors.New("rate limited")

	answer, err := ask.Ask(context.Background(), "question", domain.QueryOptions{Threshold: 0.9})
	assert.ErrorIs(t, err, domain.ErrAnswerUnavailable)
	require.NotNil(t, answer)
	assert.Len(t, answer.Sources, 1)
	assert.Empty(t, answer.Text)

	history, err := log.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
	assert.Contains(t, history[0].Error, "rate limited")
}

func TestAskService_NoComposer(t *testing.T) {
	s, _, _, _ := newAskFixture(t)
	ask := NewAskService(s, nil, nil, AskConfig{})

	answer, err := ask.Ask(context.Background(), "question", domain.QueryOptions{Threshold: 0.9})
	assert.ErrorIs(t, err, domain.ErrAnswerUnavailable)
	require.NotNil(t, answer)
	assert.Len(t, answer.Sources, 1)

	history, err := ask.History(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, history)
}

func TestAskService_TruncatesSourcePreview(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	long := strings.Repeat("é", 250)
	_, err := s.Ingest(ctx, long, "doc", nil)
	require.NoError(t, err)

	composer := &stubComposer{answer: "ok"}
	ask := NewAskService(s, composer, nil, AskConfig{})

	answer, err := ask.Ask(ctx, long, domain.QueryOptions{Threshold: 0})
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, strings.Repeat("é", 200)+"...", answer.Sources[0].Text)
	assert.Equal(t, long, composer.sources[0].Text, "composer sees full text")
}

func TestAskService_QueryLogFailureIsNotReturned(t *testing.T) {
	s, composer, _, _ := newAskFixture(t)
	ask := NewAskService(s, composer, failingQueryLog{}, AskConfig{})

	_, err := ask.Ask(context.Background(), "question", domain.QueryOptions{Threshold: 0.9})
	assert.NoError(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab...", Truncate("abc", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
	assert.Equal(t, "日本...", Truncate("日本語", 2))
}
