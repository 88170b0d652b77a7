package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "", "ask")

	require.Error(t, err)
}

func TestAskCmd_PrintsAnswer(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "ask", "when", "is", "the", "launch?")

	require.NoError(t, err)
	assert.Contains(t, out, "answer to when is the launch?")
	assert.NotContains(t, out, "Sources:")
}

func TestAskCmd_PrintsSources(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ask.AskFunc = func(_ context.Context, q string, _ domain.QueryOptions) (*domain.Answer, error) {
		return &domain.Answer{
			Query: q,
			Text:  "In March.",
			Sources: []domain.Source{
				{DocumentID: "doc-1", Text: "The launch\nmoved  to March.", Similarity: 0.82,
					Metadata: map[string]any{"title": "Roadmap", "page": 2}},
				{DocumentID: "doc-2", Text: "Unrelated.", Similarity: 0.41},
			},
		}, nil
	}

	out, err := execute(t, "", "ask", "launch?")

	require.NoError(t, err)
	assert.Contains(t, out, "In March.")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] Roadmap, page 2 (relevance: 0.82)")
	assert.Contains(t, out, "The launch moved to March.")
	assert.Contains(t, out, "[2] doc-2 (relevance: 0.41)")
}

func TestAskCmd_RelaxedNote(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ask.AskFunc = func(_ context.Context, q string, _ domain.QueryOptions) (*domain.Answer, error) {
		return &domain.Answer{Query: q, Text: "Maybe.", Relaxed: true,
			Sources: []domain.Source{{DocumentID: "doc-1", Text: "weak", Similarity: 0.1}}}, nil
	}

	out, err := execute(t, "", "ask", "anything?")

	require.NoError(t, err)
	assert.Contains(t, out, "Note: no chunk passed the similarity threshold")
}

func TestAskCmd_AnswerUnavailable(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ask.AskFunc = func(_ context.Context, q string, _ domain.QueryOptions) (*domain.Answer, error) {
		answer := &domain.Answer{Query: q,
			Sources: []domain.Source{{DocumentID: "doc-1", Text: "context", Similarity: 0.9}}}
		return answer, fmt.Errorf("%w: model timed out", domain.ErrAnswerUnavailable)
	}

	out, err := execute(t, "", "ask", "launch?")

	require.NoError(t, err)
	assert.Contains(t, out, "Answer unavailable")
	assert.Contains(t, out, "[1] doc-1 (relevance: 0.90)")
}

func TestAskCmd_Error(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ask.AskFunc = func(context.Context, string, domain.QueryOptions) (*domain.Answer, error) {
		return nil, errors.New("store faulted")
	}

	_, err := execute(t, "", "ask", "launch?")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ask failed")
}

func TestAskCmd_Options(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	var got domain.QueryOptions
	ts.ask.AskFunc = func(_ context.Context, q string, opts domain.QueryOptions) (*domain.Answer, error) {
		got = opts
		return &domain.Answer{Query: q}, nil
	}

	_, err := execute(t, "", "ask", "--top-k", "3", "--threshold", "0.5", "launch?")
	require.NoError(t, err)
	assert.Equal(t, domain.QueryOptions{TopK: 3, Threshold: 0.5}, got)

	_, err = execute(t, "", "ask", "launch?")
	require.NoError(t, err)
	assert.Equal(t, domain.QueryOptions{TopK: domain.DefaultTopK, Threshold: domain.DefaultThreshold}, got)
}

func TestQueryOptions(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	queryDefaults = domain.QueryOptions{TopK: 7, Threshold: 0.3}

	tests := []struct {
		name      string
		topK      int
		threshold float64
		want      domain.QueryOptions
	}{
		{"defaults", 0, -1, domain.QueryOptions{TopK: 7, Threshold: 0.3}},
		{"top k", 2, -1, domain.QueryOptions{TopK: 2, Threshold: 0.3}},
		{"zero threshold", 0, 0, domain.QueryOptions{TopK: 7, Threshold: 0}},
		{"both", 4, 0.8, domain.QueryOptions{TopK: 4, Threshold: 0.8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, queryOptions(tt.topK, tt.threshold))
		})
	}
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "doc-1", sourceLabel("doc-1", nil))
	assert.Equal(t, "Guide", sourceLabel("doc-1", map[string]any{"title": "Guide"}))
	assert.Equal(t, "doc-1, page 3", sourceLabel("doc-1", map[string]any{"page": 3}))
	assert.Equal(t, "doc-1", sourceLabel("doc-1", map[string]any{"title": ""}))
}
