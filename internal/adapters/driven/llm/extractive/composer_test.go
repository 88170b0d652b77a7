package extractive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func TestCompose(t *testing.T) {
	c := NewComposer(2)
	sources := []domain.Source{
		{DocumentID: "report.pdf", Text: "Revenue grew 12%.", Similarity: 0.91,
			Metadata: map[string]any{"title": "Annual Report", "page": 4}},
		{DocumentID: "blank", Text: "  ", Similarity: 0.9},
		{DocumentID: "notes", Text: "Costs fell.", Similarity: 0.62},
		{DocumentID: "extra", Text: "Not quoted.", Similarity: 0.4},
	}

	answer, err := c.Compose(context.Background(), "How did we do?", sources)

	require.NoError(t, err)
	want := "The most relevant passages from your documents:\n" +
		"\n[1] Annual Report, page 4 (relevance: 0.91)\nRevenue grew 12%.\n" +
		"\n[2] notes (relevance: 0.62)\nCosts fell."
	assert.Equal(t, want, answer)
}

func TestCompose_NoText(t *testing.T) {
	_, err := NewComposer(0).Compose(context.Background(), "q", []domain.Source{{Text: ""}})

	assert.Error(t, err)
}

func TestCompose_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewComposer(0).Compose(ctx, "q", []domain.Source{{Text: "x"}})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestComposer_Metadata(t *testing.T) {
	c := NewComposer(0)

	assert.Equal(t, DefaultMaxPassages, c.maxPassages)
	assert.Equal(t, "extractive", c.ModelName())
	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}
