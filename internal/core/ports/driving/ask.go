package driving

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// AskService answers questions from the retrieval store.
type AskService interface {
	// Ask retrieves sources for the question and composes an answer.
	Ask(ctx context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error)

	// History returns the most recent questions.
	History(ctx context.Context, limit int) ([]domain.QueryRecord, error)

	// Summary aggregates the query history.
	Summary(ctx context.Context) (domain.QuerySummary, error)
}
