package driven

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// AnswerComposer produces a natural-language answer from retrieved sources.
//
// Implementations include:
//   - OpenAI (GPT-4o, GPT-4o-mini)
//   - Anthropic (Claude)
//   - Ollama (local models)
//   - Extractive (returns the best passages, no model)
type AnswerComposer interface {
	// Compose answers the question using only the given sources.
	Compose(ctx context.Context, question string, sources []domain.Source) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
