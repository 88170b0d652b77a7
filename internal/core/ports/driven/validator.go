package driven

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// AIConfigValidator checks provider settings by building a client and
// pinging the provider.
type AIConfigValidator interface {
	// ValidateEmbedding pings the configured embedding provider.
	ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error

	// ValidateLLM pings the configured answer composer.
	ValidateLLM(ctx context.Context, settings *domain.LLMSettings) error
}
