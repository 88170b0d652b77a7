// Package ai provides factory functions for creating embedding and answer
// composer adapters from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	hashembed "github.com/custodia-labs/ragstore/internal/adapters/driven/embedding/hash"
	ollamaembed "github.com/custodia-labs/ragstore/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/ragstore/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/embedding/ratelimit"
	anthropicllm "github.com/custodia-labs/ragstore/internal/adapters/driven/llm/anthropic"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/llm/extractive"
	ollamallm "github.com/custodia-labs/ragstore/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/ragstore/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// promptSetter is implemented by composers that accept custom prompts.
type promptSetter interface {
	SetPromptStore(store driven.PromptStore)
}

// CreateEmbeddingService creates the embedding service selected by settings,
// wrapped in a rate limiter when settings.RequestsPerSecond is positive.
//
// An unconfigured provider returns a *domain.ConfigurationError so callers can
// build an unconfigured embedding client that reports it on first use.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, &domain.ConfigurationError{Provider: "none", Reason: "no embedding settings"}
	}
	if !settings.IsConfigured() {
		return nil, notConfigured(settings.Provider, settings.Provider.RequiresAPIKey() && settings.APIKey == "")
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderHash:
		svc = hashembed.NewEmbeddingService(domain.EmbeddingDimensions()[settings.Model])

	case domain.AIProviderOllama:
		svc = ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Timeout:    settings.Timeout,
			Dimensions: domain.EmbeddingDimensions()[settings.Model],
		})

	case domain.AIProviderOpenAI:
		svc, err = openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})
		if err != nil {
			return nil, err
		}

	default:
		return nil, &domain.ConfigurationError{
			Provider: settings.Provider.String(),
			Reason:   "does not provide embeddings, use hash, ollama or openai",
		}
	}

	return ratelimit.New(svc, settings.RequestsPerSecond), nil
}

// CreateComposer creates the answer composer selected by settings.
// The prompt store is optional (can be nil).
func CreateComposer(settings *domain.LLMSettings, prompts driven.PromptStore) (driven.AnswerComposer, error) {
	if settings == nil {
		return nil, &domain.ConfigurationError{Provider: "none", Reason: "no llm settings"}
	}
	if !settings.IsConfigured() {
		return nil, notConfigured(settings.Provider, settings.Provider.RequiresAPIKey() && settings.APIKey == "")
	}

	var (
		composer driven.AnswerComposer
		err      error
	)
	switch settings.Provider {
	case domain.AIProviderExtractive:
		return extractive.NewComposer(0), nil

	case domain.AIProviderOllama:
		composer = ollamallm.NewComposer(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOpenAI:
		composer, err = openaillm.NewComposer(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		composer, err = anthropicllm.NewComposer(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, &domain.ConfigurationError{
			Provider: settings.Provider.String(),
			Reason:   "cannot compose answers",
		}
	}
	if err != nil {
		return nil, err
	}

	if setter, ok := composer.(promptSetter); ok && prompts != nil {
		setter.SetPromptStore(prompts)
	}
	return composer, nil
}

// ValidateEmbeddingConfig creates the configured embedding service and pings it.
// This is intended for the settings commands to check credentials on configuration.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s unreachable: %w", domain.ErrEmbeddingProvider, settings.Provider, err)
	}
	return nil
}

// ValidateLLMConfig creates the configured composer and pings it.
func ValidateLLMConfig(ctx context.Context, settings *domain.LLMSettings) error {
	composer, err := CreateComposer(settings, nil)
	if err != nil {
		return err
	}
	defer composer.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := composer.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s unreachable: %w", domain.ErrAnswerUnavailable, settings.Provider, err)
	}
	return nil
}

func notConfigured(provider domain.AIProvider, missingKey bool) error {
	if missingKey {
		return &domain.ConfigurationError{
			Provider: provider.String(),
			Reason:   "API key is required. Run 'ragstore settings set' to add one",
		}
	}
	return &domain.ConfigurationError{
		Provider: provider.String(),
		Reason:   "provider is not usable here. Run 'ragstore settings show' to check it",
	}
}
