// Package openai provides an answer composer using the OpenAI chat API
// or any OpenAI-compatible endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/ragstore/internal/adapters/driven/llm"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Ensure Composer implements the interface.
var _ driven.AnswerComposer = (*Composer)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "gpt-4o-mini"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024
)

// Config holds configuration for the OpenAI composer.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// MaxTokens bounds the answer length (default: 1024).
	MaxTokens int
}

// Composer answers questions with an OpenAI chat completion.
type Composer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	promptStore driven.PromptStore
}

// NewComposer creates a new OpenAI composer.
func NewComposer(cfg Config) (*Composer, error) {
	if cfg.APIKey == "" {
		return nil, &domain.ConfigurationError{
			Provider: "openai",
			Reason:   "API key is required. Set OPENAI_API_KEY or run 'ragstore settings set llm.api_key'",
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Composer{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Compose answers the question using only the given sources.
func (c *Composer) Compose(ctx context.Context, question string, sources []domain.Source) (string, error) {
	prompt := llm.Build(c.promptStore, question, sources)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
	})
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai: empty answer")
	}
	return text, nil
}

// ModelName returns the name of the chat model being used.
func (c *Composer) ModelName() string {
	return c.model
}

// SetPromptStore sets the store for customisable prompts.
// If not set, the composer uses the built-in prompts.
func (c *Composer) SetPromptStore(store driven.PromptStore) {
	c.promptStore = store
}

// Ping validates the service is reachable by listing models.
// This is a lightweight check that validates the API key without running inference.
func (c *Composer) Ping(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", mapError(err))
	}
	return nil
}

// Close releases resources.
func (c *Composer) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// mapError turns rejected credentials into a configuration error.
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusUnauthorized {
		return &domain.ConfigurationError{Provider: "openai", Reason: "API key rejected: " + apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusUnauthorized {
		return &domain.ConfigurationError{Provider: "openai", Reason: "API key rejected"}
	}
	return fmt.Errorf("openai: %w", err)
}
