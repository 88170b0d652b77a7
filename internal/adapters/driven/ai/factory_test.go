package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.EmbeddingSettings
		wantModel string
		wantDims  int
		wantErr   error
	}{
		{
			name:    "nil settings",
			wantErr: domain.ErrConfiguration,
		},
		{
			name:      "hash",
			settings:  &domain.EmbeddingSettings{Provider: domain.AIProviderHash, Model: "hash-256"},
			wantModel: "hash-256",
			wantDims:  256,
		},
		{
			name:      "ollama",
			settings:  &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
			wantModel: "nomic-embed-text",
			wantDims:  768,
		},
		{
			name: "openai",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI, Model: "text-embedding-3-small", APIKey: "sk-test",
			},
			wantModel: "text-embedding-3-small",
			wantDims:  1536,
		},
		{
			name:     "openai without key",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantErr:  domain.ErrConfiguration,
		},
		{
			name:     "anthropic has no embeddings",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "sk-ant"},
			wantErr:  domain.ErrConfiguration,
		},
		{
			name:     "unknown provider",
			settings: &domain.EmbeddingSettings{Provider: "word2vec"},
			wantErr:  domain.ErrConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, svc.ModelName())
			assert.Equal(t, tt.wantDims, svc.Dimensions())
		})
	}
}

func TestCreateEmbeddingService_RateLimited(t *testing.T) {
	settings := &domain.EmbeddingSettings{Provider: domain.AIProviderHash, Model: "hash-256", RequestsPerSecond: 4}

	svc, err := CreateEmbeddingService(settings)

	require.NoError(t, err)
	assert.IsType(t, &ratelimit.EmbeddingService{}, svc)
	vec, err := svc.Embed(context.Background(), "rate limited")
	require.NoError(t, err)
	assert.Len(t, vec, 256)
}

func TestCreateComposer(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.LLMSettings
		wantModel string
		wantErr   error
	}{
		{"nil settings", nil, "", domain.ErrConfiguration},
		{"extractive", &domain.LLMSettings{Provider: domain.AIProviderExtractive}, "extractive", nil},
		{"ollama", &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"}, "llama3.2", nil},
		{"openai", &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk"}, "gpt-4o-mini", nil},
		{"anthropic", &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "sk"}, "claude-3-5-sonnet-latest", nil},
		{"anthropic without key", &domain.LLMSettings{Provider: domain.AIProviderAnthropic}, "", domain.ErrConfiguration},
		{"hash cannot answer", &domain.LLMSettings{Provider: domain.AIProviderHash}, "", domain.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			composer, err := CreateComposer(tt.settings, nil)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, composer)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, composer.ModelName())
		})
	}
}

type fixedPrompts map[string]string

func (p fixedPrompts) Load(name string) (string, error) {
	if v, ok := p[name]; ok {
		return v, nil
	}
	return "", errors.New("missing")
}

func TestCreateComposer_UsesPromptStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)
		assert.Equal(t, "Reply in French.", req.Messages[0].Content)
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Oui."},"done":true}`))
	}))
	defer srv.Close()

	prompts := fixedPrompts{driven.PromptAnswerSystem: "Reply in French."}
	composer, err := CreateComposer(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}, prompts)
	require.NoError(t, err)

	answer, err := composer.Compose(context.Background(), "Yes?", []domain.Source{{Text: "yes", Similarity: 1}})

	require.NoError(t, err)
	assert.Equal(t, "Oui.", answer)
}

func TestValidateEmbeddingConfig(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	ctx := context.Background()
	assert.NoError(t, ValidateEmbeddingConfig(ctx, &domain.EmbeddingSettings{Provider: domain.AIProviderHash}))
	assert.NoError(t, ValidateEmbeddingConfig(ctx, &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: up.URL}))

	err := ValidateEmbeddingConfig(ctx, &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: down.URL})
	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)

	err = ValidateEmbeddingConfig(ctx, &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestValidateLLMConfig(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	ctx := context.Background()
	assert.NoError(t, ValidateLLMConfig(ctx, &domain.LLMSettings{Provider: domain.AIProviderExtractive}))

	err := ValidateLLMConfig(ctx, &domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: down.URL})
	assert.ErrorIs(t, err, domain.ErrAnswerUnavailable)
}
