package services

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Environment variables that override stored credentials and paths.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvEmbeddingAPIKey = "RAGSTORE_EMBEDDING_API_KEY"
	EnvLLMAPIKey       = "RAGSTORE_LLM_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvPostgresDSN     = "RAGSTORE_POSTGRES_DSN"
)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedTimeout   = "embedding.timeout"
	keyEmbedBatchSize = "embedding.batch_size"
	keyEmbedRetries   = "embedding.retries"
	keyEmbedRPS       = "embedding.requests_per_second"
	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyChunkSize      = "chunker.chunk_size"
	keyChunkOverlap   = "chunker.overlap"
	keyChunkMinRunes  = "chunker.min_runes"
	keyTopK           = "retrieval.top_k"
	keyThreshold      = "retrieval.threshold"
	keyPreviewRunes   = "retrieval.source_preview_runes"
	keyBackend        = "storage.backend"
	keyDataDir        = "storage.data_dir"
	keyPostgresDSN    = "storage.postgres_dsn"
	keyMaxFileSizeMB  = "ingest.max_file_size_mb"
)

// setting binds a config key to a field of AppSettings.
type setting struct {
	key    string
	secret bool
	get    func(*domain.AppSettings) any
	set    func(*domain.AppSettings, string) error
}

// settingFields lists every key in display order.
var settingFields = []setting{
	{key: keyEmbedProvider,
		get: func(s *domain.AppSettings) any { return s.Embedding.Provider.String() },
		set: func(s *domain.AppSettings, v string) error { return parseProvider(v, &s.Embedding.Provider) }},
	{key: keyEmbedModel,
		get: func(s *domain.AppSettings) any { return s.Embedding.Model },
		set: func(s *domain.AppSettings, v string) error { s.Embedding.Model = v; return nil }},
	{key: keyEmbedBaseURL,
		get: func(s *domain.AppSettings) any { return s.Embedding.BaseURL },
		set: func(s *domain.AppSettings, v string) error { s.Embedding.BaseURL = v; return nil }},
	{key: keyEmbedAPIKey, secret: true,
		get: func(s *domain.AppSettings) any { return s.Embedding.APIKey },
		set: func(s *domain.AppSettings, v string) error { s.Embedding.APIKey = v; return nil }},
	{key: keyEmbedTimeout,
		get: func(s *domain.AppSettings) any { return s.Embedding.Timeout.String() },
		set: func(s *domain.AppSettings, v string) error { return parseDuration(v, &s.Embedding.Timeout) }},
	{key: keyEmbedBatchSize,
		get: func(s *domain.AppSettings) any { return s.Embedding.BatchSize },
		set: func(s *domain.AppSettings, v string) error { return parseInt(v, &s.Embedding.BatchSize) }},
	{key: keyEmbedRetries,
		get: func(s *domain.AppSettings) any { return s.Embedding.Retries },
		set: func(s *domain.AppSettings, v string) error { return parseInt(v, &s.Embedding.Retries) }},
	{key: keyEmbedRPS,
		get: func(s *domain.AppSettings) any { return s.Embedding.RequestsPerSecond },
		set: func(s *domain.AppSettings, v string) error { return parseFloat(v, &s.Embedding.RequestsPerSecond) }},
	{key: keyLLMProvider,
		get: func(s *domain.AppSettings) any { return s.LLM.Provider.String() },
		set: func(s *domain.AppSettings, v string) error { return parseProvider(v, &s.LLM.Provider) }},
	{key: keyLLMModel,
		get: func(s *domain.AppSettings) any { return s.LLM.Model },
		set: func(s *domain.AppSettings, v string) error { s.LLM.Model = v; return nil }},
	{key: keyLLMBaseURL,
		get: func(s *domain.AppSettings) any { return s.LLM.BaseURL },
		set: func(s *domain.AppSettings, v string) error { s.LLM.BaseURL = v; return nil }},
	{key: keyLLMAPIKey, secret: true,
		get: func(s *domain.AppSettings) any { return s.LLM.APIKey },
		set: func(s *domain.AppSettings, v string) error { s.LLM.APIKey = v; return nil }},
	{key: keyChunkSize,
		get: func(s *domain.AppSettings) any { return s.Chunker.ChunkSize },
		set: func(s *domain.AppSettings, v string) error { return parseInt(v, &s.Chunker.ChunkSize) }},
	{key: keyChunkOverlap,
		get: func(s *domain.AppSettings) any { return s.Chunker.Overlap },
		set: func(s *domain.AppSettings, v string) error { return parseInt(v, &s.Chunker.Overlap) }},
	{key: keyChunkMinRunes,
		get: func(s *domain.AppSettings) any { return s.Chunker.MinRunes },
		set: func(s *domain.AppSettings, v string) error { return parseInt(v, &s.Chunker.MinRunes) }},
	{key: keyTopK,
		get: func(s *domain.AppSettings) any { return s.Retrieval.TopK },
		set: func(s *domain.AppSettings, v string) error { return parseInt(v, &s.Retrieval.TopK) }},
	{key: keyThreshold,
		get: func(s *domain.AppSettings) any { return s.Retrieval.Threshold },
		set: func(s *domain.AppSettings, v string) error { return parseFloat(v, &s.Retrieval.Threshold) }},
	{key: keyPreviewRunes,
		get: func(s *domain.AppSettings) any { return s.Retrieval.SourcePreviewRunes },
		set: func(s *domain.AppSettings, v string) error { return parseInt(v, &s.Retrieval.SourcePreviewRunes) }},
	{key: keyBackend,
		get: func(s *domain.AppSettings) any { return s.Storage.Backend.String() },
		set: func(s *domain.AppSettings, v string) error { return parseBackend(v, &s.Storage.Backend) }},
	{key: keyDataDir,
		get: func(s *domain.AppSettings) any { return s.Storage.DataDir },
		set: func(s *domain.AppSettings, v string) error { s.Storage.DataDir = v; return nil }},
	{key: keyPostgresDSN, secret: true,
		get: func(s *domain.AppSettings) any { return s.Storage.PostgresDSN },
		set: func(s *domain.AppSettings, v string) error { s.Storage.PostgresDSN = v; return nil }},
	{key: keyMaxFileSizeMB,
		get: func(s *domain.AppSettings) any { return s.Ingest.MaxFileSizeMB },
		set: func(s *domain.AppSettings, v string) error { return parseInt(v, &s.Ingest.MaxFileSizeMB) }},
}

func lookupSetting(key string) (setting, bool) {
	for _, s := range settingFields {
		if s.key == key {
			return s, true
		}
	}
	return setting{}, false
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
// The aiValidator parameter is optional (can be nil).
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// SetEnvLookup replaces the environment lookup used for overrides.
func (s *SettingsService) SetEnvLookup(lookup func(string) (string, bool)) {
	s.lookupEnv = lookup
}

// Get retrieves current application settings.
// Stored values that fail to parse are ignored in favour of the default.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	out := s.stored()
	s.applyEnv(out)
	return out, nil
}

// stored reads settings from the config store without environment overrides.
func (s *SettingsService) stored() *domain.AppSettings {
	out := domain.DefaultAppSettings()
	for _, field := range settingFields {
		val, ok := s.configStore.Get(field.key)
		if !ok {
			continue
		}
		str := strings.TrimSpace(fmt.Sprint(val))
		if str == "" {
			continue
		}
		_ = field.set(&out, str)
	}
	return &out
}

// applyEnv overlays credentials from the environment. Provider-specific
// variables only fill keys that are still empty.
func (s *SettingsService) applyEnv(out *domain.AppSettings) {
	if v, ok := s.env(EnvEmbeddingAPIKey); ok {
		out.Embedding.APIKey = v
	}
	if v, ok := s.env(EnvLLMAPIKey); ok {
		out.LLM.APIKey = v
	}
	if v, ok := s.env(EnvPostgresDSN); ok {
		out.Storage.PostgresDSN = v
	}

	if v, ok := s.env(EnvOpenAIAPIKey); ok {
		if out.Embedding.APIKey == "" && out.Embedding.Provider == domain.AIProviderOpenAI {
			out.Embedding.APIKey = v
		}
		if out.LLM.APIKey == "" && out.LLM.Provider == domain.AIProviderOpenAI {
			out.LLM.APIKey = v
		}
	}
	if v, ok := s.env(EnvAnthropicAPIKey); ok {
		if out.LLM.APIKey == "" && out.LLM.Provider == domain.AIProviderAnthropic {
			out.LLM.APIKey = v
		}
	}
}

func (s *SettingsService) env(name string) (string, bool) {
	if s.lookupEnv == nil {
		return "", false
	}
	v, ok := s.lookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Save persists application settings.
// Empty credentials are not written, so a saved key is never cleared by accident.
func (s *SettingsService) Save(in *domain.AppSettings) error {
	for _, field := range settingFields {
		val := field.get(in)
		if field.secret && val == "" {
			continue
		}
		if err := s.configStore.Set(field.key, val); err != nil {
			return fmt.Errorf("save %s: %w", field.key, err)
		}
	}
	return nil
}

// Set updates a single setting by its config key.
// The whole configuration is validated before anything is written.
func (s *SettingsService) Set(key, value string) error {
	field, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	current := s.stored()
	if err := field.set(current, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	check := *current
	s.applyEnv(&check)
	if err := check.Validate(); err != nil {
		return err
	}

	if field.secret && value == "" {
		return s.configStore.Delete(key)
	}
	return s.configStore.Set(key, field.get(current))
}

// Keys lists every settable key in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingFields))
	for i, field := range settingFields {
		keys[i] = field.key
	}
	return keys
}

// IsSecret reports whether the key holds a credential.
func (s *SettingsService) IsSecret(key string) bool {
	field, ok := lookupSetting(key)
	return ok && field.secret
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if !contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	current := s.stored()
	current.Embedding.Provider = provider
	current.Embedding.Model = model
	if model == "" {
		current.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	current.Embedding.BaseURL = defaultBaseURL(provider, current.Embedding.BaseURL)
	current.Embedding.APIKey = apiKey

	return s.Save(current)
}

// SetLLMProvider configures the answer composer provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}
	if !contains(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("%w: provider %s cannot compose answers", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	current := s.stored()
	current.LLM.Provider = provider
	current.LLM.Model = model
	if model == "" {
		current.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	current.LLM.BaseURL = defaultBaseURL(provider, current.LLM.BaseURL)
	current.LLM.APIKey = apiKey

	return s.Save(current)
}

// defaultBaseURL keeps a custom Ollama URL and clears it for cloud providers.
func defaultBaseURL(provider domain.AIProvider, current string) string {
	switch provider {
	case domain.AIProviderOllama:
		if current == "" {
			return "http://localhost:11434"
		}
		return current
	default:
		return ""
	}
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	current, err := s.Get()
	if err != nil {
		return err
	}
	return current.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	current, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(ctx, &current.Embedding)
}

// ValidateLLMConfig pings the configured answer composer.
func (s *SettingsService) ValidateLLMConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	current, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(ctx, &current.LLM)
}

func contains(providers []domain.AIProvider, p domain.AIProvider) bool {
	for _, candidate := range providers {
		if candidate == p {
			return true
		}
	}
	return false
}

func parseProvider(v string, dst *domain.AIProvider) error {
	p := domain.AIProvider(strings.ToLower(v))
	if !p.IsValid() {
		return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, v)
	}
	*dst = p
	return nil
}

func parseBackend(v string, dst *domain.StorageBackend) error {
	b := domain.StorageBackend(strings.ToLower(v))
	if !b.IsValid() {
		return fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, v)
	}
	*dst = b
	return nil
}

func parseInt(v string, dst *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidInput, v)
	}
	*dst = n
	return nil
}

func parseFloat(v string, dst *float64) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", domain.ErrInvalidInput, v)
	}
	*dst = f
	return nil
}

func parseDuration(v string, dst *time.Duration) error {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fmt.Errorf("%w: %q is not a positive duration", domain.ErrInvalidInput, v)
	}
	*dst = d
	return nil
}
