package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with environment overrides applied.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single setting by its config key.
	Set(key, value string) error

	// Keys lists every settable key in display order.
	Keys() []string

	// IsSecret reports whether the key holds a credential.
	IsSecret(key string) bool

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the answer composer provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks the current settings.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Export writes the settings as YAML. Credentials are omitted.
	Export(w io.Writer) error

	// Import reads YAML settings, validates them and saves them.
	Import(r io.Reader) error

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig(ctx context.Context) error

	// ValidateLLMConfig pings the configured answer composer.
	ValidateLLMConfig(ctx context.Context) error
}
