package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrNotImplemented", ErrNotImplemented},
		{"ErrUnsupportedFormat", ErrUnsupportedFormat},
		{"ErrFileTooLarge", ErrFileTooLarge},
		{"ErrConfiguration", ErrConfiguration},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrEmbeddingProvider", ErrEmbeddingProvider},
		{"ErrEmbeddingFailed", ErrEmbeddingFailed},
		{"ErrIntegrity", ErrIntegrity},
		{"ErrInvalidChunkConfig", ErrInvalidChunkConfig},
		{"ErrPersistence", ErrPersistence},
		{"ErrAnswerUnavailable", ErrAnswerUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestConfigurationError(t *testing.T) {
	err := fmt.Errorf("embed: %w", &ConfigurationError{Provider: "openai", Reason: "API key is required"})

	assert.ErrorIs(t, err, ErrConfiguration)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "openai", cfgErr.Provider)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestDimensionMismatchError(t *testing.T) {
	err := &DimensionMismatchError{Expected: 768, Got: 1536}

	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, "dimension mismatch: expected 768, got 1536", err.Error())
}

func TestEmbeddingProviderError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &EmbeddingProviderError{Provider: "ollama", Message: "request failed", Err: cause}

	assert.ErrorIs(t, err, ErrEmbeddingProvider)
	assert.ErrorIs(t, err, cause)
	assert.False(t, errors.Is(err, ErrConfiguration))
}

func TestEmbeddingProviderError_NoCause(t *testing.T) {
	err := &EmbeddingProviderError{Provider: "openai", Message: "returned 2 embeddings for 3 inputs"}

	assert.ErrorIs(t, err, ErrEmbeddingProvider)
	assert.Contains(t, err.Error(), "returned 2 embeddings for 3 inputs")
}

func TestIntegrityError(t *testing.T) {
	err := fmt.Errorf("ingest: %w", &IntegrityError{Op: "load", Chunks: 3, Vectors: 5})

	assert.ErrorIs(t, err, ErrIntegrity)
	var intErr *IntegrityError
	require.ErrorAs(t, err, &intErr)
	assert.Equal(t, 3, intErr.Chunks)
	assert.Equal(t, 5, intErr.Vectors)
	assert.Contains(t, err.Error(), "reset required")
}

func TestIntegrityError_WrapsCause(t *testing.T) {
	cause := errors.New("corrupt index artifact: checksum mismatch")
	err := &IntegrityError{Op: "load", Chunks: 4, Err: cause}

	assert.ErrorIs(t, err, ErrIntegrity)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "checksum mismatch")
	assert.Contains(t, err.Error(), "reset required")
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "overlap", Reason: "must be less than chunk size"}

	assert.ErrorIs(t, err, ErrInvalidChunkConfig)
	assert.Equal(t, "invalid chunk configuration: overlap must be less than chunk size", err.Error())
}
