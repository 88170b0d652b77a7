package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested chunk position or document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedFormat indicates no normaliser can extract text from a file.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrFileTooLarge indicates an ingested file exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// Embedding Errors.

	// ErrConfiguration indicates the embedding provider credential is missing or invalid.
	// Nothing can be embedded until the configuration is fixed.
	ErrConfiguration = errors.New("embedding provider not configured")

	// ErrDimensionMismatch indicates a vector does not have the expected dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrEmbeddingProvider indicates a network or provider-side failure.
	// Retrying the whole operation is safe.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrEmbeddingFailed indicates an ingest was aborted because its batch could not be embedded.
	// The store is left exactly as it was before the call.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// Store Errors.

	// ErrIntegrity indicates the chunk store and vector index are out of sync.
	// Writes are refused until the store is reset.
	ErrIntegrity = errors.New("integrity violation")

	// ErrInvalidChunkConfig indicates chunk size and overlap cannot produce segments.
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrPersistence indicates the store state could not be written to or read from disk.
	ErrPersistence = errors.New("persistence failed")

	// ErrAnswerUnavailable indicates the answer composer could not produce an answer.
	ErrAnswerUnavailable = errors.New("answer unavailable")
)

// ConfigurationError reports a missing or invalid provider credential.
type ConfigurationError struct {
	// Provider is the embedding provider name.
	Provider string

	// Reason is the actionable message shown to the user.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Provider, e.Reason)
}

// Unwrap returns ErrConfiguration.
func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// DimensionMismatchError reports a vector whose length differs from the fixed dimension.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch, e.Expected, e.Got)
}

// Unwrap returns ErrDimensionMismatch.
func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// EmbeddingProviderError carries the provider's failure message.
type EmbeddingProviderError struct {
	// Provider is the embedding provider name.
	Provider string

	// Message is the provider's description of the failure.
	Message string

	// Err is the underlying transport or API error, if any.
	Err error
}

func (e *EmbeddingProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrEmbeddingProvider, e.Provider, e.Message)
}

// Unwrap returns both the sentinel and the underlying cause.
func (e *EmbeddingProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrEmbeddingProvider}
	}
	return []error{ErrEmbeddingProvider, e.Err}
}

// IntegrityError reports a violated sync invariant between chunks and vectors.
type IntegrityError struct {
	// Op is the operation that detected the violation.
	Op string

	// Chunks is the chunk count observed.
	Chunks int

	// Vectors is the vector count observed.
	Vectors int

	// Err is the underlying cause, such as an unreadable artifact.
	Err error
}

func (e *IntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s during %s: %d chunks, %d vectors: %v (reset required)",
			ErrIntegrity, e.Op, e.Chunks, e.Vectors, e.Err)
	}
	return fmt.Sprintf("%s during %s: %d chunks, %d vectors (reset required)",
		ErrIntegrity, e.Op, e.Chunks, e.Vectors)
}

// Unwrap returns ErrIntegrity and the cause, if any.
func (e *IntegrityError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrIntegrity}
	}
	return []error{ErrIntegrity, e.Err}
}

// ConfigError reports invalid chunker parameters.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidChunkConfig, e.Field, e.Reason)
}

// Unwrap returns ErrInvalidChunkConfig.
func (e *ConfigError) Unwrap() error { return ErrInvalidChunkConfig }
