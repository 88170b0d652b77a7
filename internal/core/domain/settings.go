package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies a service provider for embeddings or answers.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API or any compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderHash is the built-in hashing embedder. It needs no network.
	AIProviderHash AIProvider = "hash"

	// AIProviderExtractive answers with the retrieved passages instead of an LLM.
	AIProviderExtractive AIProvider = "extractive"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderHash, AIProviderExtractive:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs without a cloud account.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHash || p == AIProviderExtractive
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderHash:
		return "Hashing embedder (offline)"
	case AIProviderExtractive:
		return "Extractive (no LLM)"
	default:
		return unknownDescription
	}
}

// StorageBackend selects where chunk records are persisted.
type StorageBackend string

// Available storage backends.
const (
	// StorageSQLite stores chunk records in a local SQLite database.
	StorageSQLite StorageBackend = "sqlite"

	// StorageBolt stores chunk records in a local bbolt file.
	StorageBolt StorageBackend = "bolt"

	// StoragePostgres stores chunk records in a PostgreSQL table.
	StoragePostgres StorageBackend = "postgres"

	// StorageMemory keeps everything in memory and persists nothing.
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageSQLite, StorageBolt, StoragePostgres, StorageMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Timeout bounds a single embedding request.
	Timeout time.Duration

	// BatchSize is the maximum number of texts per provider request.
	BatchSize int

	// Retries is the number of extra attempts for a failed request.
	Retries int

	// RequestsPerSecond limits provider calls. Zero disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderExtractive || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds answer composer configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHash {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkerSettings holds text splitting parameters.
type ChunkerSettings struct {
	// ChunkSize is the number of runes of new text per segment.
	ChunkSize int

	// Overlap is the number of runes carried over from the previous segment.
	Overlap int

	// MinRunes drops a final segment shorter than this. Zero keeps everything.
	MinRunes int
}

// RetrievalSettings holds query defaults.
type RetrievalSettings struct {
	// TopK is the default number of sources per query.
	TopK int

	// Threshold is the default minimum cosine similarity.
	Threshold float64

	// SourcePreviewRunes truncates source text in answers.
	SourcePreviewRunes int
}

// StorageSettings holds persistence configuration.
type StorageSettings struct {
	// Backend selects the chunk record store.
	Backend StorageBackend

	// DataDir holds the index artifact and local databases.
	DataDir string

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string
}

// IngestSettings holds file ingestion limits.
type IngestSettings struct {
	// MaxFileSizeMB rejects larger files.
	MaxFileSizeMB int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Chunker   ChunkerSettings
	Retrieval RetrievalSettings
	Storage   StorageSettings
	Ingest    IngestSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The offline hashing embedder and extractive composer are used until
// the user configures a cloud or Ollama provider.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:  AIProviderHash,
			Model:     DefaultEmbeddingModels()[AIProviderHash],
			Timeout:   30 * time.Second,
			BatchSize: 64,
			Retries:   2,
		},
		LLM: LLMSettings{
			Provider: AIProviderExtractive,
		},
		Chunker: ChunkerSettings{
			ChunkSize: 600,
			Overlap:   100,
		},
		Retrieval: RetrievalSettings{
			TopK:               DefaultTopK,
			Threshold:          DefaultThreshold,
			SourcePreviewRunes: 200,
		},
		Storage: StorageSettings{
			Backend: StorageSQLite,
		},
		Ingest: IngestSettings{
			MaxFileSizeMB: 50,
		},
	}
}

// Validate checks settings for values the store cannot run with.
func (s AppSettings) Validate() error {
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidInput, s.Embedding.Provider)
	}
	if !s.LLM.Provider.IsValid() {
		return fmt.Errorf("%w: unknown llm provider %q", ErrInvalidInput, s.LLM.Provider)
	}
	if s.Chunker.ChunkSize <= 0 || s.Chunker.Overlap < 0 || s.Chunker.Overlap >= s.Chunker.ChunkSize {
		return &ConfigError{Field: "chunker", Reason: fmt.Sprintf(
			"requires 0 <= overlap < chunk_size (got chunk_size=%d overlap=%d)",
			s.Chunker.ChunkSize, s.Chunker.Overlap)}
	}
	if s.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive", ErrInvalidInput)
	}
	if !s.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidInput, s.Storage.Backend)
	}
	if s.Storage.Backend == StoragePostgres && s.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: storage.postgres_dsn is required for the postgres backend", ErrInvalidInput)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHash,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that can compose answers.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderExtractive,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHash:   "hash-256",
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"hash-256": 256,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
