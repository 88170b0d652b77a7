// Package app assembles the retrieval store and its services from the
// settings found in the ragstore home directory.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/ragstore/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/storage/bolt"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/services"
	"github.com/custodia-labs/ragstore/internal/logger"
	"github.com/custodia-labs/ragstore/internal/normalisers"
	"github.com/custodia-labs/ragstore/internal/normalisers/docx"
	"github.com/custodia-labs/ragstore/internal/normalisers/eml"
	"github.com/custodia-labs/ragstore/internal/normalisers/html"
	"github.com/custodia-labs/ragstore/internal/normalisers/markdown"
	"github.com/custodia-labs/ragstore/internal/normalisers/pdf"
	"github.com/custodia-labs/ragstore/internal/normalisers/plaintext"
	"github.com/custodia-labs/ragstore/internal/postprocessors"
)

// EnvHome overrides the default home directory.
const EnvHome = "RAGSTORE_HOME"

// IndexFile is the vector index artifact name inside the data directory.
const IndexFile = "index.vec"

// Options configures New.
type Options struct {
	// Home is the ragstore home directory. Empty uses RAGSTORE_HOME, then ~/.ragstore.
	Home string
}

// App holds the wired services. Close releases everything it opened.
type App struct {
	Home     string
	DataDir  string
	Config   driven.ConfigStore
	Settings *services.SettingsService
	Current  *domain.AppSettings

	Store    *services.RetrievalStore
	Embedder *services.EmbeddingClient
	Ingest   *services.IngestService
	Ask      *services.AskService
	Composer driven.AnswerComposer

	closers []func() error
}

// ResolveHome returns flagValue, RAGSTORE_HOME, or ~/.ragstore in that order.
func ResolveHome(flagValue string) (string, error) {
	if flagValue != "" {
		return filepath.Abs(flagValue)
	}
	if env := os.Getenv(EnvHome); env != "" {
		return filepath.Abs(env)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".ragstore"), nil
}

// LoadEnv reads .env from the working directory and then from home.
// Variables already set are never overwritten, so the working directory wins.
func LoadEnv(home string) {
	for _, path := range []string{".env", filepath.Join(home, ".env")} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Ignoring %s: %v", path, err)
		}
	}
}

// OpenSettings opens the config store and settings service without building
// the retrieval store. Settings commands use it so a broken provider
// configuration can still be repaired.
func OpenSettings(home string) (*file.ConfigStore, *services.SettingsService, error) {
	cfg, err := file.NewConfigStore(home)
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	return cfg, services.NewSettingsService(cfg, ai.NewConfigValidator()), nil
}

// New wires every service and loads the persisted store.
func New(ctx context.Context, opts Options) (*App, error) {
	logger.Section("Startup")
	defer logger.Timed("startup")()

	home, err := ResolveHome(opts.Home)
	if err != nil {
		return nil, err
	}
	LoadEnv(home)

	cfg, settingsSvc, err := OpenSettings(home)
	if err != nil {
		return nil, err
	}
	current, err := settingsSvc.Get()
	if err != nil {
		return nil, err
	}
	if err := current.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", cfg.Path(), err)
	}

	a := &App{
		Home:     home,
		DataDir:  current.Storage.DataDir,
		Config:   cfg,
		Settings: settingsSvc,
		Current:  current,
	}
	if a.DataDir == "" {
		a.DataDir = filepath.Join(home, "data")
	}

	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	s := a.Current

	pipeline, err := postprocessors.DefaultPipeline(s.Chunker)
	if err != nil {
		return fmt.Errorf("chunker settings: %w", err)
	}

	a.Embedder = newEmbeddingClient(&s.Embedding)
	a.Store = services.NewRetrievalStore(pipeline, a.Embedder, flat.New(domain.MetricCosine), memory.NewChunkStore())

	chunkArtifact, queryLog, err := a.openStorage(ctx, s.Storage)
	if err != nil {
		return err
	}
	if chunkArtifact != nil {
		a.Store.SetArtifacts(flat.NewFileArtifact(filepath.Join(a.DataDir, IndexFile)), chunkArtifact)
		if err := a.Store.Load(ctx); err != nil {
			// A faulted store still opens so stats and reset can run.
			if !errors.Is(err, domain.ErrIntegrity) {
				return err
			}
			logger.Warn("Store opened faulted: %v", err)
		}
	}

	prompts := file.NewPromptStore(filepath.Join(a.Home, "prompts"))
	composer, err := ai.CreateComposer(&s.LLM, prompts)
	if err != nil {
		logger.Warn("Answer composer unavailable: %v", err)
	} else {
		a.Composer = composer
		a.closers = append(a.closers, composer.Close)
	}

	a.Ingest = services.NewIngestService(a.Store, NewNormaliserRegistry(), normalisers.DetectMIME, s.Ingest.MaxFileSizeMB)
	a.Ask = services.NewAskService(a.Store, a.Composer, queryLog, services.AskConfig{
		TopK:         s.Retrieval.TopK,
		PreviewRunes: s.Retrieval.SourcePreviewRunes,
	})
	return nil
}

// openStorage opens the chunk artifact and query log for the backend.
// The memory backend returns a nil artifact and nothing is persisted.
func (a *App) openStorage(
	ctx context.Context, st domain.StorageSettings,
) (driven.ChunkArtifact, driven.QueryLog, error) {
	switch st.Backend {
	case domain.StorageSQLite:
		store, err := sqlite.NewStore(a.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store.ChunkArtifact(), store.QueryLog(), nil

	case domain.StorageBolt:
		artifact, err := bolt.Open(a.DataDir)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, artifact.Close)
		return artifact, artifact.QueryLog(), nil

	case domain.StoragePostgres:
		store, err := postgres.Open(ctx, st.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store.ChunkArtifact(), store.QueryLog(), nil

	case domain.StorageMemory:
		return nil, memory.NewQueryLog(), nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, st.Backend)
	}
}

// newEmbeddingClient wraps the configured provider. A provider that cannot be
// built gives a client that reports the configuration error on every call,
// so stats and health still work without credentials.
func newEmbeddingClient(s *domain.EmbeddingSettings) *services.EmbeddingClient {
	svc, err := ai.CreateEmbeddingService(s)
	if err != nil {
		logger.Warn("Embedding provider unavailable: %v", err)
		return services.NewUnconfiguredEmbeddingClient(s.Provider.String(), err)
	}
	return services.NewEmbeddingClient(svc, services.EmbeddingClientConfig{
		Provider:  s.Provider.String(),
		Timeout:   s.Timeout,
		BatchSize: s.BatchSize,
		Retries:   s.Retries,
	})
}

// NewNormaliserRegistry registers every built-in normaliser.
func NewNormaliserRegistry() *normalisers.Registry {
	return normalisers.NewRegistry(
		plaintext.New(),
		markdown.New(),
		html.New(),
		docx.New(),
		eml.New(),
		pdf.New(),
	)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
