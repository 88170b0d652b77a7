package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/ragstore/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/core/services"
)

// mockStore is a RetrievalStore for command tests.
type mockStore struct {
	QueryFunc  func(ctx context.Context, q string, opts domain.QueryOptions) ([]domain.ScoredChunk, error)
	DeleteFunc func(ctx context.Context, id string) (*domain.DeleteResult, error)
	ResetFunc  func(ctx context.Context) error

	stats     domain.StatsSnapshot
	health    domain.Health
	docs      []domain.DocumentSummary
	resets    int
	lastQuery domain.QueryOptions
}

func (m *mockStore) Ingest(_ context.Context, text, id string, _ map[string]any) (*domain.IngestResult, error) {
	return &domain.IngestResult{DocumentID: id, ChunksAdded: 1, TotalChunks: 1, TotalVectors: 1}, nil
}

func (m *mockStore) IngestDocument(_ context.Context, doc *domain.Document) (*domain.IngestResult, error) {
	return &domain.IngestResult{DocumentID: doc.ID, ChunksAdded: 1, TotalChunks: 1, TotalVectors: 1}, nil
}

func (m *mockStore) ReplaceDocument(ctx context.Context, doc *domain.Document) (*domain.IngestResult, error) {
	return m.IngestDocument(ctx, doc)
}

func (m *mockStore) Query(ctx context.Context, q string, opts domain.QueryOptions) ([]domain.ScoredChunk, error) {
	m.lastQuery = opts
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, q, opts)
	}
	return nil, nil
}

func (m *mockStore) Stats(_ context.Context) domain.StatsSnapshot {
	return m.stats
}

func (m *mockStore) Health(_ context.Context) domain.Health {
	return m.health
}

func (m *mockStore) Documents(_ context.Context) []domain.DocumentSummary {
	return m.docs
}

func (m *mockStore) DeleteDocument(ctx context.Context, id string) (*domain.DeleteResult, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return &domain.DeleteResult{DocumentID: id}, nil
}

func (m *mockStore) Reset(ctx context.Context) error {
	m.resets++
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx)
	}
	return nil
}

// mockIngest records the inputs it was given.
type mockIngest struct {
	texts   []string
	paths   []string
	options []driving.IngestOptions
	err     error
}

func (m *mockIngest) IngestText(_ context.Context, text string, opts driving.IngestOptions) (*domain.IngestResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.texts = append(m.texts, text)
	m.options = append(m.options, opts)
	id := opts.DocumentID
	if id == "" {
		id = "text-1"
	}
	return &domain.IngestResult{DocumentID: id, ChunksAdded: 2, TotalChunks: 2, TotalVectors: 2}, nil
}

func (m *mockIngest) IngestFile(_ context.Context, path string, opts driving.IngestOptions) (*domain.IngestResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.paths = append(m.paths, path)
	m.options = append(m.options, opts)
	return &domain.IngestResult{DocumentID: path, ChunksAdded: 3, TotalChunks: 3, TotalVectors: 3}, nil
}

func (m *mockIngest) SupportedMIMETypes() []string {
	return []string{"text/plain"}
}

// mockAsk answers from fixed values.
type mockAsk struct {
	AskFunc func(ctx context.Context, q string, opts domain.QueryOptions) (*domain.Answer, error)

	records []domain.QueryRecord
	summary domain.QuerySummary
	err     error
}

func (m *mockAsk) Ask(ctx context.Context, q string, opts domain.QueryOptions) (*domain.Answer, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, q, opts)
	}
	return &domain.Answer{Query: q, Text: "answer to " + q}, nil
}

func (m *mockAsk) History(_ context.Context, limit int) ([]domain.QueryRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.records) > limit {
		return m.records[:limit], nil
	}
	return m.records, nil
}

func (m *mockAsk) Summary(_ context.Context) (domain.QuerySummary, error) {
	return m.summary, m.err
}

type testServices struct {
	store    *mockStore
	ingest   *mockIngest
	ask      *mockAsk
	settings *services.SettingsService
}

// setupTestServices swaps the command services for mocks and returns them
// with a function that restores the originals.
func setupTestServices() (*testServices, func()) {
	origStore := retrievalStore
	origIngest := ingestService
	origAsk := askService
	origSettings := settingsService
	origDefaults := queryDefaults
	origClose := closeServices

	settings := services.NewSettingsService(memory.NewConfigStore(), nil)
	settings.SetEnvLookup(func(string) (string, bool) { return "", false })

	ts := &testServices{
		store:    &mockStore{},
		ingest:   &mockIngest{},
		ask:      &mockAsk{},
		settings: settings,
	}
	retrievalStore = ts.store
	ingestService = ts.ingest
	askService = ts.ask
	settingsService = ts.settings
	queryDefaults = domain.QueryOptions{TopK: domain.DefaultTopK, Threshold: domain.DefaultThreshold}
	closeServices = nil

	return ts, func() {
		retrievalStore = origStore
		ingestService = origIngest
		askService = origAsk
		settingsService = origSettings
		queryDefaults = origDefaults
		closeServices = origClose
	}
}

// resetFlags restores every flag to its default so runs do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Value.Type() != "stringToString" {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and stdin and returns the
// combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	ingestMeta = map[string]string{}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
