package mcp

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

// mockStore is a mock implementation of driving.RetrievalStore.
type mockStore struct {
	results   []domain.ScoredChunk
	health    domain.Health
	docs      []domain.DocumentSummary
	deleted   *domain.DeleteResult
	err       error
	lastQuery domain.QueryOptions
	resets    int
}

func (m *mockStore) Ingest(_ context.Context, _, id string, _ map[string]any) (*domain.IngestResult, error) {
	return &domain.IngestResult{DocumentID: id}, m.err
}

func (m *mockStore) IngestDocument(_ context.Context, doc *domain.Document) (*domain.IngestResult, error) {
	return &domain.IngestResult{DocumentID: doc.ID}, m.err
}

func (m *mockStore) ReplaceDocument(ctx context.Context, doc *domain.Document) (*domain.IngestResult, error) {
	return m.IngestDocument(ctx, doc)
}

func (m *mockStore) Query(_ context.Context, _ string, opts domain.QueryOptions) ([]domain.ScoredChunk, error) {
	m.lastQuery = opts
	return m.results, m.err
}

func (m *mockStore) Stats(_ context.Context) domain.StatsSnapshot {
	return m.health.Stats
}

func (m *mockStore) Health(_ context.Context) domain.Health {
	return m.health
}

func (m *mockStore) Documents(_ context.Context) []domain.DocumentSummary {
	return m.docs
}

func (m *mockStore) DeleteDocument(_ context.Context, _ string) (*domain.DeleteResult, error) {
	return m.deleted, m.err
}

func (m *mockStore) Reset(_ context.Context) error {
	m.resets++
	return m.err
}

// mockIngest is a mock implementation of driving.IngestService.
type mockIngest struct {
	result   *domain.IngestResult
	err      error
	lastText string
	lastPath string
	lastOpts driving.IngestOptions
}

func (m *mockIngest) IngestText(_ context.Context, text string, opts driving.IngestOptions) (*domain.IngestResult, error) {
	m.lastText = text
	m.lastOpts = opts
	return m.result, m.err
}

func (m *mockIngest) IngestFile(_ context.Context, path string, opts driving.IngestOptions) (*domain.IngestResult, error) {
	m.lastPath = path
	m.lastOpts = opts
	return m.result, m.err
}

func (m *mockIngest) SupportedMIMETypes() []string {
	return []string{"text/plain"}
}

// mockAsk is a mock implementation of driving.AskService.
type mockAsk struct {
	answer *domain.Answer
	err    error
}

func (m *mockAsk) Ask(_ context.Context, _ string, _ domain.QueryOptions) (*domain.Answer, error) {
	return m.answer, m.err
}

func (m *mockAsk) History(_ context.Context, _ int) ([]domain.QueryRecord, error) {
	return nil, nil
}

func (m *mockAsk) Summary(_ context.Context) (domain.QuerySummary, error) {
	return domain.QuerySummary{}, nil
}
