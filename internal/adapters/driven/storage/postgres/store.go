// Package postgres provides a PostgreSQL-backed chunk artifact and query log
// for deployments that share one store between several hosts.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/custodia-labs/ragstore/internal/adapters/driven/storage/codec"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

const schema = `
CREATE TABLE IF NOT EXISTS ragstore_chunks (
	position INTEGER PRIMARY KEY,
	text TEXT NOT NULL,
	source_document_id TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS idx_ragstore_chunks_source ON ragstore_chunks(source_document_id);

CREATE TABLE IF NOT EXISTS ragstore_query_log (
	id BIGSERIAL PRIMARY KEY,
	question TEXT NOT NULL,
	results INTEGER NOT NULL DEFAULT 0,
	latency_ms BIGINT NOT NULL DEFAULT 0,
	success BOOLEAN NOT NULL DEFAULT FALSE,
	error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
`

// Store owns the PostgreSQL connection pool.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, &domain.ConfigurationError{Provider: "postgres", Reason: "storage.postgres_dsn is not set"}
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ChunkArtifact returns the chunk artifact backed by this store.
// Closing it closes the store.
func (s *Store) ChunkArtifact() driven.ChunkArtifact {
	return &chunkArtifact{db: s.db}
}

// QueryLog returns the query log backed by this store.
func (s *Store) QueryLog() driven.QueryLog {
	return &queryLog{db: s.db}
}

type chunkArtifact struct {
	db *sql.DB
}

var _ driven.ChunkArtifact = (*chunkArtifact)(nil)

func (a *chunkArtifact) Save(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM ragstore_chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ragstore_chunks (position, text, source_document_id, metadata)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		meta, err := codec.EncodeMetadata(c.Metadata)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Text, c.SourceDocumentID, string(meta)); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (a *chunkArtifact) Load(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT position, text, source_document_id, metadata::text
		FROM ragstore_chunks ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var (
			c    domain.Chunk
			meta string
		)
		if err := rows.Scan(&c.ID, &c.Text, &c.SourceDocumentID, &meta); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if c.Metadata, err = codec.DecodeMetadata([]byte(meta)); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", c.ID, err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}

func (a *chunkArtifact) Remove(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, "DELETE FROM ragstore_chunks"); err != nil {
		return fmt.Errorf("remove chunks: %w", err)
	}
	return nil
}

func (a *chunkArtifact) Close() error {
	return a.db.Close()
}

type queryLog struct {
	db *sql.DB
}

var _ driven.QueryLog = (*queryLog)(nil)

func (l *queryLog) Record(ctx context.Context, r domain.QueryRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO ragstore_query_log (question, results, latency_ms, success, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.Question, r.Results, r.Latency.Milliseconds(), r.Success, r.Error, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

func (l *queryLog) Recent(ctx context.Context, limit int) ([]domain.QueryRecord, error) {
	query := `
		SELECT id, question, results, latency_ms, success, error, created_at
		FROM ragstore_query_log ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []domain.QueryRecord
	for rows.Next() {
		var (
			r       domain.QueryRecord
			latency int64
		)
		if err := rows.Scan(&r.ID, &r.Question, &r.Results, &latency, &r.Success, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan query record: %w", err)
		}
		r.Latency = time.Duration(latency) * time.Millisecond
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return records, nil
}

func (l *queryLog) Summary(ctx context.Context) (domain.QuerySummary, error) {
	var (
		summary domain.QuerySummary
		avg     sql.NullFloat64
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE success), AVG(latency_ms)::float8
		FROM ragstore_query_log
	`).Scan(&summary.Total, &summary.Succeeded, &avg)
	if err != nil {
		return summary, fmt.Errorf("summarise history: %w", err)
	}
	summary.Failed = summary.Total - summary.Succeeded
	if avg.Valid {
		summary.AverageLatency = time.Duration(avg.Float64 * float64(time.Millisecond))
	}
	return summary, nil
}

func (l *queryLog) Close() error {
	return nil
}
