package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragstore/internal/adapters/driven/storage/codec"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "chunks.db"

// Store owns the SQLite connection and hands out the stores built on it.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database in dataDir.
// If dataDir is empty, defaults to ~/.ragstore/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ragstore", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ChunkArtifact returns the chunk artifact backed by this store.
// Closing it closes the store.
func (s *Store) ChunkArtifact() driven.ChunkArtifact {
	return &chunkArtifact{store: s}
}

// QueryLog returns the query log backed by this store.
// Closing it is a no-op; close the store or the chunk artifact instead.
func (s *Store) QueryLog() driven.QueryLog {
	return &queryLog{store: s}
}

// migrate runs all pending up migrations in version order.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	return v, err
}

// ==================== Chunk Artifact ====================

// chunkArtifact implements driven.ChunkArtifact.
type chunkArtifact struct {
	store *Store
}

var _ driven.ChunkArtifact = (*chunkArtifact)(nil)

// Save replaces every stored chunk in one transaction.
func (a *chunkArtifact) Save(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := a.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (position, text, source_document_id, metadata)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		meta, err := codec.EncodeMetadata(c.Metadata)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Text, c.SourceDocumentID, string(meta)); err != nil {
			return fmt.Errorf("saving chunk %d: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Load returns all chunks ordered by position.
func (a *chunkArtifact) Load(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := a.store.db.QueryContext(ctx, `
		SELECT position, text, source_document_id, metadata
		FROM chunks ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// Remove deletes all stored chunks.
func (a *chunkArtifact) Remove(ctx context.Context) error {
	if _, err := a.store.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("removing chunks: %w", err)
	}
	return nil
}

// Close closes the underlying store.
func (a *chunkArtifact) Close() error {
	return a.store.Close()
}

func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var (
		c    domain.Chunk
		meta string
	)
	if err := rows.Scan(&c.ID, &c.Text, &c.SourceDocumentID, &meta); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	m, err := codec.DecodeMetadata([]byte(meta))
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", c.ID, err)
	}
	c.Metadata = m
	return &c, nil
}

// ==================== Query Log ====================

// queryLog implements driven.QueryLog.
type queryLog struct {
	store *Store
}

var _ driven.QueryLog = (*queryLog)(nil)

// Record appends a query record.
func (l *queryLog) Record(ctx context.Context, r domain.QueryRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO query_log (question, results, latency_ms, success, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.Question, r.Results, r.Latency.Milliseconds(), r.Success, r.Error, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording query: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. A limit <= 0 returns all.
func (l *queryLog) Recent(ctx context.Context, limit int) ([]domain.QueryRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT id, question, results, latency_ms, success, error, created_at
		FROM query_log ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []domain.QueryRecord
	for rows.Next() {
		var (
			r       domain.QueryRecord
			latency int64
		)
		if err := rows.Scan(&r.ID, &r.Question, &r.Results, &latency, &r.Success, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning query record: %w", err)
		}
		r.Latency = time.Duration(latency) * time.Millisecond
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return records, nil
}

// Summary aggregates all records.
func (l *queryLog) Summary(ctx context.Context) (domain.QuerySummary, error) {
	var (
		summary domain.QuerySummary
		avg     sql.NullFloat64
	)
	err := l.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(success), 0), AVG(latency_ms)
		FROM query_log
	`).Scan(&summary.Total, &summary.Succeeded, &avg)
	if errors.Is(err, sql.ErrNoRows) {
		return summary, nil
	}
	if err != nil {
		return summary, fmt.Errorf("summarising history: %w", err)
	}
	summary.Failed = summary.Total - summary.Succeeded
	if avg.Valid {
		summary.AverageLatency = time.Duration(avg.Float64 * float64(time.Millisecond))
	}
	return summary, nil
}

// Close is a no-op; the store owns the connection.
func (l *queryLog) Close() error {
	return nil
}
