// Package bolt provides a bbolt-backed chunk artifact and query log.
//
// Chunks live in a single bucket keyed by big-endian position, so a cursor
// walk returns them in position order. Query records use a second bucket
// keyed by sequence number.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/ragstore/internal/adapters/driven/storage/codec"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "chunks.bolt"

var (
	bucketChunks  = []byte("chunks")
	bucketQueries = []byte("query_log")
)

// Ensure ChunkArtifact implements the interface.
var _ driven.ChunkArtifact = (*ChunkArtifact)(nil)

// ChunkArtifact persists chunks in a bbolt database.
type ChunkArtifact struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the database in dataDir.
func Open(dataDir string) (*ChunkArtifact, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := bbolt.Open(filepath.Join(dataDir, DatabaseFile), 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketChunks, bucketQueries} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &ChunkArtifact{db: db}, nil
}

// Path returns the database file path.
func (a *ChunkArtifact) Path() string {
	return a.db.Path()
}

// Save replaces every stored chunk in one transaction.
func (a *ChunkArtifact) Save(_ context.Context, chunks []domain.Chunk) error {
	return a.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketChunks); err != nil {
			return fmt.Errorf("clearing chunks: %w", err)
		}
		b, err := tx.CreateBucket(bucketChunks)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		b.FillPercent = 1.0

		for _, c := range chunks {
			data, err := codec.EncodeChunk(c)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", c.ID, err)
			}
			if err := b.Put(positionKey(c.ID), data); err != nil {
				return fmt.Errorf("saving chunk %d: %w", c.ID, err)
			}
		}
		return nil
	})
}

// Load returns all chunks ordered by position.
func (a *ChunkArtifact) Load(_ context.Context) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	err := a.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChunks).ForEach(func(_, v []byte) error {
			c, err := codec.DecodeChunk(v)
			if err != nil {
				return err
			}
			chunks = append(chunks, c)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("loading chunks: %w", err)
	}
	return chunks, nil
}

// Remove deletes all stored chunks. The query log is kept.
func (a *ChunkArtifact) Remove(ctx context.Context) error {
	return a.Save(ctx, nil)
}

// Close closes the database.
func (a *ChunkArtifact) Close() error {
	return a.db.Close()
}

// QueryLog returns the query log stored in the same database.
func (a *ChunkArtifact) QueryLog() *QueryLog {
	return &QueryLog{db: a.db}
}

// Ensure QueryLog implements the interface.
var _ driven.QueryLog = (*QueryLog)(nil)

// QueryLog persists query records in the query_log bucket.
type QueryLog struct {
	db *bbolt.DB
}

type queryRecord struct {
	Question  string    `json:"question"`
	Results   int       `json:"results"`
	LatencyMS int64     `json:"latency_ms"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Record appends a query record under the next sequence number.
func (l *QueryLog) Record(_ context.Context, r domain.QueryRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	data, err := json.Marshal(queryRecord{
		Question:  r.Question,
		Results:   r.Results,
		LatencyMS: r.Latency.Milliseconds(),
		Success:   r.Success,
		Error:     r.Error,
		CreatedAt: r.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding query record: %w", err)
	}

	err = l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketQueries)
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(positionKey(int(id)), data)
	})
	if err != nil {
		return fmt.Errorf("recording query: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. A limit <= 0 returns all.
func (l *QueryLog) Recent(_ context.Context, limit int) ([]domain.QueryRecord, error) {
	var records []domain.QueryRecord
	err := l.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketQueries).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			r, err := decodeQueryRecord(k, v)
			if err != nil {
				return err
			}
			records = append(records, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return records, nil
}

// Summary aggregates all records.
func (l *QueryLog) Summary(_ context.Context) (domain.QuerySummary, error) {
	var (
		summary domain.QuerySummary
		total   time.Duration
	)
	err := l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketQueries).ForEach(func(k, v []byte) error {
			r, err := decodeQueryRecord(k, v)
			if err != nil {
				return err
			}
			summary.Total++
			if r.Success {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
			total += r.Latency
			return nil
		})
	})
	if err != nil {
		return summary, fmt.Errorf("summarising history: %w", err)
	}
	if summary.Total > 0 {
		summary.AverageLatency = total / time.Duration(summary.Total)
	}
	return summary, nil
}

// Close is a no-op; the chunk artifact owns the database.
func (l *QueryLog) Close() error {
	return nil
}

func decodeQueryRecord(key, data []byte) (domain.QueryRecord, error) {
	var r queryRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.QueryRecord{}, fmt.Errorf("decoding query record: %w", err)
	}
	return domain.QueryRecord{
		ID:        int64(binary.BigEndian.Uint64(key)),
		Question:  r.Question,
		Results:   r.Results,
		Latency:   time.Duration(r.LatencyMS) * time.Millisecond,
		Success:   r.Success,
		Error:     r.Error,
		CreatedAt: r.CreatedAt,
	}, nil
}

func positionKey(pos int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(pos))
	return key
}
