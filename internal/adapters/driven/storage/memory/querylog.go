package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Ensure QueryLog implements the interface.
var _ driven.QueryLog = (*QueryLog)(nil)

// QueryLog is an in-memory query history.
type QueryLog struct {
	mu      sync.RWMutex
	records []domain.QueryRecord
	nextID  int64
}

// NewQueryLog creates an empty query log.
func NewQueryLog() *QueryLog {
	return &QueryLog{nextID: 1}
}

// Record appends a query record, assigning an ID and timestamp when missing.
func (l *QueryLog) Record(_ context.Context, record domain.QueryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record.ID = l.nextID
	l.nextID++
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	l.records = append(l.records, record)
	return nil
}

// Recent returns up to limit records, newest first. A limit <= 0 returns all.
func (l *QueryLog) Recent(_ context.Context, limit int) ([]domain.QueryRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.records)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.QueryRecord, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.records[i])
	}
	return out, nil
}

// Summary aggregates all records.
func (l *QueryLog) Summary(_ context.Context) (domain.QuerySummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var summary domain.QuerySummary
	var total time.Duration
	for _, r := range l.records {
		summary.Total++
		if r.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		total += r.Latency
	}
	if summary.Total > 0 {
		summary.AverageLatency = total / time.Duration(summary.Total)
	}
	return summary, nil
}

// Close is a no-op.
func (l *QueryLog) Close() error {
	return nil
}
