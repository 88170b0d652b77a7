package driven

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// QueryLog records asked questions for later analysis.
type QueryLog interface {
	// Record appends a query record.
	Record(ctx context.Context, record domain.QueryRecord) error

	// Recent returns the newest records first.
	Recent(ctx context.Context, limit int) ([]domain.QueryRecord, error)

	// Summary aggregates all records.
	Summary(ctx context.Context) (domain.QuerySummary, error)

	// Close releases resources.
	Close() error
}
