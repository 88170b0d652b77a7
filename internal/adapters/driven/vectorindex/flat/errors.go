package flat

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// Error definitions for the flat index artifact.
var (
	// ErrCorruptArtifact indicates the index file header or payload is invalid.
	ErrCorruptArtifact = errors.New("corrupt index artifact")

	// ErrMetricMismatch indicates an artifact was written with another metric.
	ErrMetricMismatch = errors.New("index metric mismatch")
)

// MetricMismatchError reports a reload that would switch similarity metrics.
type MetricMismatchError struct {
	Index    domain.Metric
	Artifact domain.Metric
}

func (e *MetricMismatchError) Error() string {
	return fmt.Sprintf("%s: index uses %s, artifact was written with %s (reset to rebuild)",
		ErrMetricMismatch, e.Index, e.Artifact)
}

// Unwrap returns ErrMetricMismatch.
func (e *MetricMismatchError) Unwrap() error { return ErrMetricMismatch }
