package driven

import "github.com/custodia-labs/ragstore/internal/core/domain"

// VectorIndex is an exact nearest-neighbour structure over fixed-dimension vectors.
// Vector positions are assigned in insertion order starting at 0.
// Implementations are not required to be safe for concurrent writes;
// the retrieval store serialises access.
type VectorIndex interface {
	// Add appends vectors. The first add fixes the dimension.
	// If any vector has the wrong dimension nothing is added.
	Add(vectors [][]float32) error

	// Search returns at most k hits with similarity >= threshold,
	// ordered by descending similarity.
	Search(query []float32, k int, threshold float64) ([]domain.VectorHit, error)

	// Size returns the number of vectors.
	Size() int

	// Dimension returns the fixed dimension, or 0 before the first add.
	Dimension() int

	// Metric returns the similarity metric.
	Metric() domain.Metric

	// Reset drops all vectors and unfixes the dimension.
	Reset()

	// Snapshot returns a copy of the index contents.
	Snapshot() IndexSnapshot

	// Restore replaces the index contents with a snapshot.
	Restore(snapshot IndexSnapshot) error
}

// IndexSnapshot is the full content of a vector index.
type IndexSnapshot struct {
	Metric    domain.Metric
	Dimension int
	Vectors   [][]float32
}

// Len returns the number of vectors in the snapshot.
func (s IndexSnapshot) Len() int {
	return len(s.Vectors)
}
