// Package flat provides an exact, brute-force vector index and its binary
// file artifact.
//
// With the cosine metric every vector is L2-normalised before it is stored,
// and queries are normalised the same way, so similarity is the inner
// product of unit vectors and lies in [-1, 1]. The metric is part of the
// persisted header and cannot change across a reload.
package flat

import (
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an in-memory exact nearest-neighbour index.
type Index struct {
	mu        sync.RWMutex
	metric    domain.Metric
	dimension int
	vectors   [][]float32
}

// New creates an empty index using metric.
// An invalid metric falls back to cosine.
func New(metric domain.Metric) *Index {
	if !metric.IsValid() {
		metric = domain.MetricCosine
	}
	return &Index{metric: metric}
}

// Add appends vectors. The first add fixes the dimension.
func (x *Index) Add(vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	dim := x.dimension
	if dim == 0 {
		dim = len(vectors[0])
	}
	if dim == 0 {
		return &domain.DimensionMismatchError{Expected: 1, Got: 0}
	}
	for _, v := range vectors {
		if len(v) != dim {
			return &domain.DimensionMismatchError{Expected: dim, Got: len(v)}
		}
	}

	for _, v := range vectors {
		x.vectors = append(x.vectors, x.prepare(v))
	}
	x.dimension = dim
	return nil
}

// Search returns at most k hits with similarity >= threshold, ordered by
// descending similarity and then ascending position.
func (x *Index) Search(query []float32, k int, threshold float64) ([]domain.VectorHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if k <= 0 || len(x.vectors) == 0 {
		return []domain.VectorHit{}, nil
	}
	if len(query) != x.dimension {
		return nil, &domain.DimensionMismatchError{Expected: x.dimension, Got: len(query)}
	}

	q := x.prepare(query)
	hits := make([]domain.VectorHit, 0, len(x.vectors))
	for pos, v := range x.vectors {
		sim := dot(q, v)
		if sim < threshold {
			continue
		}
		hits = append(hits, domain.VectorHit{Position: pos, Similarity: sim})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Position < hits[j].Position
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Size returns the number of vectors.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Dimension returns the fixed dimension, or 0 before the first add.
func (x *Index) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dimension
}

// Metric returns the similarity metric.
func (x *Index) Metric() domain.Metric {
	return x.metric
}

// Reset drops all vectors and unfixes the dimension.
func (x *Index) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = nil
	x.dimension = 0
}

// Snapshot returns a deep copy of the stored vectors.
func (x *Index) Snapshot() driven.IndexSnapshot {
	x.mu.RLock()
	defer x.mu.RUnlock()

	vectors := make([][]float32, len(x.vectors))
	for i, v := range x.vectors {
		vectors[i] = append([]float32(nil), v...)
	}
	return driven.IndexSnapshot{Metric: x.metric, Dimension: x.dimension, Vectors: vectors}
}

// Restore replaces the contents with a snapshot taken from an index with
// the same metric. Stored vectors are used as-is.
func (x *Index) Restore(s driven.IndexSnapshot) error {
	if s.Metric != "" && s.Metric != x.metric {
		return &MetricMismatchError{Index: x.metric, Artifact: s.Metric}
	}
	dim := s.Dimension
	if len(s.Vectors) > 0 && dim == 0 {
		dim = len(s.Vectors[0])
	}
	vectors := make([][]float32, len(s.Vectors))
	for i, v := range s.Vectors {
		if len(v) != dim {
			return &domain.DimensionMismatchError{Expected: dim, Got: len(v)}
		}
		vectors[i] = append([]float32(nil), v...)
	}
	if len(vectors) == 0 {
		dim = 0
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = vectors
	x.dimension = dim
	return nil
}

// prepare copies v, normalising it for the cosine metric.
func (x *Index) prepare(v []float32) []float32 {
	out := append([]float32(nil), v...)
	if x.metric == domain.MetricCosine {
		Normalize(out)
	}
	return out
}

// Normalize scales v to unit length in place. Zero vectors are left unchanged.
func Normalize(v []float32) {
	var norm float64
	for _, f := range v {
		norm += float64(f) * float64(f)
	}
	if norm == 0 {
		return
	}
	inv := 1 / math.Sqrt(norm)
	for i, f := range v {
		v[i] = float32(float64(f) * inv)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
