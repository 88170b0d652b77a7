package domain

// Metric names the similarity function used by a vector index.
type Metric string

const (
	// MetricCosine compares L2-normalised vectors by inner product.
	MetricCosine Metric = "cosine"

	// MetricInnerProduct compares raw vectors by inner product.
	MetricInnerProduct Metric = "inner_product"
)

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	return m == MetricCosine || m == MetricInnerProduct
}

// String returns the string representation.
func (m Metric) String() string {
	return string(m)
}

// StatsSnapshot is a live view of the store's collections.
// It is recomputed on every request and never cached.
type StatsSnapshot struct {
	// ChunksCount is the number of chunk records.
	ChunksCount int

	// TotalVectors is the number of vectors in the index.
	TotalVectors int

	// IsSynced is true when ChunksCount equals TotalVectors.
	IsSynced bool

	// DocumentsCount is the number of distinct source documents.
	DocumentsCount int

	// Generation is the reset epoch the snapshot was taken in.
	Generation uint64

	// Dimension is the fixed vector dimension, or 0 when unfixed.
	Dimension int

	// Metric is the similarity metric of the index.
	Metric Metric

	// IntegrityFault is set once a write detected a sync violation.
	IntegrityFault bool
}

// IngestResult reports the verified state after a successful ingest.
type IngestResult struct {
	// DocumentID is the source document the chunks belong to.
	DocumentID string

	// ChunksAdded is the number of chunks committed by this call.
	ChunksAdded int

	// ChunksReplaced is the number of previous chunks of the document
	// dropped by a replace.
	ChunksReplaced int

	// TotalChunks is the chunk count after the commit.
	TotalChunks int

	// TotalVectors is the vector count after the commit.
	TotalVectors int
}

// DeleteResult reports the state after a document deletion and index rebuild.
type DeleteResult struct {
	DocumentID    string
	ChunksRemoved int
	TotalChunks   int
	TotalVectors  int
}

// HealthStatus summarises whether the store can answer queries.
type HealthStatus string

const (
	// HealthHealthy means chunks and vectors are present and in sync.
	HealthHealthy HealthStatus = "healthy"

	// HealthEmpty means nothing has been ingested yet.
	HealthEmpty HealthStatus = "empty"

	// HealthWarning means the collections disagree and a reset is needed.
	HealthWarning HealthStatus = "warning"

	// HealthFaulted means a write detected an integrity violation.
	HealthFaulted HealthStatus = "faulted"
)

// ProviderStatus describes the embedding provider configuration.
type ProviderStatus struct {
	Name       string
	Model      string
	Configured bool
	Message    string
}

// Health combines store stats with provider status.
type Health struct {
	Status   HealthStatus
	Stats    StatsSnapshot
	Provider ProviderStatus
}

// Describe returns a human-readable explanation of the status.
func (h Health) Describe() string {
	switch h.Status {
	case HealthHealthy:
		return "healthy"
	case HealthEmpty:
		return "empty - no documents ingested"
	case HealthWarning:
		if h.Stats.ChunksCount > 0 && h.Stats.TotalVectors == 0 {
			return "warning - chunks exist but no vectors in index"
		}
		return "warning - chunk and vector counts differ, reset required"
	case HealthFaulted:
		return "faulted - writes refused until reset"
	default:
		return unknownDescription
	}
}

// HealthFromStats derives the status from a snapshot.
func HealthFromStats(s StatsSnapshot) HealthStatus {
	switch {
	case s.IntegrityFault:
		return HealthFaulted
	case !s.IsSynced:
		return HealthWarning
	case s.ChunksCount == 0:
		return HealthEmpty
	default:
		return HealthHealthy
	}
}
