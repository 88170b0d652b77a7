package domain

import "time"

// Retrieval defaults.
const (
	DefaultTopK      = 5
	DefaultThreshold = 0.5
)

// QueryOptions configures a similarity query.
type QueryOptions struct {
	// TopK is the maximum number of chunks returned.
	TopK int

	// Threshold excludes chunks with similarity below it.
	Threshold float64
}

// Source is a chunk cited in an answer.
type Source struct {
	// ChunkID is the chunk position the source was resolved from.
	ChunkID int

	// DocumentID is the chunk's source document.
	DocumentID string

	// Text is the chunk text, possibly truncated for display.
	Text string

	// Similarity is the query similarity score.
	Similarity float64

	// Metadata is the chunk metadata.
	Metadata map[string]any
}

// Answer is the response to a question.
type Answer struct {
	// Query is the question as asked.
	Query string

	// Text is the composed answer.
	Text string

	// Sources are the chunks used as context, ordered by similarity.
	Sources []Source

	// Relaxed is true when the sources came from the fallback query
	// with the threshold removed.
	Relaxed bool

	// Generation is the store generation the sources were read from.
	Generation uint64
}

// QueryRecord is one entry in the query history.
type QueryRecord struct {
	ID        int64
	Question  string
	Results   int
	Latency   time.Duration
	Success   bool
	Error     string
	CreatedAt time.Time
}

// QuerySummary aggregates the query history.
type QuerySummary struct {
	Total          int
	Succeeded      int
	Failed         int
	AverageLatency time.Duration
}
