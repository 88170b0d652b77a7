package domain

import "time"

// Document is the text extracted from an ingested file or pasted input.
// It is the input to the chunker; only its chunks are stored.
type Document struct {
	// ID is the source document identifier every chunk will carry.
	ID string

	// URI is the original location (file path, or "text" for pasted input).
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full text content after normalisation.
	Content string

	// Pages holds per-page text for paginated formats such as PDF.
	// When set, chunks never span pages and carry a 1-based "page" value.
	Pages []string

	// Metadata contains scalar key-value pairs copied onto every chunk.
	Metadata map[string]any

	// CreatedAt is when the document was extracted.
	CreatedAt time.Time
}

// Chunk is a bounded segment of source text.
// Chunks are immutable once appended to the store.
type Chunk struct {
	// ID is the 0-based position in the store.
	// It is stable within a store generation and equals the vector position.
	ID int

	// Text is the segment content.
	Text string

	// SourceDocumentID links the chunk to the document it was cut from.
	SourceDocumentID string

	// Metadata holds scalar values (page, filename, offset).
	Metadata map[string]any
}

// Clone returns a copy of the chunk with its own metadata map.
func (c Chunk) Clone() Chunk {
	c.Metadata = CopyMetadata(c.Metadata)
	return c
}

// ScoredChunk is a chunk returned by a similarity query.
type ScoredChunk struct {
	Chunk      Chunk
	Similarity float64

	// Generation is the store generation the result was computed in.
	Generation uint64
}

// VectorHit is a raw index search result.
type VectorHit struct {
	// Position is the vector position, which is also the chunk ID.
	Position int

	// Similarity is the score under the index metric (higher is closer).
	Similarity float64
}

// DocumentSummary describes one source document present in the store.
type DocumentSummary struct {
	ID     string
	Title  string
	Chunks int
}

// CopyMetadata creates a shallow copy of metadata.
func CopyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// IsScalar reports whether v may be stored as chunk metadata.
func IsScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int64, float64, float32:
		return true
	default:
		return false
	}
}
