// Package chunker provides a fixed-size text chunking processor.
//
// Text is cut into consecutive windows of chunkSize runes. Every window after
// the first is prefixed with the last overlap runes of the window before it,
// so a segment carries at most chunkSize new runes plus its overlap context.
// Dropping the first overlap runes of every segment but the first and
// concatenating the rest reconstructs the input exactly.
package chunker

import (
	"context"
	"fmt"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of runes per chunk.
const DefaultChunkSize = 600

// DefaultChunkOverlap is the default number of overlapping runes.
const DefaultChunkOverlap = 100

var _ driven.PostProcessor = (*Processor)(nil)

// Processor splits document content into fixed-size chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in runes.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in runes.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a new chunker processor with the given options.
// It returns a *domain.ConfigError when the size and overlap cannot
// produce segments.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := validate(p.chunkSize, p.overlap); err != nil {
		return nil, err
	}
	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Chunk IDs are positions within the document; the store renumbers them on append.
// Paginated documents are split page by page and each chunk records its page.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	if len(doc.Pages) == 0 {
		return p.appendSegments(ctx, nil, doc, doc.Content, 0)
	}

	var chunks []domain.Chunk
	for i, page := range doc.Pages {
		var err error
		chunks, err = p.appendSegments(ctx, chunks, doc, page, i+1)
		if err != nil {
			return nil, err
		}
	}
	return chunks, nil
}

// appendSegments splits text and appends one chunk per segment.
// A page of 0 means the document is not paginated.
func (p *Processor) appendSegments(
	ctx context.Context, chunks []domain.Chunk, doc *domain.Document, text string, page int,
) ([]domain.Chunk, error) {
	segments, offsets := split(text, p.chunkSize, p.overlap)

	for i, segment := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		metadata := domain.CopyMetadata(doc.Metadata)
		if metadata == nil {
			metadata = make(map[string]any, 4)
		}
		metadata["offset"] = offsets[i]
		metadata["length"] = len([]rune(segment))
		metadata["segment"] = len(chunks)
		if page > 0 {
			metadata["page"] = page
		}

		chunks = append(chunks, domain.Chunk{
			ID:               len(chunks),
			Text:             segment,
			SourceDocumentID: doc.ID,
			Metadata:         metadata,
		})
	}

	return chunks, nil
}

// Split cuts text into overlapping segments.
// It fails with *domain.ConfigError unless 0 <= overlap < chunkSize.
// Empty text yields no segments.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}
	segments, _ := split(text, chunkSize, overlap)
	return segments, nil
}

// Reconstruct reverses Split by dropping the overlap prefix of every segment
// after the first.
func Reconstruct(segments []string, overlap int) string {
	var out []rune
	for i, segment := range segments {
		runes := []rune(segment)
		if i > 0 {
			runes = runes[min(overlap, len(runes)):]
		}
		out = append(out, runes...)
	}
	return string(out)
}

// split returns the segments and the rune offset each one starts at.
func split(text string, chunkSize, overlap int) ([]string, []int) {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	count := (len(runes) + chunkSize - 1) / chunkSize
	segments := make([]string, 0, count)
	offsets := make([]int, 0, count)

	for start := 0; start < len(runes); start += chunkSize {
		end := min(start+chunkSize, len(runes))
		from := max(start-overlap, 0)
		segments = append(segments, string(runes[from:end]))
		offsets = append(offsets, from)
	}

	return segments, offsets
}

func validate(chunkSize, overlap int) error {
	switch {
	case chunkSize <= 0:
		return &domain.ConfigError{Field: "chunk_size", Reason: fmt.Sprintf("must be positive, got %d", chunkSize)}
	case overlap < 0:
		return &domain.ConfigError{Field: "overlap", Reason: fmt.Sprintf("must not be negative, got %d", overlap)}
	case overlap >= chunkSize:
		return &domain.ConfigError{Field: "overlap", Reason: fmt.Sprintf(
			"must be less than chunk_size (%d >= %d)", overlap, chunkSize)}
	}
	return nil
}
