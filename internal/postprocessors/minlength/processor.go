// Package minlength provides a post-processor that drops short chunk fragments.
package minlength

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// DefaultMinRunes is the default minimum chunk length.
const DefaultMinRunes = 10

var _ driven.PostProcessor = (*Processor)(nil)

// Processor removes chunks whose trimmed text is shorter than a minimum.
// Surviving chunks are renumbered from 0.
type Processor struct {
	minRunes int
}

// New creates a filter with the given minimum rune count.
func New(minRunes int) *Processor {
	return &Processor{minRunes: minRunes}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "minlength"
}

// Process filters the chunks produced by earlier processors.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	kept := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if utf8.RuneCountInString(strings.TrimSpace(c.Text)) < p.minRunes {
			continue
		}
		c.ID = len(kept)
		kept = append(kept, c)
	}
	return kept, nil
}
