// Package extractive provides an answer composer that needs no language model.
// It answers with the best matching passages, cited like the LLM prompts cite them.
package extractive

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/ragstore/internal/adapters/driven/llm"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Ensure Composer implements the interface.
var _ driven.AnswerComposer = (*Composer)(nil)

// DefaultMaxPassages is the number of passages quoted in an answer.
const DefaultMaxPassages = 3

// ModelName is reported for answers composed by this package.
const ModelName = "extractive"

// Composer quotes the highest ranked sources.
type Composer struct {
	maxPassages int
}

// NewComposer creates an extractive composer quoting at most maxPassages
// sources. Zero or less uses DefaultMaxPassages.
func NewComposer(maxPassages int) *Composer {
	if maxPassages <= 0 {
		maxPassages = DefaultMaxPassages
	}
	return &Composer{maxPassages: maxPassages}
}

// Compose returns the top passages in rank order. Sources are expected
// sorted by descending similarity, as the retrieval store returns them.
func (c *Composer) Compose(ctx context.Context, _ string, sources []domain.Source) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	n := 0
	for _, src := range sources {
		text := strings.TrimSpace(src.Text)
		if text == "" {
			continue
		}
		if n == c.maxPassages {
			break
		}
		n++
		if n == 1 {
			b.WriteString("The most relevant passages from your documents:\n")
		}
		fmt.Fprintf(&b, "\n[%d] %s", n, citation(src))
		fmt.Fprintf(&b, "\n%s\n", text)
	}
	if n == 0 {
		return "", fmt.Errorf("extractive: no passage text to quote")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func citation(src domain.Source) string {
	label := src.DocumentID
	if title, ok := src.Metadata["title"].(string); ok && title != "" {
		label = title
	}
	if page, ok := llm.Page(src.Metadata); ok {
		label = fmt.Sprintf("%s, page %d", label, page)
	}
	return fmt.Sprintf("%s (relevance: %.2f)", label, src.Similarity)
}

// ModelName returns "extractive".
func (c *Composer) ModelName() string {
	return ModelName
}

// Ping always succeeds.
func (c *Composer) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (c *Composer) Close() error {
	return nil
}
