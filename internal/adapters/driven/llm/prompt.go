// Package llm holds prompt construction shared by the answer composer adapters.
// Provider clients live in the subpackages.
package llm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// DefaultSystemPrompt instructs the model to stay within the retrieved context.
const DefaultSystemPrompt = `You answer questions using only the context passages provided.
If the context does not contain the answer, say that you could not find it in the ingested documents.
Cite passages by their context number and page when one is given. Be concise.`

// DefaultAnswerPrompt is the user message template: context blocks, then the question.
const DefaultAnswerPrompt = `Context:
%s
Question: %s

Answer:`

// NoContext is sent in place of context blocks when no source has text.
const NoContext = "No relevant context found."

// Prompt is a system instruction and user message pair.
type Prompt struct {
	System string
	User   string
}

// Build assembles the prompt for question. Templates come from store when it
// is set and loads succeed; otherwise the defaults are used.
func Build(store driven.PromptStore, question string, sources []domain.Source) Prompt {
	return Prompt{
		System: load(store, driven.PromptAnswerSystem, DefaultSystemPrompt),
		User:   fmt.Sprintf(load(store, driven.PromptAnswer, DefaultAnswerPrompt), FormatContext(sources), question),
	}
}

// FormatContext renders sources as numbered context blocks:
//
//	[Context 1 - Page 3 (relevance: 0.87)]
//	passage text
//
// Sources with blank text are skipped without consuming a number.
func FormatContext(sources []domain.Source) string {
	var b strings.Builder
	n := 0
	for _, src := range sources {
		text := strings.TrimSpace(src.Text)
		if text == "" {
			continue
		}
		n++
		if n > 1 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[Context %d", n)
		if page, ok := Page(src.Metadata); ok {
			fmt.Fprintf(&b, " - Page %d", page)
		}
		fmt.Fprintf(&b, " (relevance: %.2f)]\n%s\n", src.Similarity, text)
	}
	if n == 0 {
		return NoContext
	}
	return b.String()
}

// Page reads a positive page number from chunk metadata. JSON-decoded
// metadata carries numbers as float64, so all numeric kinds are accepted.
func Page(meta map[string]any) (int, bool) {
	var page int
	switch v := meta["page"].(type) {
	case int:
		page = v
	case int64:
		page = int(v)
	case float64:
		page = int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		page = n
	default:
		return 0, false
	}
	return page, page > 0
}

func load(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return fallback
	}
	return prompt
}
