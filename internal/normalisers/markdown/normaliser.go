package markdown

import (
	"context"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts Markdown to plain text.
// YAML front matter is lifted into metadata; scalar values only.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	body := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")
	front, body := splitFrontMatter(body)

	title := normalisers.MetadataTitle(raw)
	if title == "" {
		if t, ok := front["title"].(string); ok {
			title = strings.TrimSpace(t)
		}
	}
	if title == "" {
		title = firstHeading(body)
	}
	if title == "" {
		title = normalisers.TitleFromURI(raw.URI)
	}

	result := normalisers.Result(raw, "markdown", title, stripMarkdown(body))
	for k, v := range front {
		if _, taken := result.Document.Metadata[k]; taken || !domain.IsScalar(v) {
			continue
		}
		result.Document.Metadata[k] = v
	}
	return result, nil
}

// splitFrontMatter separates a leading "---" YAML block from the body.
// Malformed front matter is left in the body untouched.
func splitFrontMatter(content string) (map[string]any, string) {
	if !strings.HasPrefix(content, "---\n") {
		return nil, content
	}
	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, content
	}

	var front map[string]any
	if err := yaml.Unmarshal([]byte(rest[:end]), &front); err != nil {
		return nil, content
	}
	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	return front, body
}

// firstHeading returns the text of the first level-one ATX heading.
func firstHeading(content string) string {
	inFence := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

var (
	headingMarker  = regexp.MustCompile(`^#{1,6}\s+`)
	listMarker     = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+`)
	quoteMarker    = regexp.MustCompile(`^(?:>\s?)+`)
	horizontalRule = regexp.MustCompile(`^\s*(?:[-*_]\s*){3,}$`)
	imageLink      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	inlineLink     = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	inlineCode     = regexp.MustCompile("`([^`]+)`")
	blankRun       = regexp.MustCompile(`\n{3,}`)

	// Bold before italic; underscores only at word boundaries so that
	// snake_case identifiers survive.
	emphasis = []*regexp.Regexp{
		regexp.MustCompile(`\*\*(\S(?:.*?\S)?)\*\*`),
		regexp.MustCompile(`\b__(\S(?:.*?\S)?)__\b`),
		regexp.MustCompile(`\*(\S(?:.*?\S)?)\*`),
		regexp.MustCompile(`\b_(\S(?:.*?\S)?)_\b`),
	}
)

// stripMarkdown removes Markdown syntax and keeps the readable text.
// Fenced code keeps its content; only the fence lines are dropped.
func stripMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	inFence := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}
		if horizontalRule.MatchString(line) {
			out = append(out, "")
			continue
		}

		line = quoteMarker.ReplaceAllString(line, "")
		line = headingMarker.ReplaceAllString(line, "")
		line = listMarker.ReplaceAllString(line, "")
		line = imageLink.ReplaceAllString(line, "$1")
		line = inlineLink.ReplaceAllString(line, "$1")
		line = inlineCode.ReplaceAllString(line, "$1")
		for _, re := range emphasis {
			line = re.ReplaceAllString(line, "$1")
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}

	text := blankRun.ReplaceAllString(strings.Join(out, "\n"), "\n\n")
	return strings.TrimSpace(text)
}
