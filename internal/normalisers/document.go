package normalisers

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Result wraps extracted text in a NormaliseResult.
// Caller metadata is copied and then overlaid with title, mime_type and format.
func Result(raw *domain.RawDocument, format, title, content string) *driven.NormaliseResult {
	meta := domain.CopyMetadata(raw.Metadata)
	if meta == nil {
		meta = make(map[string]any, 3)
	}
	if title != "" {
		meta["title"] = title
	}
	if raw.MIMEType != "" {
		meta["mime_type"] = raw.MIMEType
	}
	if format != "" {
		meta["format"] = format
	}

	return &driven.NormaliseResult{
		Document: domain.Document{
			ID:        uuid.New().String(),
			URI:       raw.URI,
			Title:     title,
			Content:   content,
			Metadata:  meta,
			CreatedAt: time.Now(),
		},
	}
}

// MetadataTitle returns a caller-supplied "title", if any.
func MetadataTitle(raw *domain.RawDocument) string {
	if title, ok := raw.Metadata["title"].(string); ok {
		return strings.TrimSpace(title)
	}
	return ""
}

// TitleFromURI turns a file path into a readable title:
// "reports/q3_revenue-summary.pdf" becomes "q3 revenue summary".
func TitleFromURI(uri string) string {
	name := filepath.Base(uri)
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
