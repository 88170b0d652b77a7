package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// DefaultMaxFileSizeMB is the file size limit when none is configured.
const DefaultMaxFileSizeMB = 50

// MIMEDetector maps a file path to a MIME type.
type MIMEDetector func(path string) string

// IngestService turns pasted text and files into retrieval store documents.
type IngestService struct {
	store       driving.RetrievalStore
	normalisers driven.NormaliserRegistry
	detect      MIMEDetector
	maxBytes    int64
}

// NewIngestService creates an ingest service.
// A maxFileSizeMB of zero or less uses DefaultMaxFileSizeMB.
func NewIngestService(
	store driving.RetrievalStore,
	normalisers driven.NormaliserRegistry,
	detect MIMEDetector,
	maxFileSizeMB int,
) *IngestService {
	if maxFileSizeMB <= 0 {
		maxFileSizeMB = DefaultMaxFileSizeMB
	}
	return &IngestService{
		store:       store,
		normalisers: normalisers,
		detect:      detect,
		maxBytes:    int64(maxFileSizeMB) << 20,
	}
}

// IngestText stores pasted text. The document ID is opts.DocumentID or a
// new UUID, and every chunk carries source=text.
func (s *IngestService) IngestText(
	ctx context.Context, text string, opts driving.IngestOptions,
) (*domain.IngestResult, error) {
	id := opts.DocumentID
	if id == "" {
		id = uuid.New().String()
	}

	meta := domain.CopyMetadata(opts.Metadata)
	if meta == nil {
		meta = make(map[string]any, 1)
	}
	meta["source"] = "text"

	return s.commit(ctx, &domain.Document{
		ID:       id,
		URI:      "text",
		Content:  text,
		Metadata: meta,
	}, opts.Replace)
}

// IngestFile extracts text from the file at path and stores it.
//
// The document ID is opts.DocumentID or the absolute path, so re-ingesting a
// file after deleting it keeps the same ID. Chunks carry filename, source,
// mime_type and title alongside whatever the normaliser adds.
func (s *IngestService) IngestFile(
	ctx context.Context, path string, opts driving.IngestOptions,
) (*domain.IngestResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("ingest %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("ingest %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("ingest %s: %w: is a directory", path, domain.ErrInvalidInput)
	}
	if info.Size() > s.maxBytes {
		return nil, fmt.Errorf("ingest %s: %w: %d bytes exceeds %d MB",
			path, domain.ErrFileTooLarge, info.Size(), s.maxBytes>>20)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", path, err)
	}

	mimeType := s.detect(abs)
	logger.Debug("Ingesting %s as %s (%d bytes)", abs, mimeType, len(content))

	result, err := s.normalisers.Normalise(ctx, &domain.RawDocument{
		URI:      abs,
		MIMEType: mimeType,
		Content:  content,
		Metadata: opts.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", path, err)
	}

	doc := result.Document
	doc.ID = opts.DocumentID
	if doc.ID == "" {
		doc.ID = abs
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any, 4)
	}
	doc.Metadata["filename"] = filepath.Base(abs)
	doc.Metadata["source"] = abs
	doc.Metadata["mime_type"] = mimeType
	if title := strings.TrimSpace(doc.Title); title != "" {
		doc.Metadata["title"] = title
	}

	return s.commit(ctx, &doc, opts.Replace)
}

func (s *IngestService) commit(ctx context.Context, doc *domain.Document, replace bool) (*domain.IngestResult, error) {
	if replace {
		return s.store.ReplaceDocument(ctx, doc)
	}
	return s.store.IngestDocument(ctx, doc)
}

// SupportedMIMETypes lists the file types IngestFile accepts.
func (s *IngestService) SupportedMIMETypes() []string {
	return s.normalisers.SupportedMIMETypes()
}
