package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p, err := New()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ChunkSize() != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.ChunkSize())
		}
		if p.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.Overlap())
		}
	})

	t.Run("custom values", func(t *testing.T) {
		p, err := New(WithChunkSize(500), WithOverlap(0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ChunkSize() != 500 || p.Overlap() != 0 {
			t.Errorf("expected 500/0, got %d/%d", p.ChunkSize(), p.Overlap())
		}
	})

	invalid := []struct {
		name string
		opts []Option
	}{
		{"overlap equals chunk size", []Option{WithChunkSize(100), WithOverlap(100)}},
		{"overlap exceeds chunk size", []Option{WithChunkSize(100), WithOverlap(150)}},
		{"zero chunk size", []Option{WithChunkSize(0)}},
		{"negative overlap", []Option{WithOverlap(-1)}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if !errors.Is(err, domain.ErrInvalidChunkConfig) {
				t.Errorf("expected ErrInvalidChunkConfig, got %v", err)
			}
		})
	}
}

func TestProcessor_Name(t *testing.T) {
	p, _ := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestSplit_TwelveThousandCharacters(t *testing.T) {
	text := strings.Repeat("abcdefghij", 1200)

	segments, err := Split(text, 1000, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 12 {
		t.Fatalf("expected 12 segments, got %d", len(segments))
	}
	if len(segments[0]) != 1000 {
		t.Errorf("expected first segment of 1000 runes, got %d", len(segments[0]))
	}
	for i := 1; i < len(segments); i++ {
		if len(segments[i]) != 1100 {
			t.Errorf("segment %d: expected 1100 runes with overlap, got %d", i, len(segments[i]))
		}
		prev := segments[i-1]
		if !strings.HasPrefix(segments[i], prev[len(prev)-100:]) {
			t.Errorf("segment %d does not start with the previous segment's tail", i)
		}
	}
	if Reconstruct(segments, 100) != text {
		t.Error("reconstruction does not match the original text")
	}
}

func TestSplit_ShortTextSingleSegment(t *testing.T) {
	segments, err := Split("short text", 100, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 || segments[0] != "short text" {
		t.Errorf("expected the whole text as one segment, got %q", segments)
	}
}

func TestSplit_EmptyText(t *testing.T) {
	segments, err := Split("", 100, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("expected no segments, got %d", len(segments))
	}
}

func TestSplit_InvalidOverlap(t *testing.T) {
	for _, overlap := range []int{10, 11, 50} {
		_, err := Split("some text", 10, overlap)
		if !errors.Is(err, domain.ErrInvalidChunkConfig) {
			t.Errorf("overlap %d: expected ErrInvalidChunkConfig, got %v", overlap, err)
		}
	}
}

func TestSplit_ZeroOverlapNoDuplication(t *testing.T) {
	text := strings.Repeat("0123456789", 25)

	segments, err := Split(text, 40, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(segments, "") != text {
		t.Error("zero-overlap segments should concatenate to the original text")
	}
	total := 0
	for _, s := range segments {
		total += len(s)
	}
	if total != len(text) {
		t.Errorf("expected %d runes across segments, got %d", len(text), total)
	}
}

func TestSplit_Properties(t *testing.T) {
	texts := []string{
		"a",
		strings.Repeat("x", 99),
		strings.Repeat("x", 100),
		strings.Repeat("x", 101),
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40),
		strings.Repeat("héllo wörld ✓ ", 57),
	}
	params := [][2]int{{100, 0}, {100, 20}, {100, 99}, {7, 3}, {1, 0}}

	for _, text := range texts {
		for _, p := range params {
			segments, err := Split(text, p[0], p[1])
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i, s := range segments {
				if s == "" {
					t.Errorf("size=%d overlap=%d: segment %d is empty", p[0], p[1], i)
				}
				if got := len([]rune(s)); got > p[0]+p[1] {
					t.Errorf("size=%d overlap=%d: segment %d has %d runes", p[0], p[1], i, got)
				}
			}
			if got := Reconstruct(segments, p[1]); got != text {
				t.Errorf("size=%d overlap=%d: reconstruction mismatch", p[0], p[1])
			}

			again, _ := Split(text, p[0], p[1])
			if strings.Join(again, "|") != strings.Join(segments, "|") {
				t.Errorf("size=%d overlap=%d: split is not deterministic", p[0], p[1])
			}
		}
	}
}

func TestSplit_MultibyteRunes(t *testing.T) {
	text := strings.Repeat("日本語", 10) // 30 runes

	segments, err := Split(text, 10, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if got := len([]rune(segments[1])); got != 12 {
		t.Errorf("expected 12 runes in second segment, got %d", got)
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	p, _ := New()
	doc := &domain.Document{ID: "test-doc", Content: ""}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}
}

func TestProcessor_Process_NilDocument(t *testing.T) {
	p, _ := New()

	_, err := p.Process(context.Background(), nil, nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProcessor_Process_ChunkFields(t *testing.T) {
	p, _ := New(WithChunkSize(10), WithOverlap(3))
	doc := &domain.Document{
		ID:       "doc-1",
		Content:  strings.Repeat("abcde", 5),
		Metadata: map[string]any{"filename": "notes.txt"},
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if c.ID != i {
			t.Errorf("chunk %d: expected ID %d, got %d", i, i, c.ID)
		}
		if c.SourceDocumentID != "doc-1" {
			t.Errorf("chunk %d: expected source doc-1, got %s", i, c.SourceDocumentID)
		}
		if c.Metadata["filename"] != "notes.txt" {
			t.Errorf("chunk %d: document metadata not copied", i)
		}
		if c.Metadata["segment"] != i {
			t.Errorf("chunk %d: expected segment %d, got %v", i, i, c.Metadata["segment"])
		}
	}
	if chunks[1].Metadata["offset"] != 7 {
		t.Errorf("expected second chunk offset 7, got %v", chunks[1].Metadata["offset"])
	}
	if chunks[2].Metadata["length"] != 8 {
		t.Errorf("expected last chunk length 8, got %v", chunks[2].Metadata["length"])
	}

	// Document metadata must not be mutated by the processor.
	if _, ok := doc.Metadata["offset"]; ok {
		t.Error("processor mutated document metadata")
	}
}

func TestProcessor_Process_CancelledContext(t *testing.T) {
	p, _ := New(WithChunkSize(5), WithOverlap(0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, &domain.Document{ID: "d", Content: "0123456789"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestProcessor_Process_Pages(t *testing.T) {
	p, err := New(WithChunkSize(10), WithOverlap(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := &domain.Document{
		ID:       "doc",
		Content:  "ignored when pages are set",
		Pages:    []string{"page one text", "", "three"},
		Metadata: map[string]any{"filename": "a.pdf"},
	}
	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// "page one text" is 13 runes: two segments. The blank page adds none.
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantPages := []int{1, 1, 3}
	for i, c := range chunks {
		if c.ID != i {
			t.Errorf("chunk %d: expected ID %d, got %d", i, i, c.ID)
		}
		if c.Metadata["page"] != wantPages[i] {
			t.Errorf("chunk %d: expected page %d, got %v", i, wantPages[i], c.Metadata["page"])
		}
		if c.Metadata["segment"] != i {
			t.Errorf("chunk %d: expected segment %d, got %v", i, i, c.Metadata["segment"])
		}
		if c.Metadata["filename"] != "a.pdf" {
			t.Errorf("chunk %d: metadata not copied", i)
		}
	}
	if chunks[2].Text != "three" || chunks[2].Metadata["offset"] != 0 {
		t.Errorf("unexpected last chunk: %+v", chunks[2])
	}
	if _, ok := doc.Metadata["page"]; ok {
		t.Error("document metadata must not be modified")
	}
}
