package postprocessors

import (
	"errors"
	"testing"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

func TestRegistry_RegisterAndBuild(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(cfg map[string]any) (driven.PostProcessor, error) {
		name := "default"
		if n, ok := cfg["name"].(string); ok {
			name = n
		}
		return &mockProcessor{name: name}, nil
	})

	if !r.Has("test") {
		t.Fatal("expected 'test' to be registered")
	}
	proc, err := r.Build("test", map[string]any{"name": "custom"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if proc.Name() != "custom" {
		t.Errorf("expected name 'custom', got %q", proc.Name())
	}
}

func TestRegistry_Build_Unknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Build("stemmer", nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	names := r.Names()
	if len(names) != 2 || names[0] != "chunker" || names[1] != "minlength" {
		t.Errorf("unexpected default processors: %v", names)
	}
}

func TestBuildChunker_FromTOMLValues(t *testing.T) {
	proc, err := buildChunker(map[string]any{"chunk_size": int64(300), "overlap": float64(30)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proc.Name() != "chunker" {
		t.Errorf("expected chunker, got %s", proc.Name())
	}

	_, err = buildChunker(map[string]any{"chunk_size": 10, "overlap": 20})
	if !errors.Is(err, domain.ErrInvalidChunkConfig) {
		t.Errorf("expected ErrInvalidChunkConfig, got %v", err)
	}
}
