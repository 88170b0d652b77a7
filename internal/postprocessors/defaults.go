package postprocessors

import (
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/postprocessors/chunker"
	"github.com/custodia-labs/ragstore/internal/postprocessors/minlength"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("minlength", buildMinLength)
}

// DefaultPipeline builds the chunking pipeline described by the chunker settings.
// The minlength filter is only added when MinRunes is positive.
func DefaultPipeline(s domain.ChunkerSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)

	names := []string{"chunker"}
	configs := map[string]map[string]any{
		"chunker": {"chunk_size": s.ChunkSize, "overlap": s.Overlap},
	}
	if s.MinRunes > 0 {
		names = append(names, "minlength")
		configs["minlength"] = map[string]any{"min_runes": s.MinRunes}
	}
	return BuildPipeline(r, names, configs)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Runes per chunk (default: 600)
//   - overlap (int): Overlapping runes between chunks (default: 100)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	p, err := chunker.New(opts...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// buildMinLength creates a short-fragment filter from generic config.
// Supported config keys:
//   - min_runes (int): Chunks with fewer runes are dropped (default: 10)
func buildMinLength(cfg map[string]any) (driven.PostProcessor, error) {
	if n, ok := getIntFromConfig(cfg, "min_runes"); ok {
		return minlength.New(n), nil
	}
	return minlength.New(minlength.DefaultMinRunes), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
