package services

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// settingsFile is the YAML layout used by settings export and import.
// Credentials are not part of it; they stay in config.toml or the environment.
type settingsFile struct {
	Embedding struct {
		Provider          string  `yaml:"provider"`
		Model             string  `yaml:"model"`
		BaseURL           string  `yaml:"base_url,omitempty"`
		Timeout           string  `yaml:"timeout"`
		BatchSize         int     `yaml:"batch_size"`
		Retries           int     `yaml:"retries"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"embedding"`
	LLM struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model,omitempty"`
		BaseURL  string `yaml:"base_url,omitempty"`
	} `yaml:"llm"`
	Chunker struct {
		ChunkSize int `yaml:"chunk_size"`
		Overlap   int `yaml:"overlap"`
		MinRunes  int `yaml:"min_runes"`
	} `yaml:"chunker"`
	Retrieval struct {
		TopK               int     `yaml:"top_k"`
		Threshold          float64 `yaml:"threshold"`
		SourcePreviewRunes int     `yaml:"source_preview_runes"`
	} `yaml:"retrieval"`
	Storage struct {
		Backend string `yaml:"backend"`
		DataDir string `yaml:"data_dir,omitempty"`
	} `yaml:"storage"`
	Ingest struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"ingest"`
}

func toFile(s *domain.AppSettings) *settingsFile {
	var f settingsFile
	f.Embedding.Provider = s.Embedding.Provider.String()
	f.Embedding.Model = s.Embedding.Model
	f.Embedding.BaseURL = s.Embedding.BaseURL
	f.Embedding.Timeout = s.Embedding.Timeout.String()
	f.Embedding.BatchSize = s.Embedding.BatchSize
	f.Embedding.Retries = s.Embedding.Retries
	f.Embedding.RequestsPerSecond = s.Embedding.RequestsPerSecond
	f.LLM.Provider = s.LLM.Provider.String()
	f.LLM.Model = s.LLM.Model
	f.LLM.BaseURL = s.LLM.BaseURL
	f.Chunker.ChunkSize = s.Chunker.ChunkSize
	f.Chunker.Overlap = s.Chunker.Overlap
	f.Chunker.MinRunes = s.Chunker.MinRunes
	f.Retrieval.TopK = s.Retrieval.TopK
	f.Retrieval.Threshold = s.Retrieval.Threshold
	f.Retrieval.SourcePreviewRunes = s.Retrieval.SourcePreviewRunes
	f.Storage.Backend = s.Storage.Backend.String()
	f.Storage.DataDir = s.Storage.DataDir
	f.Ingest.MaxFileSizeMB = s.Ingest.MaxFileSizeMB
	return &f
}

// apply copies file values onto base. Zero values leave base unchanged,
// so a partial file only touches the keys it names.
func (f *settingsFile) apply(base *domain.AppSettings) error {
	if f.Embedding.Provider != "" {
		if err := parseProvider(f.Embedding.Provider, &base.Embedding.Provider); err != nil {
			return fmt.Errorf("embedding.provider: %w", err)
		}
	}
	setString(&base.Embedding.Model, f.Embedding.Model)
	setString(&base.Embedding.BaseURL, f.Embedding.BaseURL)
	if f.Embedding.Timeout != "" {
		if err := parseDuration(f.Embedding.Timeout, &base.Embedding.Timeout); err != nil {
			return fmt.Errorf("embedding.timeout: %w", err)
		}
	}
	setInt(&base.Embedding.BatchSize, f.Embedding.BatchSize)
	setInt(&base.Embedding.Retries, f.Embedding.Retries)
	if f.Embedding.RequestsPerSecond != 0 {
		base.Embedding.RequestsPerSecond = f.Embedding.RequestsPerSecond
	}

	if f.LLM.Provider != "" {
		if err := parseProvider(f.LLM.Provider, &base.LLM.Provider); err != nil {
			return fmt.Errorf("llm.provider: %w", err)
		}
	}
	setString(&base.LLM.Model, f.LLM.Model)
	setString(&base.LLM.BaseURL, f.LLM.BaseURL)

	setInt(&base.Chunker.ChunkSize, f.Chunker.ChunkSize)
	setInt(&base.Chunker.Overlap, f.Chunker.Overlap)
	setInt(&base.Chunker.MinRunes, f.Chunker.MinRunes)

	setInt(&base.Retrieval.TopK, f.Retrieval.TopK)
	if f.Retrieval.Threshold != 0 {
		base.Retrieval.Threshold = f.Retrieval.Threshold
	}
	setInt(&base.Retrieval.SourcePreviewRunes, f.Retrieval.SourcePreviewRunes)

	if f.Storage.Backend != "" {
		if err := parseBackend(f.Storage.Backend, &base.Storage.Backend); err != nil {
			return fmt.Errorf("storage.backend: %w", err)
		}
	}
	setString(&base.Storage.DataDir, f.Storage.DataDir)
	setInt(&base.Ingest.MaxFileSizeMB, f.Ingest.MaxFileSizeMB)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// Export writes the stored settings as YAML. Credentials are omitted.
func (s *SettingsService) Export(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toFile(s.stored())); err != nil {
		return fmt.Errorf("export settings: %w", err)
	}
	return enc.Close()
}

// Import reads YAML settings over the stored ones, validates the result
// and saves it. Nothing is written if any value is invalid.
func (s *SettingsService) Import(r io.Reader) error {
	var f settingsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return fmt.Errorf("%w: import settings: %w", domain.ErrInvalidInput, err)
	}

	current := s.stored()
	if err := f.apply(current); err != nil {
		return err
	}
	check := *current
	s.applyEnv(&check)
	if err := check.Validate(); err != nil {
		return err
	}
	return s.Save(current)
}
