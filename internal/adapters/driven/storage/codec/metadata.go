// Package codec encodes chunk records for the persistent storage backends.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// EncodeMetadata marshals scalar chunk metadata to JSON.
// Nil metadata encodes as "{}". Floats always carry a decimal point or an
// exponent, so 2.0 is written as 2.0 and decodes as a float again.
func EncodeMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if !domain.IsScalar(v) {
			return nil, fmt.Errorf("metadata %q: %w: value of type %T is not scalar", k, domain.ErrInvalidInput, v)
		}
		switch f := v.(type) {
		case float64:
			v = floatNumber(f, 64)
		case float32:
			v = floatNumber(float64(f), 32)
		}
		out[k] = v
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshalling metadata: %w", err)
	}
	return data, nil
}

// floatNumber formats f as a JSON number that reads back as a float.
// NaN and infinities are left for json.Marshal to reject.
func floatNumber(f float64, bits int) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return json.Number(s)
}

// DecodeMetadata unmarshals JSON metadata. Numbers written without a decimal
// point or exponent decode as int, everything else as float64. An int64 value
// therefore comes back as int and a float32 as float64.
func DecodeMetadata(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	out := make(map[string]any, len(raw))
	for k, v := range raw {
		n, ok := v.(json.Number)
		if !ok {
			out[k] = v
			continue
		}
		if !strings.ContainsAny(n.String(), ".eE") {
			if i, err := n.Int64(); err == nil {
				out[k] = int(i)
				continue
			}
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

// Record is the serialised form of a chunk used by key-value backends.
type Record struct {
	ID               int             `json:"id"`
	Text             string          `json:"text"`
	SourceDocumentID string          `json:"source_document_id"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
}

// EncodeChunk marshals a chunk to a JSON record.
func EncodeChunk(c domain.Chunk) ([]byte, error) {
	meta, err := EncodeMetadata(c.Metadata)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Record{
		ID:               c.ID,
		Text:             c.Text,
		SourceDocumentID: c.SourceDocumentID,
		Metadata:         meta,
	})
}

// DecodeChunk unmarshals a JSON record produced by EncodeChunk.
func DecodeChunk(data []byte) (domain.Chunk, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.Chunk{}, fmt.Errorf("unmarshalling chunk: %w", err)
	}
	meta, err := DecodeMetadata(r.Metadata)
	if err != nil {
		return domain.Chunk{}, err
	}
	return domain.Chunk{
		ID:               r.ID,
		Text:             r.Text,
		SourceDocumentID: r.SourceDocumentID,
		Metadata:         meta,
	}, nil
}
