package mcp

import (
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Store answers queries, stats and deletions.
	Store driving.RetrievalStore

	// Ingest adds text and files. Ingest tools are omitted when nil.
	Ingest driving.IngestService

	// Ask composes answers. The ask tool is omitted when nil.
	Ask driving.AskService

	// Defaults supplies top_k and threshold when a call omits them.
	Defaults domain.QueryOptions
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Store == nil {
		return ErrMissingStore
	}
	return nil
}
