// Package mcp provides an MCP (Model Context Protocol) server adapter for ragstore.
// It lets AI assistants ingest documents, query the store and ask questions.
package mcp

import "errors"

// ErrMissingStore is returned when the retrieval store is not provided.
var ErrMissingStore = errors.New("mcp: retrieval store is required")

// errNotConfirmed is returned by reset_store without confirm=true.
var errNotConfirmed = errors.New("reset_store requires confirm=true")
