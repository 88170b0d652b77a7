package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

// IngestTextInput is the input schema for the ingest_text tool.
type IngestTextInput struct {
	Text       string         `json:"text" jsonschema:"the text to store"`
	DocumentID string         `json:"document_id,omitempty" jsonschema:"document ID (a UUID is generated when empty)"`
	Metadata   map[string]any `json:"metadata,omitempty" jsonschema:"scalar values copied onto every chunk"`
}

// IngestFileInput is the input schema for the ingest_file tool.
type IngestFileInput struct {
	Path     string         `json:"path" jsonschema:"path of a file on the server's filesystem"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"scalar values copied onto every chunk"`
}

// IngestOutput is the output schema for the ingest tools.
type IngestOutput struct {
	DocumentID   string `json:"document_id"`
	ChunksAdded  int    `json:"chunks_added"`
	TotalChunks  int    `json:"total_chunks"`
	TotalVectors int    `json:"total_vectors"`
}

// QueryInput is the input schema for the query and ask tools.
type QueryInput struct {
	Query     string   `json:"query" jsonschema:"the question or search text"`
	TopK      int      `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"minimum cosine similarity between -1 and 1"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Results []SourceOutput `json:"results"`
	Count   int            `json:"count"`
}

// SourceOutput is a chunk returned by query or cited by ask.
type SourceOutput struct {
	ChunkID    int            `json:"chunk_id"`
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string         `json:"answer"`
	Sources []SourceOutput `json:"sources"`
	Relaxed bool           `json:"relaxed"`
	Error   string         `json:"error,omitempty"`
}

// StatsOutput is the output schema for the stats tool.
type StatsOutput struct {
	ChunksCount    int    `json:"chunks_count"`
	TotalVectors   int    `json:"total_vectors"`
	IsSynced       bool   `json:"is_synced"`
	DocumentsCount int    `json:"documents_count"`
	Dimension      int    `json:"dimension"`
	Status         string `json:"status"`
}

// DeleteInput is the input schema for the delete_document tool.
type DeleteInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document to delete"`
}

// DeleteOutput is the output schema for the delete_document tool.
type DeleteOutput struct {
	DocumentID    string `json:"document_id"`
	ChunksRemoved int    `json:"chunks_removed"`
	TotalChunks   int    `json:"total_chunks"`
	TotalVectors  int    `json:"total_vectors"`
}

// ResetInput is the input schema for the reset_store tool.
type ResetInput struct {
	Confirm bool `json:"confirm" jsonschema:"must be true to delete every chunk"`
}

// ResetOutput is the output schema for the reset_store tool.
type ResetOutput struct {
	Reset bool `json:"reset"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_text",
			Description: "Chunk, embed and store a piece of text",
		}, s.handleIngestText)
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_file",
			Description: "Extract text from a file and store it",
		}, s.handleIngestFile)
	}
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Return the stored chunks most similar to a query",
	}, s.handleQuery)
	if s.ports.Ask != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question from the stored documents, citing sources",
		}, s.handleAsk)
	}
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stats",
		Description: "Count chunks, vectors and documents in the store",
	}, s.handleStats)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document and rebuild the vector index",
	}, s.handleDelete)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reset_store",
		Description: "Delete every chunk and vector",
	}, s.handleReset)
}

func (s *Server) handleIngestText(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestTextInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	res, err := s.ports.Ingest.IngestText(ctx, input.Text, driving.IngestOptions{
		DocumentID: input.DocumentID,
		Metadata:   input.Metadata,
	})
	if err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, ingestOutput(res), nil
}

func (s *Server) handleIngestFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestFileInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	res, err := s.ports.Ingest.IngestFile(ctx, input.Path, driving.IngestOptions{Metadata: input.Metadata})
	if err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, ingestOutput(res), nil
}

func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	results, err := s.ports.Store.Query(ctx, input.Query, s.queryOptions(input))
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Results: make([]SourceOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		c := results[i].Chunk
		output.Results[i] = SourceOutput{
			ChunkID:    c.ID,
			DocumentID: c.SourceDocumentID,
			Text:       c.Text,
			Similarity: results[i].Similarity,
			Metadata:   c.Metadata,
		}
	}
	return nil, output, nil
}

// handleAsk reports a composer failure in the output so the sources are
// still returned to the caller.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Ask.Ask(ctx, input.Query, s.queryOptions(input))
	if answer == nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:  answer.Text,
		Sources: make([]SourceOutput, len(answer.Sources)),
		Relaxed: answer.Relaxed,
	}
	if err != nil {
		output.Error = err.Error()
	}
	for i, src := range answer.Sources {
		output.Sources[i] = SourceOutput{
			ChunkID:    src.ChunkID,
			DocumentID: src.DocumentID,
			Text:       src.Text,
			Similarity: src.Similarity,
			Metadata:   src.Metadata,
		}
	}
	return nil, output, nil
}

func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, StatsOutput, error) {
	h := s.ports.Store.Health(ctx)
	return nil, StatsOutput{
		ChunksCount:    h.Stats.ChunksCount,
		TotalVectors:   h.Stats.TotalVectors,
		IsSynced:       h.Stats.IsSynced,
		DocumentsCount: h.Stats.DocumentsCount,
		Dimension:      h.Stats.Dimension,
		Status:         string(h.Status),
	}, nil
}

func (s *Server) handleDelete(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteInput,
) (*mcp.CallToolResult, DeleteOutput, error) {
	res, err := s.ports.Store.DeleteDocument(ctx, input.DocumentID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{
		DocumentID:    res.DocumentID,
		ChunksRemoved: res.ChunksRemoved,
		TotalChunks:   res.TotalChunks,
		TotalVectors:  res.TotalVectors,
	}, nil
}

func (s *Server) handleReset(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ResetInput,
) (*mcp.CallToolResult, ResetOutput, error) {
	if !input.Confirm {
		return nil, ResetOutput{}, errNotConfirmed
	}
	if err := s.ports.Store.Reset(ctx); err != nil {
		return nil, ResetOutput{}, err
	}
	return nil, ResetOutput{Reset: true}, nil
}

func (s *Server) queryOptions(input QueryInput) domain.QueryOptions {
	opts := s.ports.Defaults
	if input.TopK > 0 {
		opts.TopK = input.TopK
	}
	if input.Threshold != nil {
		opts.Threshold = *input.Threshold
	}
	return opts
}

func ingestOutput(res *domain.IngestResult) IngestOutput {
	return IngestOutput{
		DocumentID:   res.DocumentID,
		ChunksAdded:  res.ChunksAdded,
		TotalChunks:  res.TotalChunks,
		TotalVectors: res.TotalVectors,
	}
}
