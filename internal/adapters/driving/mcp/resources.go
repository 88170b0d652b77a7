package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// URIScheme is the custom URI scheme for ragstore resources.
	uriScheme = "ragstore://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Store statistics and embedding provider status",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Documents present in the store with their chunk counts",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document",
		Description: "Summary of a single stored document",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)
}

// handleStatsResource returns the live health snapshot.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	h := s.ports.Store.Health(ctx)

	type statsInfo struct {
		Status         string `json:"status"`
		Description    string `json:"description"`
		ChunksCount    int    `json:"chunks_count"`
		TotalVectors   int    `json:"total_vectors"`
		IsSynced       bool   `json:"is_synced"`
		DocumentsCount int    `json:"documents_count"`
		Dimension      int    `json:"dimension"`
		Metric         string `json:"metric"`
		Provider       string `json:"provider"`
		Model          string `json:"model,omitempty"`
		Configured     bool   `json:"provider_configured"`
	}

	return jsonResource(req.Params.URI, statsInfo{
		Status:         string(h.Status),
		Description:    h.Describe(),
		ChunksCount:    h.Stats.ChunksCount,
		TotalVectors:   h.Stats.TotalVectors,
		IsSynced:       h.Stats.IsSynced,
		DocumentsCount: h.Stats.DocumentsCount,
		Dimension:      h.Stats.Dimension,
		Metric:         h.Stats.Metric.String(),
		Provider:       h.Provider.Name,
		Model:          h.Provider.Model,
		Configured:     h.Provider.Configured,
	})
}

type docInfo struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Chunks int    `json:"chunks"`
}

// handleDocumentsResource lists every document in the store.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs := s.ports.Store.Documents(ctx)

	infos := make([]docInfo, len(docs))
	for i, d := range docs {
		infos[i] = docInfo{ID: d.ID, Title: d.Title, Chunks: d.Chunks}
	}
	return jsonResource(req.Params.URI, infos)
}

// handleDocumentResource returns one document's summary.
func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	for _, d := range s.ports.Store.Documents(ctx) {
		if d.ID == docID {
			return jsonResource(req.Params.URI, docInfo{ID: d.ID, Title: d.Title, Chunks: d.Chunks})
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentID extracts the document ID from a URI like ragstore://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
