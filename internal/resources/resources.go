// Package resources implements MCP resource handlers.
//
// Resources provide read-only data the host can consume for context.
// They use URI-based addressing (outline://...) following MCP
// conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/outlinedev/outline-mcp/internal/pipeline"
)

// Handler manages the server's resource endpoints.
type Handler struct {
	pipe *pipeline.Pipeline
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(pipe *pipeline.Pipeline) *Handler {
	return &Handler{pipe: pipe}
}

// StatsResource returns the MCP resource definition for pipeline
// statistics.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		"outline://pipeline/stats",
		"Pipeline Statistics",
		mcp.WithResourceDescription("Cache, deduplication, and upstream-call counters for the request pipeline"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns the current pipeline counters as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats := h.pipe.Stats(ctx)

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling stats: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
