package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/outlinedev/outline-mcp/internal/pipeline"
)

// defaultSearchLimit caps search results when the caller does not ask
// for a specific count.
const defaultSearchLimit = 25

// SearchNodesTool handles the outline_search_nodes MCP tool.
type SearchNodesTool struct {
	deps Deps
}

// NewSearchNodesTool creates a SearchNodesTool.
func NewSearchNodesTool(deps Deps) *SearchNodesTool {
	return &SearchNodesTool{deps: deps}
}

// Name returns the operation name.
func (t *SearchNodesTool) Name() string { return "outline_search_nodes" }

// Definition returns the MCP tool definition for outline_search_nodes.
func (t *SearchNodesTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"Full-text search across the outline. Returns matching nodes with their location in the tree.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 25, max: 100)"),
		),
	)
}

// Handle processes the MCP tool call.
func (t *SearchNodesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(ctx, req, t.Invoke)
}

type searchArgs struct {
	Query string `validate:"required,min=1,max=512"`
	Limit int    `validate:"omitempty,min=1,max=100"`
}

// Invoke runs the search operation through the pipeline.
func (t *SearchNodesTool) Invoke(ctx context.Context, args map[string]any, cred string) (json.RawMessage, error) {
	in := searchArgs{
		Query: strArg(args, "query"),
		Limit: intArg(args, "limit", defaultSearchLimit),
	}
	if err := validate.Struct(in); err != nil {
		return nil, invalidArgs(err)
	}

	return t.deps.Pipe.Do(ctx, pipeline.Operation{
		Name:       t.Name(),
		Class:      pipeline.ClassSearch,
		Args:       map[string]any{"query": in.Query, "limit": in.Limit},
		Credential: cred,
		Tags:       []string{tagAllSearch},
		Run: func(ctx context.Context) (any, error) {
			nodes, err := t.deps.Client.SearchNodes(ctx, cred, in.Query, in.Limit)
			if err != nil {
				return nil, err
			}
			return map[string]any{"nodes": nodes}, nil
		},
	})
}
