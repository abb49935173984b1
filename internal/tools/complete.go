package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/outlinedev/outline-mcp/internal/pipeline"
)

// CompleteNodeTool handles the outline_complete_node MCP tool.
type CompleteNodeTool struct {
	deps Deps
}

// NewCompleteNodeTool creates a CompleteNodeTool.
func NewCompleteNodeTool(deps Deps) *CompleteNodeTool {
	return &CompleteNodeTool{deps: deps}
}

// Name returns the operation name.
func (t *CompleteNodeTool) Name() string { return "outline_complete_node" }

// Definition returns the MCP tool definition for outline_complete_node.
func (t *CompleteNodeTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"Mark an outline node as complete.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Node ID"),
		),
	)
}

// Handle processes the MCP tool call.
func (t *CompleteNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(ctx, req, t.Invoke)
}

// Invoke runs the toggle through the pipeline.
func (t *CompleteNodeTool) Invoke(ctx context.Context, args map[string]any, cred string) (json.RawMessage, error) {
	in := idArgs{ID: strArg(args, "id")}
	if err := validate.Struct(in); err != nil {
		return nil, invalidArgs(err)
	}

	return t.deps.Pipe.Do(ctx, pipeline.Operation{
		Name:       t.Name(),
		Class:      pipeline.ClassWrite,
		Args:       args,
		Credential: cred,
		Invalidate: []string{tagNode(in.ID), tagAllLists, tagAllSearch},
		Run: func(ctx context.Context) (any, error) {
			return t.deps.Client.CompleteNode(ctx, cred, in.ID)
		},
	})
}

// ─── UncompleteNodeTool ──────────────────────────────────────────────────────

// UncompleteNodeTool handles the outline_uncomplete_node MCP tool.
type UncompleteNodeTool struct {
	deps Deps
}

// NewUncompleteNodeTool creates an UncompleteNodeTool.
func NewUncompleteNodeTool(deps Deps) *UncompleteNodeTool {
	return &UncompleteNodeTool{deps: deps}
}

// Name returns the operation name.
func (t *UncompleteNodeTool) Name() string { return "outline_uncomplete_node" }

// Definition returns the MCP tool definition for outline_uncomplete_node.
func (t *UncompleteNodeTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"Clear an outline node's completed state.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Node ID"),
		),
	)
}

// Handle processes the MCP tool call.
func (t *UncompleteNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(ctx, req, t.Invoke)
}

// Invoke runs the toggle through the pipeline.
func (t *UncompleteNodeTool) Invoke(ctx context.Context, args map[string]any, cred string) (json.RawMessage, error) {
	in := idArgs{ID: strArg(args, "id")}
	if err := validate.Struct(in); err != nil {
		return nil, invalidArgs(err)
	}

	return t.deps.Pipe.Do(ctx, pipeline.Operation{
		Name:       t.Name(),
		Class:      pipeline.ClassWrite,
		Args:       args,
		Credential: cred,
		Invalidate: []string{tagNode(in.ID), tagAllLists, tagAllSearch},
		Run: func(ctx context.Context) (any, error) {
			return t.deps.Client.UncompleteNode(ctx, cred, in.ID)
		},
	})
}
