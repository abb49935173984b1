package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/outlinedev/outline-mcp/internal/pipeline"
)

// DeleteNodeTool handles the outline_delete_node MCP tool.
type DeleteNodeTool struct {
	deps Deps
}

// NewDeleteNodeTool creates a DeleteNodeTool.
func NewDeleteNodeTool(deps Deps) *DeleteNodeTool {
	return &DeleteNodeTool{deps: deps}
}

// Name returns the operation name.
func (t *DeleteNodeTool) Name() string { return "outline_delete_node" }

// Definition returns the MCP tool definition for outline_delete_node.
func (t *DeleteNodeTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"Delete an outline node and its entire subtree. This cannot be undone.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Node ID"),
		),
	)
}

// Handle processes the MCP tool call.
func (t *DeleteNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(ctx, req, t.Invoke)
}

// Invoke runs the delete through the pipeline.
func (t *DeleteNodeTool) Invoke(ctx context.Context, args map[string]any, cred string) (json.RawMessage, error) {
	in := idArgs{ID: strArg(args, "id")}
	if err := validate.Struct(in); err != nil {
		return nil, invalidArgs(err)
	}

	return t.deps.Pipe.Do(ctx, pipeline.Operation{
		Name:       t.Name(),
		Class:      pipeline.ClassWrite,
		Args:       args,
		Credential: cred,
		// Deleting a subtree affects the node, its former parent's
		// listing, and any listing/search covering descendants.
		Invalidate: []string{tagNode(in.ID), tagAllLists, tagAllSearch},
		Run: func(ctx context.Context) (any, error) {
			if err := t.deps.Client.DeleteNode(ctx, cred, in.ID); err != nil {
				return nil, err
			}
			return map[string]any{"deleted": in.ID}, nil
		},
	})
}
