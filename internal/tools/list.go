package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/outlinedev/outline-mcp/internal/pipeline"
)

// ListNodesTool handles the outline_list_nodes MCP tool.
type ListNodesTool struct {
	deps Deps
}

// NewListNodesTool creates a ListNodesTool.
func NewListNodesTool(deps Deps) *ListNodesTool {
	return &ListNodesTool{deps: deps}
}

// Name returns the operation name.
func (t *ListNodesTool) Name() string { return "outline_list_nodes" }

// Definition returns the MCP tool definition for outline_list_nodes.
func (t *ListNodesTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"List the children of an outline node. Omit parent_id to list the root level.",
		),
		mcp.WithString("parent_id",
			mcp.Description("ID of the parent node (default: root)"),
		),
	)
}

// Handle processes the MCP tool call.
func (t *ListNodesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(ctx, req, t.Invoke)
}

type listArgs struct {
	ParentID string `validate:"omitempty,max=128"`
}

// Invoke runs the list operation through the pipeline.
func (t *ListNodesTool) Invoke(ctx context.Context, args map[string]any, cred string) (json.RawMessage, error) {
	in := listArgs{ParentID: strArg(args, "parent_id")}
	if err := validate.Struct(in); err != nil {
		return nil, invalidArgs(err)
	}

	return t.deps.Pipe.Do(ctx, pipeline.Operation{
		Name:       t.Name(),
		Class:      pipeline.ClassList,
		Args:       map[string]any{"parent_id": in.ParentID},
		Credential: cred,
		Tags:       []string{tagList(in.ParentID), tagAllLists},
		Run: func(ctx context.Context) (any, error) {
			nodes, err := t.deps.Client.ListNodes(ctx, cred, in.ParentID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"nodes": nodes}, nil
		},
	})
}
