package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/outlinedev/outline-mcp/internal/pipeline"
)

// MoveNodeTool handles the outline_move_node MCP tool.
type MoveNodeTool struct {
	deps Deps
}

// NewMoveNodeTool creates a MoveNodeTool.
func NewMoveNodeTool(deps Deps) *MoveNodeTool {
	return &MoveNodeTool{deps: deps}
}

// Name returns the operation name.
func (t *MoveNodeTool) Name() string { return "outline_move_node" }

// Definition returns the MCP tool definition for outline_move_node.
func (t *MoveNodeTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"Move an outline node (with its subtree) under a new parent at the given sibling position.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Node ID"),
		),
		mcp.WithString("new_parent_id",
			mcp.Description("ID of the new parent (default: root)"),
		),
		mcp.WithNumber("position",
			mcp.Description("Sibling position under the new parent (default: 0)"),
		),
	)
}

// Handle processes the MCP tool call.
func (t *MoveNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(ctx, req, t.Invoke)
}

type moveArgs struct {
	ID          string `validate:"required,max=128"`
	NewParentID string `validate:"omitempty,max=128"`
	Position    int    `validate:"omitempty,min=0"`
}

// Invoke runs the move through the pipeline.
func (t *MoveNodeTool) Invoke(ctx context.Context, args map[string]any, cred string) (json.RawMessage, error) {
	in := moveArgs{
		ID:          strArg(args, "id"),
		NewParentID: strArg(args, "new_parent_id"),
		Position:    intArg(args, "position", 0),
	}
	if err := validate.Struct(in); err != nil {
		return nil, invalidArgs(err)
	}

	return t.deps.Pipe.Do(ctx, pipeline.Operation{
		Name:       t.Name(),
		Class:      pipeline.ClassWrite,
		Args:       args,
		Credential: cred,
		// A move changes the node, its former parent's listing, and
		// the new parent's listing; the former parent is unknown here,
		// so every listing is purged.
		Invalidate: []string{tagNode(in.ID), tagList(in.NewParentID), tagAllLists, tagAllSearch},
		Run: func(ctx context.Context) (any, error) {
			return t.deps.Client.MoveNode(ctx, cred, in.ID, in.NewParentID, in.Position)
		},
	})
}
