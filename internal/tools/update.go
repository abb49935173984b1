package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/outlinedev/outline-mcp/internal/outline"
	"github.com/outlinedev/outline-mcp/internal/pipeline"
)

// UpdateNodeTool handles the outline_update_node MCP tool.
type UpdateNodeTool struct {
	deps Deps
}

// NewUpdateNodeTool creates an UpdateNodeTool.
func NewUpdateNodeTool(deps Deps) *UpdateNodeTool {
	return &UpdateNodeTool{deps: deps}
}

// Name returns the operation name.
func (t *UpdateNodeTool) Name() string { return "outline_update_node" }

// Definition returns the MCP tool definition for outline_update_node.
func (t *UpdateNodeTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"Update an outline node's text or note. Only the provided fields change.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Node ID"),
		),
		mcp.WithString("name",
			mcp.Description("New node text"),
		),
		mcp.WithString("note",
			mcp.Description("New note body"),
		),
	)
}

// Handle processes the MCP tool call.
func (t *UpdateNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(ctx, req, t.Invoke)
}

type updateArgs struct {
	ID   string `validate:"required,max=128"`
	Name string `validate:"omitempty,max=4096"`
	Note string `validate:"omitempty,max=65536"`
}

// Invoke runs the update through the pipeline.
func (t *UpdateNodeTool) Invoke(ctx context.Context, args map[string]any, cred string) (json.RawMessage, error) {
	in := updateArgs{
		ID:   strArg(args, "id"),
		Name: strArg(args, "name"),
		Note: strArg(args, "note"),
	}
	if err := validate.Struct(in); err != nil {
		return nil, invalidArgs(err)
	}

	var params outline.UpdateParams
	if _, ok := args["name"]; ok {
		params.Name = &in.Name
	}
	if _, ok := args["note"]; ok {
		params.Note = &in.Note
	}
	if params.Name == nil && params.Note == nil {
		return nil, invalidArgs(errors.New("at least one of 'name' or 'note' is required"))
	}

	return t.deps.Pipe.Do(ctx, pipeline.Operation{
		Name:       t.Name(),
		Class:      pipeline.ClassWrite,
		Args:       args,
		Credential: cred,
		// The node's parent is unknown here, so every listing is
		// purged rather than just the containing one.
		Invalidate: []string{tagNode(in.ID), tagAllLists, tagAllSearch},
		Run: func(ctx context.Context) (any, error) {
			return t.deps.Client.UpdateNode(ctx, cred, in.ID, params)
		},
	})
}
