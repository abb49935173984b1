package tools

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/outlinedev/outline-mcp/internal/outline"
	"github.com/outlinedev/outline-mcp/internal/pipeline"
)

// CreateNodeTool handles the outline_create_node MCP tool.
type CreateNodeTool struct {
	deps Deps

	// newID generates the node ID; a var so tests can pin it.
	newID func() string
}

// NewCreateNodeTool creates a CreateNodeTool.
func NewCreateNodeTool(deps Deps) *CreateNodeTool {
	return &CreateNodeTool{deps: deps, newID: uuid.NewString}
}

// Name returns the operation name.
func (t *CreateNodeTool) Name() string { return "outline_create_node" }

// Definition returns the MCP tool definition for outline_create_node.
func (t *CreateNodeTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"Create a new outline node under a parent. Omit parent_id to create at the root level.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Node text"),
		),
		mcp.WithString("parent_id",
			mcp.Description("ID of the parent node (default: root)"),
		),
		mcp.WithString("note",
			mcp.Description("Note body attached to the node"),
		),
		mcp.WithNumber("position",
			mcp.Description("Sibling position (default: append)"),
		),
	)
}

// Handle processes the MCP tool call.
func (t *CreateNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(ctx, req, t.Invoke)
}

type createArgs struct {
	Name     string `validate:"required,min=1,max=4096"`
	ParentID string `validate:"omitempty,max=128"`
	Note     string `validate:"omitempty,max=65536"`
	Position int    `validate:"omitempty,min=0"`
}

// Invoke runs the create through the pipeline. The node ID is
// generated here (UUID) so that retried creates upsert upstream
// instead of duplicating — the retry loop may legitimately re-send the
// request after an ambiguous failure.
func (t *CreateNodeTool) Invoke(ctx context.Context, args map[string]any, cred string) (json.RawMessage, error) {
	in := createArgs{
		Name:     strArg(args, "name"),
		ParentID: strArg(args, "parent_id"),
		Note:     strArg(args, "note"),
		Position: intArg(args, "position", 0),
	}
	if err := validate.Struct(in); err != nil {
		return nil, invalidArgs(err)
	}

	id := t.newID()
	return t.deps.Pipe.Do(ctx, pipeline.Operation{
		Name:       t.Name(),
		Class:      pipeline.ClassWrite,
		Args:       args,
		Credential: cred,
		Invalidate: []string{tagList(in.ParentID), tagAllSearch},
		Run: func(ctx context.Context) (any, error) {
			return t.deps.Client.CreateNode(ctx, cred, outline.CreateParams{
				ID:       id,
				ParentID: in.ParentID,
				Name:     in.Name,
				Note:     in.Note,
				Position: in.Position,
			})
		},
	})
}
