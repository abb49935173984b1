package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/outlinedev/outline-mcp/internal/outline"
	"github.com/outlinedev/outline-mcp/internal/pipeline"
)

// GetNodeTool handles the outline_get_node MCP tool.
type GetNodeTool struct {
	deps Deps
}

// NewGetNodeTool creates a GetNodeTool.
func NewGetNodeTool(deps Deps) *GetNodeTool {
	return &GetNodeTool{deps: deps}
}

// Name returns the operation name.
func (t *GetNodeTool) Name() string { return "outline_get_node" }

// Definition returns the MCP tool definition for outline_get_node.
func (t *GetNodeTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(
			"Fetch a single outline node by ID, including its note text and completion state.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Node ID"),
		),
	)
}

// Handle processes the MCP tool call.
func (t *GetNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return handle(ctx, req, t.Invoke)
}

type idArgs struct {
	ID string `validate:"required,max=128"`
}

// Invoke runs the lookup through the pipeline. Single-node lookups use
// timestamp revalidation: a cache hit triggers a cheap metadata probe,
// and the cached payload is served only when the upstream node has not
// been modified since it was stored.
func (t *GetNodeTool) Invoke(ctx context.Context, args map[string]any, cred string) (json.RawMessage, error) {
	in := idArgs{ID: strArg(args, "id")}
	if err := validate.Struct(in); err != nil {
		return nil, invalidArgs(err)
	}

	return t.deps.Pipe.Do(ctx, pipeline.Operation{
		Name:       t.Name(),
		Class:      pipeline.ClassLookup,
		Args:       map[string]any{"id": in.ID},
		Credential: cred,
		Tags:       []string{tagNode(in.ID)},
		Run: func(ctx context.Context) (any, error) {
			return t.deps.Client.GetNode(ctx, cred, in.ID)
		},
		Probe: func(ctx context.Context) (time.Time, error) {
			return t.deps.Client.NodeModifiedAt(ctx, cred, in.ID)
		},
		ResultModifiedAt: func(result any) time.Time {
			if node, ok := result.(*outline.Node); ok {
				return node.ModifiedAt
			}
			return time.Time{}
		},
	})
}
