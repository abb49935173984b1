// Package tools implements the MCP tool handlers for the outline API.
//
// Each tool follows the same pattern:
// - A struct with dependencies (pipeline, executor) injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() adapts the MCP request
// - Invoke() validates arguments and runs the operation through the
//   pipeline; the JSON-RPC dispatcher routes to the same Invoke.
//
// Tools are thin glue: classification, retry, caching, and
// deduplication all live in the pipeline.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/outlinedev/outline-mcp/internal/apierr"
	"github.com/outlinedev/outline-mcp/internal/outline"
	"github.com/outlinedev/outline-mcp/internal/pipeline"
)

// validate is the shared validator instance. Argument structs declare
// constraints via `validate` tags; failures are rejected before the
// pipeline and classified as validation errors.
var validate = validator.New()

// Deps holds the dependencies every tool shares.
type Deps struct {
	Pipe   *pipeline.Pipeline
	Client outline.Executor
}

// intArg extracts an integer argument (JSON numbers arrive as float64).
func intArg(args map[string]any, key string, defaultVal int) int {
	v, ok := args[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// strArg extracts a string argument.
func strArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// invalidArgs wraps a validation failure as a classified error so the
// dispatcher maps it to an invalid-params response.
func invalidArgs(err error) error {
	return apierr.NewValidation(err)
}

// toolError formats a pipeline failure as an MCP tool error result.
// Only the classified kind and message surface — never stacks,
// endpoints, or credentials.
func toolError(err error) *mcp.CallToolResult {
	classified := apierr.Classify(err)
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", classified.Kind, classified.Message()))
}

// toolResult wraps a JSON payload as an MCP text result.
func toolResult(data json.RawMessage) *mcp.CallToolResult {
	return mcp.NewToolResultText(string(data))
}

// handle is the shared Handle implementation: every tool's MCP entry
// point is Invoke behind the MCP result envelope. The stdio transport
// carries no per-request credential; the executor falls back to the
// environment-level key.
func handle(ctx context.Context, req mcp.CallToolRequest, invoke func(context.Context, map[string]any, string) (json.RawMessage, error)) (*mcp.CallToolResult, error) {
	result, err := invoke(ctx, req.GetArguments(), "")
	if err != nil {
		return toolError(err), nil
	}
	return toolResult(result), nil
}

// Cache tag scheme. A node entry is tagged with its identity; list
// entries carry both their parent's tag and the catch-all "lists" tag
// so writes with an unknown former parent can still purge every
// listing; search entries all share one tag because result-set
// membership cannot be attributed to single nodes.
func tagNode(id string) string     { return "node:" + id }
func tagList(parent string) string { return "list:" + parent }

const (
	tagAllLists  = "lists"
	tagAllSearch = "search"
)
