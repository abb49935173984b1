// Package server wires all components and creates the server instance.
//
// This is the composition root: it creates concrete implementations
// (outline client, cache tiers, deduplicator, pipeline) and injects
// them into the tools and resources that depend on them. No business
// logic lives here — only wiring.
package server

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/outlinedev/outline-mcp/internal/cache"
	"github.com/outlinedev/outline-mcp/internal/config"
	"github.com/outlinedev/outline-mcp/internal/dedupe"
	"github.com/outlinedev/outline-mcp/internal/outline"
	"github.com/outlinedev/outline-mcp/internal/pipeline"
	"github.com/outlinedev/outline-mcp/internal/resources"
	"github.com/outlinedev/outline-mcp/internal/rpc"
	"github.com/outlinedev/outline-mcp/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Server bundles the two protocol surfaces over one shared pipeline:
// the MCP stdio server for local use and the JSON-RPC dispatcher for
// the stateless HTTP deployment.
type Server struct {
	MCP      *mcpserver.MCPServer
	RPC      *rpc.Dispatcher
	Pipeline *pipeline.Pipeline
}

// tool is what every tool exposes to both protocol surfaces.
type tool interface {
	rpc.Invoker
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// New creates and configures the server with all tools and resources
// registered. The returned cleanup function closes the durable cache
// tier and must be called on shutdown (typically via defer). It is
// always non-nil and safe to call even when the durable tier is
// disabled.
func New(cfg config.Config) (*Server, func(), error) {
	// --- Create shared dependencies ---

	client := outline.NewClient(cfg.APIURL, cfg.APIKey)

	// The durable tier is an independent optimization: if it fails to
	// open, the in-memory tier still serves and the server stays fully
	// functional. Log a warning and continue.
	cleanup := noop
	var store cache.Store = cache.NewMemoryStore(cfg.CacheCapacity)
	if cfg.CachePersist {
		durable, err := cache.NewSQLiteStore(cfg.CacheDir)
		if err != nil {
			log.Printf("WARNING: durable cache tier disabled: %v", err)
		} else {
			store = cache.NewTiered(store, durable)
			cleanup = func() {
				if err := durable.Close(); err != nil {
					log.Printf("WARNING: cache store close: %v", err)
				}
			}
		}
	}

	manager := cache.NewManager(store, cache.DefaultPolicy())
	dd := dedupe.New()

	policies := pipeline.DefaultPolicies()
	policies.Lookup = policies.Lookup.WithOverloadFloor(cfg.OverloadFloor)
	policies.Read = policies.Read.WithOverloadFloor(cfg.OverloadFloor)
	policies.Write = policies.Write.WithOverloadFloor(cfg.OverloadFloor)

	pipe := pipeline.New(manager, dd, policies)
	deps := tools.Deps{Pipe: pipe, Client: client}

	// --- Create the MCP server ---

	s := mcpserver.NewMCPServer(
		"outline-mcp",
		Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(serverInstructions()),
	)

	// --- Register tools on both surfaces ---

	dispatcher := rpc.NewDispatcher()
	for _, t := range allTools(deps) {
		s.AddTool(t.Definition(), t.Handle)
		dispatcher.Register(t)
	}

	// --- Register resources ---

	resourceHandler := resources.NewHandler(pipe)
	s.AddResource(resourceHandler.StatsResource(), resourceHandler.HandleStats)

	return &Server{MCP: s, RPC: dispatcher, Pipeline: pipe}, cleanup, nil
}

// noop is the default cleanup when the durable tier is disabled.
func noop() {}

// allTools builds every tool with the shared dependencies.
func allTools(deps tools.Deps) []tool {
	return []tool{
		tools.NewListNodesTool(deps),
		tools.NewSearchNodesTool(deps),
		tools.NewGetNodeTool(deps),
		tools.NewCreateNodeTool(deps),
		tools.NewUpdateNodeTool(deps),
		tools.NewDeleteNodeTool(deps),
		tools.NewMoveNodeTool(deps),
		tools.NewCompleteNodeTool(deps),
		tools.NewUncompleteNodeTool(deps),
	}
}

// serverInstructions returns the system instructions telling the AI
// how to use the outline tools effectively.
func serverInstructions() string {
	return fmt.Sprintf(`You have access to outline-mcp v%s, a gateway to the user's hierarchical outline notes.

## Tools

Read tools (results may be cached briefly):
- outline_list_nodes: children of a node (omit parent_id for the root level)
- outline_search_nodes: full-text search across the outline
- outline_get_node: a single node with its note text and completion state

Write tools (take effect immediately; related cached reads are refreshed):
- outline_create_node, outline_update_node, outline_delete_node
- outline_move_node (reparents a whole subtree)
- outline_complete_node / outline_uncomplete_node

## Usage notes

- Navigate top-down: list the root, then drill into parents. Use search
  when you don't know where something lives.
- Node IDs come from list/search/get results — never invent one.
- outline_delete_node removes the entire subtree and cannot be undone;
  confirm with the user before deleting anything with children.
- The upstream API rate-limits aggressively. The server retries and
  waits for you, so a slow response is normal — do not re-issue a call
  that has not returned.`, Version)
}
