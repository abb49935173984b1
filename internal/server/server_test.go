package server

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/outlinedev/outline-mcp/internal/config"
	"github.com/outlinedev/outline-mcp/internal/rpc"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.CacheDir = t.TempDir()
	cfg.CachePersist = false

	s, cleanup, err := New(cfg)
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	t.Cleanup(cleanup)
	return s
}

func TestNew_WiresBothSurfaces(t *testing.T) {
	s := newTestServer(t)
	if s.MCP == nil {
		t.Error("MCP server missing")
	}
	if s.RPC == nil {
		t.Error("RPC dispatcher missing")
	}
	if s.Pipeline == nil {
		t.Error("pipeline missing")
	}
}

func TestNew_DurableTierFailureDegrades(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CachePersist = true
	// A file where the data dir should be makes the sqlite tier fail to
	// open; the server must still come up on the in-memory tier.
	cfg.CacheDir = filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(cfg.CacheDir, []byte("in the way"), 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	s, cleanup, err := New(cfg)
	if err != nil {
		t.Fatalf("server should degrade, got: %v", err)
	}
	defer cleanup()
	if s.Pipeline == nil {
		t.Error("pipeline missing")
	}
}

func TestDispatcher_RoutesEveryTool(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	// Every call here fails argument validation, proving the route
	// reaches the tool without touching the upstream API.
	oversized := strings.Repeat("x", 200)
	calls := map[string]map[string]any{
		"outline_list_nodes":       {"parent_id": oversized},
		"outline_search_nodes":     {},
		"outline_get_node":         {},
		"outline_create_node":      {},
		"outline_update_node":      {},
		"outline_delete_node":      {},
		"outline_move_node":        {},
		"outline_complete_node":    {},
		"outline_uncomplete_node":  {},
	}
	for name, params := range calls {
		req, _ := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"method":  name,
			"params":  params,
		})
		raw := s.RPC.Dispatch(ctx, req, "")

		var resp rpc.Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			t.Fatalf("%s: malformed envelope %s: %v", name, raw, err)
		}
		if resp.Error == nil {
			t.Errorf("%s: expected a validation error", name)
			continue
		}
		if resp.Error.Code == rpc.CodeMethodNotFound {
			t.Errorf("%s: not registered on the dispatcher", name)
		} else if resp.Error.Code != rpc.CodeInvalidParams {
			t.Errorf("%s: error code = %d, want %d", name, resp.Error.Code, rpc.CodeInvalidParams)
		}
	}
}
