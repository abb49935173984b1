package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/outlinedev/outline-mcp/internal/apierr"
	"github.com/outlinedev/outline-mcp/internal/cache"
	"github.com/outlinedev/outline-mcp/internal/dedupe"
	"github.com/outlinedev/outline-mcp/internal/outline"
	"github.com/outlinedev/outline-mcp/internal/pipeline"
	"github.com/outlinedev/outline-mcp/internal/retry"
)

// fakeExecutor is a scripted outline.Executor that counts calls and
// records parameters.
type fakeExecutor struct {
	listCalls   int
	searchCalls int
	getCalls    int
	probeCalls  int

	createParams outline.CreateParams
	updateParams outline.UpdateParams
	movedTo      string

	err error
}

func (f *fakeExecutor) ListNodes(_ context.Context, _, parentID string) ([]outline.Node, error) {
	f.listCalls++
	if f.err != nil {
		return nil, f.err
	}
	return []outline.Node{{ID: "n1", Name: "Groceries", ParentID: parentID}}, nil
}

func (f *fakeExecutor) SearchNodes(_ context.Context, _, query string, _ int) ([]outline.Node, error) {
	f.searchCalls++
	if f.err != nil {
		return nil, f.err
	}
	return []outline.Node{{ID: "n1", Name: query}}, nil
}

func (f *fakeExecutor) GetNode(_ context.Context, _, id string) (*outline.Node, error) {
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &outline.Node{ID: id, Name: "Groceries", ModifiedAt: time.Unix(1000, 0)}, nil
}

func (f *fakeExecutor) NodeModifiedAt(_ context.Context, _, _ string) (time.Time, error) {
	f.probeCalls++
	if f.err != nil {
		return time.Time{}, f.err
	}
	return time.Unix(1000, 0), nil
}

func (f *fakeExecutor) CreateNode(_ context.Context, _ string, params outline.CreateParams) (*outline.Node, error) {
	f.createParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &outline.Node{ID: params.ID, Name: params.Name, ParentID: params.ParentID}, nil
}

func (f *fakeExecutor) UpdateNode(_ context.Context, _, id string, params outline.UpdateParams) (*outline.Node, error) {
	f.updateParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &outline.Node{ID: id}, nil
}

func (f *fakeExecutor) DeleteNode(_ context.Context, _, _ string) error {
	return f.err
}

func (f *fakeExecutor) MoveNode(_ context.Context, _, id, newParentID string, _ int) (*outline.Node, error) {
	f.movedTo = newParentID
	if f.err != nil {
		return nil, f.err
	}
	return &outline.Node{ID: id, ParentID: newParentID}, nil
}

func (f *fakeExecutor) CompleteNode(_ context.Context, _, id string) (*outline.Node, error) {
	if f.err != nil {
		return nil, f.err
	}
	now := time.Now()
	return &outline.Node{ID: id, CompletedAt: &now}, nil
}

func (f *fakeExecutor) UncompleteNode(_ context.Context, _, id string) (*outline.Node, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &outline.Node{ID: id}, nil
}

var _ outline.Executor = (*fakeExecutor)(nil)

func newTestDeps(t *testing.T) (Deps, *fakeExecutor) {
	t.Helper()
	fast := retry.Policy{
		MaxAttempts:   3,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		OverloadFloor: time.Millisecond,
	}
	manager := cache.NewManager(cache.NewMemoryStore(64), cache.DefaultPolicy())
	pipe := pipeline.New(manager, dedupe.New(), pipeline.Policies{Lookup: fast, Read: fast, Write: fast})

	exec := &fakeExecutor{}
	return Deps{Pipe: pipe, Client: exec}, exec
}

func wantValidation(t *testing.T, err error) {
	t.Helper()
	var classified *apierr.Classified
	if !errors.As(err, &classified) {
		t.Fatalf("error is %T, want *apierr.Classified", err)
	}
	if classified.Kind != apierr.KindValidation {
		t.Errorf("Kind = %s, want %s", classified.Kind, apierr.KindValidation)
	}
}

// ─── Definitions ─────────────────────────────────────────────────────

func TestDefinitions(t *testing.T) {
	deps, _ := newTestDeps(t)

	tools := []interface {
		Name() string
		Definition() mcp.Tool
	}{
		NewListNodesTool(deps),
		NewSearchNodesTool(deps),
		NewGetNodeTool(deps),
		NewCreateNodeTool(deps),
		NewUpdateNodeTool(deps),
		NewDeleteNodeTool(deps),
		NewMoveNodeTool(deps),
		NewCompleteNodeTool(deps),
		NewUncompleteNodeTool(deps),
	}

	seen := make(map[string]bool)
	for _, tool := range tools {
		def := tool.Definition()
		if def.Name != tool.Name() {
			t.Errorf("definition name %q != tool name %q", def.Name, tool.Name())
		}
		if !strings.HasPrefix(def.Name, "outline_") {
			t.Errorf("tool name %q missing the outline_ prefix", def.Name)
		}
		if def.Description == "" {
			t.Errorf("%s: empty description", def.Name)
		}
		if seen[def.Name] {
			t.Errorf("duplicate tool name %q", def.Name)
		}
		seen[def.Name] = true
	}
}

// ─── Validation ──────────────────────────────────────────────────────

func TestInvoke_ValidationErrors(t *testing.T) {
	deps, _ := newTestDeps(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		invoke func() (json.RawMessage, error)
	}{
		{"get without id", func() (json.RawMessage, error) {
			return NewGetNodeTool(deps).Invoke(ctx, map[string]any{}, "")
		}},
		{"search without query", func() (json.RawMessage, error) {
			return NewSearchNodesTool(deps).Invoke(ctx, map[string]any{}, "")
		}},
		{"search limit over max", func() (json.RawMessage, error) {
			return NewSearchNodesTool(deps).Invoke(ctx, map[string]any{"query": "x", "limit": float64(500)}, "")
		}},
		{"create without name", func() (json.RawMessage, error) {
			return NewCreateNodeTool(deps).Invoke(ctx, map[string]any{"parent_id": "p1"}, "")
		}},
		{"update without any field", func() (json.RawMessage, error) {
			return NewUpdateNodeTool(deps).Invoke(ctx, map[string]any{"id": "n1"}, "")
		}},
		{"delete without id", func() (json.RawMessage, error) {
			return NewDeleteNodeTool(deps).Invoke(ctx, map[string]any{}, "")
		}},
		{"move without id", func() (json.RawMessage, error) {
			return NewMoveNodeTool(deps).Invoke(ctx, map[string]any{"new_parent_id": "p1"}, "")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.invoke()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			wantValidation(t, err)
		})
	}
}

// ─── Reads ───────────────────────────────────────────────────────────

func TestListInvoke_CachesRepeatCalls(t *testing.T) {
	deps, exec := newTestDeps(t)
	ctx := context.Background()
	tool := NewListNodesTool(deps)

	first, err := tool.Invoke(ctx, map[string]any{"parent_id": "p1"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := tool.Invoke(ctx, map[string]any{"parent_id": "p1"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if exec.listCalls != 1 {
		t.Errorf("upstream list calls = %d, want 1", exec.listCalls)
	}
	if string(first) != string(second) {
		t.Error("cached payload differs from live payload")
	}

	var out struct {
		Nodes []outline.Node `json:"nodes"`
	}
	if err := json.Unmarshal(first, &out); err != nil {
		t.Fatalf("malformed payload %s: %v", first, err)
	}
	if len(out.Nodes) != 1 || out.Nodes[0].ID != "n1" {
		t.Errorf("nodes = %+v", out.Nodes)
	}
}

func TestGetInvoke_RevalidatesViaProbe(t *testing.T) {
	deps, exec := newTestDeps(t)
	ctx := context.Background()
	tool := NewGetNodeTool(deps)

	args := map[string]any{"id": "n1"}
	if _, err := tool.Invoke(ctx, args, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tool.Invoke(ctx, args, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if exec.getCalls != 1 {
		t.Errorf("full fetches = %d, want 1", exec.getCalls)
	}
	if exec.probeCalls != 1 {
		t.Errorf("probes = %d, want 1 (second read should revalidate)", exec.probeCalls)
	}
}

func TestSearchInvoke_DefaultsLimit(t *testing.T) {
	deps, exec := newTestDeps(t)
	ctx := context.Background()
	tool := NewSearchNodesTool(deps)

	if _, err := tool.Invoke(ctx, map[string]any{"query": "milk"}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.searchCalls != 1 {
		t.Errorf("search calls = %d, want 1", exec.searchCalls)
	}
}

// ─── Writes ──────────────────────────────────────────────────────────

func TestCreateInvoke_GeneratesIDAndInvalidatesListing(t *testing.T) {
	deps, exec := newTestDeps(t)
	ctx := context.Background()

	list := NewListNodesTool(deps)
	if _, err := list.Invoke(ctx, map[string]any{"parent_id": "p1"}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	create := NewCreateNodeTool(deps)
	create.newID = func() string { return "fixed-uuid" }
	if _, err := create.Invoke(ctx, map[string]any{"name": "Milk", "parent_id": "p1"}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if exec.createParams.ID != "fixed-uuid" {
		t.Errorf("create ID = %q, want the client-generated one", exec.createParams.ID)
	}
	if exec.createParams.ParentID != "p1" {
		t.Errorf("create ParentID = %q, want p1", exec.createParams.ParentID)
	}

	// The listing under p1 must re-fetch after the create.
	if _, err := list.Invoke(ctx, map[string]any{"parent_id": "p1"}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.listCalls != 2 {
		t.Errorf("list calls = %d, want 2 (create must invalidate the parent listing)", exec.listCalls)
	}
}

func TestUpdateInvoke_PartialFieldsAndLookupInvalidation(t *testing.T) {
	deps, exec := newTestDeps(t)
	ctx := context.Background()

	get := NewGetNodeTool(deps)
	if _, err := get.Invoke(ctx, map[string]any{"id": "n1"}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	update := NewUpdateNodeTool(deps)
	if _, err := update.Invoke(ctx, map[string]any{"id": "n1", "note": "2%"}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if exec.updateParams.Name != nil {
		t.Error("name was not provided and must not be sent")
	}
	if exec.updateParams.Note == nil || *exec.updateParams.Note != "2%" {
		t.Errorf("note = %v, want 2%%", exec.updateParams.Note)
	}

	// The cached lookup for n1 is stale now.
	if _, err := get.Invoke(ctx, map[string]any{"id": "n1"}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.getCalls != 2 {
		t.Errorf("get calls = %d, want 2 (update must invalidate the lookup)", exec.getCalls)
	}
}

func TestMoveInvoke_PurgesAllListings(t *testing.T) {
	deps, exec := newTestDeps(t)
	ctx := context.Background()

	list := NewListNodesTool(deps)
	// Cache a listing unrelated to the move's new parent: the former
	// parent is unknown, so it must be purged too.
	if _, err := list.Invoke(ctx, map[string]any{"parent_id": "old-parent"}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	move := NewMoveNodeTool(deps)
	if _, err := move.Invoke(ctx, map[string]any{"id": "n1", "new_parent_id": "new-parent"}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.movedTo != "new-parent" {
		t.Errorf("movedTo = %q, want new-parent", exec.movedTo)
	}

	if _, err := list.Invoke(ctx, map[string]any{"parent_id": "old-parent"}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.listCalls != 2 {
		t.Errorf("list calls = %d, want 2 (move must purge every listing)", exec.listCalls)
	}
}

func TestCompleteInvoke_RoundTrip(t *testing.T) {
	deps, _ := newTestDeps(t)
	ctx := context.Background()

	data, err := NewCompleteNodeTool(deps).Invoke(ctx, map[string]any{"id": "n1"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var node outline.Node
	if err := json.Unmarshal(data, &node); err != nil {
		t.Fatalf("malformed payload %s: %v", data, err)
	}
	if node.CompletedAt == nil {
		t.Error("expected a completed_at timestamp")
	}

	data, err = NewUncompleteNodeTool(deps).Invoke(ctx, map[string]any{"id": "n1"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := json.Unmarshal(data, &node); err != nil {
		t.Fatalf("malformed payload %s: %v", data, err)
	}
	if node.CompletedAt != nil {
		t.Error("expected completed_at to be cleared")
	}
}

// ─── MCP Handle ──────────────────────────────────────────────────────

func TestHandle_SuccessAndError(t *testing.T) {
	deps, exec := newTestDeps(t)
	ctx := context.Background()
	tool := NewGetNodeTool(deps)

	req := mcp.CallToolRequest{}
	req.Params.Name = tool.Name()
	req.Params.Arguments = map[string]any{"id": "n1"}

	result, err := tool.Handle(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result)
	}

	// Upstream failures surface as tool errors, not Go errors, with the
	// classified kind in the message.
	exec.err = errors.New("node not found")
	req.Params.Arguments = map[string]any{"id": "missing"}
	result, err = tool.Handle(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected a tool error result")
	}
}
