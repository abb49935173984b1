package outline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "env-key")
}

func TestListNodes(t *testing.T) {
	var gotPath, gotAuth, gotParent string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotParent = r.URL.Query().Get("parent_id")
		json.NewEncoder(w).Encode(map[string]any{
			"nodes": []Node{{ID: "n1", Name: "Groceries"}},
		})
	})

	nodes, err := c.ListNodes(context.Background(), "req-key", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/nodes" {
		t.Errorf("path = %q, want /nodes", gotPath)
	}
	if gotAuth != "Bearer req-key" {
		t.Errorf("auth = %q, want the per-request credential", gotAuth)
	}
	if gotParent != "p1" {
		t.Errorf("parent_id = %q, want p1", gotParent)
	}
	if len(nodes) != 1 || nodes[0].ID != "n1" {
		t.Errorf("nodes = %+v", nodes)
	}
}

func TestCredentialFallback(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"nodes": []Node{}})
	})

	if _, err := c.ListNodes(context.Background(), "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer env-key" {
		t.Errorf("auth = %q, want the environment fallback key", gotAuth)
	}
}

func TestSearchNodes(t *testing.T) {
	var gotQuery, gotLimit string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotLimit = r.URL.Query().Get("limit")
		json.NewEncoder(w).Encode(map[string]any{"nodes": []Node{{ID: "n1"}}})
	})

	nodes, err := c.SearchNodes(context.Background(), "", "milk", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "milk" || gotLimit != "10" {
		t.Errorf("query = %q, limit = %q", gotQuery, gotLimit)
	}
	if len(nodes) != 1 {
		t.Errorf("nodes = %+v", nodes)
	}
}

func TestNodeModifiedAt(t *testing.T) {
	modified := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(NodeMeta{ID: "n1", ModifiedAt: modified})
	})

	got, err := c.NodeModifiedAt(context.Background(), "", "n1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/nodes/n1/meta" {
		t.Errorf("path = %q, want /nodes/n1/meta", gotPath)
	}
	if !got.Equal(modified) {
		t.Errorf("modified = %v, want %v", got, modified)
	}
}

func TestCreateNode_SendsClientID(t *testing.T) {
	var got CreateParams
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(Node{ID: got.ID, Name: got.Name})
	})

	node, err := c.CreateNode(context.Background(), "", CreateParams{
		ID: "uuid-1", Name: "Milk", ParentID: "p1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "uuid-1" {
		t.Errorf("sent ID = %q, want uuid-1", got.ID)
	}
	if node.ID != "uuid-1" {
		t.Errorf("node.ID = %q, want uuid-1", node.ID)
	}
}

func TestUpdateNode_OmitsNilFields(t *testing.T) {
	var raw map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		json.NewEncoder(w).Encode(Node{ID: "n1"})
	})

	name := "New name"
	if _, err := c.UpdateNode(context.Background(), "", "n1", UpdateParams{Name: &name}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw["name"] != "New name" {
		t.Errorf("body name = %v", raw["name"])
	}
	if _, present := raw["note"]; present {
		t.Error("nil note must not appear in the request body")
	}
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
	})

	_, err := c.GetNode(context.Background(), "", "n1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error is %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
	}
	if apiErr.Message != "rate limit exceeded" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.HTTPStatus() != http.StatusTooManyRequests {
		t.Errorf("HTTPStatus() = %d, want 429", apiErr.HTTPStatus())
	}
}

func TestAPIError_PlainTextBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream proxy error"))
	})

	_, err := c.GetNode(context.Background(), "", "n1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error is %T, want *APIError", err)
	}
	if apiErr.Message != "upstream proxy error" {
		t.Errorf("Message = %q, want the raw body", apiErr.Message)
	}
}

func TestDeleteNode(t *testing.T) {
	var gotMethod, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.DeleteNode(context.Background(), "", "n1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/nodes/n1" {
		t.Errorf("request = %s %s, want DELETE /nodes/n1", gotMethod, gotPath)
	}
}

func TestMoveNode(t *testing.T) {
	var raw map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		json.NewEncoder(w).Encode(Node{ID: "n1", ParentID: "p2"})
	})

	node, err := c.MoveNode(context.Background(), "", "n1", "p2", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw["parent_id"] != "p2" || raw["position"] != float64(3) {
		t.Errorf("body = %v", raw)
	}
	if node.ParentID != "p2" {
		t.Errorf("ParentID = %q, want p2", node.ParentID)
	}
}
