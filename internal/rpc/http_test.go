package rpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_PostDispatches(t *testing.T) {
	op := &stubInvoker{name: "outline_get_node", result: json.RawMessage(`{"id":"n1"}`)}
	h := NewHandler(NewDispatcher(op))

	req := httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"outline_get_node","params":{"node_id":"n1"}}`))
	req.Header.Set("Authorization", "Bearer sk-test")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if op.gotCred != "sk-test" {
		t.Errorf("cred = %q, want the bearer token", op.gotCred)
	}

	resp := decodeResponse(t, rec.Body.Bytes())
	if resp.Error != nil {
		t.Errorf("unexpected error: %+v", resp.Error)
	}
}

func TestHandler_MissingAuthUsesEmptyCredential(t *testing.T) {
	op := &stubInvoker{name: "ping", result: json.RawMessage(`{}`), gotCred: "sentinel"}
	h := NewHandler(NewDispatcher(op))

	req := httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if op.gotCred != "" {
		t.Errorf("cred = %q, want empty (executor supplies the fallback key)", op.gotCred)
	}
}

func TestHandler_RejectsNonPost(t *testing.T) {
	h := NewHandler(NewDispatcher())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Allow = %q, want POST", allow)
	}
}

func TestHandler_ProtocolErrorsRideHTTP200(t *testing.T) {
	h := NewHandler(NewDispatcher())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{broken`))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (errors belong in the envelope)", rec.Code)
	}
	resp := decodeResponse(t, rec.Body.Bytes())
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Errorf("error = %+v, want code %d", resp.Error, CodeParseError)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"standard bearer", "Bearer sk-123", "sk-123"},
		{"case-insensitive scheme", "bearer sk-123", "sk-123"},
		{"absent header", "", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz", ""},
		{"bare scheme", "Bearer ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := bearerToken(req); got != tt.want {
				t.Errorf("bearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}
