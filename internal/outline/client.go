package outline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Executor is the operation surface the pipeline consumes. The concrete
// implementation is Client; tests substitute stubs.
type Executor interface {
	// Read-only operations.
	ListNodes(ctx context.Context, cred, parentID string) ([]Node, error)
	SearchNodes(ctx context.Context, cred, query string, limit int) ([]Node, error)
	GetNode(ctx context.Context, cred, id string) (*Node, error)
	NodeModifiedAt(ctx context.Context, cred, id string) (time.Time, error)

	// Mutating operations.
	CreateNode(ctx context.Context, cred string, params CreateParams) (*Node, error)
	UpdateNode(ctx context.Context, cred, id string, params UpdateParams) (*Node, error)
	DeleteNode(ctx context.Context, cred, id string) error
	MoveNode(ctx context.Context, cred, id, newParentID string, position int) (*Node, error)
	CompleteNode(ctx context.Context, cred, id string) (*Node, error)
	UncompleteNode(ctx context.Context, cred, id string) (*Node, error)
}

// Client talks to the outline-note API over HTTP.
type Client struct {
	baseURL    string
	defaultKey string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client for the given API base URL. defaultKey is
// the environment-level fallback credential, used when a request does
// not carry its own. Fallback resolution happens here, never in the
// pipeline — the pipeline only ever sees the opaque per-request token.
func NewClient(baseURL, defaultKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		defaultKey: defaultKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// credential resolves the effective API key for a call.
func (c *Client) credential(cred string) string {
	if cred != "" {
		return cred
	}
	return c.defaultKey
}

// do performs a request and decodes the response body into out (when
// out is non-nil). Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, cred, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("outline: encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("outline: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.credential(cred))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport-level failure: timeout, connection reset, DNS.
		// The taxonomy classifies these as Network from the message.
		return fmt.Errorf("outline: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("outline: decoding response: %w", err)
	}
	return nil
}

// readErrorMessage extracts a human-readable message from an error
// response body. The API returns {"error": "..."} but plain-text bodies
// show up from proxies, so both are handled.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return string(raw)
}

// ─── Read operations ─────────────────────────────────────────────────────────

// ListNodes returns the children of parentID. An empty parentID lists
// the root level.
func (c *Client) ListNodes(ctx context.Context, cred, parentID string) ([]Node, error) {
	q := url.Values{}
	if parentID != "" {
		q.Set("parent_id", parentID)
	}
	var out struct {
		Nodes []Node `json:"nodes"`
	}
	if err := c.do(ctx, cred, http.MethodGet, "/nodes", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Nodes, nil
}

// SearchNodes performs a full-text search across the caller's outline.
func (c *Client) SearchNodes(ctx context.Context, cred, query string, limit int) ([]Node, error) {
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Nodes []Node `json:"nodes"`
	}
	if err := c.do(ctx, cred, http.MethodGet, "/nodes/search", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Nodes, nil
}

// GetNode fetches a single node by id.
func (c *Client) GetNode(ctx context.Context, cred, id string) (*Node, error) {
	var node Node
	if err := c.do(ctx, cred, http.MethodGet, "/nodes/"+url.PathEscape(id), nil, nil, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// NodeModifiedAt probes the node's last-modification timestamp without
// fetching the payload. Used by the cache's revalidation strategy: one
// cheap call instead of one expensive one.
func (c *Client) NodeModifiedAt(ctx context.Context, cred, id string) (time.Time, error) {
	var meta NodeMeta
	if err := c.do(ctx, cred, http.MethodGet, "/nodes/"+url.PathEscape(id)+"/meta", nil, nil, &meta); err != nil {
		return time.Time{}, err
	}
	return meta.ModifiedAt, nil
}

// ─── Write operations ────────────────────────────────────────────────────────

// CreateNode creates a new node. params.ID must be a client-generated
// UUID; the API upserts by id, making retried creates idempotent.
func (c *Client) CreateNode(ctx context.Context, cred string, params CreateParams) (*Node, error) {
	var node Node
	if err := c.do(ctx, cred, http.MethodPost, "/nodes", nil, params, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// UpdateNode applies a partial update to a node.
func (c *Client) UpdateNode(ctx context.Context, cred, id string, params UpdateParams) (*Node, error) {
	var node Node
	if err := c.do(ctx, cred, http.MethodPatch, "/nodes/"+url.PathEscape(id), nil, params, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// DeleteNode removes a node and its subtree.
func (c *Client) DeleteNode(ctx context.Context, cred, id string) error {
	return c.do(ctx, cred, http.MethodDelete, "/nodes/"+url.PathEscape(id), nil, nil, nil)
}

// MoveNode reparents a node under newParentID at the given sibling
// position.
func (c *Client) MoveNode(ctx context.Context, cred, id, newParentID string, position int) (*Node, error) {
	body := map[string]any{
		"parent_id": newParentID,
		"position":  position,
	}
	var node Node
	if err := c.do(ctx, cred, http.MethodPost, "/nodes/"+url.PathEscape(id)+"/move", nil, body, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// CompleteNode marks a node complete.
func (c *Client) CompleteNode(ctx context.Context, cred, id string) (*Node, error) {
	var node Node
	if err := c.do(ctx, cred, http.MethodPost, "/nodes/"+url.PathEscape(id)+"/complete", nil, nil, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// UncompleteNode clears a node's completed state.
func (c *Client) UncompleteNode(ctx context.Context, cred, id string) (*Node, error) {
	var node Node
	if err := c.do(ctx, cred, http.MethodPost, "/nodes/"+url.PathEscape(id)+"/uncomplete", nil, nil, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

var _ Executor = (*Client)(nil)
