// Package outline implements the HTTP client for the hierarchical
// outline-note API. It is the authenticated operation executor the
// request pipeline delegates to: one method per operation, normalized
// arguments in, typed results or an *APIError out.
package outline

import (
	"fmt"
	"time"
)

// Node is a single outline item. Nodes form a tree: every node except
// the root has a parent, and ordering among siblings is by Position.
type Node struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Note        string     `json:"note,omitempty"`
	ParentID    string     `json:"parent_id,omitempty"`
	Position    int        `json:"position"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ModifiedAt  time.Time  `json:"modified_at"`
}

// Completed reports whether the node is marked complete.
func (n Node) Completed() bool {
	return n.CompletedAt != nil
}

// CreateParams holds the input for creating a new node.
// ID is client-generated (UUID) so that a retried create is idempotent
// on the upstream side — the API upserts by id.
type CreateParams struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Name     string `json:"name"`
	Note     string `json:"note,omitempty"`
	Position int    `json:"position,omitempty"`
}

// UpdateParams holds partial update fields for a node. Nil fields are
// left unchanged upstream.
type UpdateParams struct {
	Name *string `json:"name,omitempty"`
	Note *string `json:"note,omitempty"`
}

// NodeMeta is the lightweight metadata returned by the modified-at
// probe. It intentionally omits the payload fields.
type NodeMeta struct {
	ID         string    `json:"id"`
	ModifiedAt time.Time `json:"modified_at"`
}

// APIError is a non-2xx response from the outline API. The status code
// and message are the shape the error taxonomy classifies on.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("outline: API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("outline: %s (status %d)", e.Message, e.StatusCode)
}

// HTTPStatus returns the HTTP status carried by the error.
func (e *APIError) HTTPStatus() int { return e.StatusCode }
