// Package rpc implements the JSON-RPC envelope layer for the
// edge-style HTTP deployment. It decodes inbound envelopes, routes to
// the registered operation, and encodes the outbound envelope — the
// same operations the MCP stdio transport serves, behind a stateless
// dispatcher that holds no per-request state.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/outlinedev/outline-mcp/internal/apierr"
)

// Protocol error codes (JSON-RPC 2.0).
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Invoker is one dispatchable operation. The tool layer implements it;
// the same implementations back the MCP transport.
type Invoker interface {
	// Name is the operation name requests route on.
	Name() string

	// Invoke validates args, runs the operation through the pipeline,
	// and returns the result payload.
	Invoke(ctx context.Context, args map[string]any, cred string) (json.RawMessage, error)
}

// Request is the inbound envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  map[string]any  `json:"params"`
}

// Response is the outbound envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the protocol-level error object. Data carries the received
// arguments for invalid-params responses; it never carries stacks or
// credential material.
type Error struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Dispatcher routes envelopes to registered operations.
type Dispatcher struct {
	ops map[string]Invoker
}

// NewDispatcher creates a Dispatcher over the given operations.
func NewDispatcher(ops ...Invoker) *Dispatcher {
	d := &Dispatcher{ops: make(map[string]Invoker, len(ops))}
	for _, op := range ops {
		d.ops[op.Name()] = op
	}
	return d
}

// Register adds an operation. Later registrations win on name clashes.
func (d *Dispatcher) Register(op Invoker) {
	d.ops[op.Name()] = op
}

// Dispatch processes one raw inbound payload and returns the encoded
// outbound envelope. It never returns a transport failure: every
// outcome, malformed input included, becomes a well-formed envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte, cred string) []byte {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return encodeResponse(errorResponse(nullID(), CodeParseError, "parse error: invalid JSON envelope", nil))
	}
	if req.Method == "" {
		return encodeResponse(errorResponse(orNull(req.ID), CodeParseError, "parse error: missing method", nil))
	}

	op, ok := d.ops[req.Method]
	if !ok {
		msg := fmt.Sprintf("method not found: %s", req.Method)
		return encodeResponse(errorResponse(orNull(req.ID), CodeMethodNotFound, msg, nil))
	}

	result, err := op.Invoke(ctx, req.Params, cred)
	if err != nil {
		return encodeResponse(errorFrom(orNull(req.ID), err, req.Params))
	}

	return encodeResponse(Response{JSONRPC: "2.0", ID: orNull(req.ID), Result: result})
}

// errorFrom maps a classified failure onto the protocol error shape.
// Formatting is deterministic: the same classified error yields the
// same envelope every time.
func errorFrom(id json.RawMessage, err error, params map[string]any) Response {
	var classified *apierr.Classified
	if errors.As(err, &classified) {
		if classified.Kind == apierr.KindValidation {
			return errorResponse(id, CodeInvalidParams, "invalid arguments: "+classified.Message(), params)
		}
		msg := fmt.Sprintf("%s: %s", classified.Kind, classified.Message())
		return errorResponse(id, CodeInternalError, msg, nil)
	}
	return errorResponse(id, CodeInternalError, err.Error(), nil)
}

func errorResponse(id json.RawMessage, code int, message string, data map[string]any) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: message, Data: data},
	}
}

func encodeResponse(resp Response) []byte {
	out, err := json.Marshal(resp)
	if err != nil {
		// Only reachable if params contain unencodable values; strip
		// the data and report the bare error.
		resp.Error = &Error{Code: CodeInternalError, Message: "response encoding failed"}
		resp.Result = nil
		out, _ = json.Marshal(resp)
	}
	return out
}

func nullID() json.RawMessage {
	return json.RawMessage("null")
}

func orNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return nullID()
	}
	return id
}
