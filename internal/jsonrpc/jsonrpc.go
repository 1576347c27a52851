// Package jsonrpc holds the JSON-RPC 2.0 envelopes exchanged on the stdio
// transport. One request or notification per line, one response per request.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
)

// Error codes. Operation failures raised by tools use OperationError and
// carry the coded details in Data.
const (
	ParseError     = mcp.PARSE_ERROR
	InvalidRequest = mcp.INVALID_REQUEST
	MethodNotFound = mcp.METHOD_NOT_FOUND
	InvalidParams  = mcp.INVALID_PARAMS
	InternalError  = mcp.INTERNAL_ERROR
	OperationError = -32000
)

var nullID = json.RawMessage("null")

// Request is an incoming call or notification. ID is nil when the member is
// absent, which marks a notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the sender expects no response.
func (r Request) IsNotification() bool { return r.ID == nil }

// Error is the error member of a response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Response carries exactly one of Result or Error.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NewResult builds a success response for id.
func NewResult(id json.RawMessage, result any) Response {
	return Response{JSONRPC: mcp.JSONRPC_VERSION, ID: normalizeID(id), Result: result}
}

// NewError builds an error response for id. A nil id is sent as null.
func NewError(id json.RawMessage, code int, message string, data any) Response {
	return Response{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      normalizeID(id),
		Error:   &Error{Code: code, Message: message, Data: data},
	}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return nullID
	}
	return id
}

// ErrInvalidRequest reports a well-formed JSON value that is not a request.
var ErrInvalidRequest = errors.New("invalid request")

// Decode parses one line. Syntax errors are returned as-is so the caller
// can answer with ParseError; structural problems yield ErrInvalidRequest.
func Decode(line []byte) (Request, error) {
	var req Request
	dec := json.NewDecoder(bytes.NewReader(line))
	if err := dec.Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Request{}, ErrInvalidRequest
		}
		return Request{}, err
	}
	if dec.More() {
		return Request{}, ErrInvalidRequest
	}
	if req.Method == "" {
		return req, ErrInvalidRequest
	}
	if req.ID != nil && !validID(req.ID) {
		return req, ErrInvalidRequest
	}
	return req, nil
}

// validID accepts string, number and null ids.
func validID(id json.RawMessage) bool {
	switch id[0] {
	case '"', 'n', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return true
	}
	return false
}

// Encode renders r as a single line terminated by '\n'.
func Encode(r Response) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
