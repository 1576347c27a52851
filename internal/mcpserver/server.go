// Package mcpserver routes JSON-RPC requests to the MCP methods the server
// supports: initialize, ping, tools/list and tools/call.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/vinodismyname/mcpsheets/config"
	"github.com/vinodismyname/mcpsheets/internal/jsonrpc"
	"github.com/vinodismyname/mcpsheets/internal/registry"
	"github.com/vinodismyname/mcpsheets/internal/telemetry"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

// Server is a stateless request router. The only state it keeps is the id
// of the current client session, assigned on initialize.
type Server struct {
	name    string
	version string

	tools       registry.ToolProvider
	filter      server.ToolFilterFunc
	handler     server.ToolHandlerFunc
	middlewares []server.ToolHandlerMiddleware
	hooks       *telemetry.Hooks
	log         zerolog.Logger

	mu      sync.Mutex
	session string
}

// Option customizes a Server.
type Option func(*Server)

// WithToolFilter hides tools from tools/list.
func WithToolFilter(f server.ToolFilterFunc) Option {
	return func(s *Server) { s.filter = f }
}

// WithToolHandlerMiddleware wraps the tool handler. The first middleware
// added is the outermost.
func WithToolHandlerMiddleware(mw server.ToolHandlerMiddleware) Option {
	return func(s *Server) { s.middlewares = append(s.middlewares, mw) }
}

// WithHooks installs lifecycle and call logging.
func WithHooks(h *telemetry.Hooks) Option {
	return func(s *Server) { s.hooks = h }
}

// WithLogger sets the logger used for protocol diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New builds a Server that lists tools from tools and runs every tools/call
// through handler.
func New(name, version string, tools registry.ToolProvider, handler server.ToolHandlerFunc, opts ...Option) *Server {
	s := &Server{
		name:    name,
		version: version,
		tools:   tools,
		handler: handler,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hooks == nil {
		s.hooks = telemetry.NewHooks(s.log)
	}
	for i := len(s.middlewares) - 1; i >= 0; i-- {
		s.handler = s.middlewares[i](s.handler)
	}
	return s
}

// HandleMessage decodes one line and returns the encoded response, or nil
// for notifications.
func (s *Server) HandleMessage(ctx context.Context, line []byte) []byte {
	req, err := jsonrpc.Decode(line)
	var resp jsonrpc.Response
	switch {
	case errors.Is(err, jsonrpc.ErrInvalidRequest):
		s.hooks.OnRequestError(req.Method, err)
		resp = jsonrpc.NewError(req.ID, jsonrpc.InvalidRequest, "Invalid Request", nil)
	case err != nil:
		s.hooks.OnRequestError("", err)
		resp = jsonrpc.NewError(nil, jsonrpc.ParseError, "Parse error", nil)
	case req.IsNotification():
		s.notify(req)
		return nil
	default:
		resp = s.Dispatch(telemetry.WithSession(ctx, s.sessionID()), req)
	}
	out, err := jsonrpc.Encode(resp)
	if err != nil {
		s.log.Error().Err(err).Str("method", req.Method).Msg("encode response")
		out, _ = jsonrpc.Encode(jsonrpc.NewError(req.ID, jsonrpc.InternalError, "failed to encode response", nil))
	}
	return out
}

// Dispatch answers a decoded request.
func (s *Server) Dispatch(ctx context.Context, req jsonrpc.Request) jsonrpc.Response {
	switch mcp.MCPMethod(req.Method) {
	case mcp.MethodInitialize:
		return s.initialize(req)
	case mcp.MethodPing:
		return jsonrpc.NewResult(req.ID, struct{}{})
	case mcp.MethodToolsList:
		return s.listTools(ctx, req)
	case mcp.MethodToolsCall:
		return s.callTool(ctx, req)
	}
	return jsonrpc.NewError(req.ID, jsonrpc.MethodNotFound, "Method not found: "+req.Method, nil)
}

func (s *Server) notify(req jsonrpc.Request) {
	switch req.Method {
	case "notifications/initialized":
		s.log.Debug().Str("session_id", s.sessionID()).Msg("client initialized")
	default:
		s.log.Debug().Str("method", req.Method).Msg("ignoring notification")
	}
}

func (s *Server) sessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

type initializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ClientInfo      mcp.Implementation `json:"clientInfo"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      mcp.Implementation `json:"serverInfo"`
	Capabilities    capabilities       `json:"capabilities"`
}

type capabilities struct {
	Tools struct{} `json:"tools"`
}

func (s *Server) initialize(req jsonrpc.Request) jsonrpc.Response {
	var params initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return jsonrpc.NewError(req.ID, jsonrpc.InvalidParams, "Invalid params: "+err.Error(), nil)
		}
	}
	version := config.DefaultProtocolVersion
	if slices.Contains(mcp.ValidProtocolVersions, params.ProtocolVersion) {
		version = params.ProtocolVersion
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.session = id
	s.mu.Unlock()
	s.hooks.OnSessionStart(id, params.ClientInfo.Name, version)

	return jsonrpc.NewResult(req.ID, initializeResult{
		ProtocolVersion: version,
		ServerInfo:      mcp.Implementation{Name: s.name, Version: s.version},
	})
}

func (s *Server) listTools(ctx context.Context, req jsonrpc.Request) jsonrpc.Response {
	tools, err := s.tools.Tools(ctx)
	if err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.InternalError, err.Error(), nil)
	}
	if s.filter != nil {
		tools = s.filter(ctx, tools)
	}
	s.hooks.OnListTools(telemetry.SessionFrom(ctx), len(tools))
	return jsonrpc.NewResult(req.ID, mcp.ListToolsResult{Tools: tools})
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) callTool(ctx context.Context, req jsonrpc.Request) jsonrpc.Response {
	var params callParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.InvalidParams, "Invalid params: "+err.Error(), nil)
	}
	if params.Name == "" {
		return jsonrpc.NewError(req.ID, jsonrpc.InvalidParams, "Invalid params: name is required", nil)
	}
	args := params.Arguments
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}

	call := mcp.CallToolRequest{}
	call.Method = string(mcp.MethodToolsCall)
	call.Params.Name = params.Name
	call.Params.Arguments = args

	res, err := s.invoke(ctx, call)
	if err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.OperationError, err.Error(), mcperr.DetailsOf(err))
	}
	return jsonrpc.NewResult(req.ID, res)
}

// invoke runs the handler chain and turns a panic into an operation error.
func (s *Server) invoke(ctx context.Context, call mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("tool", call.Params.Name).Interface("panic", r).Msg("tool handler panicked")
			res, err = nil, mcperr.Wrap(mcperr.IOFailed, fmt.Errorf("%v", r), "panic recovered in "+call.Params.Name)
		}
	}()
	return s.handler(ctx, call)
}
