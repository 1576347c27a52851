package telemetry

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

type sessionKey struct{}

// WithSession tags ctx with the id of the client session it serves.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFrom returns the session id carried by ctx, or "".
func SessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Hooks logs server lifecycle events and tool calls. All output goes to the
// configured logger, never to the protocol stream.
type Hooks struct {
	logger zerolog.Logger
}

// NewHooks constructs a Hooks instance with the provided logger.
func NewHooks(logger zerolog.Logger) *Hooks {
	return &Hooks{logger: logger}
}

// OnServerStart is called when the server begins reading requests.
func (h *Hooks) OnServerStart() {
	h.logger.Info().Msg("MCP server starting")
}

// OnServerStop is called once the input stream is exhausted or the context
// is cancelled.
func (h *Hooks) OnServerStop(err error) {
	if err != nil {
		h.logger.Error().Err(err).Msg("MCP server stopped")
		return
	}
	h.logger.Info().Msg("MCP server stopping")
}

// OnSessionStart records a client initialize.
func (h *Hooks) OnSessionStart(sessionID, client, protocolVersion string) {
	h.logger.Info().Str("session_id", sessionID).Str("client", client).Str("protocol_version", protocolVersion).Msg("session started")
}

// OnListTools records a tools/list response.
func (h *Hooks) OnListTools(sessionID string, count int) {
	h.logger.Debug().Str("session_id", sessionID).Int("tools", count).Msg("list_tools served")
}

// OnToolCall logs tool invocations and their outcomes.
func (h *Hooks) OnToolCall(sessionID, toolName string, duration time.Duration, err error) {
	if err != nil {
		h.logger.Error().
			Str("session_id", sessionID).
			Str("tool", toolName).
			Dur("duration", duration).
			Str("code", string(mcperr.CodeOf(err))).
			Err(err).
			Msg("tool call error")
		return
	}
	h.logger.Info().Str("session_id", sessionID).Str("tool", toolName).Dur("duration", duration).Msg("tool call completed")
}

// OnRequestError logs protocol-level failures such as unparsable lines.
func (h *Hooks) OnRequestError(method string, err error) {
	h.logger.Warn().Str("method", method).Err(err).Msg("request error")
}

// ToolMiddleware times each tool call and reports it through OnToolCall.
func (h *Hooks) ToolMiddleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := next(ctx, req)
		h.OnToolCall(SessionFrom(ctx), req.Params.Name, time.Since(start), err)
		return res, err
	}
}
