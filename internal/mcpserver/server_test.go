package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/mcpsheets/config"
	"github.com/vinodismyname/mcpsheets/internal/registry"
	"github.com/vinodismyname/mcpsheets/internal/security"
	"github.com/vinodismyname/mcpsheets/internal/spreadsheet"
	"github.com/vinodismyname/mcpsheets/internal/workbooks"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"error"`
}

func send(t *testing.T, s *Server, line string) response {
	t.Helper()
	out := s.HandleMessage(context.Background(), []byte(line))
	require.NotNil(t, out, "expected a response to %s", line)
	require.Equal(t, byte('\n'), out[len(out)-1])
	var resp response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Equal(t, "2.0", resp.JSONRPC)
	return resp
}

func echoHandler(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(req.Params.Name + ":" + string(req.Params.Arguments.(json.RawMessage))), nil
}

func newTestServer(handler server.ToolHandlerFunc, opts ...Option) *Server {
	return New(config.ServerName, "test", registry.Default(), handler, opts...)
}

func TestInitialize(t *testing.T) {
	s := newTestServer(echoHandler)

	resp := send(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"cli","version":"1"}}}`)
	require.Nil(t, resp.Error)
	require.JSONEq(t, `1`, string(resp.ID))

	var res initializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	require.Equal(t, "2025-03-26", res.ProtocolVersion)
	require.Equal(t, config.ServerName, res.ServerInfo.Name)
	require.Equal(t, "test", res.ServerInfo.Version)
	require.Contains(t, string(resp.Result), `"capabilities":{"tools":{}}`)
	require.NotEmpty(t, s.sessionID())

	resp = send(t, s, `{"jsonrpc":"2.0","id":"b","method":"initialize","params":{"protocolVersion":"1999-01-01"}}`)
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	require.Equal(t, config.DefaultProtocolVersion, res.ProtocolVersion)
	require.JSONEq(t, `"b"`, string(resp.ID))
}

func TestPing(t *testing.T) {
	resp := send(t, newTestServer(echoHandler), `{"jsonrpc":"2.0","id":7,"method":"ping"}`)
	require.Nil(t, resp.Error)
	require.JSONEq(t, `{}`, string(resp.Result))
}

func TestListTools(t *testing.T) {
	resp := send(t, newTestServer(echoHandler), `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Nil(t, resp.Error)
	var res struct {
		Tools []struct {
			Name        string         `json:"name"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	require.Len(t, res.Tools, len(spreadsheet.Operations()))
	for _, tool := range res.Tools {
		require.Equal(t, "object", tool.InputSchema["type"], tool.Name)
	}
}

func TestListToolsReadOnlyFilter(t *testing.T) {
	filter := registry.NewReadOnlyFilter(true)
	s := newTestServer(echoHandler, WithToolFilter(filter.FilterTools))

	resp := send(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	var res mcp.ListToolsResult
	require.NoError(t, json.Unmarshal(resp.Result, &res))

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{"list_files", "list_sheets", "read_spreadsheet", "get_formula"}, names)
}

func TestCallTool(t *testing.T) {
	s := newTestServer(echoHandler)

	resp := send(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"list_files","arguments":{"pattern":"*.csv"}}}`)
	require.Nil(t, resp.Error)
	var res struct {
		Content []mcp.TextContent `json:"content"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	require.Len(t, res.Content, 1)
	require.Equal(t, "text", res.Content[0].Type)
	require.Equal(t, `list_files:{"pattern":"*.csv"}`, res.Content[0].Text)

	resp = send(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"list_files"}}`)
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	require.Equal(t, `list_files:{}`, res.Content[0].Text)
}

func TestCallToolOperationError(t *testing.T) {
	failing := func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, mcperr.New(mcperr.NotFound, "File not found: a.xlsx")
	}
	resp := send(t, newTestServer(failing), `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"read_spreadsheet","arguments":{"filename":"a.xlsx"}}}`)
	require.Nil(t, resp.Result)
	require.NotNil(t, resp.Error)
	require.Equal(t, -32000, resp.Error.Code)
	require.Contains(t, resp.Error.Message, "File not found: a.xlsx")

	var details mcperr.Details
	require.NoError(t, json.Unmarshal(resp.Error.Data, &details))
	require.Equal(t, mcperr.NotFound, details.Code)
}

func TestCallToolRecoversPanic(t *testing.T) {
	panicky := func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		panic("boom")
	}
	resp := send(t, newTestServer(panicky), `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"read_spreadsheet"}}`)
	require.NotNil(t, resp.Error)
	require.Equal(t, -32000, resp.Error.Code)
	require.Contains(t, resp.Error.Message, "boom")
}

func TestCallToolInvalidParams(t *testing.T) {
	s := newTestServer(echoHandler)
	for _, line := range []string{
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{}}`,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":[1]}`,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call"}`,
	} {
		resp := send(t, s, line)
		require.NotNil(t, resp.Error, line)
		require.Equal(t, -32602, resp.Error.Code, line)
	}
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(name string) server.ToolHandlerMiddleware {
		return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
			return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}
	s := newTestServer(echoHandler, WithToolHandlerMiddleware(mw("outer")), WithToolHandlerMiddleware(mw("inner")))
	send(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"list_files"}}`)
	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestProtocolErrors(t *testing.T) {
	s := newTestServer(echoHandler)

	resp := send(t, s, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`)
	require.Equal(t, -32601, resp.Error.Code)
	require.Equal(t, "Method not found: resources/list", resp.Error.Message)

	resp = send(t, s, `{not json`)
	require.Equal(t, -32700, resp.Error.Code)
	require.JSONEq(t, `null`, string(resp.ID))

	resp = send(t, s, `{"jsonrpc":"2.0","id":9}`)
	require.Equal(t, -32600, resp.Error.Code)
	require.JSONEq(t, `9`, string(resp.ID))
}

func TestNotificationsGetNoResponse(t *testing.T) {
	called := false
	handler := func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return nil, errors.New("unexpected")
	}
	s := newTestServer(handler)
	require.Nil(t, s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)))
	require.Nil(t, s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"list_files"}}`)))
	require.False(t, called)
}

func TestServiceEndToEnd(t *testing.T) {
	cfg := config.Default()
	cfg.BasePath = t.TempDir()
	resolver, err := security.NewResolver(cfg.BasePath)
	require.NoError(t, err)
	svc := spreadsheet.NewService(cfg, resolver, workbooks.NewManager(nil), zerolog.Nop())
	s := newTestServer(svc.Handle)

	resp := send(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"create_spreadsheet","arguments":{"filename":"book.xlsx","headers":["a","b"]}}}`)
	require.Nil(t, resp.Error)
	require.Contains(t, string(resp.Result), `\"success\":true`)

	resp = send(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"read_spreadsheet","arguments":{"filename":"../etc/passwd"}}}`)
	require.NotNil(t, resp.Error)
	require.Equal(t, -32000, resp.Error.Code)
	var details mcperr.Details
	require.NoError(t, json.Unmarshal(resp.Error.Data, &details))
	require.Equal(t, mcperr.PathTraversal, details.Code)

	resp = send(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"nope","arguments":{}}}`)
	require.Equal(t, -32000, resp.Error.Code)
	require.Contains(t, resp.Error.Message, "Unknown tool: nope")
}
