package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

func callNamed(name string) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	return req
}

func TestMiddlewareReleasesSlot(t *testing.T) {
	ctrl := NewController(Limits{CallTimeout: 200 * time.Millisecond, QueueTimeout: 50 * time.Millisecond})
	wrapped := NewMiddleware(ctrl).ToolMiddleware(func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		require.EqualValues(t, 1, ctrl.Usage().ActiveCalls)
		_, ok := ctx.Deadline()
		require.True(t, ok)
		return mcp.NewToolResultText("ok"), nil
	})

	res, err := wrapped(context.Background(), callNamed("read_spreadsheet"))
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Zero(t, ctrl.Usage().ActiveCalls)
}

func TestMiddlewareQueueTimeout(t *testing.T) {
	ctrl := NewController(Limits{QueueTimeout: 10 * time.Millisecond})
	done, err := ctrl.BeginCall(context.Background())
	require.NoError(t, err)
	defer done()

	wrapped := NewMiddleware(ctrl).ToolMiddleware(func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t.Fatal("handler must not run without a slot")
		return nil, nil
	})

	res, err := wrapped(context.Background(), callNamed("append_row"))
	require.Nil(t, res)
	require.ErrorIs(t, err, mcperr.ErrTimeout)
	require.Contains(t, err.Error(), "append_row")
}

func TestMiddlewareCallDeadline(t *testing.T) {
	ctrl := NewController(Limits{CallTimeout: 20 * time.Millisecond})
	wrapped := NewMiddleware(ctrl).ToolMiddleware(func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	res, err := wrapped(context.Background(), callNamed("write_spreadsheet"))
	require.Nil(t, res)
	require.ErrorIs(t, err, mcperr.ErrTimeout)
	require.Contains(t, err.Error(), "write_spreadsheet")
}

func TestMiddlewarePassesCallerCancellation(t *testing.T) {
	ctrl := NewController(Limits{CallTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wrapped := NewMiddleware(ctrl).ToolMiddleware(func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, ctx.Err()
	})
	_, err := wrapped(ctx, callNamed("list_files"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestMiddlewareNoDeadlineByDefault(t *testing.T) {
	wrapped := NewMiddleware(NewController(Limits{})).ToolMiddleware(func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		_, ok := ctx.Deadline()
		require.False(t, ok)
		return mcp.NewToolResultText("done"), nil
	})

	res, err := wrapped(context.Background(), callNamed("list_files"))
	require.NoError(t, err)
	require.NotNil(t, res)
}
