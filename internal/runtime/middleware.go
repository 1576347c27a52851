package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

// Middleware runs each tool call inside a Controller call slot and under the
// configured call deadline.
type Middleware struct {
	ctrl *Controller
}

// NewMiddleware binds a Middleware to ctrl.
func NewMiddleware(ctrl *Controller) *Middleware {
	return &Middleware{ctrl: ctrl}
}

// ToolMiddleware has the mcp-go middleware signature. Slot and deadline
// failures come back as TIMEOUT errors; cancellation of the caller's
// context is passed through untouched.
func (m *Middleware) ToolMiddleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limits := m.ctrl.Limits()
		tool := req.Params.Name

		waitCtx, cancelWait := withOptionalTimeout(ctx, limits.QueueTimeout)
		done, err := m.ctrl.BeginCall(waitCtx)
		cancelWait()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, mcperr.Wrap(mcperr.Timeout, err, tool+" waited too long for a free call slot")
		}
		defer done()

		callCtx, cancel := withOptionalTimeout(ctx, limits.CallTimeout)
		defer cancel()

		res, err := next(callCtx, req)
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) &&
			(err != nil || res == nil) {
			return nil, mcperr.Newf(mcperr.Timeout, "%s exceeded the %s call deadline", tool, limits.CallTimeout)
		}
		return res, err
	}
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
