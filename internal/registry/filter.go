package registry

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/vinodismyname/mcpsheets/internal/spreadsheet"
)

// ReadOnlyFilter hides mutating tools from discovery when the server runs
// in read-only mode. Calls to them are rejected separately by the dispatcher.
type ReadOnlyFilter struct {
	readOnly bool
}

// NewReadOnlyFilter constructs a filter; with readOnly false it is a no-op.
func NewReadOnlyFilter(readOnly bool) *ReadOnlyFilter {
	return &ReadOnlyFilter{readOnly: readOnly}
}

// FilterTools matches mcp-go's tool filter signature.
func (f *ReadOnlyFilter) FilterTools(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
	if !f.readOnly {
		return tools
	}
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		if spreadsheet.ParseOperation(t.Name).Mutating() {
			continue
		}
		out = append(out, t)
	}
	return out
}
