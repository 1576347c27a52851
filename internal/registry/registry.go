// Package registry holds the tool definitions advertised through tools/list.
package registry

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tmc/langchaingo/llms"
)

// ToolProvider resolves MCP tool definitions for discovery.
type ToolProvider interface {
	Tools(context.Context) ([]mcp.Tool, error)
}

// Registry keeps tool definitions in registration order. Registering a name
// twice replaces the definition in place.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]mcp.Tool
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{tools: map[string]mcp.Tool{}}
}

// Default returns a Registry holding the spreadsheet catalog.
func Default() *Registry {
	r := New()
	for _, tool := range Catalog() {
		r.Register(tool)
	}
	return r
}

// Register adds or replaces tool.
func (r *Registry) Register(tool mcp.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[tool.Name]; !ok {
		r.order = append(r.order, tool.Name)
	}
	r.tools[tool.Name] = tool
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (mcp.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names lists registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Tools implements ToolProvider.
func (r *Registry) Tools(ctx context.Context) ([]mcp.Tool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out, nil
}

// ModelContextSize reports the context window of the named model. It is
// logged at startup next to the catalog size.
func (r *Registry) ModelContextSize(modelName string) int {
	return llms.GetModelContextSize(modelName)
}
