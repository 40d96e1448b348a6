// Package tools defines the tools available to the reasoning agent.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Tool represents a callable tool. Input and output are plain strings:
// the agent protocol passes the raw Action Input through unchanged.
// Handlers must be pure with respect to the loop — no shared mutable
// state between steps beyond their own execution.
type Tool struct {
	Name        string
	Description string
	Handler     func(ctx context.Context, input string) (string, error)
}

// Registry holds available tools.
type Registry struct {
	tools map[string]*Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get retrieves a tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns all tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns a "name: description" line per tool, one per line,
// for inclusion in the agent prompt.
func (r *Registry) Describe() string {
	var lines []string
	for _, name := range r.Names() {
		lines = append(lines, fmt.Sprintf("%s: %s", name, r.tools[name].Description))
	}
	return strings.Join(lines, "\n")
}

// Execute runs a tool by name with the given input.
func (r *Registry) Execute(ctx context.Context, name, input string) (string, error) {
	tool := r.tools[name]
	if tool == nil {
		return "", &ErrToolUnavailable{ToolName: name}
	}
	return tool.Handler(ctx, input)
}
