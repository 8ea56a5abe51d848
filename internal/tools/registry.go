// Package tools holds the capabilities the model can invoke during a turn:
// confirm-and-run shell, direct shell and Go code evaluation.
//
// Tools never return Go errors. Every failure is reported as text starting
// with "Error:" so that it can be fed back to the model.
package tools

import (
	"context"
	"fmt"

	"github.com/quocvuong92/ai-shell/internal/api"
)

// Tool is one invocable capability
type Tool interface {
	Name() string
	Description() string
	// Parameters is the JSON schema of the arguments object
	Parameters() map[string]any
	// Invoke runs the tool and returns its text output or failure text
	Invoke(ctx context.Context, args map[string]any) string
}

type entry struct {
	tool       Tool
	advertised bool
}

// Registry is the closed set of tools built at startup
type Registry struct {
	entries map[string]entry
	order   []string
}

// NewRegistry creates a registry advertising the given tools to the model
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{entries: make(map[string]entry)}
	for _, t := range tools {
		r.add(t, true)
	}
	return r
}

// AddHidden registers a tool that resolves by name but is not offered to
// the model in Definitions.
func (r *Registry) AddHidden(t Tool) {
	r.add(t, false)
}

func (r *Registry) add(t Tool, advertised bool) {
	if _, exists := r.entries[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.entries[t.Name()] = entry{tool: t, advertised: advertised}
}

// Lookup resolves a tool by name
func (r *Registry) Lookup(name string) (Tool, bool) {
	e, ok := r.entries[name]
	return e.tool, ok
}

// Definitions returns the wire definitions of the advertised tools in
// registration order
func (r *Registry) Definitions() []api.Tool {
	defs := make([]api.Tool, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		if !e.advertised {
			continue
		}
		defs = append(defs, api.NewFunctionTool(e.tool.Name(), e.tool.Description(), e.tool.Parameters()))
	}
	return defs
}

// UnknownToolResult is the tool output recorded for a call to an
// unregistered tool
func UnknownToolResult(name string) string {
	return fmt.Sprintf("Error: unknown tool %q", name)
}

func missingArg(name string) string {
	return fmt.Sprintf("Error: missing required argument %q", name)
}

func stringArg(args map[string]any, name string) (string, bool) {
	v, ok := args[name].(string)
	return v, ok && v != ""
}
