// Package action holds the set of actions one agent may take.
//
// An [Action] wraps a tool for a single agent instance. A [Registry] is
// usually built from a [tool.Registry] with [FromTools], scoped by capability
// tags so an agent only sees the tools of its domain.
package action

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/finsense/finsense/pkg/tool"
)

// Func executes an action with named arguments.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Action is one invocable capability.
type Action struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Terminal    bool

	fn Func
}

// New creates an action that is not backed by a registered tool.
func New(name, description string, params *jsonschema.Schema, terminal bool, fn Func) *Action {
	if params == nil {
		params = &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}}
	}
	return &Action{
		Name:        name,
		Description: description,
		Parameters:  params,
		Terminal:    terminal,
		fn:          fn,
	}
}

// FromTool wraps t.
func FromTool(t *tool.Tool) *Action {
	return &Action{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
		Terminal:    t.Terminal,
		fn:          t.Invoke,
	}
}

// Execute runs the action. Errors and panics are not recovered here; see
// the environment package for that boundary.
func (a *Action) Execute(ctx context.Context, args map[string]any) (any, error) {
	return a.fn(ctx, args)
}
