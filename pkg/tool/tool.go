// Package tool turns typed Go functions into tools a language model can call.
//
// A tool is registered from an [InvokeFunc] whose argument type is a struct.
// The struct's exported fields become the tool's parameters:
//
//	type addArgs struct {
//	    A int `json:"a"`
//	    B int `json:"b"`
//	}
//
//	tool.MustRegister(reg, func(ctx context.Context, _ *tool.Call, args addArgs) (any, error) {
//	    return args.A + args.B, nil
//	}, tool.WithName("add"))
//
// The inferred schema above is {a: integer, b: integer}, both required.
// Parameter names come from json tags. Descriptions come from jsonschema tags.
// A field is optional when it is a pointer, is tagged omitempty/omitzero, or
// has a default tag. The context and the [Call] are reserved: they are passed
// as function parameters and never appear in the schema.
//
// Tools live in an explicit [Registry]. Registering a second tool under an
// existing name replaces the first one.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// DefaultDescription is used when a tool is registered without one.
const DefaultDescription = "No description provided."

var (
	// ErrNoName is returned when no name is given and none can be derived
	// from the function.
	ErrNoName = errors.New("tool: name required")

	// ErrArgType is returned when the argument type is not a struct.
	ErrArgType = errors.New("tool: argument type must be a struct")
)

// InvokeFunc is the signature of a tool implementation.
type InvokeFunc[T any] func(ctx context.Context, call *Call, args T) (any, error)

// Tool is a registered function with its calling convention.
type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Terminal    bool
	Tags        []string

	resolved *jsonschema.Resolved
	invoke   func(ctx context.Context, call *Call, args []byte) (any, error)
}

// HasTag reports whether the tool carries tag.
func (t *Tool) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// Invoke calls the tool with named arguments. Missing arguments that declare
// a default receive it, then the arguments are validated against the tool's
// schema and decoded into the argument struct.
func (t *Tool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	call := &Call{Tool: t.Name}
	if c, ok := CallFrom(ctx); ok {
		cp := *c
		cp.Tool = t.Name
		call = &cp
	}

	norm, err := normalize(args)
	if err != nil {
		return nil, fmt.Errorf("tool: %s: %w", t.Name, err)
	}
	t.applyDefaults(norm)
	if t.resolved != nil {
		if err := t.resolved.Validate(norm); err != nil {
			return nil, fmt.Errorf("tool: %s: invalid arguments: %w", t.Name, err)
		}
	}
	b, err := json.Marshal(norm)
	if err != nil {
		return nil, fmt.Errorf("tool: %s: %w", t.Name, err)
	}
	return t.invoke(ctx, call, b)
}

// applyDefaults fills missing optional arguments. Optional arguments sent as
// null are treated as missing.
func (t *Tool) applyDefaults(args map[string]any) {
	if t.Parameters == nil {
		return
	}
	for name, v := range args {
		if v == nil && !slices.Contains(t.Parameters.Required, name) {
			delete(args, name)
		}
	}
	for name, prop := range t.Parameters.Properties {
		if _, ok := args[name]; ok || len(prop.Default) == 0 {
			continue
		}
		var v any
		if err := json.Unmarshal(prop.Default, &v); err == nil {
			args[name] = v
		}
	}
}

// normalize round-trips args through JSON so numbers and nested values have
// the shapes schema validation expects.
func normalize(args map[string]any) (map[string]any, error) {
	if len(args) == 0 {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal arguments: %w", err)
	}
	out := make(map[string]any, len(args))
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal arguments: %w", err)
	}
	return out, nil
}

// Option configures a tool at registration.
type Option func(*options)

type options struct {
	name        string
	description string
	params      *jsonschema.Schema
	typeSchemas map[reflect.Type]*jsonschema.Schema
	terminal    bool
	tags        []string
}

// WithName sets the tool name instead of deriving it from the function.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithDescription sets the description shown to the model.
func WithDescription(desc string) Option {
	return func(o *options) { o.description = desc }
}

// WithParameters replaces the inferred schema.
func WithParameters(s *jsonschema.Schema) Option {
	return func(o *options) { o.params = s }
}

// WithTypeSchema uses s for every argument field of type T during inference.
func WithTypeSchema[T any](s *jsonschema.Schema) Option {
	return func(o *options) { o.typeSchemas[reflect.TypeFor[T]()] = s }
}

// Terminal marks the tool as ending the agent loop when selected.
func Terminal() Option {
	return func(o *options) { o.terminal = true }
}

// WithTags adds capability tags.
func WithTags(tags ...string) Option {
	return func(o *options) { o.tags = append(o.tags, tags...) }
}

// New builds a tool from fn without registering it.
func New[T any](fn InvokeFunc[T], opts ...Option) (*Tool, error) {
	o := options{typeSchemas: make(map[reflect.Type]*jsonschema.Schema)}
	for _, opt := range opts {
		opt(&o)
	}
	name := o.name
	if name == "" {
		name = funcName(fn)
	}
	if name == "" {
		return nil, ErrNoName
	}
	desc := strings.TrimSpace(o.description)
	if desc == "" {
		desc = DefaultDescription
	}

	params := o.params
	if params == nil {
		s, err := inferSchema(reflect.TypeFor[T](), o.typeSchemas)
		if err != nil {
			return nil, fmt.Errorf("tool: %s: %w", name, err)
		}
		params = s
	}
	resolved, err := params.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("tool: %s: resolve schema: %w", name, err)
	}

	return &Tool{
		Name:        name,
		Description: desc,
		Parameters:  params,
		Terminal:    o.terminal,
		Tags:        dedupe(o.tags),
		resolved:    resolved,
		invoke: func(ctx context.Context, call *Call, args []byte) (any, error) {
			var v T
			if err := unmarshalJSON(args, &v); err != nil {
				return nil, fmt.Errorf("tool: %s: unmarshal %q: %w", name, args, err)
			}
			return fn(ctx, call, v)
		},
	}, nil
}

// Register builds a tool from fn and adds it to r.
func Register[T any](r *Registry, fn InvokeFunc[T], opts ...Option) (*Tool, error) {
	t, err := New(fn, opts...)
	if err != nil {
		return nil, err
	}
	r.Add(t)
	return t, nil
}

// MustRegister is like [Register] but panics on error.
func MustRegister[T any](r *Registry, fn InvokeFunc[T], opts ...Option) *Tool {
	t, err := Register(r, fn, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok || t == "" {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SchemaProperties returns the parameter names of s in sorted order.
func SchemaProperties(s *jsonschema.Schema) []string {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.Properties))
}
