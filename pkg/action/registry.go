package action

import "github.com/finsense/finsense/pkg/tool"

// Registry stores actions by name.
type Registry struct {
	actions map[string]*Action
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]*Action)}
}

// FromTools builds a registry from the tools in reg that carry at least one
// of tags. Without tags every tool is included.
func FromTools(reg *tool.Registry, tags ...string) *Registry {
	r := NewRegistry()
	for _, t := range reg.All() {
		if len(tags) > 0 && !hasAny(t, tags) {
			continue
		}
		r.Register(FromTool(t))
	}
	return r
}

func hasAny(t *tool.Tool, tags []string) bool {
	for _, tag := range tags {
		if t.HasTag(tag) {
			return true
		}
	}
	return false
}

// Register stores a, replacing any action with the same name.
func (r *Registry) Register(a *Action) {
	if _, ok := r.actions[a.Name]; !ok {
		r.order = append(r.order, a.Name)
	}
	r.actions[a.Name] = a
}

// Get returns the action registered under name, or nil and false.
func (r *Registry) Get(name string) (*Action, bool) {
	a, ok := r.actions[name]
	return a, ok
}

// List returns all actions in insertion order.
func (r *Registry) List() []*Action {
	out := make([]*Action, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.actions[name])
	}
	return out
}

// Len returns the number of actions.
func (r *Registry) Len() int { return len(r.actions) }
