package tool

import (
	"log/slog"
	"slices"
	"sync"
)

// Registry is a catalog of tools keyed by name, with per-tag indexes.
//
// Registration is expected to happen during startup. Lookups are safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
	byTag map[string][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
		byTag: make(map[string][]string),
	}
}

// Add stores t under its name. An existing tool with the same name is
// replaced; it keeps its position in [Registry.All].
func (r *Registry) Add(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.tools[t.Name]; ok {
		slog.Warn("tool: replacing registered tool", "name", t.Name)
		for _, tag := range old.Tags {
			r.byTag[tag] = slices.DeleteFunc(r.byTag[tag], func(n string) bool { return n == t.Name })
		}
	} else {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
	for _, tag := range t.Tags {
		r.byTag[tag] = append(r.byTag[tag], t.Name)
	}
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// All returns every tool in registration order.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Tagged returns the tools carrying tag, in the order they were tagged.
func (r *Registry) Tagged(tag string) []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := r.byTag[tag]
	out := make([]*Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
