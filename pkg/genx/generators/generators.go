// Package generators provides a multiplexer for genx.Generator routing.
package generators

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/finsense/finsense/pkg/genx"
)

// DefaultMux is the default generator multiplexer.
var DefaultMux = NewMux()

// Handle registers a generator for the given name to the default mux.
func Handle(name string, gen genx.Generator) error {
	return DefaultMux.Handle(name, gen)
}

// Get returns the generator registered under name in the default mux.
func Get(name string) (genx.Generator, error) {
	return DefaultMux.Get(name)
}

// Mux routes generation to generators registered by model name, such as
// "openai/gpt-4o-mini".
type Mux struct {
	mu   sync.RWMutex
	gens map[string]genx.Generator
}

// NewMux creates a new generator multiplexer.
func NewMux() *Mux {
	return &Mux{gens: make(map[string]genx.Generator)}
}

// Handle registers a generator for the given name.
// Returns an error if a generator is already registered for the name.
func (m *Mux) Handle(name string, gen genx.Generator) error {
	if gen == nil {
		return fmt.Errorf("generators: nil generator for %s", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gens[name]; ok {
		return fmt.Errorf("generators: generator already registered for %s", name)
	}
	m.gens[name] = gen
	return nil
}

// Get returns the generator registered under name.
func (m *Mux) Get(name string) (genx.Generator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gen, ok := m.gens[name]
	if !ok {
		return nil, fmt.Errorf("generators: generator not found for %s", name)
	}
	return gen, nil
}

// Names returns the registered names in sorted order.
func (m *Mux) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.gens))
	for name := range m.gens {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Model returns a generator bound to name. The lookup happens on each call,
// so a model registered later is still found.
func (m *Mux) Model(name string) genx.Generator {
	return genx.GeneratorFunc(func(ctx context.Context, p *genx.Prompt) (string, error) {
		gen, err := m.Get(name)
		if err != nil {
			return "", err
		}
		return gen.Generate(ctx, p)
	})
}
