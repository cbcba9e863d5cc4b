package ledger

import (
	"errors"
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"
)

var errNoKey = errors.New("ledger: key not found")

type kvPair struct {
	key   string
	value []byte
}

// backend is the key-value layer under a Ledger.
type backend interface {
	get(key string) ([]byte, error)
	set(key string, value []byte) error
	del(key string) error
	// scan yields entries whose key starts with prefix, in key order.
	scan(prefix string) iter.Seq2[kvPair, error]
	setBatch(pairs []kvPair) error
	close() error
}

// memBackend keeps entries in a map; scan sorts a snapshot.
type memBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (m *memBackend) get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errNoKey
	}
	return slices.Clone(v), nil
}

func (m *memBackend) set(key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = slices.Clone(value)
	m.mu.Unlock()
	return nil
}

func (m *memBackend) del(key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *memBackend) scan(prefix string) iter.Seq2[kvPair, error] {
	m.mu.RLock()
	var matches []kvPair
	for _, k := range slices.Sorted(maps.Keys(m.data)) {
		if strings.HasPrefix(k, prefix) {
			matches = append(matches, kvPair{k, slices.Clone(m.data[k])})
		}
	}
	m.mu.RUnlock()

	return func(yield func(kvPair, error) bool) {
		for _, p := range matches {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func (m *memBackend) setBatch(pairs []kvPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pairs {
		m.data[p.key] = slices.Clone(p.value)
	}
	return nil
}

func (m *memBackend) close() error { return nil }
