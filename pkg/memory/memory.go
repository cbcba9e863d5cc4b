package memory

import "slices"

// Memory is an append-only, chronologically ordered log of entries.
type Memory struct {
	entries []Entry
}

// New creates an empty Memory, optionally seeded with entries. Invalid seed
// entries are dropped the same way [Memory.Add] drops them.
func New(entries ...Entry) *Memory {
	m := &Memory{}
	for _, e := range entries {
		m.Add(e)
	}
	return m
}

// Add appends e. Entries with an unknown role or nil content are ignored.
func (m *Memory) Add(e Entry) {
	if !e.Valid() {
		return
	}
	m.entries = append(m.entries, e)
}

// All returns a copy of the entries in the order they were added.
func (m *Memory) All() []Entry {
	return slices.Clone(m.entries)
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	return len(m.entries)
}

// Last returns the most recent entry.
func (m *Memory) Last() (Entry, bool) {
	if len(m.entries) == 0 {
		return Entry{}, false
	}
	return m.entries[len(m.entries)-1], true
}

// Clear removes every entry.
func (m *Memory) Clear() {
	m.entries = nil
}
