package output

import (
	"bytes"
	"context"
	"maps"
	"slices"
	"sync"
)

// Memory keeps output in memory. Tests and dry runs use it.
type Memory struct {
	mu     sync.Mutex
	files  map[string][]byte
	writes []string
}

// NewMemory creates an empty in-memory destination.
func NewMemory() *Memory {
	return &Memory{files: map[string][]byte{}}
}

// Write implements Destination.
func (m *Memory) Write(_ context.Context, path string, data []byte) (Action, error) {
	rel, err := cleanPath(path)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.files[rel]
	if ok && bytes.Equal(old, data) {
		return Identical, nil
	}
	m.files[rel] = bytes.Clone(data)
	m.writes = append(m.writes, rel)
	if ok {
		return Update, nil
	}
	return Create, nil
}

// File returns the stored bytes at path.
func (m *Memory) File(path string) ([]byte, bool) {
	rel, err := cleanPath(path)
	if err != nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[rel]
	return b, ok
}

// Paths returns every stored path, sorted.
func (m *Memory) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.files))
}

// Writes returns the paths whose bytes changed, in write order.
func (m *Memory) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.writes)
}
