package datasource

import (
	"context"
	"slices"
	"sync"

	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/site"
)

// Memory holds documents in memory. Every mutation is reported on the
// channels returned by Changes.
type Memory struct {
	mu       sync.Mutex
	items    map[string]*site.Item
	layouts  map[string]*site.Layout
	watchers []chan Change
}

// NewMemory creates an empty source.
func NewMemory() *Memory {
	return &Memory{items: map[string]*site.Item{}, layouts: map[string]*site.Layout{}}
}

// SetItem adds or replaces an item.
func (m *Memory) SetItem(identifier string, content string, attrs ir.IRObject) {
	m.mu.Lock()
	m.items[identifier] = site.NewItem(identifier, []byte(content), attrs)
	m.mu.Unlock()
	m.notify("item:" + identifier)
}

// SetLayout adds or replaces a layout.
func (m *Memory) SetLayout(identifier string, content string, attrs ir.IRObject) {
	m.mu.Lock()
	m.layouts[identifier] = site.NewLayout(identifier, []byte(content), attrs)
	m.mu.Unlock()
	m.notify("layout:" + identifier)
}

// RemoveItem deletes an item.
func (m *Memory) RemoveItem(identifier string) {
	m.mu.Lock()
	delete(m.items, identifier)
	m.mu.Unlock()
	m.notify("item:" + identifier)
}

// RemoveLayout deletes a layout.
func (m *Memory) RemoveLayout(identifier string) {
	m.mu.Lock()
	delete(m.layouts, identifier)
	m.mu.Unlock()
	m.notify("layout:" + identifier)
}

// Items implements Source. Each call returns fresh copies.
func (m *Memory) Items(context.Context) ([]*site.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*site.Item, 0, len(m.items))
	for _, id := range sortedKeys(m.items) {
		it := m.items[id]
		out = append(out, site.NewItem(it.Identifier, slices.Clone(it.Content), it.Attributes))
	}
	return out, nil
}

// Layouts implements Source.
func (m *Memory) Layouts(context.Context) ([]*site.Layout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*site.Layout, 0, len(m.layouts))
	for _, id := range sortedKeys(m.layouts) {
		l := m.layouts[id]
		out = append(out, site.NewLayout(l.Identifier, slices.Clone(l.Content), l.Attributes))
	}
	return out, nil
}

// Changes implements Watcher. Notifications are dropped while the
// receiver is busy; one pending change is enough to trigger a rebuild.
func (m *Memory) Changes(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, 1)
	m.mu.Lock()
	m.watchers = append(m.watchers, ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		m.watchers = slices.DeleteFunc(m.watchers, func(c chan Change) bool { return c == ch })
		close(ch)
	}()
	return ch, nil
}

func (m *Memory) notify(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.watchers {
		select {
		case ch <- Change{Source: "memory", Path: path}:
		default:
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
