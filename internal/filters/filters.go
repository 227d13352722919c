// Package filters provides the content transformations named by filter
// and layout actions.
package filters

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/view"
)

// Filter transforms content. For a layout action src is the layout source
// and a.Content holds the content being wrapped.
type Filter interface {
	Run(src []byte, params ir.IRObject, a *view.Assigns) ([]byte, error)
}

// Func adapts a function to Filter.
type Func func(src []byte, params ir.IRObject, a *view.Assigns) ([]byte, error)

// Run implements Filter.
func (f Func) Run(src []byte, params ir.IRObject, a *view.Assigns) ([]byte, error) {
	return f(src, params, a)
}

// UnknownFilterError reports an action naming a filter that is not registered.
type UnknownFilterError struct {
	Name string
}

func (e *UnknownFilterError) Error() string {
	return fmt.Sprintf("unknown filter %q", e.Name)
}

// Registry maps filter names to filters.
type Registry struct {
	mu      sync.RWMutex
	filters map[string]Filter
}

// NewRegistry returns a registry holding the built-in filters.
func NewRegistry() *Registry {
	r := &Registry{filters: map[string]Filter{}}
	r.Register("identity", Func(identity))
	r.Register("markdown", Markdown{})
	r.Register("template", Template{})
	return r
}

// Register adds or replaces a filter.
func (r *Registry) Register(name string, f Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = f
}

// Get looks up a filter.
func (r *Registry) Get(name string) (Filter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.filters[name]
	if !ok {
		return nil, &UnknownFilterError{Name: name}
	}
	return f, nil
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.filters))
	for n := range r.filters {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func identity(src []byte, _ ir.IRObject, _ *view.Assigns) ([]byte, error) {
	return src, nil
}

func boolParam(params ir.IRObject, key string, def bool) bool {
	if v, ok := params[key].(ir.IRBool); ok {
		return bool(v)
	}
	return def
}
