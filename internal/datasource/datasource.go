// Package datasource loads the items and layouts of a site and reports
// changes to them.
package datasource

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Reality2byte/nanoc/internal/site"
)

// Source provides documents.
type Source interface {
	Items(ctx context.Context) ([]*site.Item, error)
	Layouts(ctx context.Context) ([]*site.Layout, error)
}

// Watcher is a Source that can report changes. The channel is closed when
// ctx is done.
type Watcher interface {
	Changes(ctx context.Context) (<-chan Change, error)
}

// Change reports that the document stored at Path changed. Path is
// source-specific.
type Change struct {
	Source string
	Path   string
}

// DuplicateIdentifierError is returned when two documents of one kind
// share an identifier.
type DuplicateIdentifierError struct {
	Kind       string
	Identifier string
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate %s identifier %s", e.Kind, e.Identifier)
}

// Load reads every document of src into a site with config as its
// configuration. Reps are attached later by the rules.
func Load(ctx context.Context, src Source, config map[string]any) (*site.Site, error) {
	items, err := src.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	layouts, err := src.Layouts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load layouts: %w", err)
	}
	if err := checkUnique("item", items); err != nil {
		return nil, err
	}
	if err := checkUnique("layout", layouts); err != nil {
		return nil, err
	}

	cfg, err := configObject(config)
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	return site.New(cfg, items, layouts), nil
}

func checkUnique[T interface{ ID() string }](kind string, docs []T) error {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID()
	}
	slices.Sort(ids)
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			return &DuplicateIdentifierError{Kind: kind, Identifier: ids[i]}
		}
	}
	return nil
}

// identifier turns a slash-separated relative path into an identifier.
func identifier(rel string) string {
	return "/" + strings.TrimPrefix(rel, "/")
}
