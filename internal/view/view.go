package view

import (
	"github.com/Reality2byte/nanoc/internal/content"
	"github.com/Reality2byte/nanoc/internal/deps"
	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/site"
)

// Context is what views read from while one item compiles.
type Context struct {
	Site            *site.Site
	Repo            *content.Repo
	ActionSequences map[site.Ref]*site.ActionSequence
	Tracker         *deps.Tracker
}

// Assigns are the values handed to a filter or layout.
type Assigns struct {
	Item    *ItemView
	Rep     *RepView
	Items   *ItemCollectionView
	Layouts *LayoutCollectionView
	Config  *ConfigView
	// Layout is set while a layout action runs.
	Layout *LayoutView
	// Content is the content being wrapped while a layout action runs.
	Content string
}

// Assigns builds the views for compiling rep.
func (c *Context) Assigns(rep *site.ItemRep) *Assigns {
	return &Assigns{
		Item:    c.item(rep.Item),
		Rep:     c.rep(rep),
		Items:   &ItemCollectionView{ctx: c},
		Layouts: &LayoutCollectionView{ctx: c},
		Config:  &ConfigView{ctx: c},
	}
}

func (c *Context) item(item *site.Item) *ItemView {
	return &ItemView{ctx: c, item: item}
}

func (c *Context) rep(rep *site.ItemRep) *RepView {
	return &RepView{ctx: c, rep: rep}
}

// Layout returns the view of a layout, recording nothing.
func (c *Context) Layout(layout *site.Layout) *LayoutView {
	return &LayoutView{ctx: c, layout: layout}
}

func (c *Context) bounce(from site.Ref, props deps.Props) {
	c.Tracker.Bounce(from, props)
}

// ItemView is a read-only item.
type ItemView struct {
	ctx  *Context
	item *site.Item
}

// Identifier returns the item identifier. Identity is not a dependency.
func (v *ItemView) Identifier() string { return v.item.Identifier }

// RawContent returns the source content.
func (v *ItemView) RawContent() string {
	v.ctx.bounce(v.item.Ref(), deps.Props{RawContent: true})
	return string(v.item.Content)
}

// Attr returns a single attribute as a plain Go value, or nil.
func (v *ItemView) Attr(key string) any {
	v.ctx.bounce(v.item.Ref(), deps.Props{AttributeKeys: []string{key}})
	val, _ := v.item.Attribute(key)
	return ir.ToGo(val)
}

// Attributes returns every attribute.
func (v *ItemView) Attributes() map[string]any {
	v.ctx.bounce(v.item.Ref(), deps.Props{Attributes: true})
	return ir.ToGo(v.item.Attributes).(map[string]any)
}

// Reps returns the views of every rep of the item.
func (v *ItemView) Reps() []*RepView {
	var out []*RepView
	for _, r := range v.ctx.Site.Reps.ForItem(v.item.Identifier) {
		out = append(out, v.ctx.rep(r))
	}
	return out
}

// Rep returns the named rep, or nil.
func (v *ItemView) Rep(name string) *RepView {
	if r, ok := v.ctx.Site.Reps.Get(site.RepRef(v.item.Identifier, name)); ok {
		return v.ctx.rep(r)
	}
	return nil
}

// CompiledContent returns the default snapshot of the "default" rep.
func (v *ItemView) CompiledContent() (string, error) {
	rep := v.Rep("default")
	if rep == nil {
		return "", &site.UnknownObjectError{Ref: site.RepRef(v.item.Identifier, "default")}
	}
	return rep.CompiledContent()
}

// Path returns the output path of the "default" rep, or "".
func (v *ItemView) Path() string {
	if rep := v.Rep("default"); rep != nil {
		return rep.Path()
	}
	return ""
}

// RepView is a read-only item rep.
type RepView struct {
	ctx *Context
	rep *site.ItemRep
}

// Name returns the rep name.
func (v *RepView) Name() string { return v.rep.Name }

// CompiledContent returns the default snapshot: "pre" when the rep takes
// one, "last" otherwise.
func (v *RepView) CompiledContent() (string, error) {
	name := site.SnapshotLast
	if seq, ok := v.ctx.ActionSequences[v.rep.Ref()]; ok && seq.HasSnapshot(site.SnapshotPre) {
		name = site.SnapshotPre
	}
	return v.Snapshot(name)
}

// Snapshot returns a named snapshot. The final snapshots "last" and "post"
// are only available once the rep is fully compiled. Any other snapshot is
// final as soon as it has been taken.
func (v *RepView) Snapshot(name string) (string, error) {
	ref := v.rep.Ref()
	v.ctx.bounce(ref, deps.Props{CompiledContent: true})

	seq, ok := v.ctx.ActionSequences[ref]
	if !ok || !seq.HasSnapshot(name) {
		return "", &NoSuchSnapshotError{Rep: ref, Snapshot: name}
	}

	moving := name == site.SnapshotLast || name == site.SnapshotPost
	b, taken := v.ctx.Repo.Get(ref, name)
	if !taken || (moving && !v.rep.Compiled()) {
		return "", &UnmetDependencyError{Rep: ref, Snapshot: name}
	}
	return string(b), nil
}

// Path returns the output path of the "last" snapshot, or "".
func (v *RepView) Path() string {
	v.ctx.bounce(v.rep.Ref(), deps.Props{CompiledContent: true})
	if paths := v.rep.Paths[site.SnapshotLast]; len(paths) > 0 {
		return paths[0]
	}
	return ""
}

// LayoutView is a read-only layout.
type LayoutView struct {
	ctx    *Context
	layout *site.Layout
}

// Identifier returns the layout identifier.
func (v *LayoutView) Identifier() string { return v.layout.Identifier }

// RawContent returns the layout source.
func (v *LayoutView) RawContent() string {
	v.ctx.bounce(v.layout.Ref(), deps.Props{RawContent: true})
	return string(v.layout.Content)
}

// Attr returns a single layout attribute.
func (v *LayoutView) Attr(key string) any {
	v.ctx.bounce(v.layout.Ref(), deps.Props{AttributeKeys: []string{key}})
	val, _ := v.layout.Attribute(key)
	return ir.ToGo(val)
}

// ConfigView is the read-only site configuration.
type ConfigView struct {
	ctx *Context
}

// Get returns one configuration value, or nil.
func (v *ConfigView) Get(key string) any {
	v.ctx.bounce(site.ConfigRef(), deps.Props{AttributeKeys: []string{key}})
	val, _ := v.ctx.Site.Config.Attributes.Get(key)
	return ir.ToGo(val)
}

// ItemCollectionView queries the items of the site.
type ItemCollectionView struct {
	ctx *Context
}

// Get returns the item with the given identifier or the first item
// matching a pattern, or nil. A later match of the pattern is a dependency.
func (v *ItemCollectionView) Get(pattern string) (*ItemView, error) {
	items, err := v.Find(pattern)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0], nil
}

// Find returns every item matching pattern.
func (v *ItemCollectionView) Find(pattern string) ([]*ItemView, error) {
	p, err := site.ParsePattern(pattern)
	if err != nil {
		return nil, err
	}
	v.ctx.bounce(site.ItemCollectionRef(), deps.Props{RawContentPatterns: []string{pattern}})

	var out []*ItemView
	for _, item := range v.ctx.Site.Items.Find(p) {
		out = append(out, v.ctx.item(item))
	}
	return out, nil
}

// All returns every item. Any added item is a dependency.
func (v *ItemCollectionView) All() []*ItemView {
	v.ctx.bounce(site.ItemCollectionRef(), deps.Props{RawContent: true})
	var out []*ItemView
	for _, item := range v.ctx.Site.Items.All() {
		out = append(out, v.ctx.item(item))
	}
	return out
}

// Where returns the items whose attribute key equals value.
func (v *ItemCollectionView) Where(key string, value any) ([]*ItemView, error) {
	want, err := ir.FromGo(value)
	if err != nil {
		return nil, err
	}
	wantJSON, err := ir.MarshalCanonical(want)
	if err != nil {
		return nil, err
	}
	v.ctx.bounce(site.ItemCollectionRef(), deps.Props{
		AttributePairs: []deps.AttributePair{{Key: key, Value: want}},
	})

	var out []*ItemView
	for _, item := range v.ctx.Site.Items.All() {
		got, ok := item.Attribute(key)
		if !ok {
			continue
		}
		gotJSON, err := ir.MarshalCanonical(got)
		if err == nil && string(gotJSON) == string(wantJSON) {
			out = append(out, v.ctx.item(item))
		}
	}
	return out, nil
}

// LayoutCollectionView queries the layouts of the site.
type LayoutCollectionView struct {
	ctx *Context
}

// Get returns the first layout matching pattern, or nil.
func (v *LayoutCollectionView) Get(pattern string) (*LayoutView, error) {
	p, err := site.ParsePattern(pattern)
	if err != nil {
		return nil, err
	}
	v.ctx.bounce(site.LayoutCollectionRef(), deps.Props{RawContentPatterns: []string{pattern}})
	if found := v.ctx.Site.Layouts.Find(p); len(found) > 0 {
		return v.ctx.Layout(found[0]), nil
	}
	return nil, nil
}
