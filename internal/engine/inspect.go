package engine

import (
	"context"

	"github.com/Reality2byte/nanoc/internal/deps"
	"github.com/Reality2byte/nanoc/internal/outdatedness"
	"github.com/Reality2byte/nanoc/internal/site"
)

// Inspection is the state show-data reports. Nothing is compiled or
// persisted to build it.
type Inspection struct {
	Items   []ItemData
	Layouts []ObjectStatus
}

// ItemData describes one item: what it depends on and the status of each
// of its reps.
type ItemData struct {
	Ref          site.Ref
	Dependencies []deps.Dependency
	Reps         []ObjectStatus
}

// ObjectStatus is the outdatedness of a rep or layout.
type ObjectStatus struct {
	Ref      site.Ref
	Outdated bool
	// Reasons is empty for an outdated rep whose item was not fully
	// compiled by the previous run, or whose sibling rep is outdated.
	Reasons []outdatedness.Reason
}

// Inspect determines outdatedness for in without compiling anything.
func (c *Compiler) Inspect(ctx context.Context, in Input) (*Inspection, error) {
	rs, err := c.prepare(ctx, in, "")
	if err != nil {
		return nil, err
	}

	out := &Inspection{}
	for _, item := range in.Site.Items.All() {
		data := ItemData{
			Ref:          item.Ref(),
			Dependencies: rs.deps.DependenciesCausingOutdatednessOf(item.Ref()),
		}
		for _, rep := range in.Site.Reps.ForItem(item.Identifier) {
			ref := rep.Ref()
			data.Reps = append(data.Reps, ObjectStatus{
				Ref:      ref,
				Outdated: rs.outdated.Include(ref),
				Reasons:  rs.result.ReasonsFor(ref),
			})
		}
		out.Items = append(out.Items, data)
	}
	for _, layout := range in.Site.Layouts.All() {
		reasons := rs.result.ReasonsFor(layout.Ref())
		out.Layouts = append(out.Layouts, ObjectStatus{
			Ref:      layout.Ref(),
			Outdated: len(reasons) > 0,
			Reasons:  reasons,
		})
	}
	return out, nil
}
