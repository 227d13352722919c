package rules

import (
	"fmt"
	"path"
	"strings"

	"github.com/Reality2byte/nanoc/internal/site"
)

// NoMatchingRuleError is returned for an item that no compile rule
// matches.
type NoMatchingRuleError struct {
	Identifier string
}

func (e *NoMatchingRuleError) Error() string {
	return fmt.Sprintf("no compile rule matches %s", e.Identifier)
}

// Apply creates the reps of every item of s, adding them to s.Reps, and
// returns the action sequence of every rep and the filter sequence of
// every layout a layout rule matches.
func (r *Rules) Apply(s *site.Site) (map[site.Ref]*site.ActionSequence, error) {
	seqs := map[site.Ref]*site.ActionSequence{}
	names := r.repNames()

	for _, item := range s.Items.All() {
		matched := false
		for _, name := range names {
			rule, ok := r.compileRuleFor(item.Identifier, name)
			if !ok {
				continue
			}
			matched = true
			rep := site.NewItemRep(item, name)
			seq := rule.sequence(rep)
			rep.Paths = seq.Paths()
			s.Reps.Add(rep)
			seqs[rep.Ref()] = seq
		}
		if !matched {
			return nil, &NoMatchingRuleError{Identifier: item.Identifier}
		}
	}

	for _, layout := range s.Layouts.All() {
		for _, rule := range r.layouts {
			if !rule.pattern.Match(layout.Identifier) {
				continue
			}
			seqs[layout.Ref()] = &site.ActionSequence{
				Rep:     layout.Ref(),
				Actions: []site.Action{site.FilterAction{Name: rule.filter, Params: rule.params}},
			}
			break
		}
	}
	return seqs, nil
}

// repNames returns every rep name in first-use order.
func (r *Rules) repNames() []string {
	var names []string
	seen := map[string]bool{}
	for _, rule := range r.compile {
		if !seen[rule.rep] {
			seen[rule.rep] = true
			names = append(names, rule.rep)
		}
	}
	return names
}

func (r *Rules) compileRuleFor(identifier, rep string) (compileRule, bool) {
	for _, rule := range r.compile {
		if rule.rep == rep && rule.pattern.Match(identifier) {
			return rule, true
		}
	}
	return compileRule{}, false
}

func (rule compileRule) sequence(rep *site.ItemRep) *site.ActionSequence {
	explicitPre := false
	for _, a := range rule.actions {
		if a.snapshot == site.SnapshotPre {
			explicitPre = true
		}
	}

	actions := []site.Action{site.SnapshotAction{Names: []string{site.SnapshotRaw}}}
	preTaken := explicitPre
	for _, a := range rule.actions {
		switch {
		case a.filter != "":
			actions = append(actions, site.FilterAction{Name: a.filter, Params: a.params})
		case a.layout != "":
			if !preTaken {
				actions = append(actions, site.SnapshotAction{Names: []string{site.SnapshotPre}})
				preTaken = true
			}
			actions = append(actions, site.LayoutAction{Identifier: a.layout, Params: a.params})
		default:
			snap := site.SnapshotAction{Names: []string{a.snapshot}}
			if a.path != "" {
				snap.Paths = []string{expandPath(a.path, rep)}
			}
			actions = append(actions, snap)
		}
	}

	last := site.SnapshotAction{Names: []string{site.SnapshotLast}}
	if rule.path != "" {
		last.Paths = []string{expandPath(rule.path, rep)}
	}
	actions = append(actions, last)
	return &site.ActionSequence{Rep: rep.Ref(), Actions: actions}
}

func expandPath(tmpl string, rep *site.ItemRep) string {
	id := strings.TrimPrefix(rep.Item.Identifier, "/")
	ext := path.Ext(id)
	return strings.NewReplacer(
		"{identifier}", id,
		"{stem}", strings.TrimSuffix(id, ext),
		"{ext}", strings.TrimPrefix(ext, "."),
		"{rep}", rep.Name,
	).Replace(tmpl)
}
