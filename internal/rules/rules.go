package rules

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/site"
)

// DefaultRep is the rep name of compile rules that do not name one.
const DefaultRep = "default"

// Rules is a parsed rules file.
type Rules struct {
	compile []compileRule
	layouts []layoutRule
}

type compileRule struct {
	pattern site.Pattern
	rep     string
	actions []action
	path    string
}

// action is one user-written action. Exactly one of filter, layout and
// snapshot is set.
type action struct {
	filter   string
	layout   string
	snapshot string
	params   ir.IRObject
	path     string
}

type layoutRule struct {
	pattern site.Pattern
	filter  string
	params  ir.IRObject
}

// Load reads and parses the rules file at path.
func Load(path string) (*Rules, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return Parse(path, src)
}

// Parse parses rules source. filename is used in error positions.
func Parse(filename string, src []byte) (*Rules, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	r := &Rules{}
	compileVal := v.LookupPath(cue.ParsePath("compile"))
	if !compileVal.Exists() {
		return nil, &ParseError{Field: "compile", Message: "at least one compile rule is required", Pos: v.Pos()}
	}
	iter, err := compileVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		rule, err := parseCompileRule(iter.Value(), fmt.Sprintf("compile[%d]", i))
		if err != nil {
			return nil, err
		}
		r.compile = append(r.compile, rule)
	}
	if len(r.compile) == 0 {
		return nil, &ParseError{Field: "compile", Message: "at least one compile rule is required", Pos: compileVal.Pos()}
	}

	if layoutsVal := v.LookupPath(cue.ParsePath("layouts")); layoutsVal.Exists() {
		iter, err := layoutsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			rule, err := parseLayoutRule(iter.Value(), fmt.Sprintf("layouts[%d]", i))
			if err != nil {
				return nil, err
			}
			r.layouts = append(r.layouts, rule)
		}
	}
	return r, nil
}

func parseCompileRule(v cue.Value, field string) (compileRule, error) {
	var rule compileRule
	var err error
	if rule.pattern, err = parsePattern(v, field); err != nil {
		return rule, err
	}

	rule.rep = DefaultRep
	if rep, ok, err := optionalString(v, "rep"); err != nil {
		return rule, err
	} else if ok {
		if rep == "" {
			return rule, &ParseError{Field: field + ".rep", Message: "rep name must not be empty", Pos: v.Pos()}
		}
		rule.rep = rep
	}

	if rule.path, _, err = optionalString(v, "path"); err != nil {
		return rule, err
	}

	actionsVal := v.LookupPath(cue.ParsePath("actions"))
	if !actionsVal.Exists() {
		return rule, nil
	}
	iter, err := actionsVal.List()
	if err != nil {
		return rule, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		a, err := parseAction(iter.Value(), fmt.Sprintf("%s.actions[%d]", field, i))
		if err != nil {
			return rule, err
		}
		rule.actions = append(rule.actions, a)
	}
	return rule, nil
}

func parseAction(v cue.Value, field string) (action, error) {
	var a action
	set := 0
	for _, f := range []struct {
		name string
		dst  *string
	}{{"filter", &a.filter}, {"layout", &a.layout}, {"snapshot", &a.snapshot}} {
		s, ok, err := optionalString(v, f.name)
		if err != nil {
			return a, err
		}
		if ok {
			*f.dst = s
			set++
		}
	}
	if set != 1 {
		return a, &ParseError{Field: field, Message: "an action needs exactly one of filter, layout or snapshot", Pos: v.Pos()}
	}

	switch a.snapshot {
	case "":
	case site.SnapshotRaw, site.SnapshotLast:
		return a, &ParseError{Field: field, Message: fmt.Sprintf("snapshot %q is taken implicitly", a.snapshot), Pos: v.Pos()}
	}

	var err error
	if a.params, err = parseParams(v, field); err != nil {
		return a, err
	}
	if a.path, _, err = optionalString(v, "path"); err != nil {
		return a, err
	}
	if a.path != "" && a.snapshot == "" {
		return a, &ParseError{Field: field + ".path", Message: "only snapshot actions have a path", Pos: v.Pos()}
	}
	return a, nil
}

func parseLayoutRule(v cue.Value, field string) (layoutRule, error) {
	var rule layoutRule
	var err error
	if rule.pattern, err = parsePattern(v, field); err != nil {
		return rule, err
	}
	filter, ok, err := optionalString(v, "filter")
	if err != nil {
		return rule, err
	}
	if !ok || filter == "" {
		return rule, &ParseError{Field: field + ".filter", Message: "filter is required", Pos: v.Pos()}
	}
	rule.filter = filter
	rule.params, err = parseParams(v, field)
	return rule, err
}

func parsePattern(v cue.Value, field string) (site.Pattern, error) {
	s, ok, err := optionalString(v, "pattern")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ParseError{Field: field + ".pattern", Message: "pattern is required", Pos: v.Pos()}
	}
	p, err := site.ParsePattern(s)
	if err != nil {
		return nil, &ParseError{Field: field + ".pattern", Message: err.Error(), Pos: v.Pos()}
	}
	return p, nil
}

func parseParams(v cue.Value, field string) (ir.IRObject, error) {
	pv := v.LookupPath(cue.ParsePath("params"))
	if !pv.Exists() {
		return nil, nil
	}
	var m map[string]any
	if err := pv.Decode(&m); err != nil {
		return nil, formatCUEError(err)
	}
	params, err := ir.ObjectFromGo(m)
	if err != nil {
		return nil, &ParseError{Field: field + ".params", Message: err.Error(), Pos: pv.Pos()}
	}
	return params, nil
}

func optionalString(v cue.Value, name string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

// ParseError is an invalid rules file.
type ParseError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ParseError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &ParseError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
