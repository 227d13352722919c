package filters

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/view"
)

// Template evaluates src as a text/template with the view assigns as data:
// {{ .Item.Attr "title" }}, {{ (.Items.Get "/foo.md").CompiledContent }},
// {{ .Config.Get "base_url" }}, and {{ .Content }} inside layouts.
//
// Errors returned by view methods are wrapped by text/template, so a
// suspension signal raised inside a template stays detectable with
// errors.As.
type Template struct{}

var templateFuncs = template.FuncMap{
	"join":  strings.Join,
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	"trim":  strings.TrimSpace,
}

// Run implements Filter.
func (Template) Run(src []byte, params ir.IRObject, a *view.Assigns) ([]byte, error) {
	name := "content"
	if a != nil && a.Layout != nil {
		name = a.Layout.Identifier()
	} else if a != nil && a.Item != nil {
		name = a.Item.Identifier()
	}

	tmpl := template.New(name).Funcs(templateFuncs)
	if boolParam(params, "strict", false) {
		tmpl = tmpl.Option("missingkey=error")
	}
	tmpl, err := tmpl.Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
