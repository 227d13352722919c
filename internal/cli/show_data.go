package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Reality2byte/nanoc/internal/deps"
	"github.com/Reality2byte/nanoc/internal/engine"
	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/outdatedness"
)

// ShowData is what show-data reports.
type ShowData struct {
	Items   []ItemData   `json:"items"`
	Layouts []StatusData `json:"layouts"`
}

// ItemData is one item with its dependencies and reps.
type ItemData struct {
	Identifier   string           `json:"identifier"`
	Dependencies []DependencyData `json:"dependencies"`
	Reps         []StatusData     `json:"reps"`
}

// DependencyData is one edge into an item.
type DependencyData struct {
	From  string   `json:"from"`
	Props []string `json:"props"`
}

// StatusData is the outdatedness of one rep or layout.
type StatusData struct {
	Ref      string   `json:"ref"`
	Outdated bool     `json:"outdated"`
	Reasons  []string `json:"reasons,omitempty"`
}

// NewShowDataCommand creates the show-data command.
func NewShowDataCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show-data",
		Short: "Show dependencies and outdatedness",
		Long: `Show, for every item, the objects it depends on and what it read of them,
and for every rep and layout whether it is outdated and why.

Nothing is compiled and the stores are left untouched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowData(cmd.Context(), rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func runShowData(ctx context.Context, opts *RootOptions, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts, out, errOut)

	p, err := openProject(opts.Root, opts.Logger())
	if err != nil {
		return formatter.Fail(err, nil)
	}
	st, err := p.openStore()
	if err != nil {
		return formatter.Fail(err, nil)
	}
	defer st.Close()

	in, err := p.input(ctx, nil)
	if err != nil {
		return formatter.Fail(err, nil)
	}
	comp, err := p.compiler(st)
	if err != nil {
		return formatter.Fail(err, nil)
	}
	insp, err := comp.Inspect(ctx, in)
	if err != nil {
		return formatter.Fail(err, nil)
	}

	data := toShowData(insp)
	if formatter.Format == "json" {
		return formatter.Success(data)
	}
	writeShowData(formatter.Writer, data)
	return nil
}

func toShowData(insp *engine.Inspection) ShowData {
	data := ShowData{Items: []ItemData{}, Layouts: []StatusData{}}
	for _, item := range insp.Items {
		d := ItemData{Identifier: item.Ref.Identifier, Dependencies: []DependencyData{}}
		for _, dep := range item.Dependencies {
			d.Dependencies = append(d.Dependencies, DependencyData{From: dep.From.String(), Props: propNames(dep.Props)})
		}
		for _, rep := range item.Reps {
			d.Reps = append(d.Reps, toStatus(rep))
		}
		data.Items = append(data.Items, d)
	}
	for _, layout := range insp.Layouts {
		data.Layouts = append(data.Layouts, toStatus(layout))
	}
	return data
}

func toStatus(s engine.ObjectStatus) StatusData {
	return StatusData{Ref: s.Ref.String(), Outdated: s.Outdated, Reasons: reasonMessages(s.Reasons)}
}

func reasonMessages(reasons []outdatedness.Reason) []string {
	var out []string
	for _, r := range reasons {
		out = append(out, r.Message())
	}
	return out
}

func propNames(p deps.Props) []string {
	var names []string
	if p.RawContent {
		names = append(names, "raw_content")
	} else if len(p.RawContentPatterns) > 0 {
		names = append(names, "raw_content("+strings.Join(p.RawContentPatterns, ", ")+")")
	}
	if p.Attributes {
		names = append(names, "attributes")
	} else if len(p.AttributeKeys) > 0 {
		names = append(names, "attributes("+strings.Join(p.AttributeKeys, ", ")+")")
	}
	for _, pair := range p.AttributePairs {
		v, err := ir.MarshalIRValue(pair.Value)
		if err != nil {
			v = []byte("?")
		}
		names = append(names, fmt.Sprintf("attribute(%s=%s)", pair.Key, v))
	}
	if p.CompiledContent {
		names = append(names, "compiled_content")
	}
	return names
}

func writeShowData(w io.Writer, data ShowData) {
	for _, item := range data.Items {
		fmt.Fprintf(w, "item %s depends on:\n", item.Identifier)
		if len(item.Dependencies) == 0 {
			fmt.Fprintln(w, "  (nothing)")
		}
		for _, d := range item.Dependencies {
			fmt.Fprintf(w, "  %s (%s)\n", d.From, strings.Join(d.Props, ", "))
		}
		fmt.Fprintln(w)
	}
	for _, item := range data.Items {
		for _, rep := range item.Reps {
			writeStatus(w, rep)
		}
	}
	for _, layout := range data.Layouts {
		writeStatus(w, layout)
	}
}

func writeStatus(w io.Writer, s StatusData) {
	fmt.Fprintf(w, "%s:\n", s.Ref)
	if !s.Outdated {
		fmt.Fprintln(w, "  is not outdated")
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintln(w, "  is outdated:")
	for _, r := range s.Reasons {
		fmt.Fprintf(w, "    - %s\n", r)
	}
	if len(s.Reasons) == 0 {
		fmt.Fprintln(w, "    - not compiled by the previous run")
	}
	fmt.Fprintln(w)
}
